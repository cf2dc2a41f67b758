package similarity

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"porkvision/internal/logging"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var embeddedCorpus []byte

// Template is one model-legislation clause.
type Template struct {
	Source   string `yaml:"source" json:"source"`
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Text     string `yaml:"text" json:"text"`
	Category string `yaml:"category" json:"category"`
}

// Corpus is a read-only set of templates. It is never mutated after load and
// may be shared across concurrent analyses without locking.
type Corpus struct {
	templates []Template
	sources   []string
}

type corpusFile struct {
	Templates []Template `yaml:"templates"`
}

// ParseCorpus decodes and checks a YAML corpus document.
func ParseCorpus(data []byte) (*Corpus, error) {
	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}
	return NewCorpus(file.Templates)
}

// NewCorpus builds a corpus from templates, rejecting blank or duplicate ids
// and templates with no text.
func NewCorpus(templates []Template) (*Corpus, error) {
	seen := make(map[string]bool, len(templates))
	c := &Corpus{templates: make([]Template, 0, len(templates))}
	for i, t := range templates {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return nil, fmt.Errorf("template %d: missing id", i)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("template %s: duplicate id", t.ID)
		}
		if strings.TrimSpace(t.Text) == "" {
			return nil, fmt.Errorf("template %s: empty text", t.ID)
		}
		seen[t.ID] = true
		if !contains(c.sources, t.Source) {
			c.sources = append(c.sources, t.Source)
		}
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// LoadCorpus reads a corpus file from disk.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	c, err := ParseCorpus(data)
	if err != nil {
		return nil, err
	}
	logging.Similarity("loaded %d templates from %s", c.Len(), path)
	return c, nil
}

// DefaultCorpus returns the corpus baked into the binary.
func DefaultCorpus() *Corpus {
	c, err := ParseCorpus(embeddedCorpus)
	if err != nil {
		panic(fmt.Sprintf("embedded corpus is invalid: %v", err))
	}
	return c
}

// Templates returns a copy of the templates in corpus order.
func (c *Corpus) Templates() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}

// Sources returns the distinct source names in first-seen order.
func (c *Corpus) Sources() []string {
	out := make([]string, len(c.sources))
	copy(out, c.sources)
	return out
}

// Len returns the number of templates.
func (c *Corpus) Len() int {
	return len(c.templates)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
