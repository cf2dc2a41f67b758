// Package similarity scores bill text against a corpus of known model
// legislation. Scoring blends trigram cosine, word-set Jaccard and longest
// common substring over boilerplate-stripped text.
package similarity

import (
	"runtime"
	"sort"
	"unicode/utf8"

	"porkvision/internal/audit"
	"porkvision/internal/logging"

	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the minimum score reported as a match.
const DefaultThreshold = 70

// maxExcerptRunes bounds the bill excerpt stored on each match.
const maxExcerptRunes = 200

// Engine matches text against an immutable corpus. Template normalization is
// done once at construction.
type Engine struct {
	corpus     *Corpus
	normalized []string
}

// NewEngine prepares an engine over corpus. A nil corpus means the embedded one.
func NewEngine(corpus *Corpus) *Engine {
	if corpus == nil {
		corpus = DefaultCorpus()
	}
	e := &Engine{corpus: corpus, normalized: make([]string, corpus.Len())}
	for i, t := range corpus.templates {
		e.normalized[i] = Normalize(t.Text)
	}
	return e
}

// Corpus returns the corpus the engine scores against.
func (e *Engine) Corpus() *Corpus {
	return e.corpus
}

// FindMatches scores text against every template in every source and returns
// the templates scoring at or above threshold, highest first. Ties keep corpus
// order. No match is an empty, non-nil slice.
func (e *Engine) FindMatches(text string, threshold int) []audit.SimilarityMatch {
	timer := logging.StartTimer(logging.CategorySimilarity, "FindMatches")
	defer timer.Stop()

	matches := []audit.SimilarityMatch{}
	normText := Normalize(text)
	if normText == "" || e.corpus.Len() == 0 {
		return matches
	}

	scores := make([]int, e.corpus.Len())
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range e.normalized {
		g.Go(func() error {
			scores[i] = scoreNormalized(normText, e.normalized[i])
			return nil
		})
	}
	_ = g.Wait()

	snippet := excerpt(text)
	for i, t := range e.corpus.templates {
		logging.SimilarityDebug("template %s/%s scored %d", t.Source, t.ID, scores[i])
		if scores[i] < threshold {
			continue
		}
		matches = append(matches, audit.SimilarityMatch{
			CorpusSource:    t.Source,
			TemplateID:      t.ID,
			Title:           t.Title,
			Category:        t.Category,
			Score:           scores[i],
			MatchedExcerpt:  snippet,
			TemplateExcerpt: t.Text,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	logging.Similarity("%d of %d templates at or above %d", len(matches), e.corpus.Len(), threshold)
	return matches
}

// Summary is the headline view of a corpus comparison.
type Summary struct {
	HasMatches   bool                    `json:"hasModelLegislationMatches"`
	Matches      []audit.SimilarityMatch `json:"matches"`
	HighestScore int                     `json:"highestMatchScore"`
}

// Analyze runs FindMatches and summarizes the result.
func (e *Engine) Analyze(text string, threshold int) Summary {
	return Summarize(e.FindMatches(text, threshold))
}

// Summarize builds the headline view of matches already sorted by score.
func Summarize(matches []audit.SimilarityMatch) Summary {
	s := Summary{HasMatches: len(matches) > 0, Matches: matches}
	if s.HasMatches {
		s.HighestScore = matches[0].Score
	}
	return s
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= maxExcerptRunes {
		return s
	}
	return string([]rune(s)[:maxExcerptRunes]) + "..."
}
