// Package ingest turns command-line arguments into analysis input: literal
// bill text from a file or stdin, or a URL for the engine to retrieve.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"porkvision/internal/logging"
)

// DefaultMaxBytes caps a single input.
const DefaultMaxBytes int64 = 4 << 20

var (
	// ErrEmptyInput is returned for input with no visible text.
	ErrEmptyInput = errors.New("input is empty")
	// ErrTooLarge is returned when input exceeds the byte limit.
	ErrTooLarge = errors.New("input exceeds size limit")
)

// Kind says how the bill was supplied.
type Kind int

const (
	KindText Kind = iota
	KindURL
)

func (k Kind) String() string {
	if k == KindURL {
		return "url"
	}
	return "text"
}

// RawInput is one bill to analyze, plus an optional earlier version.
type RawInput struct {
	Kind       Kind
	Content    string
	Comparison string
	// Source names where Content came from: a path, "stdin" or the URL.
	Source string
}

// IsURL reports whether s is a single absolute http(s) URL.
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Loader resolves arguments to input.
type Loader struct {
	Stdin    io.Reader
	MaxBytes int64
}

// NewLoader returns a loader reading "-" from os.Stdin.
func NewLoader(maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Loader{Stdin: os.Stdin, MaxBytes: maxBytes}
}

// Load resolves arg. A URL is kept as-is for the engine to fetch, "-" reads
// stdin, anything else is a file path. HTML files are reduced to text.
func (l *Loader) Load(arg string) (RawInput, error) {
	arg = strings.TrimSpace(arg)
	if IsURL(arg) {
		logging.IngestDebug("input is a URL: %s", arg)
		return RawInput{Kind: KindURL, Content: arg, Source: arg}, nil
	}

	text, source, err := l.readText(arg)
	if err != nil {
		return RawInput{}, err
	}
	logging.Ingest("loaded %d bytes of bill text from %s", len(text), source)
	return RawInput{Kind: KindText, Content: text, Source: source}, nil
}

// LoadComparison reads the earlier bill version for diff mode. It must be
// literal text, never a URL.
func (l *Loader) LoadComparison(arg string) (string, error) {
	if IsURL(arg) {
		return "", fmt.Errorf("comparison must be a file or -, not a URL: %s", arg)
	}
	text, _, err := l.readText(arg)
	return text, err
}

func (l *Loader) readText(arg string) (string, string, error) {
	var (
		r      io.Reader
		source string
	)
	if arg == "-" || arg == "" {
		r, source = l.Stdin, "stdin"
	} else {
		f, err := os.Open(arg)
		if err != nil {
			return "", "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r, source = f, arg
	}

	text, err := ReadLimited(r, l.MaxBytes)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", source, err)
	}
	if isHTMLPath(source) || LooksLikeHTML(text) {
		text, err = HTMLToText(text)
		if err != nil {
			return "", "", fmt.Errorf("parse html %s: %w", source, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", "", fmt.Errorf("%s: %w", source, ErrEmptyInput)
	}
	return text, source, nil
}

// ReadLimited reads all of r, failing with ErrTooLarge past limit bytes.
func ReadLimited(r io.Reader, limit int64) (string, error) {
	if r == nil {
		return "", ErrEmptyInput
	}
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > limit {
		return "", fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return string(b), nil
}

func isHTMLPath(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}
