// Package extraction salvages a JSON object from free-form engine output.
//
// Engine replies wrap the payload in prose, markdown fences, echoed prompts
// and the occasional trailing comma. The extractor strips fences, scans for
// balanced top-level objects, picks the longest, and parses it with up to two
// trailing-comma repair passes.
package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"porkvision/internal/logging"
)

// ErrNoStructure means the text held no balanced {...} structure.
var ErrNoStructure = errors.New("no balanced JSON structure found in engine reply")

// MalformedError means a structure was found but did not decode after repair.
type MalformedError struct {
	Candidate string
	Err       error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("payload did not parse after repair: %v", e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Repair levels recorded on a Candidate.
const (
	RepairNone       = 0 // parsed as found
	RepairAdjacent   = 1 // ",}" and ",]" removed
	RepairWhitespace = 2 // commas separated from the closer by whitespace removed
)

// Candidate is a decoded, not yet validated, payload.
type Candidate struct {
	Value          map[string]any
	Raw            string // the text that decoded
	Fenced         bool   // working text came from a fenced block
	Repair         int
	CandidateCount int
	// Ambiguous is set when several candidates shared the maximum length.
	Ambiguous bool
}

// Stats tracks extraction outcomes for monitoring.
type Stats struct {
	Processed   int
	Parsed      int
	Repaired    int
	NoStructure int
	Malformed   int
	Ambiguous   int
}

// Extractor is safe for concurrent use.
type Extractor struct {
	mu    sync.Mutex
	stats Stats
}

// New creates an extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract finds and decodes the payload in text. It returns ErrNoStructure
// (wrapped) when there is nothing to decode and *MalformedError when the best
// candidate would not decode.
//
// The string-aware scan runs first. When it finds nothing, or nothing that
// decodes, a brace-depth-only scan gets a second try.
func (x *Extractor) Extract(text string) (*Candidate, error) {
	x.record(func(s *Stats) { s.Processed++ })

	working, fenced := unfence(sanitize(text))
	candidates := findCandidates(working)

	var malformed *MalformedError
	if len(candidates) > 0 {
		c, err := x.pick(candidates, fenced)
		if err == nil {
			return c, nil
		}
		malformed = err
	}

	if fallback := findBraceCandidates(working); len(fallback) > 0 && !slices.Equal(fallback, candidates) {
		logging.ExtractionDebug("retrying with brace-depth scan: %d candidates", len(fallback))
		c, err := x.pick(fallback, fenced)
		if err == nil {
			return c, nil
		}
		if malformed == nil {
			malformed = err
		}
	}

	if malformed == nil {
		x.record(func(s *Stats) { s.NoStructure++ })
		logging.ExtractionWarn("no structure in %d bytes of engine output (fenced=%v)", len(text), fenced)
		return nil, ErrNoStructure
	}
	x.record(func(s *Stats) { s.Malformed++ })
	logging.ExtractionWarn("best candidate failed to decode: %v", malformed.Err)
	return nil, malformed
}

// pick decodes the longest candidates in text order.
func (x *Extractor) pick(candidates []string, fenced bool) (*Candidate, *MalformedError) {
	best := longest(candidates)
	ambiguous := len(best) > 1
	if ambiguous {
		x.record(func(s *Stats) { s.Ambiguous++ })
		logging.ExtractionWarn("%d candidates share the maximum length %d; trying each in order", len(best), len(best[0]))
	}

	var firstErr error
	for _, raw := range best {
		value, used, repair, err := decode(raw)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		x.record(func(s *Stats) {
			s.Parsed++
			if repair > RepairNone {
				s.Repaired++
			}
		})
		logging.ExtractionDebug("decoded candidate of %d bytes (of %d found, repair=%d)", len(used), len(candidates), repair)
		return &Candidate{
			Value:          value,
			Raw:            used,
			Fenced:         fenced,
			Repair:         repair,
			CandidateCount: len(candidates),
			Ambiguous:      ambiguous,
		}, nil
	}
	return nil, &MalformedError{Candidate: best[0], Err: firstErr}
}

// decode parses raw, retrying once per repair level. The error returned on
// failure is the one from the unrepaired text.
func decode(raw string) (map[string]any, string, int, error) {
	var value map[string]any
	firstErr := json.Unmarshal([]byte(raw), &value)
	if firstErr == nil {
		return value, raw, RepairNone, nil
	}

	fixed, n := stripTrailingCommas(raw, false)
	if n > 0 {
		value = nil
		if err := json.Unmarshal([]byte(fixed), &value); err == nil {
			return value, fixed, RepairAdjacent, nil
		}
	}

	fixed, n = stripTrailingCommas(fixed, true)
	if n > 0 {
		value = nil
		if err := json.Unmarshal([]byte(fixed), &value); err == nil {
			return value, fixed, RepairWhitespace, nil
		}
	}

	return nil, "", RepairNone, firstErr
}

func (x *Extractor) record(fn func(*Stats)) {
	x.mu.Lock()
	fn(&x.stats)
	x.mu.Unlock()
}

// Stats returns a snapshot of the counters.
func (x *Extractor) Stats() Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.stats
}

// ResetStats zeroes the counters.
func (x *Extractor) ResetStats() {
	x.mu.Lock()
	x.stats = Stats{}
	x.mu.Unlock()
}
