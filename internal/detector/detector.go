// Package detector scans bill text for statutory patterns that commonly hide
// pork-barrel spending. It is purely local: no network, no engine, no failure
// mode. An empty result is a valid outcome.
package detector

import (
	"strings"
	"unicode/utf8"

	"porkvision/internal/audit"
	"porkvision/internal/logging"
)

// MaxExcerptRunes bounds the trigger excerpt stored on each flag.
const MaxExcerptRunes = 100

const ellipsis = "..."

// Detect runs every pattern category over text and returns one flag per match,
// ordered by category, then pattern, then position in the text.
func Detect(text string) []audit.LocalRedFlag {
	flags := []audit.LocalRedFlag{}
	if strings.TrimSpace(text) == "" {
		return flags
	}

	timer := logging.StartTimer(logging.CategoryDetector, "detect")
	defer timer.Stop()

	for _, cat := range battery {
		before := len(flags)
		for _, p := range cat.Patterns {
			flags = append(flags, p.scan(text, cat)...)
		}
		if n := len(flags) - before; n > 0 {
			logging.DetectorDebug("%s: %d matches", cat.Kind, n)
		}
	}

	logging.Detector("pattern scan found %d red flags in %d bytes", len(flags), len(text))
	return flags
}

func (p pattern) scan(text string, cat category) []audit.LocalRedFlag {
	var out []audit.LocalRedFlag
	for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
		if p.excluded(text[loc[1]:]) {
			continue
		}
		match := text[loc[0]:loc[1]]
		group := ""
		if len(loc) >= 4 && loc[2] >= 0 {
			group = text[loc[2]:loc[3]]
		}
		excerpt := Excerpt(match)
		out = append(out, audit.LocalRedFlag{
			Kind:        cat.Kind,
			Description: cat.Describe(excerpt, group),
			Severity:    cat.Severity,
			TriggerSpan: excerpt,
		})
	}
	return out
}

func (p pattern) excluded(rest string) bool {
	for _, ex := range p.exclude {
		if len(rest) >= len(ex) && strings.EqualFold(rest[:len(ex)], ex) {
			return true
		}
	}
	return false
}

// Excerpt bounds s to MaxExcerptRunes runes, marking truncation with "...".
func Excerpt(s string) string {
	if utf8.RuneCountInString(s) <= MaxExcerptRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxExcerptRunes]) + ellipsis
}

// Summary counts flags by severity.
func Summary(flags []audit.LocalRedFlag) map[audit.Risk]int {
	counts := make(map[audit.Risk]int, len(audit.RiskLevels))
	for _, f := range flags {
		counts[f.Severity]++
	}
	return counts
}
