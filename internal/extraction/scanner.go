package extraction

import (
	"regexp"
	"strings"
)

// fenceRe matches one fenced code block, optionally tagged json.
var fenceRe = regexp.MustCompile("(?s)```(?i:json)?\\s*(.*?)\\s*```")

// unfence returns the content of every fenced block joined by newlines, or
// text unchanged when it has no fence. An unterminated opening fence is
// dropped and everything after it is kept.
func unfence(text string) (string, bool) {
	if !strings.Contains(text, "```") {
		return text, false
	}
	blocks := fenceRe.FindAllStringSubmatch(text, -1)
	if len(blocks) == 0 {
		idx := strings.Index(text, "```")
		rest := text[idx+3:]
		if len(rest) >= 4 && strings.EqualFold(rest[:4], "json") {
			rest = rest[4:]
		}
		return strings.TrimSpace(rest), true
	}
	parts := make([]string, 0, len(blocks))
	for _, m := range blocks {
		parts = append(parts, m[1])
	}
	return strings.Join(parts, "\n"), true
}

// sanitize drops control characters that break JSON decoding. Tab, newline and
// carriage return become spaces so words inside string values stay apart.
func sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, text)
}

// findCandidates scans for top-level {...} structures. Quotes are only
// tracked inside a structure, so stray quotes in surrounding prose do not
// hide braces. A closing brace at depth zero is ignored.
//
// Iterating bytes is safe for the ASCII delimiters ({, }, ", \): UTF-8 never
// uses ASCII bytes inside a multi-byte sequence.
func findCandidates(s string) []string {
	return scanCandidates(s, true)
}

// findBraceCandidates counts brace depth only. An unbalanced quote inside an
// echoed or truncated object cannot swallow the rest of the reply here.
func findBraceCandidates(s string) []string {
	return scanCandidates(s, false)
}

func scanCandidates(s string, quotes bool) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			if quotes && depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}

// longest returns every candidate sharing the maximum length, in text order.
func longest(candidates []string) []string {
	maxLen := -1
	var out []string
	for _, c := range candidates {
		switch {
		case len(c) > maxLen:
			maxLen = len(c)
			out = []string{c}
		case len(c) == maxLen:
			out = append(out, c)
		}
	}
	return out
}

// stripTrailingCommas removes commas that precede a closing brace or bracket.
// With loose=false only a comma directly adjacent to the closer is removed;
// with loose=true whitespace between them is allowed. Commas inside string
// literals are never touched.
func stripTrailingCommas(s string, loose bool) (string, int) {
	var sb strings.Builder
	sb.Grow(len(s))
	removed := 0
	inString := false
	escape := false

	for i := 0; i < len(s); i++ {
		b := s[i]
		if escape {
			escape = false
			sb.WriteByte(b)
			continue
		}
		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			sb.WriteByte(b)
			continue
		}
		if b == '"' {
			inString = true
			sb.WriteByte(b)
			continue
		}
		if b == ',' {
			j := i + 1
			if loose {
				for j < len(s) && isSpace(s[j]) {
					j++
				}
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				removed++
				continue
			}
		}
		sb.WriteByte(b)
	}
	return sb.String(), removed
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
