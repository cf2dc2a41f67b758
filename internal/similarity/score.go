package similarity

import (
	"math"
	"regexp"
	"strings"
)

// Score weights. They sum to 1.
const (
	weightCosine  = 0.4
	weightJaccard = 0.4
	weightLCS     = 0.2
)

const gramSize = 3

// boilerplate is stripped before comparison; these phrases appear in almost
// every bill and say nothing about who drafted it. Order matters: a shorter
// phrase removed first can prevent a longer one from matching, so every
// phrase precedes the phrases it contains.
var boilerplate = []string{
	"be it further enacted", "be it enacted", "the general assembly",
	"subsection", "section", "paragraph", "chapter", "article", "title",
	"part", "of the state of", "united states", "fiscal year", "appropriation",
	"it is hereby declared", "hereby declared", "the legislature finds",
	"whereas", "therefore", "this act shall take effect",
}

var (
	boilerplateRes = compileBoilerplate()
	whitespaceRe   = regexp.MustCompile(`\s+`)
	amountRe       = regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{2})?`)
	dateRe         = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	yearRe         = regexp.MustCompile(`\b\d{4}\b`)
)

func compileBoilerplate() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(boilerplate))
	for i, phrase := range boilerplate {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`)
	}
	return out
}

// Normalize lowercases text, collapses whitespace, strips legal boilerplate and
// replaces money amounts, dates and years with placeholder tokens.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = whitespaceRe.ReplaceAllString(s, " ")
	for _, re := range boilerplateRes {
		s = re.ReplaceAllString(s, "")
	}
	s = amountRe.ReplaceAllString(s, "[AMOUNT]")
	// Dates before years, or the year inside a date is consumed first.
	s = dateRe.ReplaceAllString(s, "[DATE]")
	s = yearRe.ReplaceAllString(s, "[YEAR]")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Score returns the 0-100 similarity of two texts. It is symmetric, returns
// 100 for identical non-empty inputs and 0 when either side normalizes to
// nothing.
func Score(a, b string) int {
	return scoreNormalized(Normalize(a), Normalize(b))
}

func scoreNormalized(na, nb string) int {
	if na == "" || nb == "" {
		return 0
	}
	ra, rb := []rune(na), []rune(nb)
	combined := weightCosine*Cosine(ra, rb) + weightJaccard*Jaccard(na, nb) + weightLCS*LCSRatio(ra, rb)
	return int(math.Round(combined * 100))
}

// grams counts character trigrams. A string shorter than one gram counts as a
// single gram of itself so that short identical strings still compare equal.
func grams(r []rune) map[string]int {
	counts := make(map[string]int)
	if len(r) < gramSize {
		if len(r) > 0 {
			counts[string(r)] = 1
		}
		return counts
	}
	for i := 0; i+gramSize <= len(r); i++ {
		counts[string(r[i:i+gramSize])]++
	}
	return counts
}

// Cosine is the cosine similarity of the trigram frequency vectors of a and b.
func Cosine(a, b []rune) float64 {
	ga, gb := grams(a), grams(b)
	if len(ga) == 0 || len(gb) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for g, ca := range ga {
		magA += float64(ca * ca)
		if cb, ok := gb[g]; ok {
			dot += float64(ca * cb)
		}
	}
	for _, cb := range gb {
		magB += float64(cb * cb)
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Jaccard is |A∩B| / |A∪B| over whitespace-separated word sets.
func Jaccard(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	union := len(wa)
	inter := 0
	for w := range wb {
		if wa[w] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

// LCSRatio is the longest common substring length divided by the length of
// the shorter input. Two rolling rows of the dynamic-programming table are kept
// instead of the full matrix.
func LCSRatio(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	longest := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > longest {
					longest = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return float64(longest) / float64(min(len(a), len(b)))
}
