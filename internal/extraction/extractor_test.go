package extraction

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_FencedWithTrailingComma(t *testing.T) {
	reply := "Here is the audit you asked for:\n```json\n{\n  \"summary\": \"ok\",\n  \"overallRiskScore\": 40,\n}\n```\nLet me know if you need more."

	x := New()
	c, err := x.Extract(reply)
	require.NoError(t, err)

	assert.True(t, c.Fenced)
	assert.Equal(t, "ok", c.Value["summary"])
	assert.Equal(t, 40.0, c.Value["overallRiskScore"])
	assert.Equal(t, RepairWhitespace, c.Repair)
}

func TestExtract_AdjacentCommaRepair(t *testing.T) {
	c, err := New().Extract(`{"porkBarrel":[{"item":"a","reason":"b","risk":"low"},],"summary":"s",}`)
	require.NoError(t, err)
	assert.Equal(t, RepairAdjacent, c.Repair)
	assert.Len(t, c.Value["porkBarrel"], 1)
}

func TestExtract_SelectsLongest(t *testing.T) {
	reply := `Echo of your request: {"bill": "HB 12"}. Result: {"summary": "the full payload", "overallRiskScore": 10}`

	c, err := New().Extract(reply)
	require.NoError(t, err)
	assert.Equal(t, "the full payload", c.Value["summary"])
	assert.Equal(t, 2, c.CandidateCount)
	assert.False(t, c.Ambiguous)
}

func TestExtract_TieTriesEachInOrder(t *testing.T) {
	// Same length; the first does not decode.
	reply := `{"a": tru} and {"b": 123}`

	x := New()
	c, err := x.Extract(reply)
	require.NoError(t, err)
	assert.True(t, c.Ambiguous)
	assert.Equal(t, 123.0, c.Value["b"])
	assert.Equal(t, 1, x.Stats().Ambiguous)
}

func TestExtract_CommaInsideStringPreserved(t *testing.T) {
	c, err := New().Extract(`{"summary": "funds go to [a, ]", "x": [1,],}`)
	require.NoError(t, err)
	assert.Equal(t, "funds go to [a, ]", c.Value["summary"])
}

func TestExtract_NewlinesInsideStrings(t *testing.T) {
	c, err := New().Extract("{\"summary\": \"line one\nline two\"}")
	require.NoError(t, err)
	assert.Equal(t, "line one line two", c.Value["summary"])
}

func TestExtract_UnbalancedQuoteInPreamble(t *testing.T) {
	// The echoed format object never closes its string, so the quote-aware
	// scan runs to the end of the reply without a candidate.
	reply := "Sure! Format is {\"a\": \"x}, then the answer:\n{\"porkBarrel\": [1,2,], \"b\": {\"c\": 1,}\n}"
	require.Empty(t, findCandidates(sanitize(reply)))

	x := New()
	c, err := x.Extract(reply)
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, c.Value["porkBarrel"])
	assert.Equal(t, map[string]any{"c": 1.0}, c.Value["b"])
	assert.Equal(t, RepairAdjacent, c.Repair)
	assert.Equal(t, 2, c.CandidateCount)
	assert.Equal(t, 1, x.Stats().Parsed)
	assert.Zero(t, x.Stats().NoStructure)
}

func TestExtract_BraceScanAfterUndecodableCandidate(t *testing.T) {
	// Quote-aware scan yields only the broken preamble object; the brace
	// scan splits it and finds the payload.
	reply := `{"note": "a} {"summary": "the payload here"} "}`
	require.Equal(t, []string{reply}, findCandidates(reply))

	x := New()
	c, err := x.Extract(reply)
	require.NoError(t, err)
	assert.Equal(t, "the payload here", c.Value["summary"])
	assert.Equal(t, 2, c.CandidateCount)
	assert.Zero(t, x.Stats().Malformed)
}

func TestExtract_NoStructure(t *testing.T) {
	x := New()
	_, err := x.Extract("I'm sorry, I cannot audit this document.")
	assert.ErrorIs(t, err, ErrNoStructure)

	_, err = x.Extract("")
	assert.ErrorIs(t, err, ErrNoStructure)
	assert.Equal(t, 2, x.Stats().NoStructure)
}

func TestExtract_Malformed(t *testing.T) {
	x := New()
	_, err := x.Extract(`Result: {"summary": "ok", "score": }`)
	require.Error(t, err)

	var malformed *MalformedError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Candidate, `"summary"`)
	assert.NotErrorIs(t, err, ErrNoStructure)
	assert.Equal(t, 1, x.Stats().Malformed)
}

func TestExtractor_Stats(t *testing.T) {
	x := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = x.Extract(`{"a": 1,}`)
		}()
	}
	wg.Wait()

	stats := x.Stats()
	assert.Equal(t, 20, stats.Processed)
	assert.Equal(t, 20, stats.Parsed)
	assert.Equal(t, 20, stats.Repaired)

	x.ResetStats()
	assert.Equal(t, Stats{}, x.Stats())
}
