package detector

import (
	"regexp"

	"porkvision/internal/audit"
)

// Flag kinds, one per pattern category.
const (
	KindDistrictAllocation = "Committee Chair District Allocation"
	KindNoBid              = "No-Bid Contract Provision"
	KindRevolvingDoor      = "Revolving Door Provision"
	KindEarmark            = "Specific Entity Funding"
	KindVagueLanguage      = "Vague Language"
)

// category is one named battery of patterns sharing a severity.
type category struct {
	Kind     string
	Severity audit.Risk
	Patterns []pattern
	// Describe renders the flag description from the full match and the
	// first capture group (empty when the pattern has none).
	Describe func(match, group string) string
}

// pattern is a compiled expression plus an optional list of continuations
// that cancel a match. The list stands in for a negative lookahead, which
// RE2 does not support; entries are compared case-insensitively against the
// text that immediately follows the match.
type pattern struct {
	re      *regexp.Regexp
	exclude []string
}

// Money amount as written in bills: $1,250,000.00
const money = `\$(\d+(?:,\d{3})*(?:\.\d{2})?)`

// Recipient: a capitalized name run or a bracketed placeholder such as [NAME].
const recipient = `(?:[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*|\[[^\]]*\])`

const district = `(?:to|for)\s+(?:the\s+)?(?:district|constituency)\s+(?:of\s+)?(?:representative|senator)?\s*` + recipient

func mustPattern(expr string, exclude ...string) pattern {
	return pattern{re: regexp.MustCompile(`(?i)` + expr), exclude: exclude}
}

// battery is the fixed, ordered set of categories run by Detect.
var battery = []category{
	{
		Kind:     KindDistrictAllocation,
		Severity: audit.RiskHigh,
		Patterns: []pattern{
			mustPattern(money + `\s+(?:is )?(?:hereby )?allocated?\s+` + district),
			mustPattern(`appropriation\s+of\s+` + money + `\s+` + district),
			mustPattern(`funds?\s+(?:of\s+)?` + money + `\s+(?:are\s+)?(?:directed|allocated|assigned)\s+` + district),
			mustPattern(`committee chair\s+` + recipient + `\s+(?:receives?|gets?|obtains?)\s+funding\s+of\s+` + money),
		},
		Describe: func(_, amount string) string {
			return "Potential allocation of $" + amount + " to district of committee chair or legislator"
		},
	},
	{
		Kind:     KindNoBid,
		Severity: audit.RiskHigh,
		Patterns: []pattern{
			mustPattern(`sole source`),
			mustPattern(`no competitive bidding`),
			mustPattern(`without competition`),
			mustPattern(`waiver.*competitive.*bid`),
			mustPattern(`emergency procurement`),
		},
		Describe: quoted("Found potential no-bid contract language"),
	},
	{
		Kind:     KindRevolvingDoor,
		Severity: audit.RiskMedium,
		Patterns: []pattern{
			mustPattern(`former (?:employee|official|staff member).*shall be eligible for`),
			mustPattern(`retired.*may receive.*contract`),
			mustPattern(`past (?:member|official|employee).*entitled to`),
		},
		Describe: quoted("Potential revolving door provision"),
	},
	{
		Kind:     KindEarmark,
		Severity: audit.RiskMedium,
		Patterns: []pattern{
			mustPattern(`specifically designated for `, "the state", "education", "health", "transportation"),
			mustPattern(`funds allocated to `, "general fund", "state agencies"),
			mustPattern(`appropriated directly to `, "state department"),
		},
		Describe: quoted("Potential earmark or specific entity funding"),
	},
	{
		Kind:     KindVagueLanguage,
		Severity: audit.RiskLow,
		Patterns: []pattern{
			mustPattern(`other purposes as determined by`),
			mustPattern(`miscellaneous expenses`),
			mustPattern(`administrative costs`),
			mustPattern(`consulting services`),
			mustPattern(`study and evaluation`),
		},
		Describe: quoted("Potentially vague language that could hide undisclosed spending"),
	},
}

func quoted(prefix string) func(match, group string) string {
	return func(match, _ string) string {
		return prefix + `: "` + match + `"`
	}
}
