// Package audit defines the forensic audit report contract shared by every stage
// of the pipeline: locally detected red flags, model-legislation matches, the
// engine-produced AuditResult and the final Report handed to presentation code.
package audit

import "time"

// Risk is the three-level risk scale used for both engine findings and local flags.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Valid reports whether r is one of the three named levels.
func (r Risk) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// RiskLevels lists the accepted levels in ascending order.
var RiskLevels = []Risk{RiskLow, RiskMedium, RiskHigh}

// =============================================================================
// LOCAL ANALYSIS
// =============================================================================

// LocalRedFlag is a suspicious statutory pattern found by the pattern detector.
// The same shape is used for economicImpact.redFlags on the wire.
type LocalRedFlag struct {
	Kind        string `json:"type"`
	Description string `json:"description"`
	Severity    Risk   `json:"severity" validate:"oneof=low medium high"`
	TriggerSpan string `json:"triggerClause,omitempty"`
}

// SimilarityMatch is one corpus template that scored at or above the threshold.
type SimilarityMatch struct {
	CorpusSource    string `json:"source"`
	TemplateID      string `json:"modelId"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	Score           int    `json:"similarityScore"`
	MatchedExcerpt  string `json:"matchedText"`
	TemplateExcerpt string `json:"modelText"`
}

// =============================================================================
// ENGINE CONTRACT
// =============================================================================

// AuditResult is the strongly typed record salvaged from the engine reply.
// Once validated it is treated as immutable; builders return modified copies.
type AuditResult struct {
	PorkBarrel           []PorkItem            `json:"porkBarrel" validate:"dive"`
	LobbyistFingerprints []LobbyistFingerprint `json:"lobbyistFingerprints" validate:"dive"`
	LocalImpact          *LocalImpact          `json:"localImpact,omitempty"`
	Contradictions       []Contradiction       `json:"contradictions" validate:"dive"`
	EconomicImpact       EconomicImpact        `json:"economicImpact"`
	PorkPercentage       *float64              `json:"porkPercentage,omitempty" validate:"omitempty,min=0,max=100"`
	OverallRiskScore     float64               `json:"overallRiskScore" validate:"min=0,max=100"`
	Summary              string                `json:"summary"`
}

// PorkItem is a single suspected pork-barrel provision.
type PorkItem struct {
	Item   string `json:"item"`
	Reason string `json:"reason"`
	Risk   Risk   `json:"risk" validate:"oneof=low medium high"`
}

// LobbyistFingerprint ties a clause to a suspected beneficiary.
type LobbyistFingerprint struct {
	Clause                 string            `json:"clause"`
	Beneficiary            string            `json:"beneficiary"`
	Evidence               string            `json:"evidence"`
	DonorCorrelation       *DonorCorrelation `json:"donorCorrelation,omitempty"`
	SimilarityScore        *float64          `json:"similarityScore,omitempty" validate:"omitempty,min=0,max=100"`
	SourceModelLegislation string            `json:"sourceModelLegislation,omitempty"`
}

// DonorCorrelation links a fingerprint to a donor's public statement.
type DonorCorrelation struct {
	DonorName          string `json:"donorName"`
	ContributionAmount string `json:"contributionAmount,omitempty"`
	StatementMatch     string `json:"statementMatch"`
}

// LocalImpact describes municipal effects of the bill.
type LocalImpact struct {
	CityCounty           string           `json:"cityCounty"`
	AffectedDemographics string           `json:"affectedDemographics"`
	RegulatoryShift      string           `json:"regulatoryShift"`
	RegulatoryDiff       []RegulatoryDiff `json:"regulatoryDiff,omitempty" validate:"dive"`
}

// RegulatoryDiff is one line of the plain-English version comparison.
type RegulatoryDiff struct {
	Item   string `json:"item"`
	Change string `json:"change"`
	Impact string `json:"impact"`
	Risk   Risk   `json:"risk" validate:"oneof=low medium high"`
}

// Contradiction pairs a statement with the record it contradicts.
type Contradiction struct {
	Statement   string `json:"statement"`
	Contradicts string `json:"contradicts"`
	Source      string `json:"source"`
}

// EconomicImpact summarizes fiscal consequences.
type EconomicImpact struct {
	DebtImpact      string         `json:"debtImpact"`
	LongTermOutlook string         `json:"longTermOutlook"`
	RedFlags        []LocalRedFlag `json:"redFlags,omitempty" validate:"dive"`
}

// =============================================================================
// FINAL REPORT
// =============================================================================

// LobbyistSummaryEntry is the flattened donor view used by presentation code.
type LobbyistSummaryEntry struct {
	Beneficiary string `json:"beneficiary"`
	Donor       string `json:"donor"`
	Match       string `json:"match"`
}

// Report is the finished analysis: the merged AuditResult plus the local metrics
// that were computed independently of the engine.
type Report struct {
	ID               string                 `json:"id,omitempty"`
	Source           string                 `json:"source,omitempty"`
	Result           AuditResult            `json:"result"`
	LocalFlags       []LocalRedFlag         `json:"localFlags"`
	ModelMatches     []SimilarityMatch      `json:"modelMatches"`
	LobbyistSummary  []LobbyistSummaryEntry `json:"lobbyistSummary"`
	GroundingSources []string               `json:"groundingSources,omitempty"`
	Degraded         bool                   `json:"degraded"`
	Attempts         int                    `json:"attempts"`
	GeneratedAt      time.Time              `json:"generatedAt"`
}
