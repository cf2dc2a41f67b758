package audit

import (
	"math"
	"time"
)

const (
	// UnknownDonor is shown when a fingerprint carries no donor correlation.
	UnknownDonor = "Unknown"
	// NoStatementMatch is shown when no donor statement matched the clause.
	NoStatementMatch = "No direct statement match found"
)

// LocalFindings holds the metrics computed without the engine.
type LocalFindings struct {
	Flags   []LocalRedFlag
	Matches []SimilarityMatch
}

// Clamp bounds a score to [0,100].
func Clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

// DerivePorkPercentage returns the engine-supplied percentage when present, and
// otherwise a heuristic from the finding count and the overall risk score.
// Findings are pork-barrel items plus lobbyist fingerprints; none means 0.
func DerivePorkPercentage(r AuditResult) float64 {
	if r.PorkPercentage != nil {
		return *r.PorkPercentage
	}
	flags := len(r.PorkBarrel) + len(r.LobbyistFingerprints)
	if flags == 0 {
		return 0
	}
	return Clamp(float64(flags)*10 + r.OverallRiskScore/2)
}

// LobbyistSummary flattens the donor correlations for display.
func LobbyistSummary(r AuditResult) []LobbyistSummaryEntry {
	out := make([]LobbyistSummaryEntry, 0, len(r.LobbyistFingerprints))
	for _, fp := range r.LobbyistFingerprints {
		entry := LobbyistSummaryEntry{
			Beneficiary: fp.Beneficiary,
			Donor:       UnknownDonor,
			Match:       NoStatementMatch,
		}
		if fp.DonorCorrelation != nil {
			if fp.DonorCorrelation.DonorName != "" {
				entry.Donor = fp.DonorCorrelation.DonorName
			}
			if fp.DonorCorrelation.StatementMatch != "" {
				entry.Match = fp.DonorCorrelation.StatementMatch
			}
		}
		out = append(out, entry)
	}
	return out
}

// Merge returns a copy of r with derived values filled in. r is not modified.
func Merge(r AuditResult, local LocalFindings) AuditResult {
	merged := r
	pct := DerivePorkPercentage(r)
	merged.PorkPercentage = &pct

	if len(r.EconomicImpact.RedFlags) == 0 && len(local.Flags) > 0 {
		flags := make([]LocalRedFlag, len(local.Flags))
		copy(flags, local.Flags)
		merged.EconomicImpact.RedFlags = flags
	}
	return merged
}

// BuildReport assembles the final report from a validated result and the local metrics.
func BuildReport(r AuditResult, local LocalFindings) *Report {
	merged := Merge(r, local)
	flags := local.Flags
	if flags == nil {
		flags = []LocalRedFlag{}
	}
	matches := local.Matches
	if matches == nil {
		matches = []SimilarityMatch{}
	}
	return &Report{
		Result:          merged,
		LocalFlags:      flags,
		ModelMatches:    matches,
		LobbyistSummary: LobbyistSummary(merged),
		GeneratedAt:     time.Now().UTC(),
	}
}
