package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"porkvision/internal/audit"
	"porkvision/internal/detector"
	"porkvision/internal/similarity"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorHigh   = lipgloss.Color("#e53935")
	colorMedium = lipgloss.Color("#FFC107")
	colorLow    = lipgloss.Color("#8BC34A")
	colorMuted  = lipgloss.Color("#8a8f98")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHigh)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

func riskColor(r audit.Risk) lipgloss.Color {
	switch r {
	case audit.RiskHigh:
		return colorHigh
	case audit.RiskMedium:
		return colorMedium
	}
	return colorLow
}

// scoreRisk buckets a 0-100 score onto the risk scale.
func scoreRisk(score float64) audit.Risk {
	switch {
	case score >= 70:
		return audit.RiskHigh
	case score >= 40:
		return audit.RiskMedium
	}
	return audit.RiskLow
}

func riskBadge(r audit.Risk) string {
	return lipgloss.NewStyle().Bold(true).Foreground(riskColor(r)).Render(strings.ToUpper(string(r)))
}

// dashboard is the boxed score header shown above the report body.
func dashboard(r *audit.Report) string {
	pork := 0.0
	if r.Result.PorkPercentage != nil {
		pork = *r.Result.PorkPercentage
	}
	risk := scoreRisk(r.Result.OverallRiskScore)
	cells := []string{
		fmt.Sprintf("Threat level %s %.0f%%", riskBadge(risk), r.Result.OverallRiskScore),
		fmt.Sprintf("Pork %.1f%%", pork),
		fmt.Sprintf("Red flags %d", len(r.Result.EconomicImpact.RedFlags)),
		fmt.Sprintf("Model matches %d", len(r.ModelMatches)),
	}
	header := titleStyle.Render("PORKVISION FORENSIC AUDIT")
	body := strings.Join(cells, mutedStyle.Render("  |  "))
	if r.Degraded {
		body += "\n" + mutedStyle.Render("search grounding was disabled after a quota error")
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, body))
}

// reportMarkdown renders the report body as markdown.
func reportMarkdown(r *audit.Report) string {
	res := r.Result
	var sb strings.Builder

	sb.WriteString("## Summary\n\n")
	sb.WriteString(res.Summary)
	sb.WriteString("\n\n")

	if len(res.PorkBarrel) > 0 {
		sb.WriteString("## Pork Barrel\n\n| Item | Reason | Risk |\n|---|---|---|\n")
		for _, p := range res.PorkBarrel {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", cell(p.Item), cell(p.Reason), p.Risk)
		}
		sb.WriteString("\n")
	}

	if len(res.LobbyistFingerprints) > 0 {
		sb.WriteString("## Lobbyist Fingerprints\n\n")
		for _, fp := range res.LobbyistFingerprints {
			fmt.Fprintf(&sb, "### %s\n\n", fp.Clause)
			fmt.Fprintf(&sb, "- **Beneficiary:** %s\n- **Evidence:** %s\n", fp.Beneficiary, fp.Evidence)
			if fp.SimilarityScore != nil {
				fmt.Fprintf(&sb, "- **Model legislation similarity:** %.0f%%", *fp.SimilarityScore)
				if fp.SourceModelLegislation != "" {
					fmt.Fprintf(&sb, " (%s)", fp.SourceModelLegislation)
				}
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("| Beneficiary | Donor | Statement match |\n|---|---|---|\n")
		for _, e := range r.LobbyistSummary {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", cell(e.Beneficiary), cell(e.Donor), cell(e.Match))
		}
		sb.WriteString("\n")
	}

	if li := res.LocalImpact; li != nil {
		sb.WriteString("## Local Impact\n\n")
		fmt.Fprintf(&sb, "- **City/County:** %s\n- **Affected:** %s\n- **Regulatory shift:** %s\n\n",
			li.CityCounty, li.AffectedDemographics, li.RegulatoryShift)
		if len(li.RegulatoryDiff) > 0 {
			sb.WriteString("### Regulatory Diff\n\n| Item | Change | Impact | Risk |\n|---|---|---|---|\n")
			for _, d := range li.RegulatoryDiff {
				fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", cell(d.Item), cell(d.Change), cell(d.Impact), d.Risk)
			}
			sb.WriteString("\n")
		}
	}

	if len(res.Contradictions) > 0 {
		sb.WriteString("## Contradictions\n\n")
		for _, c := range res.Contradictions {
			fmt.Fprintf(&sb, "- \"%s\" contradicts %s (%s)\n", c.Statement, c.Contradicts, c.Source)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Economic Impact\n\n")
	fmt.Fprintf(&sb, "- **Debt impact:** %s\n- **Long-term outlook:** %s\n\n", res.EconomicImpact.DebtImpact, res.EconomicImpact.LongTermOutlook)
	writeFlags(&sb, "### Red Flags", res.EconomicImpact.RedFlags)

	writeMatches(&sb, r.ModelMatches)

	if len(r.GroundingSources) > 0 {
		sb.WriteString("## Sources\n\n")
		for _, src := range r.GroundingSources {
			fmt.Fprintf(&sb, "- %s\n", src)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func writeFlags(sb *strings.Builder, heading string, flags []audit.LocalRedFlag) {
	if len(flags) == 0 {
		return
	}
	sb.WriteString(heading)
	sb.WriteString("\n\n| Severity | Type | Description |\n|---|---|---|\n")
	for _, f := range flags {
		fmt.Fprintf(sb, "| %s | %s | %s |\n", f.Severity, cell(f.Kind), cell(f.Description))
	}
	sb.WriteString("\n")
}

func writeMatches(sb *strings.Builder, matches []audit.SimilarityMatch) {
	if len(matches) == 0 {
		return
	}
	sb.WriteString("## Model Legislation Matches\n\n| Score | Source | Template |\n|---|---|---|\n")
	for _, m := range matches {
		fmt.Fprintf(sb, "| %d%% | %s | %s |\n", m.Score, m.CorpusSource, cell(m.Title))
	}
	sb.WriteString("\n")
}

// cell keeps a value on one markdown table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// renderReport prints the dashboard and the markdown body. plain skips
// terminal styling of the markdown.
func renderReport(w io.Writer, r *audit.Report, plain bool) error {
	md := reportMarkdown(r)
	if plain {
		_, err := fmt.Fprintf(w, "# PorkVision Forensic Audit\n\n%s", md)
		return err
	}
	fmt.Fprintln(w, dashboard(r))
	return renderMarkdown(w, md)
}

func renderMarkdown(w io.Writer, md string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		_, werr := io.WriteString(w, md)
		return werr
	}
	out, err := renderer.Render(md)
	if err != nil {
		_, werr := io.WriteString(w, md)
		return werr
	}
	_, err = io.WriteString(w, out)
	return err
}

// renderFindings prints the offline scan result.
func renderFindings(w io.Writer, source string, findings audit.LocalFindings, summary similarity.Summary) {
	fmt.Fprintln(w, titleStyle.Render("Local scan: "+source))

	if len(findings.Flags) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no red flags"))
	}
	for _, f := range findings.Flags {
		fmt.Fprintf(w, "  %s  %s\n", riskBadge(f.Severity), f.Description)
	}

	counts := severityCounts(findings.Flags)
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %d flag(s): %s", len(findings.Flags), counts)))

	if !summary.HasMatches {
		fmt.Fprintln(w, mutedStyle.Render("  no model legislation above threshold"))
		return
	}
	for _, m := range findings.Matches {
		fmt.Fprintf(w, "  %3d%%  %s %q\n", m.Score, m.CorpusSource, m.Title)
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  highest match %d%%", summary.HighestScore)))
}

// severityCounts lists flag counts from high to low.
func severityCounts(flags []audit.LocalRedFlag) string {
	counts := detector.Summary(flags)
	var parts []string
	for i := len(audit.RiskLevels) - 1; i >= 0; i-- {
		r := audit.RiskLevels[i]
		if n := counts[r]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", r, n))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
