package engine

import (
	"fmt"
	"strings"

	"porkvision/internal/audit"
)

// InputKind says whether the bill arrived as text or as a link to fetch.
type InputKind int

const (
	InputText InputKind = iota
	InputURL
)

// PromptInput is everything the prompt builder needs for one analysis.
type PromptInput struct {
	Kind InputKind
	// Content is the bill text, or the URL when Kind is InputURL.
	Content string
	// Comparison is an optional earlier version of the bill. When set the
	// engine is asked for a regulatory diff.
	Comparison string
	// Local findings computed before the call. Empty means none were supplied.
	LocalFlags   []audit.LocalRedFlag
	ModelMatches []audit.SimilarityMatch
}

const auditorRole = `You are a non-partisan forensic auditor. Your task is to find hidden spending, special interest favors, and legislative 'pork.'`

const auditorFocus = `Your analysis must be grounded in verifiable evidence. Look for 'Shadow Lobbyist' patterns by comparing the bill text against known model legislation from organizations like ALEC, ACLU, etc. Assign similarity scores to indicate how closely the bill matches these templates.

Focus on detecting 'Hidden Pork' by identifying:
1. Committee chair district allocations
2. No-bid contracts or sole-source provisions
3. Revolving door provisions
4. Specific entity funding (earmarks)
5. Vague language that could hide undisclosed spending

Be cynical, objective, and precise. Every claim must be tied to specific text in the legislation.`

// SystemInstruction returns the auditor persona for one attempt.
func SystemInstruction(toolsEnabled bool) string {
	var sb strings.Builder
	sb.WriteString(auditorRole)
	sb.WriteString("\n\n")
	if toolsEnabled {
		sb.WriteString("CRITICAL: If the user provides a URL, you MUST use the googleSearch tool to fetch and read the content of that URL before performing your analysis. Do not hallucinate content for a URL you haven't retrieved.")
	} else {
		sb.WriteString("Analyze the provided text directly.")
	}
	sb.WriteString("\n\n")
	sb.WriteString(auditorFocus)
	return sb.String()
}

const outputContract = `Output your analysis strictly in the following JSON format:

{
  "porkBarrel": [
    { "item": "string", "reason": "string", "risk": "low" | "medium" | "high" }
  ],
  "lobbyistFingerprints": [
    {
      "clause": "string",
      "beneficiary": "string",
      "evidence": "string",
      "donorCorrelation": { "donorName": "string", "contributionAmount": "string (optional)", "statementMatch": "string" },
      "similarityScore": 0-100,
      "sourceModelLegislation": "string (optional)"
    }
  ],
  "localImpact": {
    "cityCounty": "string",
    "affectedDemographics": "string",
    "regulatoryShift": "string"%s
  },
  "contradictions": [
    { "statement": "string", "contradicts": "string", "source": "string" }
  ],
  "economicImpact": {
    "debtImpact": "string",
    "longTermOutlook": "string",
    "redFlags": [
      { "type": "string", "description": "string", "severity": "low" | "medium" | "high", "triggerClause": "string" }
    ]
  },
  "porkPercentage": 0-100,
  "overallRiskScore": 0-100,
  "summary": "2-3 sentence high-level overview of the audit findings"
}`

const diffContract = `,
    "regulatoryDiff": [
      { "item": "string", "change": "string", "impact": "string", "risk": "low" | "medium" | "high" }
    ]`

// BuildRequest renders the engine request for one attempt. The prompt depends
// on toolsEnabled, so the orchestrator rebuilds it after a downgrade.
func BuildRequest(in PromptInput, toolsEnabled bool) Request {
	return Request{
		SystemInstruction: SystemInstruction(toolsEnabled),
		Prompt:            buildPrompt(in, toolsEnabled),
		ToolsEnabled:      toolsEnabled,
	}
}

func buildPrompt(in PromptInput, toolsEnabled bool) string {
	var sb strings.Builder

	switch {
	case in.Kind == InputURL && toolsEnabled:
		sb.WriteString("The user has provided a URL. First, retrieve the content of this URL using Google Search. Then, analyze the retrieved legislation text.\n")
	case in.Kind == InputURL:
		sb.WriteString("The user has provided a URL, but Search Grounding is currently disabled. Try to analyze based on your training data or identify if you cannot proceed without the full text.\n")
	default:
		sb.WriteString("Analyze the provided legislation text.\n")
	}

	sb.WriteString("Perform a forensic audit of this legislation focusing on identifying hidden spending, special interest influence, and legislative 'pork'.\n\n")
	sb.WriteString(`SPECIFIC INVESTIGATION AREAS:
1. Shadow Lobbyist Detection: Compare the bill text against known model legislation templates. Look for language patterns similar to ALEC, ACLU, or other model legislation. Assign a similarity score (0-100) and identify the source of model legislation if found.

2. Economic Impact Red Flags: Specifically look for:
   - Allocations to districts of committee chairs or legislators
   - No-bid contracts or sole-source provisions
   - Revolving door arrangements
   - Earmarks or specific entity funding
   - Vague language that could hide undisclosed spending

3. Cross-reference beneficiaries and lobbyist interests using Google Search if available.
`)

	if in.Comparison != "" {
		sb.WriteString("\n4. Regulatory Diff: Compare the CURRENT bill against the PREVIOUS version below. For each material change, describe it in plain English in localImpact.regulatoryDiff with its impact and risk.\n")
	}

	if len(in.LocalFlags) > 0 || len(in.ModelMatches) > 0 {
		sb.WriteString("\nPRE-SCREENING FINDINGS (automated, verify before relying on them):\n")
		for _, f := range in.LocalFlags {
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", f.Severity, f.Kind, f.Description)
		}
		for _, m := range in.ModelMatches {
			fmt.Fprintf(&sb, "- Model legislation match %d%%: %s %q (%s)\n", m.Score, m.CorpusSource, m.Title, m.TemplateID)
		}
	}

	sb.WriteString("\n")
	diff := ""
	if in.Comparison != "" {
		diff = diffContract
	}
	fmt.Fprintf(&sb, outputContract, diff)
	sb.WriteString("\n\n")

	if toolsEnabled {
		sb.WriteString("Use Google Search to cross-reference beneficiaries and lobbyist interests, and to verify any suspected model legislation matches.\n")
	} else {
		sb.WriteString("Use your internal knowledge to cross-reference beneficiaries and lobbyist interests.\n")
	}

	sb.WriteString("\n")
	if in.Kind == InputURL {
		sb.WriteString("URL: ")
		sb.WriteString(in.Content)
		sb.WriteString("\n")
	} else {
		sb.WriteString("CURRENT BILL TEXT:\n")
		sb.WriteString(in.Content)
		sb.WriteString("\n")
	}
	if in.Comparison != "" {
		sb.WriteString("\nPREVIOUS VERSION:\n")
		sb.WriteString(in.Comparison)
		sb.WriteString("\n")
	}

	return sb.String()
}
