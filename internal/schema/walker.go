package schema

import (
	"fmt"
	"strconv"

	"porkvision/internal/audit"
)

// walker decodes an untyped JSON value into the typed result, recording one
// issue per field that is missing or has the wrong primitive type. It never
// stops at the first problem.
type walker struct {
	issues []audit.Issue
}

func (w *walker) fail(path, format string, args ...any) {
	w.issues = append(w.issues, audit.Issue{Path: path, Reason: fmt.Sprintf(format, args...)})
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

// lookup returns obj[key]. A JSON null counts as absent. Missing required
// fields are recorded.
func (w *walker) lookup(obj map[string]any, parent, key string, required bool) (any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		if required {
			w.fail(join(parent, key), "required")
		}
		return nil, false
	}
	return v, true
}

func (w *walker) str(obj map[string]any, parent, key string, required bool) string {
	v, ok := w.lookup(obj, parent, key, required)
	if !ok {
		return ""
	}
	s, isStr := v.(string)
	if !isStr {
		w.fail(join(parent, key), "expected string, got %s", typeName(v))
	}
	return s
}

func (w *walker) num(obj map[string]any, parent, key string, required bool) *float64 {
	v, ok := w.lookup(obj, parent, key, required)
	if !ok {
		return nil
	}
	f, isNum := v.(float64)
	if !isNum {
		w.fail(join(parent, key), "expected number, got %s", typeName(v))
		return nil
	}
	return &f
}

func (w *walker) object(obj map[string]any, parent, key string, required bool) (map[string]any, string) {
	path := join(parent, key)
	v, ok := w.lookup(obj, parent, key, required)
	if !ok {
		return nil, path
	}
	m, isObj := v.(map[string]any)
	if !isObj {
		w.fail(path, "expected object, got %s", typeName(v))
		return nil, path
	}
	return m, path
}

// array returns the elements with their paths. Non-object elements are
// recorded and returned as nil so indices stay aligned with the input.
func (w *walker) array(obj map[string]any, parent, key string, required bool) ([]map[string]any, []string, bool) {
	path := join(parent, key)
	v, ok := w.lookup(obj, parent, key, required)
	if !ok {
		return nil, nil, false
	}
	items, isArr := v.([]any)
	if !isArr {
		w.fail(path, "expected array, got %s", typeName(v))
		return nil, nil, false
	}
	objs := make([]map[string]any, 0, len(items))
	paths := make([]string, 0, len(items))
	for i, item := range items {
		p := index(path, i)
		m, isObj := item.(map[string]any)
		if !isObj {
			w.fail(p, "expected object, got %s", typeName(item))
		}
		objs = append(objs, m)
		paths = append(paths, p)
	}
	return objs, paths, true
}

// =============================================================================
// AUDIT RESULT
// =============================================================================

func (w *walker) auditResult(root map[string]any) audit.AuditResult {
	var r audit.AuditResult

	items, paths, _ := w.array(root, "", "porkBarrel", true)
	r.PorkBarrel = make([]audit.PorkItem, 0, len(items))
	for i, m := range items {
		if m == nil {
			r.PorkBarrel = append(r.PorkBarrel, audit.PorkItem{})
			continue
		}
		r.PorkBarrel = append(r.PorkBarrel, audit.PorkItem{
			Item:   w.str(m, paths[i], "item", true),
			Reason: w.str(m, paths[i], "reason", true),
			Risk:   audit.Risk(w.str(m, paths[i], "risk", true)),
		})
	}

	items, paths, _ = w.array(root, "", "lobbyistFingerprints", true)
	r.LobbyistFingerprints = make([]audit.LobbyistFingerprint, 0, len(items))
	for i, m := range items {
		if m == nil {
			r.LobbyistFingerprints = append(r.LobbyistFingerprints, audit.LobbyistFingerprint{})
			continue
		}
		r.LobbyistFingerprints = append(r.LobbyistFingerprints, w.fingerprint(m, paths[i]))
	}

	if m, path := w.object(root, "", "localImpact", false); m != nil {
		r.LocalImpact = w.localImpact(m, path)
	}

	items, paths, _ = w.array(root, "", "contradictions", true)
	r.Contradictions = make([]audit.Contradiction, 0, len(items))
	for i, m := range items {
		if m == nil {
			r.Contradictions = append(r.Contradictions, audit.Contradiction{})
			continue
		}
		r.Contradictions = append(r.Contradictions, audit.Contradiction{
			Statement:   w.str(m, paths[i], "statement", true),
			Contradicts: w.str(m, paths[i], "contradicts", true),
			Source:      w.str(m, paths[i], "source", true),
		})
	}

	if m, path := w.object(root, "", "economicImpact", true); m != nil {
		r.EconomicImpact = w.economicImpact(m, path)
	}

	r.PorkPercentage = w.num(root, "", "porkPercentage", false)
	if score := w.num(root, "", "overallRiskScore", true); score != nil {
		r.OverallRiskScore = *score
	}
	r.Summary = w.str(root, "", "summary", true)

	return r
}

func (w *walker) fingerprint(m map[string]any, path string) audit.LobbyistFingerprint {
	fp := audit.LobbyistFingerprint{
		Clause:                 w.str(m, path, "clause", true),
		Beneficiary:            w.str(m, path, "beneficiary", true),
		Evidence:               w.str(m, path, "evidence", true),
		SimilarityScore:        w.num(m, path, "similarityScore", false),
		SourceModelLegislation: w.str(m, path, "sourceModelLegislation", false),
	}
	if dc, dcPath := w.object(m, path, "donorCorrelation", false); dc != nil {
		fp.DonorCorrelation = &audit.DonorCorrelation{
			DonorName:          w.str(dc, dcPath, "donorName", true),
			ContributionAmount: w.str(dc, dcPath, "contributionAmount", false),
			StatementMatch:     w.str(dc, dcPath, "statementMatch", true),
		}
	}
	return fp
}

func (w *walker) localImpact(m map[string]any, path string) *audit.LocalImpact {
	li := &audit.LocalImpact{
		CityCounty:           w.str(m, path, "cityCounty", true),
		AffectedDemographics: w.str(m, path, "affectedDemographics", true),
		RegulatoryShift:      w.str(m, path, "regulatoryShift", true),
	}
	items, paths, ok := w.array(m, path, "regulatoryDiff", false)
	if ok {
		li.RegulatoryDiff = make([]audit.RegulatoryDiff, 0, len(items))
		for i, d := range items {
			if d == nil {
				li.RegulatoryDiff = append(li.RegulatoryDiff, audit.RegulatoryDiff{})
				continue
			}
			li.RegulatoryDiff = append(li.RegulatoryDiff, audit.RegulatoryDiff{
				Item:   w.str(d, paths[i], "item", true),
				Change: w.str(d, paths[i], "change", true),
				Impact: w.str(d, paths[i], "impact", true),
				Risk:   audit.Risk(w.str(d, paths[i], "risk", true)),
			})
		}
	}
	return li
}

func (w *walker) economicImpact(m map[string]any, path string) audit.EconomicImpact {
	ei := audit.EconomicImpact{
		DebtImpact:      w.str(m, path, "debtImpact", true),
		LongTermOutlook: w.str(m, path, "longTermOutlook", true),
	}
	items, paths, ok := w.array(m, path, "redFlags", false)
	if ok {
		ei.RedFlags = make([]audit.LocalRedFlag, 0, len(items))
		for i, f := range items {
			if f == nil {
				ei.RedFlags = append(ei.RedFlags, audit.LocalRedFlag{})
				continue
			}
			ei.RedFlags = append(ei.RedFlags, audit.LocalRedFlag{
				Kind:        w.str(f, paths[i], "type", true),
				Description: w.str(f, paths[i], "description", true),
				Severity:    audit.Risk(w.str(f, paths[i], "severity", true)),
				TriggerSpan: w.str(f, paths[i], "triggerClause", false),
			})
		}
	}
	return ei
}
