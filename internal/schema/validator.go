// Package schema turns an untyped decoded payload into a validated
// audit.AuditResult. Validation is total: every failing field is reported by
// path, not just the first.
//
// It runs in two stages. A walker checks presence and primitive types while
// building the typed record. The go-playground validator then enforces the
// enumeration and range rules declared as struct tags on the audit types.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"porkvision/internal/audit"
	"porkvision/internal/logging"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists every field that failed.
type ValidationError struct {
	Issues []audit.Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "schema validation failed: " + e.Issues[0].String()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	return fmt.Sprintf("schema validation failed with %d issues: %s", len(e.Issues), strings.Join(parts, "; "))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks candidate against the audit result contract. candidate is
// normally the map produced by the payload extractor. On failure the error is
// a *ValidationError and the returned result is the zero value.
func Validate(candidate any) (audit.AuditResult, error) {
	root, ok := candidate.(map[string]any)
	if !ok {
		err := &ValidationError{Issues: []audit.Issue{{Reason: "expected object, got " + typeName(candidate)}}}
		logIssues(err.Issues)
		return audit.AuditResult{}, err
	}

	w := &walker{}
	result := w.auditResult(root)
	issues := merge(w.issues, ruleIssues(result))

	if len(issues) > 0 {
		logIssues(issues)
		return audit.AuditResult{}, &ValidationError{Issues: issues}
	}

	logging.Get(logging.CategoryValidation).Debug("payload valid: %d pork items, %d fingerprints, risk %.0f",
		len(result.PorkBarrel), len(result.LobbyistFingerprints), result.OverallRiskScore)
	return result, nil
}

// ruleIssues runs the struct-tag rules.
func ruleIssues(r audit.AuditResult) []audit.Issue {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []audit.Issue{{Reason: err.Error()}}
	}
	issues := make([]audit.Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, audit.Issue{Path: fieldPath(fe.Namespace()), Reason: describe(fe)})
	}
	return issues
}

// fieldPath drops the leading struct name: "AuditResult.porkBarrel[0].risk"
// becomes "porkBarrel[0].risk".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("invalid value %q, expected one of: %s", fmt.Sprint(fe.Value()), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%v is below the minimum of %s", fe.Value(), fe.Param())
	case "max":
		return fmt.Sprintf("%v is above the maximum of %s", fe.Value(), fe.Param())
	}
	return fmt.Sprintf("failed %q rule", fe.Tag())
}

// merge appends rule issues to type issues, dropping any rule issue at or
// below a path the walker already rejected.
func merge(typed, rules []audit.Issue) []audit.Issue {
	out := typed
	for _, r := range rules {
		if !covered(typed, r.Path) {
			out = append(out, r)
		}
	}
	return out
}

func covered(typed []audit.Issue, path string) bool {
	for _, t := range typed {
		if path == t.Path ||
			strings.HasPrefix(path, t.Path+".") ||
			strings.HasPrefix(path, t.Path+"[") {
			return true
		}
	}
	return false
}

func logIssues(issues []audit.Issue) {
	for _, issue := range issues {
		logging.ValidationWarn("%s", issue.String())
	}
}
