package audit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a terminal analysis failure.
type ErrorKind int

const (
	// KindNoStructureFound means the engine reply held no balanced {...} structure.
	KindNoStructureFound ErrorKind = iota

	// KindMalformedPayload means a structure was found but did not parse after repair.
	KindMalformedPayload

	// KindSchemaMismatch means the payload parsed but failed field validation.
	KindSchemaMismatch

	// KindTransientEngineFailure is a quota or rate-limit failure. It is retried
	// internally and only surfaces once the retry ceiling is hit.
	KindTransientEngineFailure

	// KindAuthFailure is an invalid or missing credential.
	KindAuthFailure

	// KindNetworkFailure covers transport errors and server-side outages.
	KindNetworkFailure

	// KindEngineFailure is an engine error that matched no known class.
	KindEngineFailure

	// KindCanceled means the caller abandoned the request.
	KindCanceled
)

// String returns the kind name.
func (k ErrorKind) String() string {
	names := []string{
		"no_structure_found",
		"malformed_payload",
		"schema_mismatch",
		"transient_engine_failure",
		"auth_failure",
		"network_failure",
		"engine_failure",
		"canceled",
	}
	if int(k) >= 0 && int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// Retryable reports whether the orchestrator may retry a failure of this kind.
func (k ErrorKind) Retryable() bool {
	return k == KindTransientEngineFailure
}

// Issue is one failed field in a schema validation.
type Issue struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (i Issue) String() string {
	path := i.Path
	if path == "" {
		path = "root"
	}
	return fmt.Sprintf("[%s]: %s", path, i.Reason)
}

// AnalysisError is the single terminal error returned to the caller of an analysis.
type AnalysisError struct {
	Kind     ErrorKind
	Err      error
	Issues   []Issue
	Attempts int
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Issues) > 0 {
		fmt.Fprintf(&sb, " (%d field issues)", len(e.Issues))
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError wraps err with a kind.
func NewAnalysisError(kind ErrorKind, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Err: err}
}

// KindOf returns the kind of an AnalysisError anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return 0, false
}
