package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"porkvision/internal/audit"
	"porkvision/internal/config"

	"google.golang.org/genai"
)

// Markers searched for in error text when no structured status is available.
var (
	quotaMarkers = []string{"429", "quota", "rate limit", "rate-limit", "resource_exhausted", "resource exhausted", "too many requests"}
	authMarkers  = []string{"api_key_invalid", "api key not valid", "invalid api key", "permission_denied", "unauthenticated", "401", "403"}
	netMarkers   = []string{"connection refused", "connection reset", "no such host", "i/o timeout", "unexpected eof", "tls handshake", "network is unreachable", "503", "502", "504", "unavailable"}
)

// Classify maps an engine failure onto the audit error taxonomy. Structured
// information wins over text: genai API status first, then transport and
// context errors, then substring markers. Anything unrecognized is
// KindEngineFailure, which is terminal.
func Classify(err error) audit.ErrorKind {
	if err == nil {
		return audit.KindEngineFailure
	}

	if kind, ok := audit.KindOf(err); ok {
		return kind
	}

	if errors.Is(err, config.ErrMissingAPIKey) || errors.Is(err, config.ErrInvalidAPIKey) {
		return audit.KindAuthFailure
	}

	if apiErr, ok := asAPIError(err); ok {
		if kind, ok := classifyStatus(apiErr.Code, apiErr.Status, apiErr.Message); ok {
			return kind
		}
	}

	if errors.Is(err, context.Canceled) {
		return audit.KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return audit.KindNetworkFailure
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return audit.KindNetworkFailure
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return audit.KindNetworkFailure
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, quotaMarkers):
		return audit.KindTransientEngineFailure
	case containsAny(msg, authMarkers):
		return audit.KindAuthFailure
	case containsAny(msg, netMarkers):
		return audit.KindNetworkFailure
	}
	return audit.KindEngineFailure
}

func asAPIError(err error) (genai.APIError, bool) {
	var val genai.APIError
	if errors.As(err, &val) {
		return val, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func classifyStatus(code int, status, message string) (audit.ErrorKind, bool) {
	status = strings.ToUpper(status)
	switch {
	case code == http.StatusTooManyRequests || strings.Contains(status, "RESOURCE_EXHAUSTED"):
		return audit.KindTransientEngineFailure, true
	case code == http.StatusUnauthorized || code == http.StatusForbidden ||
		strings.Contains(status, "UNAUTHENTICATED") || strings.Contains(status, "PERMISSION_DENIED"):
		return audit.KindAuthFailure, true
	case code == http.StatusBadRequest && strings.Contains(strings.ToUpper(message), "API_KEY_INVALID"),
		code == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key not valid"):
		return audit.KindAuthFailure, true
	case code >= 500:
		return audit.KindNetworkFailure, true
	}
	return 0, false
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
