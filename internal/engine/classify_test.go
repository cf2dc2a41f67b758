package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"porkvision/internal/audit"
	"porkvision/internal/config"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want audit.ErrorKind
	}{
		{"api 429 value", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, audit.KindTransientEngineFailure},
		{"api 429 pointer", &genai.APIError{Code: 429}, audit.KindTransientEngineFailure},
		{"api status only", fmt.Errorf("gemini generate: %w", genai.APIError{Status: "RESOURCE_EXHAUSTED"}), audit.KindTransientEngineFailure},
		{"api 401", genai.APIError{Code: 401, Status: "UNAUTHENTICATED"}, audit.KindAuthFailure},
		{"api 403", genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}, audit.KindAuthFailure},
		{"api invalid key", genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key.", Status: "INVALID_ARGUMENT"}, audit.KindAuthFailure},
		{"api 503", genai.APIError{Code: 503, Status: "UNAVAILABLE"}, audit.KindNetworkFailure},
		{"api 400 other", genai.APIError{Code: 400, Message: "bad request", Status: "INVALID_ARGUMENT"}, audit.KindEngineFailure},
		{"canceled", fmt.Errorf("wrapped: %w", context.Canceled), audit.KindCanceled},
		{"deadline", context.DeadlineExceeded, audit.KindNetworkFailure},
		{"net op", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("boom")}, audit.KindNetworkFailure},
		{"missing key", config.ErrMissingAPIKey, audit.KindAuthFailure},
		{"invalid key", fmt.Errorf("check: %w", config.ErrInvalidAPIKey), audit.KindAuthFailure},
		{"quota text", errors.New("You exceeded your current quota"), audit.KindTransientEngineFailure},
		{"429 text", errors.New("status 429 returned"), audit.KindTransientEngineFailure},
		{"rate limit text", errors.New("Rate limit reached"), audit.KindTransientEngineFailure},
		{"key text", errors.New("API_KEY_INVALID"), audit.KindAuthFailure},
		{"connection text", errors.New("dial tcp: connection refused"), audit.KindNetworkFailure},
		{"eof", fmt.Errorf("read body: %w", io.EOF), audit.KindNetworkFailure},
		{"unexpected eof", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), audit.KindNetworkFailure},
		{"unexpected eof text", errors.New("stream error: unexpected EOF"), audit.KindNetworkFailure},
		{"eof inside a word", errors.New("field contents and the thereof clause are invalid"), audit.KindEngineFailure},
		{"already classified", audit.NewAnalysisError(audit.KindSchemaMismatch, errors.New("x")), audit.KindSchemaMismatch},
		{"unknown", errors.New("something odd"), audit.KindEngineFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_OnlyQuotaIsRetryable(t *testing.T) {
	assert.True(t, Classify(genai.APIError{Code: 429}).Retryable())
	assert.False(t, Classify(genai.APIError{Code: 401}).Retryable())
	assert.False(t, Classify(errors.New("dial tcp: connection refused")).Retryable())
}
