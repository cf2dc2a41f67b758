package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"porkvision/internal/audit"
	"porkvision/internal/config"
	"porkvision/internal/logging"

	"google.golang.org/genai"
)

// GeminiConfig holds the settings for a Gemini-backed engine.
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // empty uses the public endpoint
	Timeout     time.Duration
	Temperature float32
	HTTPClient  *http.Client
}

// GeminiEngine calls the Gemini generateContent API. Search grounding is
// attached per request, so the same engine serves full and degraded attempts.
type GeminiEngine struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	temperature float32
}

// NewGeminiEngine validates the key and builds a client. A bad key is an
// auth failure before any request is made.
func NewGeminiEngine(ctx context.Context, cfg GeminiConfig) (*GeminiEngine, error) {
	if err := config.ValidateAPIKey(cfg.APIKey); err != nil {
		logging.EngineError("[Gemini] rejecting engine config: %v", err)
		return nil, audit.NewAnalysisError(audit.KindAuthFailure, err)
	}
	if cfg.Model == "" {
		cfg.Model = config.DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logging.EngineDebug("[Gemini] client ready: model=%s timeout=%v", cfg.Model, cfg.Timeout)
	return &GeminiEngine{
		client:      client,
		model:       cfg.Model,
		timeout:     cfg.Timeout,
		temperature: cfg.Temperature,
	}, nil
}

// Model returns the configured model name.
func (g *GeminiEngine) Model() string {
	return g.model
}

// Generate sends one request.
func (g *GeminiEngine) Generate(ctx context.Context, req Request) (*Response, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	logging.EngineDebug("[Gemini] Generate: model=%s tools=%t system_len=%d prompt_len=%d",
		g.model, req.ToolsEnabled, len(req.SystemInstruction), len(req.Prompt))
	start := time.Now()

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if req.SystemInstruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if req.ToolsEnabled {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, gc)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logging.EngineWarn("[Gemini] Generate: cancelled after %v", time.Since(start))
		} else {
			logging.EngineError("[Gemini] Generate: failed after %v: %v", time.Since(start), err)
		}
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	out := &Response{Text: resp.Text()}
	out.GroundingSources, out.SearchQueries = grounding(resp)

	if len(out.GroundingSources) > 0 {
		logging.EngineDebug("[Gemini] Generate: grounding sources=%d queries=%v", len(out.GroundingSources), out.SearchQueries)
	}
	logging.Engine("[Gemini] Generate: completed in %v response_len=%d grounding_sources=%d",
		time.Since(start), len(out.Text), len(out.GroundingSources))
	return out, nil
}

// grounding collects the distinct web URIs and search queries cited by the
// first candidate.
func grounding(resp *genai.GenerateContentResponse) ([]string, []string) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return nil, nil
	}
	seen := make(map[string]bool)
	var sources []string
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		sources = append(sources, chunk.Web.URI)
	}
	return sources, gm.WebSearchQueries
}
