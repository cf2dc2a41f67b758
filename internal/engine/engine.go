// Package engine is the boundary to the external generative engine. The core
// treats a call as opaque: a request goes in, free-form text or an error comes
// out. Classify maps raw failures onto the audit error taxonomy.
package engine

import "context"

// Request is one engine call.
type Request struct {
	SystemInstruction string
	Prompt            string
	// ToolsEnabled grants the engine its web-search grounding tool.
	ToolsEnabled bool
}

// Response is the raw engine reply.
type Response struct {
	Text string
	// GroundingSources lists the web URIs the engine cited, when search ran.
	GroundingSources []string
	SearchQueries    []string
}

// Engine produces a reply for a request. Implementations must honor ctx
// cancellation.
type Engine interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Func adapts a function to Engine.
type Func func(ctx context.Context, req Request) (*Response, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
