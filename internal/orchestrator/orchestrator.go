// Package orchestrator drives one analysis through the generative engine:
// send, classify the failure, downgrade or back off, and finally extract and
// validate the reply. Retries are strictly sequential.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"porkvision/internal/audit"
	"porkvision/internal/engine"
	"porkvision/internal/extraction"
	"porkvision/internal/logging"
	"porkvision/internal/schema"

	"github.com/google/uuid"
)

// DefaultMaxRetries is the backoff ceiling for quota failures once tools are off.
const DefaultMaxRetries = 2

// DefaultBaseDelay is the first backoff delay. The n-th retry waits 2^n times this.
const DefaultBaseDelay = time.Second

// Config controls retry behavior.
type Config struct {
	ToolsEnabled bool
	MaxRetries   int
	BaseDelay    time.Duration
}

// DefaultConfig returns tools on, two retries and a one second base delay.
func DefaultConfig() Config {
	return Config{ToolsEnabled: true, MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RequestBuilder renders the engine request for an attempt. The prompt
// differs with and without tools, so it is rebuilt after a downgrade.
type RequestBuilder func(toolsEnabled bool) engine.Request

// Outcome is a successful analysis.
type Outcome struct {
	RequestID string
	Result    audit.AuditResult
	Response  *engine.Response
	Candidate *extraction.Candidate
	Attempts  int
	Degraded  bool
	Trace     []Decision
}

// Orchestrator runs analyses against one engine. It holds no per-request
// state, so a single value may serve concurrent analyses.
type Orchestrator struct {
	engine    engine.Engine
	extractor *extraction.Extractor
	cfg       Config
	sleep     SleepFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSleep replaces the backoff sleep. Tests use it to observe delays.
func WithSleep(fn SleepFunc) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithExtractor shares an extractor so its stats span several orchestrators.
func WithExtractor(x *extraction.Extractor) Option {
	return func(o *Orchestrator) { o.extractor = x }
}

// New returns an orchestrator for eng.
func New(eng engine.Engine, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:    eng,
		extractor: extraction.New(),
		cfg:       cfg,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Extractor returns the payload extractor in use.
func (o *Orchestrator) Extractor() *extraction.Extractor {
	return o.extractor
}

// Run performs one analysis. On failure the error is an *audit.AnalysisError
// carrying the terminal kind and the number of engine calls made.
func (o *Orchestrator) Run(ctx context.Context, build RequestBuilder) (*Outcome, error) {
	rl := logging.WithRequestID(logging.CategoryOrchestrator, uuid.NewString())
	m := NewMachine(o.cfg.ToolsEnabled, o.cfg.MaxRetries, o.cfg.BaseDelay)

	out := &Outcome{RequestID: rl.RequestID()}
	d := m.Start()
	out.Trace = append(out.Trace, d)
	start := time.Now()

	for {
		if d.Action == ActionWait {
			rl.Warn("quota exceeded, retry %d/%d in %v", m.Retries(), o.cfg.MaxRetries, d.Delay)
			if err := o.sleep(ctx, d.Delay); err != nil {
				return nil, o.abandon(rl, m, out, err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, o.abandon(rl, m, out, err)
		}

		out.Attempts++
		rl.Debug("attempt %d: tools=%t", out.Attempts, m.ToolsEnabled())
		resp, err := o.engine.Generate(ctx, build(m.ToolsEnabled()))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, o.abandon(rl, m, out, ctxErr)
		}

		var failure *audit.AnalysisError
		if err != nil {
			failure = audit.NewAnalysisError(engine.Classify(err), err)
		} else {
			failure = o.process(resp, out)
		}

		ev := Succeeded()
		if failure != nil {
			ev = FailedWith(failure.Kind)
		}
		d = m.Transition(ev)
		out.Trace = append(out.Trace, d)

		switch d.Action {
		case ActionDone:
			out.Response = resp
			out.Degraded = m.Downgraded()
			rl.Info("analysis complete in %v after %d attempt(s), degraded=%t", time.Since(start), out.Attempts, out.Degraded)
			return out, nil
		case ActionFail:
			failure.Attempts = out.Attempts
			rl.Error("analysis failed after %d attempt(s): %v", out.Attempts, failure)
			return nil, failure
		case ActionSend:
			rl.Warn("quota exceeded with search grounding, retrying without tools")
		}
	}
}

// process extracts and validates a reply. It fills out on success.
func (o *Orchestrator) process(resp *engine.Response, out *Outcome) *audit.AnalysisError {
	if resp == nil {
		return audit.NewAnalysisError(audit.KindNoStructureFound, extraction.ErrNoStructure)
	}
	cand, err := o.extractor.Extract(resp.Text)
	if err != nil {
		var malformed *extraction.MalformedError
		if errors.As(err, &malformed) {
			return audit.NewAnalysisError(audit.KindMalformedPayload, err)
		}
		return audit.NewAnalysisError(audit.KindNoStructureFound, err)
	}

	result, err := schema.Validate(cand.Value)
	if err != nil {
		ae := audit.NewAnalysisError(audit.KindSchemaMismatch, err)
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			ae.Issues = verr.Issues
		}
		return ae
	}

	out.Result = result
	out.Candidate = cand
	return nil
}

func (o *Orchestrator) abandon(rl *logging.RequestLogger, m *Machine, out *Outcome, cause error) error {
	// An expired deadline is a timeout, not a user cancel.
	kind := audit.KindCanceled
	if errors.Is(cause, context.DeadlineExceeded) {
		kind = audit.KindNetworkFailure
	}
	d := m.Abandon(kind)
	out.Trace = append(out.Trace, d)
	rl.Warn("analysis abandoned after %d attempt(s): %v", out.Attempts, cause)
	return &audit.AnalysisError{
		Kind:     kind,
		Err:      fmt.Errorf("analysis abandoned: %w", cause),
		Attempts: out.Attempts,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
