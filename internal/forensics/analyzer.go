// Package forensics is the single entry point presentation code calls: it
// runs the offline pattern and similarity scan, sends the bill through the
// orchestrator and merges both into a finished audit.Report.
package forensics

import (
	"context"

	"porkvision/internal/audit"
	"porkvision/internal/detector"
	"porkvision/internal/engine"
	"porkvision/internal/ingest"
	"porkvision/internal/logging"
	"porkvision/internal/orchestrator"
	"porkvision/internal/similarity"

	"golang.org/x/sync/errgroup"
)

// Options tune one Analyzer.
type Options struct {
	// Threshold is the minimum model-legislation score kept, 0-100.
	Threshold int
	// IncludeLocalFindings feeds the local scan into the engine prompt. When
	// false the scan runs alongside the engine call instead.
	IncludeLocalFindings bool
}

// DefaultOptions returns the stock threshold with findings in the prompt.
func DefaultOptions() Options {
	return Options{Threshold: similarity.DefaultThreshold, IncludeLocalFindings: true}
}

// Analyzer is safe for concurrent use. The similarity engine and its corpus
// are read-only and every Analyze call owns its own orchestrator state.
type Analyzer struct {
	orch *orchestrator.Orchestrator
	sim  *similarity.Engine
	opts Options
}

// New returns an analyzer. A nil sim uses the embedded corpus.
func New(orch *orchestrator.Orchestrator, sim *similarity.Engine, opts Options) *Analyzer {
	if sim == nil {
		sim = similarity.NewEngine(nil)
	}
	return &Analyzer{orch: orch, sim: sim, opts: opts}
}

// Scan runs the offline checks on text. It never fails.
func (a *Analyzer) Scan(text string) audit.LocalFindings {
	return Scan(a.sim, text, a.opts.Threshold)
}

// Scan runs the pattern detector and the similarity engine on text.
func Scan(sim *similarity.Engine, text string, threshold int) audit.LocalFindings {
	timer := logging.StartTimer(logging.CategoryAudit, "local scan")
	defer timer.Stop()
	return audit.LocalFindings{
		Flags:   detector.Detect(text),
		Matches: sim.FindMatches(text, threshold),
	}
}

// Analyze produces a report for in, or exactly one *audit.AnalysisError.
// A URL input has no local text, so its local findings are empty.
func (a *Analyzer) Analyze(ctx context.Context, in ingest.RawInput) (*audit.Report, error) {
	var (
		local   audit.LocalFindings
		outcome *orchestrator.Outcome
	)
	localText := ""
	if in.Kind == ingest.KindText {
		localText = in.Content
	}

	prompt := engine.PromptInput{
		Kind:       promptKind(in.Kind),
		Content:    in.Content,
		Comparison: in.Comparison,
	}

	if a.opts.IncludeLocalFindings {
		local = a.Scan(localText)
		prompt.LocalFlags = local.Flags
		prompt.ModelMatches = local.Matches
		out, err := a.orch.Run(ctx, requestBuilder(prompt))
		if err != nil {
			return nil, err
		}
		outcome = out
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			local = a.Scan(localText)
			return nil
		})
		g.Go(func() error {
			out, err := a.orch.Run(gctx, requestBuilder(prompt))
			outcome = out
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	report := audit.BuildReport(outcome.Result, local)
	report.ID = outcome.RequestID
	report.Source = in.Source
	report.Attempts = outcome.Attempts
	report.Degraded = outcome.Degraded
	if outcome.Response != nil {
		report.GroundingSources = outcome.Response.GroundingSources
	}

	logging.Get(logging.CategoryAudit).Info("report %s: risk=%.0f pork=%.1f%% flags=%d matches=%d degraded=%t",
		report.ID, report.Result.OverallRiskScore, *report.Result.PorkPercentage,
		len(report.LocalFlags), len(report.ModelMatches), report.Degraded)
	return report, nil
}

func requestBuilder(in engine.PromptInput) orchestrator.RequestBuilder {
	return func(tools bool) engine.Request {
		return engine.BuildRequest(in, tools)
	}
}

func promptKind(k ingest.Kind) engine.InputKind {
	if k == ingest.KindURL {
		return engine.InputURL
	}
	return engine.InputText
}
