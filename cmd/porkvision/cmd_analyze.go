package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"porkvision/internal/audit"
	"porkvision/internal/forensics"
	"porkvision/internal/ingest"
	"porkvision/internal/logging"
	"porkvision/internal/orchestrator"
	"porkvision/internal/store"

	"github.com/spf13/cobra"
)

var (
	analyzeCompare   string
	analyzeNoSearch  bool
	analyzeNoLocal   bool
	analyzeOut       string
	analyzeSave      bool
	analyzeJSON      bool
	analyzePlain     bool
	analyzeThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [FILE|URL|-]",
	Short: "Run the full forensic audit through the generative engine",
	Long: `Runs the offline checks, sends the bill to the engine and prints the
merged report.

A URL is handed to the engine, which retrieves it with web search. With
--compare the engine also describes what changed from the earlier version.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCompare, "compare", "", "Earlier version of the bill for diff mode (file or -)")
	analyzeCmd.Flags().BoolVar(&analyzeNoSearch, "no-search", false, "Never give the engine its web-search tool")
	analyzeCmd.Flags().BoolVar(&analyzeNoLocal, "no-local", false, "Do not include local findings in the prompt")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Export the audit result as JSON (a directory gets porkvision-audit-YYYY-MM-DD.json)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the report in the local history database")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the report as JSON")
	analyzeCmd.Flags().BoolVar(&analyzePlain, "plain", false, "Print markdown without terminal styling")
	analyzeCmd.Flags().IntVar(&analyzeThreshold, "threshold", -1, "Model legislation threshold 0-100 (default from config)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	if analyzeThreshold >= 0 {
		cfg.Analysis.SimilarityThreshold = analyzeThreshold
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	arg := "-"
	if len(args) == 1 {
		arg = args[0]
	}
	loader := ingest.NewLoader(cfg.Analysis.MaxInputBytes)
	loader.Stdin = cmd.InOrStdin()

	in, err := loader.Load(arg)
	if err != nil {
		return err
	}
	if analyzeCompare != "" {
		if in.Comparison, err = loader.LoadComparison(analyzeCompare); err != nil {
			return err
		}
	}

	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	sim, err := loadSimilarity(cfg)
	if err != nil {
		return err
	}

	orch := orchestrator.New(eng, orchestrator.Config{
		ToolsEnabled: cfg.Engine.EnableSearch && !analyzeNoSearch,
		MaxRetries:   cfg.Retry.MaxRetries,
		BaseDelay:    cfg.GetBaseDelay(),
	})
	analyzer := forensics.New(orch, sim, forensics.Options{
		Threshold:            cfg.Analysis.SimilarityThreshold,
		IncludeLocalFindings: cfg.Analysis.IncludeLocalFindings && !analyzeNoLocal,
	})

	logging.Boot("analyzing %s input from %s", in.Kind, in.Source)
	report, err := analyzer.Analyze(ctx, in)
	if err != nil {
		return describeFailure(err)
	}

	if analyzeSave {
		if err := saveReport(cmd, report); err != nil {
			return err
		}
	}
	if analyzeOut != "" {
		path, err := exportResult(analyzeOut, report.Result, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %s\n", path)
	}

	if analyzeJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return renderReport(cmd.OutOrStdout(), report, analyzePlain)
}

func saveReport(cmd *cobra.Command, report *audit.Report) error {
	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.Save(cmd.Context(), report)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "saved report %s\n", id)
	return nil
}

// describeFailure turns a terminal analysis error into a message for the
// user, listing field issues for schema mismatches.
func describeFailure(err error) error {
	var ae *audit.AnalysisError
	if !errors.As(err, &ae) {
		return err
	}
	var sb strings.Builder
	switch ae.Kind {
	case audit.KindAuthFailure:
		sb.WriteString("authentication failed: check GEMINI_API_KEY")
	case audit.KindTransientEngineFailure:
		sb.WriteString("engine quota exhausted after retries; try again later")
	case audit.KindNetworkFailure:
		sb.WriteString("could not reach the engine")
	case audit.KindNoStructureFound:
		sb.WriteString("engine reply contained no structured result")
	case audit.KindMalformedPayload:
		sb.WriteString("engine reply could not be parsed")
	case audit.KindSchemaMismatch:
		sb.WriteString("engine reply did not match the audit contract")
	case audit.KindCanceled:
		sb.WriteString("analysis canceled")
	default:
		sb.WriteString("analysis failed")
	}
	fmt.Fprintf(&sb, " (%s, %d attempt(s))", ae.Kind, ae.Attempts)
	if ae.Err != nil {
		fmt.Fprintf(&sb, ": %v", ae.Err)
	}
	for _, issue := range ae.Issues {
		sb.WriteString("\n  ")
		sb.WriteString(issue.String())
	}
	return &failure{msg: sb.String(), cause: ae}
}

// failure keeps the AnalysisError reachable behind the user-facing message.
type failure struct {
	msg   string
	cause *audit.AnalysisError
}

func (f *failure) Error() string { return f.msg }
func (f *failure) Unwrap() error { return f.cause }

// exportFilename is the default export name for a given day.
func exportFilename(day time.Time) string {
	return fmt.Sprintf("porkvision-audit-%s.json", day.Format("2006-01-02"))
}

// exportResult writes the audit result verbatim as indented JSON.
func exportResult(out string, result audit.AuditResult, now time.Time) (string, error) {
	path := out
	if info, err := os.Stat(out); (err == nil && info.IsDir()) || strings.HasSuffix(out, string(os.PathSeparator)) {
		path = filepath.Join(out, exportFilename(now))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode audit result: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	logging.Report("exported audit result to %s", path)
	return path, nil
}
