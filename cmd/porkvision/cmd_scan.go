package main

import (
	"fmt"
	"io"

	"porkvision/internal/audit"
	"porkvision/internal/forensics"
	"porkvision/internal/ingest"
	"porkvision/internal/similarity"
	"porkvision/internal/watch"

	"github.com/spf13/cobra"
)

var (
	scanThreshold int
	scanWatch     bool
	scanJSON      bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [FILE|-]",
	Short: "Run only the offline pattern and model-legislation checks",
	Long: `Flags suspicious statutory patterns and scores the bill against the model
legislation corpus. No engine call is made and no API key is needed.

With --watch the scan re-runs every time FILE is saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanThreshold, "threshold", -1, "Model legislation threshold 0-100 (default from config)")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Re-run the scan when the file changes")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print findings as JSON")
}

// scanResult is the JSON shape of an offline scan.
type scanResult struct {
	Source     string               `json:"source"`
	Flags      []audit.LocalRedFlag `json:"flags"`
	Similarity similarity.Summary   `json:"modelLegislation"`
}

func runScan(cmd *cobra.Command, args []string) error {
	threshold := cfg.Analysis.SimilarityThreshold
	if scanThreshold >= 0 {
		threshold = scanThreshold
	}
	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("threshold must be within 0-100, got %d", threshold)
	}

	arg := "-"
	if len(args) == 1 {
		arg = args[0]
	}
	if scanWatch && arg == "-" {
		return fmt.Errorf("--watch needs a file path")
	}
	if ingest.IsURL(arg) {
		return fmt.Errorf("scan works on local text; use analyze for URLs")
	}

	sim, err := loadSimilarity(cfg)
	if err != nil {
		return err
	}
	loader := ingest.NewLoader(cfg.Analysis.MaxInputBytes)
	loader.Stdin = cmd.InOrStdin()

	scan := func() error {
		in, err := loader.Load(arg)
		if err != nil {
			return err
		}
		return printScan(cmd.OutOrStdout(), in.Source, sim, in.Content, threshold)
	}

	if err := scan(); err != nil {
		return err
	}
	if !scanWatch {
		return nil
	}

	ctx, cancel := commandContext(cmd.Context())
	defer cancel()

	w, err := watch.New(arg, watch.DefaultDebounce, func(string) {
		if err := scan(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "scan failed: %v\n", err)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl+C to stop)\n", w.Path())
	return w.Run(ctx)
}

func printScan(w io.Writer, source string, sim *similarity.Engine, text string, threshold int) error {
	findings := forensics.Scan(sim, text, threshold)
	summary := similarity.Summarize(findings.Matches)

	if scanJSON {
		return writeJSON(w, scanResult{Source: source, Flags: findings.Flags, Similarity: summary})
	}
	renderFindings(w, source, findings, summary)
	return nil
}
