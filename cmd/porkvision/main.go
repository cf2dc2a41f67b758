// Command porkvision audits legislation for hidden spending and special
// interest influence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"porkvision/internal/config"
	"porkvision/internal/engine"
	"porkvision/internal/logging"
	"porkvision/internal/similarity"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	timeout time.Duration

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// newEngine builds the generative engine. Tests replace it.
var newEngine = func(ctx context.Context, c *config.Config) (engine.Engine, error) {
	return engine.NewGeminiEngine(ctx, engine.GeminiConfig{
		APIKey:      c.Engine.APIKey,
		Model:       c.Engine.Model,
		BaseURL:     c.Engine.BaseURL,
		Timeout:     c.GetEngineTimeout(),
		Temperature: c.Engine.Temperature,
	})
}

var rootCmd = &cobra.Command{
	Use:   "porkvision",
	Short: "Forensic audit of legislation for pork, earmarks and lobbyist fingerprints",
	Long: `porkvision runs a forensic audit over a bill.

Offline checks flag suspicious statutory patterns and compare the text against
known model legislation. The full analysis sends the bill to a generative
engine, salvages its structured reply and merges both into one report.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.DebugMode = true
		}
		if err := logging.Initialize(cfg.Logging); err != nil {
			return err
		}
		logging.BootDebug("config loaded from %s", cfgPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "porkvision.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall timeout for one analysis (0 for none)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(corpusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext cancels on SIGINT/SIGTERM and after the global timeout.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// loadSimilarity builds the similarity engine from the configured corpus.
func loadSimilarity(c *config.Config) (*similarity.Engine, error) {
	if c.Analysis.CorpusPath == "" {
		return similarity.NewEngine(nil), nil
	}
	corpus, err := similarity.LoadCorpus(c.Analysis.CorpusPath)
	if err != nil {
		return nil, err
	}
	return similarity.NewEngine(corpus), nil
}
