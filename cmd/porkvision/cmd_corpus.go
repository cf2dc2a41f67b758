package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var corpusJSON bool

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect the model legislation corpus",
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List model legislation templates",
	Args:  cobra.NoArgs,
	RunE:  runCorpusList,
}

func init() {
	corpusListCmd.Flags().BoolVar(&corpusJSON, "json", false, "Print templates as JSON")
	corpusCmd.AddCommand(corpusListCmd)
}

func runCorpusList(cmd *cobra.Command, args []string) error {
	sim, err := loadSimilarity(cfg)
	if err != nil {
		return err
	}
	templates := sim.Corpus().Templates()
	if corpusJSON {
		return writeJSON(cmd.OutOrStdout(), templates)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tID\tCATEGORY\tTITLE")
	for _, t := range templates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Source, t.ID, t.Category, t.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf("%d templates from %d sources", len(templates), len(sim.Corpus().Sources()))))
	return nil
}
