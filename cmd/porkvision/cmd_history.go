package main

import (
	"fmt"
	"text/tabwriter"

	"porkvision/internal/store"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyJSON  bool
	historyPlain bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved reports",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a saved report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Remove a saved report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "Print as JSON")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries (0 for all)")
	historyShowCmd.Flags().BoolVar(&historyPlain, "plain", false, "Print markdown without terminal styling")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

func openStore() (*store.Store, error) {
	return store.Open(cfg.Store.DatabasePath)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no saved reports"))
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tRISK\tPORK\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%.0f\t%.1f%%\t%s\n", e.ID, e.CreatedAt.Format("2006-01-02 15:04"), e.OverallRisk, e.PorkPercentage, e.Source)
	}
	return tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := st.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	return renderReport(cmd.OutOrStdout(), report, historyPlain)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "deleted %s\n", args[0])
	return nil
}
