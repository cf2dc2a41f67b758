package main

import (
	"fmt"
	"os"

	"porkvision/internal/config"

	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Writes the defaults to --config. The API key is left empty; set
GEMINI_API_KEY instead of storing it on disk.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgPath); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}
	if err := config.DefaultConfig().Save(cfgPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfgPath)
	return nil
}
