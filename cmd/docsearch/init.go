package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Kurasuai-Inc/doc-search/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	Long: `Writes the default configuration to the --config path. API keys are
never written; supply them through OPENAI_API_KEY, JINA_API_KEY or
DOCSEARCH_EMBEDDING__API_KEY.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(cfgFile); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
	}

	cfg := config.DefaultConfig()
	if rootDir != "" {
		cfg.Root = rootDir
	}
	if err := cfg.Save(cfgFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfgFile)
	return nil
}
