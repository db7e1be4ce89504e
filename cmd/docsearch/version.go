package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kurasuai-Inc/doc-search/internal/lexical"
	"github.com/Kurasuai-Inc/doc-search/internal/mcp"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and backend information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "docsearch %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "MCP Server: %s %s\n", mcp.ServerName, mcp.ServerVersion)

		backend := lexical.BackendScanner
		if lexical.New().Available() {
			backend = lexical.BackendRipgrep
		}
		fmt.Fprintf(out, "Lexical Backend: %s\n", backend)
	},
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate("docsearch {{.Version}}\n")
	rootCmd.AddCommand(versionCmd)
}
