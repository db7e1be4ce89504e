package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kurasuai-Inc/doc-search/internal/app"
	"github.com/Kurasuai-Inc/doc-search/internal/semantic"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Build the semantic index for a document tree",
	Long: `Chunks every document under path (the configured root by default),
embeds the chunks that are not already cached and reports what was done.
Unchanged chunks are read back from the embedding cache.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Bool("no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	var opts []app.Option
	progress := newIndexProgress(os.Stderr)
	if !noProgress {
		opts = append(opts, app.WithSemanticOptions(semantic.WithProgress(progress.update)))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, _, err := openApp(cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	root := ""
	if len(args) == 1 {
		root = args[0]
	}

	ctx, stop := signalContext()
	defer stop()

	stats, err := a.Orchestrator.BuildIndex(ctx, root)
	progress.finish()
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %d documents into %d chunks with %s\n", stats.Documents, stats.Chunks, stats.Model)
	fmt.Fprintf(out, "  cached: %d  embedded: %d  empty: %d\n", stats.CacheHits, stats.Embedded, stats.Skipped)
	if stats.PersistFailures > 0 {
		fmt.Fprintf(out, "  %d chunks could not be cached and will be embedded again next time\n", stats.PersistFailures)
	}
	fmt.Fprintf(out, "  took %s\n", stats.Duration.Round(time.Millisecond))
	return nil
}
