package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kurasuai-Inc/doc-search/internal/orchestrator"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search documents by pattern and by meaning",
	Long: `Runs the query through ripgrep (or the built-in scanner) and, when
semantic search is enabled, through the embedding index. Results from both
are merged and ranked from 5 (best) to 1.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.String("path", "", "directory or file to search (defaults to the configured root)")
	f.Bool("regex", true, "treat the query as a regular expression")
	f.Bool("case-sensitive", false, "match case exactly")
	f.StringSlice("type", nil, "file extensions to search, e.g. --type md,rst")
	f.Int("max-results", 0, "maximum pattern matches (0 uses the configured limit)")
	f.Int("context", 0, "lines of context around each match")
	f.Bool("semantic", true, "merge semantic results when enabled in config")
	f.Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	path, _ := f.GetString("path")
	useSemantic, _ := f.GetBool("semantic")
	jsonOutput, _ := f.GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !useSemantic {
		cfg.Semantic.Enabled = false
	}

	opts := cfg.SearchOptions()
	if f.Changed("regex") {
		opts.UseRegex, _ = f.GetBool("regex")
	}
	if f.Changed("case-sensitive") {
		opts.CaseSensitive, _ = f.GetBool("case-sensitive")
	}
	if f.Changed("type") {
		opts.FileTypes, _ = f.GetStringSlice("type")
	}
	if f.Changed("max-results") {
		opts.MaxResults, _ = f.GetInt("max-results")
	}
	if f.Changed("context") {
		opts.ContextLines, _ = f.GetInt("context")
	}

	a, _, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	resp, err := a.Orchestrator.PerformSearch(ctx, args[0], opts, path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printSearchJSON(out, resp)
	}
	printSearchTable(out, resp)
	return nil
}

type searchResultJSON struct {
	Origin     string  `json:"origin"`
	Path       string  `json:"path"`
	Line       int     `json:"line,omitempty"`
	Chunk      int     `json:"chunk,omitempty"`
	Score      int     `json:"score"`
	Similarity float64 `json:"similarity,omitempty"`
	Text       string  `json:"text"`
}

type searchResponseJSON struct {
	ID       string             `json:"id"`
	Backend  string             `json:"backend"`
	Status   string             `json:"status,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
	Results  []searchResultJSON `json:"results"`
}

func printSearchJSON(w io.Writer, resp *orchestrator.Response) error {
	out := searchResponseJSON{
		ID:       resp.ID,
		Backend:  string(resp.Backend),
		Status:   resp.Status,
		Warnings: resp.Warnings,
		Results:  make([]searchResultJSON, 0, len(resp.Results)),
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, searchResultJSON{
			Origin:     string(r.Origin),
			Path:       r.DocumentPath,
			Line:       r.LineNumber,
			Chunk:      r.ChunkIndex,
			Score:      r.Score,
			Similarity: r.Similarity,
			Text:       r.DisplayText,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSearchTable(w io.Writer, resp *orchestrator.Response) {
	if resp.Status != "" {
		fmt.Fprintf(w, "warning: %s\n", resp.Status)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "Found %d results (%d pattern, %d semantic) via %s in %s:\n\n",
		len(resp.Results), resp.LexicalCount, resp.SemanticCount, resp.Backend, resp.Duration.Round(time.Millisecond))
	for _, r := range resp.Results {
		fmt.Fprintf(w, "  [%s] %s\n", stars(r.Score), location(r))
		fmt.Fprintf(w, "      %s\n", strings.TrimSpace(r.DisplayText))
	}
}

func location(r types.RankedResult) string {
	if r.Origin == types.OriginLexical {
		return fmt.Sprintf("%s:%d", r.DocumentPath, r.LineNumber)
	}
	return fmt.Sprintf("%s#%d", r.DocumentPath, r.ChunkIndex)
}

func stars(score int) string {
	score = max(types.MinScore, min(types.MaxScore, score))
	return strings.Repeat("*", score) + strings.Repeat(" ", types.MaxScore-score)
}
