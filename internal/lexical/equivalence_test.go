package lexical

import (
	"context"
	"os/exec"
	"sort"
	"testing"

	"github.com/Kurasuai-Inc/doc-search/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRipgrepAndScannerAgree runs real ripgrep and the scanner over the same
// corpus and requires identical match keys and line text.
func TestRipgrepAndScannerAgree(t *testing.T) {
	if _, err := exec.LookPath(ToolName); err != nil {
		t.Skip("ripgrep not installed")
	}

	root := writeCorpus(t, map[string]string{
		"README.md":          "Search the docs\nsearch SEARCH search\n",
		"guide/install.rst":  "Install with pip.\nThen search.\n",
		"guide/notes.txt":    "TODO: error handling\nerrors are wrapped\r\nlast line without newline error",
		"src/tool.py":        "def search(query):\n    return query.lower()\n",
		"src/ignored.go":     "search\n",
		"unicode.md":         "Ünïcödé search straße\nSTRASSE\n",
		".hidden/secret.md":  "search\n",
		"nested/deep/aa.txt": "aaaa aa a\n",
	})

	tool := New(WithRetry(retryOnce))
	scanner := newScanner()
	require.True(t, tool.Available())

	cases := []struct {
		name  string
		query string
		opts  types.SearchOptions
	}{
		{"literal insensitive", "search", types.SearchOptions{}},
		{"literal sensitive", "search", types.SearchOptions{CaseSensitive: true}},
		{"literal repeated", "aa", types.SearchOptions{CaseSensitive: true}},
		{"regex", `err(or)?s?`, types.SearchOptions{UseRegex: true}},
		{"regex anchored", `^[A-Za-z]+`, types.SearchOptions{UseRegex: true, CaseSensitive: true}},
		{"unicode", "straße", types.SearchOptions{}},
		{"file types", "search", types.SearchOptions{FileTypes: []string{"go", "py"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			want, err := tool.Collect(context.Background(), tc.query, root, tc.opts)
			require.NoError(t, err)
			require.Equal(t, BackendRipgrep, want.Backend)

			got, err := scanner.Collect(context.Background(), tc.query, root, tc.opts)
			require.NoError(t, err)

			assert.NotEmpty(t, want.Records)
			assert.Equal(t, sortedRecords(want.Records), sortedRecords(got.Records))
		})
	}
}

func sortedRecords(records []types.MatchRecord) []types.MatchRecord {
	out := append([]types.MatchRecord(nil), records...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Key(), out[j].Key()
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Start < b.Start
	})
	return out
}
