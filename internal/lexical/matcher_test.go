package lexical

import (
	"testing"

	"github.com/Kurasuai-Inc/doc-search/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	tests := []struct {
		name  string
		query string
		opts  types.SearchOptions
		line  string
		want  [][2]int
	}{
		{
			name:  "literal case insensitive",
			query: "search",
			line:  "Search the docs, then SEARCH again",
			want:  [][2]int{{0, 6}, {22, 28}},
		},
		{
			name:  "literal case sensitive",
			query: "search",
			opts:  types.SearchOptions{CaseSensitive: true},
			line:  "Search the docs, then search again",
			want:  [][2]int{{22, 28}},
		},
		{
			name:  "literal does not overlap",
			query: "aa",
			opts:  types.SearchOptions{CaseSensitive: true},
			line:  "aaaaa",
			want:  [][2]int{{0, 2}, {2, 4}},
		},
		{
			name:  "literal insensitive does not overlap",
			query: "aa",
			line:  "AaAaA",
			want:  [][2]int{{0, 2}, {2, 4}},
		},
		{
			name:  "literal metacharacters",
			query: "a.b",
			line:  "axb a.b",
			want:  [][2]int{{4, 7}},
		},
		{
			name:  "regex",
			query: `err(or)?s?\b`,
			opts:  types.SearchOptions{UseRegex: true},
			line:  "Errors and err here",
			want:  [][2]int{{0, 6}, {11, 14}},
		},
		{
			name:  "no match",
			query: "absent",
			line:  "nothing to see",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := newMatcher(tt.query, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.find(tt.line))
		})
	}
}

func TestMatcher_InvalidRegex(t *testing.T) {
	_, err := newMatcher("(unclosed", types.SearchOptions{UseRegex: true})
	assert.ErrorIs(t, err, types.ErrInvalidOptions)
}

func TestFileFilter(t *testing.T) {
	f := newFileFilter(nil)
	assert.ElementsMatch(t, []string{"*.md", "*.rst", "*.txt", "*.py"}, f.globs)
	assert.True(t, f.match("README.md"))
	assert.True(t, f.match("setup.py"))
	assert.False(t, f.match("logo.png"))

	f = newFileFilter([]string{"go", ".md", "*.md"})
	assert.Equal(t, []string{"*.go", "*.md"}, f.globs)
	assert.False(t, f.match("notes.txt"))
}
