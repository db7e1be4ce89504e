package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func TestNew(t *testing.T) {
	assert.Equal(t, DefaultSize, New(0).Size())
	assert.Equal(t, DefaultSize, New(-3).Size())
	assert.Equal(t, 10, New(10).Size())
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		content string
		want    []string
	}{
		{
			name:    "fits in one chunk",
			size:    100,
			content: "line one\nline two",
			want:    []string{"line one\nline two"},
		},
		{
			name:    "greedy accumulation",
			size:    10,
			content: "aaaa\nbbbb\ncccc\ndd",
			want:    []string{"aaaa\nbbbb", "cccc\ndd"},
		},
		{
			name:    "exact fit stays together",
			size:    8,
			content: "aaaa\nbbbb\nc",
			want:    []string{"aaaa\nbbbb", "c"},
		},
		{
			name:    "long line is never split",
			size:    5,
			content: "short\n" + strings.Repeat("x", 20) + "\nend",
			want:    []string{"short", strings.Repeat("x", 20), "end"},
		},
		{
			name:    "empty content",
			size:    10,
			content: "",
			want:    []string{""},
		},
		{
			name:    "trailing newline keeps empty last line",
			size:    100,
			content: "a\nb\n",
			want:    []string{"a\nb\n"},
		},
		{
			name:    "size counts characters not bytes",
			size:    4,
			content: "ああ\nいい\nう",
			want:    []string{"ああ\nいい", "う"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.size).Split(tt.content)
			assert.Equal(t, tt.want, texts(got))
			for i, c := range got {
				assert.Equal(t, i, c.Index)
			}
		})
	}
}

func TestSplit_LineRanges(t *testing.T) {
	chunks := New(10).Split("aaaa\nbbbb\ncccc\ndd")
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)
	assert.Equal(t, 3, chunks[1].StartLine)
	assert.Equal(t, 4, chunks[1].EndLine)
}

func TestSplit_Deterministic(t *testing.T) {
	content := strings.Repeat("The quick brown fox jumps over the lazy dog.\n", 60)
	c := New(200)

	first := c.Split(content)
	second := c.Split(content)
	require.Equal(t, first, second)

	for _, ch := range first {
		assert.LessOrEqual(t, len([]rune(ch.Text))-strings.Count(ch.Text, "\n"), 200)
		assert.Equal(t, ch.Key("doc.md"), second[ch.Index].Key("doc.md"))
	}
}

func TestChunk_KeyChangesWithContent(t *testing.T) {
	a := New(100).Split("original text")[0]
	b := New(100).Split("edited text")[0]

	assert.Equal(t, a.Key("doc.md").ChunkIndex, b.Key("doc.md").ChunkIndex)
	assert.NotEqual(t, a.Key("doc.md"), b.Key("doc.md"))
}

func TestChunk_Helpers(t *testing.T) {
	c := Chunk{Text: "abcdefgh"}
	assert.Equal(t, 2, c.TokenCount())
	assert.False(t, c.Empty())
	assert.True(t, Chunk{Text: " \n\t"}.Empty())
}
