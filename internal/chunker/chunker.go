// Package chunker splits document text into the units that get embedded.
//
// Lines are accumulated greedily until adding the next one would push the
// chunk past the size limit. A line is never split, so a single line longer
// than the limit forms a chunk of its own. Boundaries depend only on the
// content and the size, which keeps cache keys reproducible.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/Kurasuai-Inc/doc-search/internal/cache"
)

const (
	// DefaultSize is the chunk size limit in characters
	DefaultSize = 500

	// CharsPerToken is the heuristic for estimating tokens (chars/4)
	CharsPerToken = 4
)

// Chunk is a contiguous run of whole lines
type Chunk struct {
	Index     int
	Text      string
	Hash      string
	StartLine int // 1-based
	EndLine   int // inclusive
}

// Key returns the cache key of the chunk within the document at path
func (c Chunk) Key(path string) cache.Key {
	return cache.Key{
		DocumentPath: path,
		ChunkIndex:   c.Index,
		ContentHash:  c.Hash,
	}
}

// TokenCount estimates the chunk's token count
func (c Chunk) TokenCount() int {
	return (utf8.RuneCountInString(c.Text) + CharsPerToken - 1) / CharsPerToken
}

// Empty reports whether the chunk has no non-whitespace text
func (c Chunk) Empty() bool {
	return strings.TrimSpace(c.Text) == ""
}

// Chunker splits text by size
type Chunker struct {
	size int
}

// New creates a Chunker; a non-positive size selects DefaultSize
func New(size int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	return &Chunker{size: size}
}

// Size returns the configured limit
func (c *Chunker) Size() int {
	return c.size
}

// Split chunks content. Line length is counted in characters, excluding the
// newline that joins lines. Empty content yields a single empty chunk.
func (c *Chunker) Split(content string) []Chunk {
	lines := strings.Split(content, "\n")

	var chunks []Chunk
	var current []string
	currentSize := 0
	start := 1

	flush := func(end int) {
		text := strings.Join(current, "\n")
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Text:      text,
			Hash:      cache.ContentHash(text),
			StartLine: start,
			EndLine:   end,
		})
	}

	for i, line := range lines {
		n := utf8.RuneCountInString(line)
		if currentSize+n > c.size && len(current) > 0 {
			flush(i)
			current = current[:0]
			currentSize = 0
			start = i + 1
		}
		current = append(current, line)
		currentSize += n
	}
	flush(len(lines))

	return chunks
}
