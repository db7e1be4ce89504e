package orchestrator

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/Kurasuai-Inc/doc-search/internal/semantic"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

// semanticPreviewLen is the number of characters of a chunk shown as its display text
const semanticPreviewLen = 100

var docExtensions = map[string]bool{
	".md":  true,
	".rst": true,
	".txt": true,
}

// Score rates a lexical match. A line that contains the query verbatim
// (ignoring case) scores 5 in a readme, 4 in another documentation file and
// 3 elsewhere. Lines matched only through a pattern score 2.
func Score(rec types.MatchRecord, query string) int {
	if !strings.Contains(strings.ToLower(rec.LineText), strings.ToLower(query)) {
		return 2
	}
	name := strings.ToLower(filepath.Base(rec.DocumentPath))
	switch {
	case strings.Contains(name, "readme"):
		return 5
	case docExtensions[filepath.Ext(name)]:
		return 4
	default:
		return 3
	}
}

// SemanticScore maps a similarity onto the 1-5 scale
func SemanticScore(similarity float64) int {
	if math.IsNaN(similarity) {
		return types.MinScore
	}
	s := int(math.Round(similarity * types.MaxScore))
	return max(types.MinScore, min(types.MaxScore, s))
}

func lexicalResult(rec types.MatchRecord, query string) types.RankedResult {
	return types.RankedResult{
		Origin:       types.OriginLexical,
		DocumentPath: rec.DocumentPath,
		LineNumber:   rec.LineNumber,
		DisplayText:  rec.LineText,
		Score:        Score(rec, query),
		MatchStart:   rec.MatchStart,
		MatchEnd:     rec.MatchEnd,
	}
}

func semanticResult(r semantic.Result) types.RankedResult {
	return types.RankedResult{
		Origin:       types.OriginSemantic,
		DocumentPath: r.DocumentPath,
		DisplayText:  preview(r.Text),
		Score:        SemanticScore(r.Similarity),
		ChunkIndex:   r.ChunkIndex,
		Similarity:   r.Similarity,
	}
}

// preview flattens a chunk onto one line and truncates it
func preview(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= semanticPreviewLen {
		return "[Semantic] " + flat
	}
	return "[Semantic] " + string(runes[:semanticPreviewLen]) + "..."
}
