// Package types provides the shared data model for doc-search.
//
// These are the values that cross package boundaries: the per-query options a
// caller passes in, the line-level matches produced by the lexical engine, and
// the ranked results the orchestrator hands back to a front-end.
//
// # Search Options
//
// SearchOptions is an immutable value passed per query:
//
//	opts := types.SearchOptions{
//	    CaseSensitive: false,
//	    UseRegex:      false,
//	    FileTypes:     []string{"md", "txt"},
//	    MaxResults:    100,
//	}
//
// # Matches and Results
//
// MatchRecord is one match inside one line. MatchStart and MatchEnd are byte
// offsets into LineText, so LineText[MatchStart:MatchEnd] is the matched text.
//
// RankedResult is the only type the orchestrator returns. Lexical and semantic
// results are normalized onto a common 1-5 Score so they can be sorted
// together:
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s:%d %s\n", r.Score, r.DocumentPath, r.LineNumber, r.DisplayText)
//	}
//
// Semantic results are chunk level and always carry LineNumber 0.
package types
