package types

// Origin identifies which engine produced a result
type Origin string

const (
	OriginLexical  Origin = "lexical"
	OriginSemantic Origin = "semantic"
)

const (
	// MinScore and MaxScore bound the ordinal scale shared by both engines
	MinScore = 1
	MaxScore = 5
)

// RankedResult is a lexical or semantic hit normalized onto the 1-5 scale
type RankedResult struct {
	Origin       Origin
	DocumentPath string
	LineNumber   int // 0 for semantic results
	DisplayText  string
	Score        int

	// Lexical only
	MatchStart int
	MatchEnd   int

	// Semantic only
	ChunkIndex int
	Similarity float64
}

// Validate checks if the ranked result is valid
func (r *RankedResult) Validate() error {
	if r.Origin != OriginLexical && r.Origin != OriginSemantic {
		return ErrInvalidOrigin
	}

	if r.DocumentPath == "" {
		return ErrMissingPath
	}

	if r.Score < MinScore || r.Score > MaxScore {
		return ErrInvalidScore
	}

	if r.Origin == OriginLexical && r.LineNumber < 1 {
		return ErrInvalidLineNumber
	}

	if r.Origin == OriginSemantic && r.LineNumber != 0 {
		return ErrInvalidLineNumber
	}

	return nil
}
