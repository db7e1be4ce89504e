package types

// MatchRecord is a single match of a query inside one line of a document
type MatchRecord struct {
	DocumentPath string
	LineNumber   int    // 1-based
	LineText     string // Trailing newline stripped
	MatchStart   int    // Byte offset into LineText
	MatchEnd     int    // Byte offset into LineText, exclusive
}

// MatchKey identifies a match independently of the line text.
// Two engines agree on a match when they produce the same MatchKey.
type MatchKey struct {
	Path  string
	Line  int
	Start int
	End   int
}

// Key returns the comparable identity of the match
func (m MatchRecord) Key() MatchKey {
	return MatchKey{
		Path:  m.DocumentPath,
		Line:  m.LineNumber,
		Start: m.MatchStart,
		End:   m.MatchEnd,
	}
}

// Matched returns the matched slice of the line
func (m MatchRecord) Matched() string {
	if m.MatchStart < 0 || m.MatchEnd > len(m.LineText) || m.MatchStart > m.MatchEnd {
		return ""
	}
	return m.LineText[m.MatchStart:m.MatchEnd]
}

// Validate checks the record invariants
func (m MatchRecord) Validate() error {
	if m.DocumentPath == "" {
		return ErrMissingPath
	}
	if m.LineNumber < 1 {
		return ErrInvalidLineNumber
	}
	if m.MatchStart < 0 || m.MatchStart > m.MatchEnd || m.MatchEnd > len(m.LineText) {
		return ErrInvalidOffsets
	}
	return nil
}
