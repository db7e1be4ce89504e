package types

import "fmt"

// SearchOptions controls a single lexical search.
// The zero value searches case-insensitively for a literal string in the
// default document types with no result cap.
type SearchOptions struct {
	CaseSensitive bool
	UseRegex      bool
	FileTypes     []string // Extensions without the dot; nil means the default document set
	MaxResults    int      // 0 means unbounded
	ContextLines  int      // Lines of context requested from the accelerated matcher
}

// Validate checks that numeric options are within range
func (o SearchOptions) Validate() error {
	if o.MaxResults < 0 {
		return fmt.Errorf("%w: max results must be >= 0, got %d", ErrInvalidOptions, o.MaxResults)
	}
	if o.ContextLines < 0 {
		return fmt.Errorf("%w: context lines must be >= 0, got %d", ErrInvalidOptions, o.ContextLines)
	}
	for _, ft := range o.FileTypes {
		if ft == "" {
			return fmt.Errorf("%w: empty file type", ErrInvalidOptions)
		}
	}
	return nil
}

// Limited reports whether a result cap is set
func (o SearchOptions) Limited() bool {
	return o.MaxResults > 0
}
