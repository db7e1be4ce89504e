package lexical

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

// matcher reports the [start, end) byte spans of every match in a line.
// Spans never overlap; scanning resumes at the end of the previous match,
// which is what ripgrep reports as submatches.
type matcher interface {
	find(line string) [][2]int
}

func newMatcher(query string, opts types.SearchOptions) (matcher, error) {
	if opts.UseRegex {
		expr := query
		if !opts.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid pattern %q: %v", types.ErrInvalidOptions, query, err)
		}
		return regexMatcher{re: re}, nil
	}
	if !opts.CaseSensitive {
		// simple case folding, the same rule ripgrep -i applies
		return regexMatcher{re: regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))}, nil
	}
	return literalMatcher{needle: query}, nil
}

type literalMatcher struct {
	needle string
}

func (m literalMatcher) find(line string) [][2]int {
	var spans [][2]int
	for pos := 0; pos <= len(line); {
		i := strings.Index(line[pos:], m.needle)
		if i < 0 {
			break
		}
		start := pos + i
		end := start + len(m.needle)
		spans = append(spans, [2]int{start, end})
		pos = end
		if end == start {
			pos++
		}
	}
	return spans
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) find(line string) [][2]int {
	idx := m.re.FindAllStringIndex(line, -1)
	if len(idx) == 0 {
		return nil
	}
	spans := make([][2]int, len(idx))
	for i, loc := range idx {
		spans[i] = [2]int{loc[0], loc[1]}
	}
	return spans
}
