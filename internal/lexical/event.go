package lexical

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

// ripgrep --json message types
const (
	eventBegin   = "begin"
	eventMatch   = "match"
	eventContext = "context"
	eventEnd     = "end"
	eventSummary = "summary"
)

// ErrMalformedEvent is returned for output lines that are not valid ripgrep JSON
var ErrMalformedEvent = errors.New("malformed ripgrep event")

type rgMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// rgData is ripgrep's arbitrary-data encoding: text when valid UTF-8,
// otherwise base64 bytes
type rgData struct {
	Text  *string `json:"text"`
	Bytes *string `json:"bytes"`
}

func (d rgData) raw() ([]byte, error) {
	switch {
	case d.Text != nil:
		return []byte(*d.Text), nil
	case d.Bytes != nil:
		return base64.StdEncoding.DecodeString(*d.Bytes)
	default:
		return nil, fmt.Errorf("%w: missing text", ErrMalformedEvent)
	}
}

type rgSubmatch struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type rgMatch struct {
	Path       rgData       `json:"path"`
	Lines      rgData       `json:"lines"`
	LineNumber *int         `json:"line_number"`
	Submatches []rgSubmatch `json:"submatches"`
}

// parseEvent decodes one line of ripgrep JSON output. Match events produce one
// record per submatch; every other event type produces none.
func parseEvent(line []byte) (string, []types.MatchRecord, error) {
	var msg rgMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if msg.Type != eventMatch {
		return msg.Type, nil, nil
	}

	var m rgMatch
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		return msg.Type, nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if m.LineNumber == nil || *m.LineNumber < 1 {
		return msg.Type, nil, fmt.Errorf("%w: missing line number", ErrMalformedEvent)
	}

	pathRaw, err := m.Path.raw()
	if err != nil {
		return msg.Type, nil, err
	}
	lineRaw, err := m.Lines.raw()
	if err != nil {
		return msg.Type, nil, err
	}

	path, _ := decodeLossy(pathRaw)
	text, offsets := decodeLossy(trimNewline(lineRaw))

	records := make([]types.MatchRecord, 0, len(m.Submatches))
	for _, sm := range m.Submatches {
		start, ok1 := mapOffset(offsets, sm.Start, len(text))
		end, ok2 := mapOffset(offsets, sm.End, len(text))
		if !ok1 || !ok2 || start > end {
			return msg.Type, nil, fmt.Errorf("%w: submatch [%d,%d) outside line", ErrMalformedEvent, sm.Start, sm.End)
		}
		records = append(records, types.MatchRecord{
			DocumentPath: filepath.Clean(path),
			LineNumber:   *m.LineNumber,
			LineText:     text,
			MatchStart:   start,
			MatchEnd:     end,
		})
	}
	return msg.Type, records, nil
}

func trimNewline(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		return b[:n-1]
	}
	return b
}

// decodeLossy converts raw bytes to UTF-8, replacing each invalid byte with
// U+FFFD. When replacements happen it also returns a table mapping every raw
// byte offset to its offset in the decoded string; nil means identity.
func decodeLossy(raw []byte) (string, []int) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	var b strings.Builder
	b.Grow(len(raw) + 8)
	offsets := make([]int, len(raw)+1)
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size == 1 {
			offsets[i] = b.Len()
			b.WriteRune(utf8.RuneError)
			i++
			continue
		}
		for j := 0; j < size; j++ {
			offsets[i+j] = b.Len() + j
		}
		b.Write(raw[i : i+size])
		i += size
	}
	offsets[len(raw)] = b.Len()
	return b.String(), offsets
}

func mapOffset(offsets []int, n, limit int) (int, bool) {
	if offsets == nil {
		if n > limit {
			// a match that swallowed the stripped newline
			return limit, n == limit+1
		}
		return n, n >= 0
	}
	if n < 0 {
		return 0, false
	}
	if n >= len(offsets) {
		return limit, n == len(offsets)
	}
	return offsets[n], true
}
