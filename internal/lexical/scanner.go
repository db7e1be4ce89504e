package lexical

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

// scan is the in-process matcher. It walks root in lexical order, matching
// the order ripgrep --sort=path produces, and checks the result limit before
// opening each file.
func (e *Engine) scan(ctx context.Context, root string, m matcher, filter fileFilter, em *emitter, out *Outcome) error {
	var agg errclass.Aggregate
	candidates, readable := 0, 0

	onErr := func(path string, err error) {
		agg.Add(err)
		e.logger.Debug("skipping directory", "path", path, "error", err)
	}
	err := walk(ctx, root, filter, onErr, func(path string) error {
		if em.full() {
			return errStopped
		}
		candidates++
		ok, err := e.scanFile(path, m, em)
		if ok {
			readable++
		}
		if err != nil {
			if errors.Is(err, errStopped) {
				return err
			}
			agg.Add(err)
			e.logger.Debug("skipping file", "path", path, "error", err)
		}
		return nil
	})

	if w := agg.Warning(); w != "" {
		e.logger.Warn(w)
		if out != nil {
			out.Warnings = append(out.Warnings, w)
		}
	}
	if err != nil {
		return err
	}
	if candidates > 0 && readable == 0 {
		return fmt.Errorf("%w under %s: %s", ErrNoReadableFiles, root, agg.Warning())
	}
	return nil
}

// scanFile reports whether the file could be read at all. Records emitted
// before a mid-file read error are kept.
func (e *Engine) scanFile(path string, m matcher, em *emitter) (bool, error) {
	f, err := e.open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64<<10)
	head, err := r.Peek(binarySniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	if looksBinary(head) {
		return true, nil
	}

	lineNo := 0
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			raw := trimNewline(line)
			if bytes.IndexByte(raw, 0) >= 0 {
				// ripgrep stops searching a file once it sees binary data
				return true, nil
			}
			text, _ := decodeLossy(raw)
			for _, span := range m.find(text) {
				rec := types.MatchRecord{
					DocumentPath: path,
					LineNumber:   lineNo,
					LineText:     text,
					MatchStart:   span[0],
					MatchEnd:     span[1],
				}
				if err := em.emit(rec); err != nil {
					return true, err
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return true, nil
			}
			return true, readErr
		}
	}
}
