package lexical

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultFileTypes are searched when SearchOptions.FileTypes is empty
var DefaultFileTypes = []string{"md", "rst", "txt", "py"}

// binarySniffLen is how much of a file is inspected for NUL bytes
const binarySniffLen = 8 << 10

// ErrBinaryFile is returned by ReadDocument for files that contain NUL bytes
var ErrBinaryFile = errors.New("binary file")

// fileFilter selects documents by base-name glob.
// The same globs are handed to ripgrep so both paths see the same files.
type fileFilter struct {
	globs []string
}

func newFileFilter(fileTypes []string) fileFilter {
	if len(fileTypes) == 0 {
		fileTypes = DefaultFileTypes
	}
	globs := make([]string, 0, len(fileTypes))
	seen := make(map[string]bool, len(fileTypes))
	for _, ft := range fileTypes {
		g := globFor(ft)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		globs = append(globs, g)
	}
	return fileFilter{globs: globs}
}

// globFor accepts "md", ".md" or "*.md"
func globFor(fileType string) string {
	ft := strings.TrimSpace(fileType)
	ft = strings.TrimPrefix(ft, "*")
	ft = strings.TrimPrefix(ft, ".")
	if ft == "" {
		return ""
	}
	return "*." + ft
}

func (f fileFilter) match(name string) bool {
	for _, g := range f.globs {
		if ok, err := doublestar.Match(g, name); err == nil && ok {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".")
}

func looksBinary(head []byte) bool {
	return bytes.IndexByte(head, 0) >= 0
}

// WalkDocuments calls fn for every regular, non-hidden file under root whose
// name matches one of fileTypes (DefaultFileTypes when empty), in lexical
// order. Errors reading individual directories are passed to onErr and the
// walk continues; an error on root itself is returned.
func WalkDocuments(ctx context.Context, root string, fileTypes []string, onErr func(path string, err error), fn func(path string) error) error {
	return walk(ctx, root, newFileFilter(fileTypes), onErr, fn)
}

func walk(ctx context.Context, root string, filter fileFilter, onErr func(path string, err error), fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if onErr != nil {
				onErr(path, err)
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path != root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		// an explicitly named file is searched whatever its extension
		if path != root && !filter.match(d.Name()) {
			return nil
		}
		return fn(filepath.Clean(path))
	})
}

// ReadDocument reads a whole document with the same rules the scanner applies:
// a NUL in the first 8 KiB marks the file binary, and invalid UTF-8 bytes
// become U+FFFD one for one.
func ReadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if looksBinary(data[:min(len(data), binarySniffLen)]) {
		return "", ErrBinaryFile
	}
	text, _ := decodeLossy(data)
	return text, nil
}
