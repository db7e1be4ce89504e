package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// HashLen is the number of hex characters kept from the SHA-256 digest
const HashLen = 16

// Key identifies one chunk of one document at one content version.
// Identical chunk text at the same position always yields the same Key;
// edited text yields a new Key and the old entry is simply never read again.
type Key struct {
	DocumentPath string
	ChunkIndex   int
	ContentHash  string
}

// Entry is a cached embedding together with the chunk text it was computed from
type Entry struct {
	Key    Key
	Model  string
	Text   string
	Vector []float32
}

var (
	ErrInvalidKey   = errors.New("invalid cache key")
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// ContentHash fingerprints chunk text
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:HashLen]
}

// NewKey builds the key for a chunk
func NewKey(documentPath string, chunkIndex int, text string) Key {
	return Key{
		DocumentPath: documentPath,
		ChunkIndex:   chunkIndex,
		ContentHash:  ContentHash(text),
	}
}

// Validate checks the key fields
func (k Key) Validate() error {
	if k.DocumentPath == "" {
		return fmt.Errorf("%w: empty document path", ErrInvalidKey)
	}
	if k.ChunkIndex < 0 {
		return fmt.Errorf("%w: negative chunk index %d", ErrInvalidKey, k.ChunkIndex)
	}
	if k.ContentHash == "" {
		return fmt.Errorf("%w: empty content hash", ErrInvalidKey)
	}
	return nil
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%d@%s", k.DocumentPath, k.ChunkIndex, k.ContentHash)
}

// Validate checks that the entry can be stored
func (e *Entry) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil entry", ErrInvalidEntry)
	}
	if err := e.Key.Validate(); err != nil {
		return err
	}
	if e.Model == "" {
		return fmt.Errorf("%w: empty model", ErrInvalidEntry)
	}
	if len(e.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidEntry)
	}
	return nil
}

// storageKey encodes (model, key) with length prefixes so that no choice of
// path or model can make two distinct keys collide
func storageKey(model string, k Key) []byte {
	buf := make([]byte, 0, 16+len(model)+len(k.DocumentPath)+len(k.ContentHash))
	buf = appendString(buf, model)
	buf = appendString(buf, k.DocumentPath)
	buf = binary.BigEndian.AppendUint64(buf, uint64(k.ChunkIndex))
	buf = appendString(buf, k.ContentHash)
	return buf
}

// fileName is the DirStore file holding (model, key)
func fileName(model string, k Key) string {
	sum := sha256.Sum256(storageKey(model, k))
	return hex.EncodeToString(sum[:]) + recordExt
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}
