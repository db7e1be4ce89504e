package cache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
)

// Record layout, little-endian:
//
//	magic "DSEC" | version u16 | model | path | chunk index u64 | hash | text |
//	dimension u32 | dimension x f32 | crc32 of everything before
//
// Strings are u32 length followed by bytes.
const (
	recordMagic   = "DSEC"
	recordVersion = uint16(1)
	recordExt     = ".vec"
)

// ErrCorrupt is returned for records that fail to decode
var ErrCorrupt = errors.New("corrupt cache record")

func encodeEntry(e *Entry) []byte {
	size := 4 + 2 + 5*4 + 8 + len(e.Model) + len(e.Key.DocumentPath) + len(e.Key.ContentHash) + len(e.Text) + 4*len(e.Vector) + 4
	buf := make([]byte, 0, size)
	buf = append(buf, recordMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, recordVersion)
	buf = appendLEString(buf, e.Model)
	buf = appendLEString(buf, e.Key.DocumentPath)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.Key.ChunkIndex))
	buf = appendLEString(buf, e.Key.ContentHash)
	buf = appendLEString(buf, e.Text)
	buf = append(buf, encodeVector(e.Vector)...)
	return binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
}

func decodeEntry(data []byte) (*Entry, error) {
	if len(data) < len(recordMagic)+2+4 {
		return nil, fmt.Errorf("%w: short record (%d bytes)", ErrCorrupt, len(data))
	}
	body, trailer := data[:len(data)-4], data[len(data)-4:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(trailer) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	if string(body[:4]) != recordMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	r := reader{buf: body[4:]}
	if v := r.uint16(); v != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	e := &Entry{}
	e.Model = r.string()
	e.Key.DocumentPath = r.string()
	e.Key.ChunkIndex = int(r.uint64())
	e.Key.ContentHash = r.string()
	e.Text = r.string()
	n := int(r.uint32())
	vec := r.bytes(4 * n)
	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(r.buf))
	}
	e.Vector = decodeVector(vec)
	return e, nil
}

// encodeVector writes u32 dimension followed by the values
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4, 4+4*len(v))
	binary.LittleEndian.PutUint32(buf, uint32(len(v)))
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

// serializeVector is the bare float32 blob stored in SQL and badger values
func serializeVector(v []float32) []byte {
	return encodeVector(v)[4:]
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func appendLEString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// reader consumes a record and remembers the first error
type reader struct {
	buf []byte
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf) {
		r.err = fmt.Errorf("%w: truncated record", ErrCorrupt)
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) uint16() uint16 {
	if b := r.bytes(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) uint32() uint32 {
	if b := r.bytes(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) uint64() uint64 {
	if b := r.bytes(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) string() string {
	n := int(r.uint32())
	return string(r.bytes(n))
}
