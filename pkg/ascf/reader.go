package ascf

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/anaminus/parse"

	"github.com/Faultbox/mdxkit/pkg/encoding"
)

// Reader is a bounded little-endian cursor over a chunk payload. Like the
// embedded parse.BinaryReader, every read method returns true when it failed;
// the first error sticks and is reported by Err.
type Reader struct {
	*parse.BinaryReader
	size int
	err  error
}

// NewReader returns a cursor over data.
func NewReader(data []byte) *Reader {
	return &Reader{
		BinaryReader: parse.NewBinaryReader(bytes.NewReader(data)),
		size:         len(data),
	}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return int(r.N())
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.size - int(r.N())
}

// Err returns the first error encountered, including count checks.
func (r *Reader) Err() error {
	if r.err != nil {
		return r.err
	}
	_, err := r.End()
	return err
}

// Need fails unless count elements of size bytes fit in the remaining
// payload. Call it before allocating anything sized by a stored count.
func (r *Reader) Need(count, size int) (failed bool) {
	if r.Err() != nil {
		return true
	}
	if count < 0 || (size > 0 && count > r.Remaining()/size) {
		r.err = fmt.Errorf("%w: %d x %d bytes with %d remaining", ErrCountOverflow, count, size, r.Remaining())
		return true
	}
	return false
}

// Name reads a NUL padded fixed-width string field.
func (r *Reader) Name(s *string, size int) (failed bool) {
	buf := make([]byte, size)
	if r.Bytes(buf) {
		return true
	}
	*s = encoding.FixedStringToUTF8(buf)
	return false
}

// Count reads a signed 32-bit element count and checks that count elements of
// size bytes follow.
func (r *Reader) Count(n *int, size int) (failed bool) {
	var v int32
	if r.Number(&v) {
		return true
	}
	if r.Need(int(v), size) {
		return true
	}
	*n = int(v)
	return false
}

// Struct reads a fixed-size value: a struct, array or slice made only of
// fixed-size numeric fields. The embedded Number only accepts single numbers.
func (r *Reader) Struct(v any) (failed bool) {
	size := binary.Size(v)
	if size < 0 {
		return r.Add(0, fmt.Errorf("cannot read %T as a fixed-size record", v))
	}
	buf := make([]byte, size)
	if r.Bytes(buf) {
		return true
	}
	return r.Add(0, binary.Read(bytes.NewReader(buf), binary.LittleEndian, v))
}
