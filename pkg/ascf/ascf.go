// Package ascf reads ASCF chunk files: a fixed header followed by a directory
// of labeled, versioned chunks. The package knows nothing about what the
// chunks contain; format packages such as mdx interpret them.
package ascf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Faultbox/mdxkit/pkg/encoding"
)

// Container constants.
const (
	Version    = 3  // ASCF container version
	HeaderSize = 32 // bytes
	EntrySize  = 48 // bytes
	NameSize   = 32 // instance name field width
)

// Marker is the container magic, "ASCF".
var Marker = MakeLabel("ASCF")

// ASCF errors.
var (
	ErrMalformedContainer = errors.New("malformed ASCF container")
	ErrCountOverflow      = errors.New("count exceeds chunk length")
)

// Label is a four-character code packed little-endian into a uint32.
type Label uint32

// MakeLabel packs the first four bytes of s into a Label.
func MakeLabel(s string) Label {
	var b [4]byte
	copy(b[:], s)
	return Label(binary.LittleEndian.Uint32(b[:]))
}

// String returns the four characters of the label.
func (l Label) String() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(l))
	return string(b[:])
}

// Header is the fixed container header at offset 0.
type Header struct {
	Marker      Label
	TypeMarker  Label
	Version     int16
	TypeVersion int16
	FileSize    uint32
	DirOfs      uint32
	DirEntries  uint32
	User1       uint32
	User2       uint32
}

// Entry is a chunk directory entry.
type Entry struct {
	Label    Label
	Offset   uint32
	Length   uint32
	Version  uint8
	Reserved [3]byte
	Instance string
}

// ReservedClean reports whether the reserved bytes are zero as required.
func (e Entry) ReservedClean() bool {
	return e.Reserved == [3]byte{}
}

// String returns "LABEL:instance" or just the label for unnamed chunks.
func (e Entry) String() string {
	if e.Instance == "" {
		return e.Label.String()
	}
	return e.Label.String() + ":" + e.Instance
}

type rawEntry struct {
	Label    Label
	Offset   uint32
	Length   uint32
	Version  uint8
	Reserved [3]byte
	Instance [NameSize]byte
}

// File is an opened container over an in-memory buffer.
type File struct {
	Header  Header
	entries []Entry
	data    []byte // buf[:FileSize]
}

// Check reports whether buf starts with a valid header for the given file
// type. Only the header is inspected.
func Check(buf []byte, typeMarker Label, typeVersion int16) bool {
	_, err := ReadHeader(buf, typeMarker, typeVersion)
	return err == nil
}

// ReadHeader decodes and validates the container header.
func ReadHeader(buf []byte, typeMarker Label, typeVersion int16) (Header, error) {
	var h Header
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformedContainer, len(buf))
	}

	le := binary.LittleEndian
	h = Header{
		Marker:      Label(le.Uint32(buf[0:])),
		TypeMarker:  Label(le.Uint32(buf[4:])),
		Version:     int16(le.Uint16(buf[8:])),
		TypeVersion: int16(le.Uint16(buf[10:])),
		FileSize:    le.Uint32(buf[12:]),
		DirOfs:      le.Uint32(buf[16:]),
		DirEntries:  le.Uint32(buf[20:]),
		User1:       le.Uint32(buf[24:]),
		User2:       le.Uint32(buf[28:]),
	}

	switch {
	case h.Marker != Marker:
		return h, fmt.Errorf("%w: bad marker %q", ErrMalformedContainer, h.Marker)
	case h.Version != Version:
		return h, fmt.Errorf("%w: container version %d, want %d", ErrMalformedContainer, h.Version, Version)
	case h.TypeMarker != typeMarker:
		return h, fmt.Errorf("%w: type marker %q, want %q", ErrMalformedContainer, h.TypeMarker, typeMarker)
	case h.TypeVersion != typeVersion:
		return h, fmt.Errorf("%w: type version %d, want %d", ErrMalformedContainer, h.TypeVersion, typeVersion)
	case uint64(h.FileSize) > uint64(len(buf)):
		return h, fmt.Errorf("%w: file size %d exceeds buffer length %d", ErrMalformedContainer, h.FileSize, len(buf))
	}
	return h, nil
}

// Open validates the header and the chunk directory of buf.
func Open(buf []byte, typeMarker Label, typeVersion int16) (*File, error) {
	h, err := ReadHeader(buf, typeMarker, typeVersion)
	if err != nil {
		return nil, err
	}

	f := &File{
		Header: h,
		data:   buf[:h.FileSize],
	}
	if err := f.readDirectory(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) readDirectory() error {
	h := f.Header
	if h.DirOfs < HeaderSize || h.DirOfs > h.FileSize {
		return fmt.Errorf("%w: directory offset %d outside file", ErrMalformedContainer, h.DirOfs)
	}

	r := NewReader(f.data[h.DirOfs:])
	if r.Need(int(min(h.DirEntries, 1<<30)), EntrySize) {
		return fmt.Errorf("%w: directory of %d entries: %w", ErrMalformedContainer, h.DirEntries, r.Err())
	}

	f.entries = make([]Entry, h.DirEntries)
	for i := range f.entries {
		var raw rawEntry
		if r.Struct(&raw) {
			return fmt.Errorf("%w: directory entry %d: %w", ErrMalformedContainer, i, r.Err())
		}

		end := uint64(raw.Offset) + uint64(raw.Length)
		if end > uint64(h.FileSize) {
			return fmt.Errorf("%w: chunk %q at %d+%d runs past end of file (%d)",
				ErrMalformedContainer, raw.Label, raw.Offset, raw.Length, h.FileSize)
		}

		f.entries[i] = Entry{
			Label:    raw.Label,
			Offset:   raw.Offset,
			Length:   raw.Length,
			Version:  raw.Version,
			Reserved: raw.Reserved,
			Instance: encoding.FixedStringToUTF8(raw.Instance[:]),
		}
	}
	return nil
}

// Entries returns every directory entry with the given label in directory
// order. A zero label returns the whole directory.
func (f *File) Entries(label Label) []Entry {
	if label == 0 {
		return append([]Entry(nil), f.entries...)
	}
	var result []Entry
	for _, e := range f.entries {
		if e.Label == label {
			result = append(result, e)
		}
	}
	return result
}

// Find returns the first entry with the given label.
func (f *File) Find(label Label) (Entry, bool) {
	for _, e := range f.entries {
		if e.Label == label {
			return e, true
		}
	}
	return Entry{}, false
}

// FindInstance returns the first entry with the given label and instance name.
func (f *File) FindInstance(label Label, instance string) (Entry, bool) {
	for _, e := range f.entries {
		if e.Label == label && e.Instance == instance {
			return e, true
		}
	}
	return Entry{}, false
}

// Chunk returns the payload of e. Entries are bounds checked by Open, so the
// slice always lies within the file.
func (f *File) Chunk(e Entry) *Chunk {
	return &Chunk{
		Entry: e,
		Data:  f.data[e.Offset : e.Offset+e.Length],
	}
}

// Chunk is a directory entry together with its payload.
type Chunk struct {
	Entry
	Data []byte
}

// Reader returns a bounded cursor over the chunk payload.
func (c *Chunk) Reader() *Reader {
	return NewReader(c.Data)
}
