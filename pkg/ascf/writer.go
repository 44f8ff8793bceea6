package ascf

import (
	"bytes"
	"io"

	"github.com/anaminus/parse"

	"github.com/Faultbox/mdxkit/pkg/encoding"
)

// Writer assembles a container. Payloads are laid out in the order they were
// added, followed by the directory.
type Writer struct {
	typeMarker  Label
	typeVersion int16
	user        [2]uint32
	entries     []Entry
	payloads    [][]byte
}

// NewWriter returns an empty container of the given file type.
func NewWriter(typeMarker Label, typeVersion int16) *Writer {
	return &Writer{typeMarker: typeMarker, typeVersion: typeVersion}
}

// SetUser sets the two user header fields.
func (w *Writer) SetUser(user1, user2 uint32) {
	w.user = [2]uint32{user1, user2}
}

// Add appends a chunk. Instance names longer than NameSize-1 bytes are
// truncated.
func (w *Writer) Add(label Label, version uint8, instance string, data []byte) {
	w.entries = append(w.entries, Entry{Label: label, Version: version, Instance: instance})
	w.payloads = append(w.payloads, data)
}

// WriteTo writes the container to out.
func (w *Writer) WriteTo(out io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(out)

	ofs := uint32(HeaderSize)
	for i, data := range w.payloads {
		w.entries[i].Offset = ofs
		w.entries[i].Length = uint32(len(data))
		ofs += uint32(len(data))
	}

	h := Header{
		Marker:      Marker,
		TypeMarker:  w.typeMarker,
		Version:     Version,
		TypeVersion: w.typeVersion,
		FileSize:    ofs + uint32(len(w.entries)*EntrySize),
		DirOfs:      ofs,
		DirEntries:  uint32(len(w.entries)),
		User1:       w.user[0],
		User2:       w.user[1],
	}
	if fw.Number(uint32(h.Marker)) ||
		fw.Number(uint32(h.TypeMarker)) ||
		fw.Number(h.Version) ||
		fw.Number(h.TypeVersion) ||
		fw.Number(h.FileSize) ||
		fw.Number(h.DirOfs) ||
		fw.Number(h.DirEntries) ||
		fw.Number(h.User1) ||
		fw.Number(h.User2) {
		return fw.End()
	}
	for _, data := range w.payloads {
		if fw.Bytes(data) {
			return fw.End()
		}
	}
	for _, e := range w.entries {
		if fw.Number(uint32(e.Label)) ||
			fw.Number(e.Offset) ||
			fw.Number(e.Length) ||
			fw.Number(e.Version) ||
			fw.Bytes(e.Reserved[:]) ||
			fw.Bytes(encoding.UTF8ToFixedString(e.Instance, NameSize)) {
			return fw.End()
		}
	}
	return fw.End()
}

// Bytes returns the encoded container.
func (w *Writer) Bytes() []byte {
	var buf bytes.Buffer
	w.WriteTo(&buf)
	return buf.Bytes()
}
