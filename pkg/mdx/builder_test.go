package mdx

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mdxkit/pkg/ascf"
	"github.com/Faultbox/mdxkit/pkg/encoding"
)

// put appends little-endian values to buf.
func put(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
}

// unitInfo maps every group to scale 1, translate 0.
func unitInfo() FrameInfo {
	var fi FrameInfo
	for g := range Groups {
		fi.Scales[g] = [3]float32{1, 1, 1}
	}
	return fi
}

func vert(x, y, z uint8) PackedVertex {
	return PackedVertex{Pos: [3]uint8{x, y, z}, Normal: [3]uint8{0, 0, 0x7F}}
}

func makeRFRM(info FrameInfo, verts []PackedVertex, uvs [][3]TexVert, skins []uint8) []byte {
	var buf bytes.Buffer
	put(&buf, info, int32(len(verts)), int32(len(uvs)), verts, uvs, skins)
	return buf.Bytes()
}

func makeTRIS(tris []Triangle) []byte {
	var buf bytes.Buffer
	put(&buf, int32(len(tris)), tris)
	return buf.Bytes()
}

func makeSKIN(skins []Skin) []byte {
	var buf bytes.Buffer
	put(&buf, int32(len(skins)))
	for _, s := range skins {
		raw := rawSkin{Width: s.Width, Height: s.Height, BitDepth: s.BitDepth}
		copy(raw.File[:], encoding.UTF8ToFixedString(s.File, len(raw.File)))
		put(&buf, raw)
	}
	return buf.Bytes()
}

// stream builds a delta command stream.
type stream struct {
	bytes.Buffer
}

func (s *stream) cmd(op, operand int) *stream {
	put(&s.Buffer, uint16(op<<12|operand))
	return s
}

func (s *stream) word(w int) *stream {
	put(&s.Buffer, uint16(w))
	return s
}

func (s *stream) vertex(v PackedVertex) *stream {
	put(&s.Buffer, v)
	return s
}

func (s *stream) tex(uvs [3]TexVert) *stream {
	put(&s.Buffer, uvs)
	return s
}

// makeFRMD lays out a frame chunk. A nil triangle stream is stored with a
// zero triangle offset.
func makeFRMD(info FrameInfo, verts *stream, tris *stream) []byte {
	var buf bytes.Buffer
	triOfs := int32(0)
	if tris != nil {
		triOfs = int32(verts.Len())
	}
	put(&buf, info, triOfs)
	buf.Write(verts.Bytes())
	if tris != nil {
		buf.Write(tris.Bytes())
	}
	return buf.Bytes()
}

func makeMPNT(set *MountPointSet) []byte {
	var buf bytes.Buffer
	put(&buf, int32(MountSlots), int32(len(set.Frames)), set.ValidBits, set.Points)
	for _, f := range set.Frames {
		var raw rawMountFrame
		copy(raw.Frame[:], encoding.UTF8ToFixedString(f.Frame, len(raw.Frame)))
		raw.ValidBits = f.ValidBits
		for slot := range MountSlots {
			raw.Translates[slot] = f.Translates[slot]
			m := f.Adjusts[slot]
			if m == (mgl32.Mat3{}) {
				m = mgl32.Ident3()
			}
			for row := range 3 {
				raw.Rotates[slot][row] = m.Row(row)
			}
		}
		put(&buf, raw)
	}
	return buf.Bytes()
}

type seqBlockV2 struct {
	TimeStart, Duration, TriggerOfs, Flags int32
	Name                                   [32]byte
}

type seqBlockV3 struct {
	Name        [32]byte
	TriggerTime float32
	TriggerOfs  int32
}

func name32(s string) [32]byte {
	var b [32]byte
	copy(b[:], encoding.UTF8ToFixedString(s, 32))
	return b
}

// quad is a unit square in the z=0 plane split into two triangles.
var quadVerts = []PackedVertex{vert(0, 0, 0), vert(1, 0, 0), vert(1, 1, 0), vert(0, 1, 0)}

var quadTris = []Triangle{
	{VertIndex: [3]int16{0, 1, 2}},
	{VertIndex: [3]int16{0, 2, 3}},
}

var quadUVs = [][3]TexVert{
	{{0, 0}, {255, 0}, {255, 255}},
	{{0, 0}, {255, 255}, {0, 255}},
}

// newQuad returns a writer holding the quad's base chunks.
func newQuad() *ascf.Writer {
	w := ascf.NewWriter(TypeMarker, TypeVersion)
	w.Add(LabelReference, 1, "base", makeRFRM(unitInfo(), quadVerts, quadUVs, []uint8{0, 0}))
	w.Add(LabelTris, 1, "", makeTRIS(quadTris))
	return w
}

// quadRef parses the quad's reference frame.
func quadRef() *ReferenceFrame {
	ref, err := ParseReferenceFrame(&ascf.Chunk{
		Entry: ascf.Entry{Label: LabelReference, Instance: "base"},
		Data:  makeRFRM(unitInfo(), quadVerts, quadUVs, []uint8{0, 0}),
	})
	if err != nil {
		panic(err)
	}
	return ref
}

func frameChunk(name string, data []byte) *ascf.Chunk {
	return &ascf.Chunk{
		Entry: ascf.Entry{Label: LabelFrame, Version: FrameChunkVersion, Instance: name},
		Data:  data,
	}
}
