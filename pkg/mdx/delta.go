package mdx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mdxkit/pkg/ascf"
)

// Vertex stream commands.
const (
	vertEnd    = 0
	vertSingle = 1 // operand index, one vertex
	vertRange  = 2 // operand start, count word, count vertices
)

// Triangle stream commands.
const (
	triEnd        = 0
	triUVSingle   = 1 // operand tri, 3 tverts
	triUVMulti    = 2 // operand count, 3 tverts, count tri words
	triUVRange    = 3 // operand start, 3 tverts, count word
	triUVSet      = 4 // operand start, count word, count x 3 tverts
	triSkinSingle = 5 // operand tri, skin word
	triSkinMulti  = 6 // operand count, skin word, count tri words
	triSkinRange  = 7 // operand start, skin word, count word
	triSkinSet    = 8 // operand start, count word, count skin words
)

const deltaHeaderSize = frameInfoSize + 4

// DeltaFrame is a parsed FRMD chunk. The command streams are replayed by
// Reconstruct.
type DeltaFrame struct {
	Name       string // chunk instance name
	Info       FrameInfo
	TriInfoOfs int32

	vertStream []byte
	triStream  []byte
}

// MorphTarget is one fully reconstructed animation frame.
type MorphTarget struct {
	Name      string
	Positions []mgl32.Vec3 // one per reference vertex

	// Per-triangle overrides, nil unless the frame changes them. When set
	// they cover every triangle.
	TexVerts    [][3]TexVert
	SkinIndices []int
}

// ParseDeltaFrame parses an FRMD chunk and splits its command streams.
// A triInfoOfs of zero means the frame has no triangle commands.
func ParseDeltaFrame(c *ascf.Chunk) (*DeltaFrame, error) {
	r := c.Reader()
	d := &DeltaFrame{Name: c.Instance}

	if readFrameInfo(r, &d.Info) || r.Number(&d.TriInfoOfs) {
		return nil, fmt.Errorf("%w: header: %w", ErrCorruptDelta, r.Err())
	}

	info := c.Data[deltaHeaderSize:]
	switch {
	case d.TriInfoOfs == 0:
		d.vertStream = info
	case d.TriInfoOfs < 0 || int(d.TriInfoOfs) > len(info):
		return nil, fmt.Errorf("%w: triangle stream offset %d outside %d byte payload",
			ErrCorruptDelta, d.TriInfoOfs, len(info))
	default:
		d.vertStream = info[:d.TriInfoOfs]
		d.triStream = info[d.TriInfoOfs:]
	}
	return d, nil
}

// Reconstruct replays the frame's command streams over a copy of the
// reference pose. Vertices without a command keep their reference position.
// ref is never modified.
func (d *DeltaFrame) Reconstruct(ref *ReferenceFrame) (*MorphTarget, error) {
	m := &MorphTarget{
		Name:      d.Name,
		Positions: ref.Positions(),
	}

	if err := d.replayVertices(m); err != nil {
		return nil, err
	}
	if d.triStream != nil {
		if err := d.replayTriangles(ref, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (d *DeltaFrame) replayVertices(m *MorphTarget) error {
	s := newDeltaStream("vertex", d.vertStream)
	numVerts := len(m.Positions)

	for {
		op, operand, err := s.command()
		if err != nil {
			return err
		}

		switch op {
		case vertEnd:
			return nil

		case vertSingle:
			if err := s.check("vertex", operand, 1, numVerts); err != nil {
				return err
			}
			v, err := s.vertex()
			if err != nil {
				return err
			}
			m.Positions[operand] = DecodePosition(v, &d.Info)

		case vertRange:
			count, err := s.word()
			if err != nil {
				return err
			}
			if err := s.check("vertex", operand, int(count), numVerts); err != nil {
				return err
			}
			for i := operand; i < operand+int(count); i++ {
				v, err := s.vertex()
				if err != nil {
					return err
				}
				m.Positions[i] = DecodePosition(v, &d.Info)
			}

		default:
			return s.fail("unknown command %d", op)
		}
	}
}

func (d *DeltaFrame) replayTriangles(ref *ReferenceFrame, m *MorphTarget) error {
	s := newDeltaStream("triangle", d.triStream)
	numTris := ref.NumTris()

	setUVs := func(tri int, uvs [3]TexVert) {
		if m.TexVerts == nil {
			m.TexVerts = append([][3]TexVert(nil), ref.BaseUVs...)
		}
		m.TexVerts[tri] = uvs
	}
	setSkin := func(tri, skin int) {
		if m.SkinIndices == nil {
			m.SkinIndices = make([]int, numTris)
			for i, idx := range ref.SkinIndices {
				m.SkinIndices[i] = int(idx)
			}
		}
		m.SkinIndices[tri] = skin
	}

	for {
		op, operand, err := s.command()
		if err != nil {
			return err
		}

		switch op {
		case triEnd:
			return nil

		case triUVSingle:
			if err := s.check("triangle", operand, 1, numTris); err != nil {
				return err
			}
			uvs, err := s.texTriple()
			if err != nil {
				return err
			}
			setUVs(operand, uvs)

		case triUVMulti:
			uvs, err := s.texTriple()
			if err != nil {
				return err
			}
			for range operand {
				tri, err := s.index(numTris)
				if err != nil {
					return err
				}
				setUVs(tri, uvs)
			}

		case triUVRange:
			uvs, err := s.texTriple()
			if err != nil {
				return err
			}
			count, err := s.word()
			if err != nil {
				return err
			}
			if err := s.check("triangle", operand, int(count), numTris); err != nil {
				return err
			}
			for tri := operand; tri < operand+int(count); tri++ {
				setUVs(tri, uvs)
			}

		case triUVSet:
			count, err := s.word()
			if err != nil {
				return err
			}
			if err := s.check("triangle", operand, int(count), numTris); err != nil {
				return err
			}
			for tri := operand; tri < operand+int(count); tri++ {
				uvs, err := s.texTriple()
				if err != nil {
					return err
				}
				setUVs(tri, uvs)
			}

		case triSkinSingle:
			if err := s.check("triangle", operand, 1, numTris); err != nil {
				return err
			}
			skin, err := s.skin()
			if err != nil {
				return err
			}
			setSkin(operand, skin)

		case triSkinMulti:
			skin, err := s.skin()
			if err != nil {
				return err
			}
			for range operand {
				tri, err := s.index(numTris)
				if err != nil {
					return err
				}
				setSkin(tri, skin)
			}

		case triSkinRange:
			skin, err := s.skin()
			if err != nil {
				return err
			}
			count, err := s.word()
			if err != nil {
				return err
			}
			if err := s.check("triangle", operand, int(count), numTris); err != nil {
				return err
			}
			for tri := operand; tri < operand+int(count); tri++ {
				setSkin(tri, skin)
			}

		case triSkinSet:
			count, err := s.word()
			if err != nil {
				return err
			}
			if err := s.check("triangle", operand, int(count), numTris); err != nil {
				return err
			}
			for tri := operand; tri < operand+int(count); tri++ {
				skin, err := s.skin()
				if err != nil {
					return err
				}
				setSkin(tri, skin)
			}

		default:
			// 9-15 are reserved; their length is unknown so the stream
			// cannot be resynchronized.
			return s.fail("reserved command %d", op)
		}
	}
}

// deltaStream reads one command stream. Every step either returns a value
// or an error wrapping ErrCorruptDelta.
type deltaStream struct {
	kind string
	r    *ascf.Reader
}

func newDeltaStream(kind string, data []byte) *deltaStream {
	return &deltaStream{kind: kind, r: ascf.NewReader(data)}
}

func (s *deltaStream) fail(format string, args ...any) error {
	return fmt.Errorf("%w: %s stream at byte %d: %s",
		ErrCorruptDelta, s.kind, s.r.Offset(), fmt.Sprintf(format, args...))
}

func (s *deltaStream) readErr() error {
	return fmt.Errorf("%w: %s stream truncated at byte %d: %w",
		ErrCorruptDelta, s.kind, s.r.Offset(), s.r.Err())
}

func (s *deltaStream) check(kind string, start, count, bound int) error {
	if err := checkRange(kind, start, count, bound); err != nil {
		return fmt.Errorf("%w: %s stream at byte %d: %w", ErrCorruptDelta, s.kind, s.r.Offset(), err)
	}
	return nil
}

func (s *deltaStream) word() (uint16, error) {
	var w uint16
	if s.r.Number(&w) {
		return 0, s.readErr()
	}
	return w, nil
}

// command splits the next word into a 4-bit opcode and 12-bit operand.
func (s *deltaStream) command() (op, operand int, err error) {
	w, err := s.word()
	if err != nil {
		return 0, 0, err
	}
	return int(w >> 12), int(w & 0x0FFF), nil
}

// index reads a triangle index word and checks it against bound.
func (s *deltaStream) index(bound int) (int, error) {
	w, err := s.word()
	if err != nil {
		return 0, err
	}
	if err := s.check("triangle", int(w), 1, bound); err != nil {
		return 0, err
	}
	return int(w), nil
}

// skin reads a signed skin index word. Out of range skins are not errors;
// they resolve to no material.
func (s *deltaStream) skin() (int, error) {
	w, err := s.word()
	if err != nil {
		return 0, err
	}
	return int(int16(w)), nil
}

func (s *deltaStream) vertex() (PackedVertex, error) {
	var v PackedVertex
	if s.r.Struct(&v) {
		return v, s.readErr()
	}
	return v, nil
}

func (s *deltaStream) texTriple() ([3]TexVert, error) {
	var uvs [3]TexVert
	if s.r.Struct(&uvs) {
		return uvs, s.readErr()
	}
	return uvs, nil
}
