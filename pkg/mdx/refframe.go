package mdx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mdxkit/pkg/ascf"
)

// ReferenceFrame is the decoded RFRM chunk: the base pose every frame
// deformation is expressed against. It is not modified after parsing.
type ReferenceFrame struct {
	Name        string // chunk instance name
	Info        FrameInfo
	Vertices    []PackedVertex
	BaseUVs     [][3]TexVert // per triangle corner
	SkinIndices []uint8      // per triangle

	positions []mgl32.Vec3
}

// ParseReferenceFrame parses an RFRM chunk and decodes its positions.
func ParseReferenceFrame(c *ascf.Chunk) (*ReferenceFrame, error) {
	r := c.Reader()
	ref := &ReferenceFrame{Name: c.Instance}

	if readFrameInfo(r, &ref.Info) {
		return nil, fmt.Errorf("%w: frame info: %w", ascf.ErrMalformedContainer, r.Err())
	}

	var numVerts, numTris int32
	if r.Number(&numVerts) || r.Number(&numTris) {
		return nil, fmt.Errorf("%w: counts: %w", ascf.ErrMalformedContainer, r.Err())
	}

	if r.Need(int(numVerts), vertexSize) {
		return nil, fmt.Errorf("%w: %d vertices: %w", ascf.ErrMalformedContainer, numVerts, r.Err())
	}
	ref.Vertices = make([]PackedVertex, numVerts)
	if r.Struct(ref.Vertices) {
		return nil, fmt.Errorf("%w: vertices: %w", ascf.ErrMalformedContainer, r.Err())
	}

	if r.Need(int(numTris), 3*texVertSize+1) {
		return nil, fmt.Errorf("%w: %d triangles: %w", ascf.ErrMalformedContainer, numTris, r.Err())
	}
	ref.BaseUVs = make([][3]TexVert, numTris)
	ref.SkinIndices = make([]uint8, numTris)
	if r.Struct(ref.BaseUVs) || r.Bytes(ref.SkinIndices) {
		return nil, fmt.Errorf("%w: triangle data: %w", ascf.ErrMalformedContainer, r.Err())
	}

	ref.positions = make([]mgl32.Vec3, len(ref.Vertices))
	for i, v := range ref.Vertices {
		ref.positions[i] = DecodePosition(v, &ref.Info)
	}
	return ref, nil
}

// NumVerts returns the vertex count.
func (ref *ReferenceFrame) NumVerts() int {
	return len(ref.Vertices)
}

// NumTris returns the triangle count.
func (ref *ReferenceFrame) NumTris() int {
	return len(ref.BaseUVs)
}

// Position returns the decoded position of vertex i.
func (ref *ReferenceFrame) Position(i int) mgl32.Vec3 {
	return ref.positions[i]
}

// Positions returns a copy of all decoded positions.
func (ref *ReferenceFrame) Positions() []mgl32.Vec3 {
	return append([]mgl32.Vec3(nil), ref.positions...)
}

// Validate checks the reference frame against the triangle list: counts
// must agree and every corner must name an existing vertex.
func (ref *ReferenceFrame) Validate(tris []Triangle) error {
	if len(tris) != ref.NumTris() {
		return fmt.Errorf("%w: reference frame has %d triangles, triangle list has %d",
			ascf.ErrMalformedContainer, ref.NumTris(), len(tris))
	}
	for i, t := range tris {
		for _, vi := range t.VertIndex {
			if err := checkRange("vertex", int(vi), 1, ref.NumVerts()); err != nil {
				return fmt.Errorf("%w: triangle %d: %w", ascf.ErrMalformedContainer, i, err)
			}
		}
	}
	return nil
}
