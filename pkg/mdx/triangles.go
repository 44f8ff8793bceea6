package mdx

import (
	"fmt"

	"github.com/Faultbox/mdxkit/pkg/ascf"
)

// Triangle is the 16-byte TRIS record.
type Triangle struct {
	VertIndex [3]int16
	// EdgeIndex links the edges v0v1, v1v2 and v2v0 to neighbouring
	// triangles: low 14 bits are the triangle, high 2 bits the edge number on
	// that triangle.
	EdgeIndex [3]uint16
	Flags     int16
	Aux1      uint8
	Aux2      uint8
}

// Neighbor returns the triangle sharing edge e (0-2).
func (t Triangle) Neighbor(e int) int {
	return int(t.EdgeIndex[e] & 0x3FFF)
}

// NeighborEdge returns which edge of the neighbouring triangle is shared.
func (t Triangle) NeighborEdge(e int) int {
	return int(t.EdgeIndex[e] >> 14)
}

// ParseTriangles parses a TRIS chunk. Vertex indices are validated against
// the reference frame by ReferenceFrame.Validate.
func ParseTriangles(c *ascf.Chunk) ([]Triangle, error) {
	r := c.Reader()

	var count int
	if r.Count(&count, triangleSize) {
		return nil, fmt.Errorf("%w: triangle count: %w", ascf.ErrMalformedContainer, r.Err())
	}

	tris := make([]Triangle, count)
	if r.Struct(tris) {
		return nil, fmt.Errorf("%w: triangles: %w", ascf.ErrMalformedContainer, r.Err())
	}
	return tris, nil
}
