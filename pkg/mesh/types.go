// Package mesh collects an assembled model into flat vertex and index
// buffers ready for export or GPU upload.
package mesh

import "github.com/go-gl/mathgl/mgl32"

// Vertex is one triangle corner.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
	// MorphIndex is the model vertex this corner came from. Morph positions
	// are stored per model vertex and looked up through it.
	MorphIndex int
}

// SkinGroup is a run of indices drawn with one skin.
type SkinGroup struct {
	Skin       string // skin file, empty for untextured triangles
	Width      int
	Height     int
	StartIndex int
	IndexCount int
}

// Morph is a named animation frame.
type Morph struct {
	Name      string
	Positions []mgl32.Vec3 // per model vertex
	TexCoords []mgl32.Vec2 // per mesh vertex, nil when the frame keeps base UVs
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Size returns the extent of the box.
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Mesh holds a complete model.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Groups   []SkinGroup
	Morphs   []Morph
	Bounds   Bounds
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// MorphVertexPositions expands morph i to one position per mesh vertex.
func (m *Mesh) MorphVertexPositions(i int) []mgl32.Vec3 {
	morph := &m.Morphs[i]
	result := make([]mgl32.Vec3, len(m.Vertices))
	for vi, v := range m.Vertices {
		if v.MorphIndex >= 0 && v.MorphIndex < len(morph.Positions) {
			result[vi] = morph.Positions[v.MorphIndex]
		} else {
			result[vi] = v.Position
		}
	}
	return result
}

// MorphBounds returns the bounding box of morph i.
func (m *Mesh) MorphBounds(i int) Bounds {
	return boundsOf(m.Morphs[i].Positions)
}

func boundsOf(points []mgl32.Vec3) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		for k := range 3 {
			b.Min[k] = min(b.Min[k], p[k])
			b.Max[k] = max(b.Max[k], p[k])
		}
	}
	return b
}
