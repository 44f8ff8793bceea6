package mdx

import "github.com/go-gl/mathgl/mgl32"

// Corner is one emitted triangle corner.
type Corner struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Vertex   int // originating reference vertex, for aligning morph positions
}

// MeshSink receives an assembled model. Slices passed to the sink belong to
// the Model and must not be modified.
type MeshSink interface {
	BeginMesh(name string)
	Triangle(corners [3]Corner, skin *Skin)
	BeginMorphTarget(name string)
	MorphPositions(positions []mgl32.Vec3)
	EndMorphTarget()
	EndMesh()
}

// MorphTexCoordSink is implemented by sinks that also want the per-corner
// UVs of morph targets that override them. UVs follow triangle emission
// order and corner winding.
type MorphTexCoordSink interface {
	MorphTexCoords(uvs [][3]mgl32.Vec2)
}

// cornerOrder flips the second and third corner to get the face orientation
// the sink expects.
var cornerOrder = [3]int{0, 2, 1}

// Assemble feeds the reference geometry and every morph target of m to sink.
func Assemble(m *Model, sink MeshSink) {
	ref := m.Reference
	sink.BeginMesh(m.Name)

	for i, tri := range m.Triangles {
		skin := m.Skin(int(ref.SkinIndices[i]))

		var corners [3]Corner
		for c, k := range cornerOrder {
			vi := int(tri.VertIndex[k])
			v := ref.Vertices[vi]
			corners[c] = Corner{
				Position: ref.positions[vi],
				Normal:   DecodeNormal(v),
				UV:       DecodeUV(ref.BaseUVs[i][k], skin),
				Vertex:   vi,
			}
		}
		sink.Triangle(corners, skin)
	}

	uvSink, wantsUVs := sink.(MorphTexCoordSink)
	for _, mt := range m.Morphs {
		sink.BeginMorphTarget(mt.Name)
		sink.MorphPositions(mt.Positions)
		if wantsUVs && (mt.TexVerts != nil || mt.SkinIndices != nil) {
			uvSink.MorphTexCoords(m.morphTexCoords(mt))
		}
		sink.EndMorphTarget()
	}

	sink.EndMesh()
}

// morphTexCoords decodes a morph target's UVs, falling back to the
// reference values for whatever it does not override.
func (m *Model) morphTexCoords(mt *MorphTarget) [][3]mgl32.Vec2 {
	ref := m.Reference
	uvs := make([][3]mgl32.Vec2, ref.NumTris())
	for i := range uvs {
		tv := ref.BaseUVs[i]
		if mt.TexVerts != nil {
			tv = mt.TexVerts[i]
		}
		skinIdx := int(ref.SkinIndices[i])
		if mt.SkinIndices != nil {
			skinIdx = mt.SkinIndices[i]
		}
		skin := m.Skin(skinIdx)
		for c, k := range cornerOrder {
			uvs[i][c] = DecodeUV(tv[k], skin)
		}
	}
	return uvs
}

// Skin returns skin i, or nil when the index does not name a skin.
func (m *Model) Skin(i int) *Skin {
	if i < 0 || i >= len(m.Skins) {
		return nil
	}
	return &m.Skins[i]
}
