package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mdxkit/pkg/mdx"
)

func corner(vi int, x, y float32) mdx.Corner {
	return mdx.Corner{
		Position: mgl32.Vec3{x, y, 0},
		Normal:   mgl32.Vec3{0, 0, 1},
		UV:       mgl32.Vec2{x, y},
		Vertex:   vi,
	}
}

// feedQuad sends two triangles on different skins plus one morph.
func feedQuad(b *Builder) {
	body := &mdx.Skin{Width: 256, Height: 256, File: "body"}

	b.BeginMesh("quad")
	b.Triangle([3]mdx.Corner{corner(0, 0, 0), corner(2, 1, 1), corner(1, 1, 0)}, body)
	b.Triangle([3]mdx.Corner{corner(0, 0, 0), corner(3, 0, 1), corner(2, 1, 1)}, nil)
	b.Triangle([3]mdx.Corner{corner(1, 1, 0), corner(2, 1, 1), corner(3, 0, 1)}, body)

	b.BeginMorphTarget("walk01")
	b.MorphPositions([]mgl32.Vec3{{0, 0, 0}, {2, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	b.MorphTexCoords([][3]mgl32.Vec2{
		{{0, 0}, {0.5, 0.5}, {1, 0}},
		{{0, 0}, {0, 1}, {1, 1}},
		{{1, 0}, {1, 1}, {0, 1}},
	})
	b.EndMorphTarget()
	b.EndMesh()
}

func TestBuilder(t *testing.T) {
	b := NewBuilder()
	if b.Mesh() != nil {
		t.Fatal("Mesh() before EndMesh returned a mesh")
	}
	feedQuad(b)
	m := b.Mesh()

	if m.Name != "quad" {
		t.Errorf("Name = %q", m.Name)
	}
	if len(m.Vertices) != 9 || m.TriangleCount() != 3 {
		t.Fatalf("%d vertices, %d triangles", len(m.Vertices), m.TriangleCount())
	}

	if len(m.Groups) != 2 {
		t.Fatalf("groups = %+v", m.Groups)
	}
	body, untextured := m.Groups[0], m.Groups[1]
	if body.Skin != "body" || body.Width != 256 || body.StartIndex != 0 || body.IndexCount != 6 {
		t.Errorf("body group = %+v", body)
	}
	if untextured.Skin != "" || untextured.StartIndex != 6 || untextured.IndexCount != 3 {
		t.Errorf("untextured group = %+v", untextured)
	}

	// The body group holds triangles 0 and 2, i.e. vertices 0-2 and 6-8.
	want := []uint32{0, 1, 2, 6, 7, 8, 3, 4, 5}
	for i, idx := range m.Indices {
		if idx != want[i] {
			t.Errorf("Indices = %v, want %v", m.Indices, want)
			break
		}
	}

	if m.Vertices[1].MorphIndex != 2 || m.Vertices[1].Position != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("vertex 1 = %+v", m.Vertices[1])
	}
	if m.Bounds.Min != (mgl32.Vec3{0, 0, 0}) || m.Bounds.Max != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("Bounds = %+v", m.Bounds)
	}
	if m.Bounds.Center() != (mgl32.Vec3{0.5, 0.5, 0}) || m.Bounds.Size() != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("Center = %v, Size = %v", m.Bounds.Center(), m.Bounds.Size())
	}
}

func TestBuilder_Morphs(t *testing.T) {
	b := NewBuilder()
	feedQuad(b)
	m := b.Mesh()

	if len(m.Morphs) != 1 || m.Morphs[0].Name != "walk01" {
		t.Fatalf("morphs = %+v", m.Morphs)
	}
	morph := m.Morphs[0]
	if len(morph.TexCoords) != len(m.Vertices) {
		t.Errorf("%d morph UVs for %d vertices", len(morph.TexCoords), len(m.Vertices))
	}
	if morph.TexCoords[1] != (mgl32.Vec2{0.5, 0.5}) {
		t.Errorf("morph UV 1 = %v", morph.TexCoords[1])
	}

	positions := m.MorphVertexPositions(0)
	// Mesh vertex 2 is model vertex 1, which the morph moves.
	if positions[2] != (mgl32.Vec3{2, 0, 0}) {
		t.Errorf("morph position of vertex 2 = %v", positions[2])
	}
	if positions[0] != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("morph position of vertex 0 = %v", positions[0])
	}

	bounds := m.MorphBounds(0)
	if bounds.Max != (mgl32.Vec3{2, 1, 0}) {
		t.Errorf("MorphBounds = %+v", bounds)
	}
}

func TestBuilder_Reuse(t *testing.T) {
	b := NewBuilder()
	feedQuad(b)
	first := b.Mesh()

	b.BeginMesh("empty")
	if b.Mesh() != nil {
		t.Error("Mesh() returned a mesh during a build")
	}
	b.EndMesh()

	m := b.Mesh()
	if m.Name != "empty" || len(m.Vertices) != 0 || len(m.Groups) != 0 || m.Bounds != (Bounds{}) {
		t.Errorf("rebuilt mesh = %+v", m)
	}
	if len(first.Vertices) != 9 {
		t.Error("first mesh changed by a rebuild")
	}
}
