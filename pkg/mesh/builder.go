package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mdxkit/pkg/mdx"
)

// Builder is an mdx.MeshSink that records everything it is fed into a Mesh.
// Triangles are grouped by skin in order of first use.
type Builder struct {
	mesh    *Mesh
	groups  map[string]*groupBuild
	order   []string
	current *Morph
	done    bool
}

type groupBuild struct {
	group   SkinGroup
	indices []uint32
}

var (
	_ mdx.MeshSink          = (*Builder)(nil)
	_ mdx.MorphTexCoordSink = (*Builder)(nil)
)

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildMesh assembles a decoded model into a new Mesh.
func BuildMesh(m *mdx.Model) *Mesh {
	b := NewBuilder()
	mdx.Assemble(m, b)
	return b.Mesh()
}

// BeginMesh resets the builder.
func (b *Builder) BeginMesh(name string) {
	b.mesh = &Mesh{Name: name}
	b.groups = make(map[string]*groupBuild)
	b.order = nil
	b.current = nil
	b.done = false
}

// Triangle appends three vertices.
func (b *Builder) Triangle(corners [3]mdx.Corner, skin *mdx.Skin) {
	key := ""
	if skin != nil {
		key = skin.File
	}
	g, ok := b.groups[key]
	if !ok {
		g = &groupBuild{group: SkinGroup{Skin: key}}
		if skin != nil {
			g.group.Width = int(skin.Width)
			g.group.Height = int(skin.Height)
		}
		b.groups[key] = g
		b.order = append(b.order, key)
	}

	for _, c := range corners {
		g.indices = append(g.indices, uint32(len(b.mesh.Vertices)))
		b.mesh.Vertices = append(b.mesh.Vertices, Vertex{
			Position:   c.Position,
			Normal:     c.Normal,
			TexCoord:   c.UV,
			MorphIndex: c.Vertex,
		})
	}
}

// BeginMorphTarget starts a named morph.
func (b *Builder) BeginMorphTarget(name string) {
	b.current = &Morph{Name: name}
}

// MorphPositions copies the morph's per-vertex positions.
func (b *Builder) MorphPositions(positions []mgl32.Vec3) {
	b.current.Positions = append([]mgl32.Vec3(nil), positions...)
}

// MorphTexCoords flattens per-triangle UVs to per mesh vertex. Mesh vertices
// were appended three per triangle in emission order, so the layouts agree.
func (b *Builder) MorphTexCoords(uvs [][3]mgl32.Vec2) {
	tc := make([]mgl32.Vec2, 0, len(uvs)*3)
	for _, tri := range uvs {
		tc = append(tc, tri[0], tri[1], tri[2])
	}
	b.current.TexCoords = tc
}

// EndMorphTarget commits the current morph.
func (b *Builder) EndMorphTarget() {
	b.mesh.Morphs = append(b.mesh.Morphs, *b.current)
	b.current = nil
}

// EndMesh lays out the index buffer by skin group and computes bounds.
func (b *Builder) EndMesh() {
	for _, key := range b.order {
		g := b.groups[key]
		g.group.StartIndex = len(b.mesh.Indices)
		g.group.IndexCount = len(g.indices)
		b.mesh.Indices = append(b.mesh.Indices, g.indices...)
		b.mesh.Groups = append(b.mesh.Groups, g.group)
	}

	points := make([]mgl32.Vec3, len(b.mesh.Vertices))
	for i, v := range b.mesh.Vertices {
		points[i] = v.Position
	}
	b.mesh.Bounds = boundsOf(points)
	b.done = true
}

// Mesh returns the built mesh, or nil before EndMesh.
func (b *Builder) Mesh() *Mesh {
	if !b.done {
		return nil
	}
	return b.mesh
}
