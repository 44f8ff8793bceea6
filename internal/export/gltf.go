// Package export writes assembled meshes as binary glTF (.glb).
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/mdxkit/pkg/mdx"
	"github.com/Faultbox/mdxkit/pkg/mesh"
)

// Options controls what goes into an exported document.
type Options struct {
	Scale     float32      // uniform position scale, 0 means 1
	Morphs    bool         // write morph targets
	SkinExt   string       // image extension for skin textures, empty for untextured materials
	Mounts    []Attachment // empty nodes placed at mount points
	Generator string
}

// Attachment is a named transform exported as an empty child node.
type Attachment struct {
	Name      string
	Translate mgl32.Vec3
	// Rotate maps row vectors: world = p*Rotate + Translate.
	Rotate mgl32.Mat3
}

// Attachments returns one attachment per valid mount slot in the pose of the
// given frame. Slot 0 is the model origin and is skipped.
func Attachments(m *mdx.Model, frame string) []Attachment {
	if m.Mounts == nil {
		return nil
	}
	pose, ok := m.MountPose(frame)
	if !ok {
		return nil
	}

	var result []Attachment
	for slot := 1; slot < mdx.MountSlots; slot++ {
		t := &pose.Slots[slot]
		if !t.Valid {
			continue
		}
		result = append(result, Attachment{
			Name:      fmt.Sprintf("mount%02d", slot),
			Translate: t.Translate,
			Rotate:    t.Rotation(&m.Mounts.Points[slot]),
		})
	}
	return result
}

// Document converts a mesh into a glTF document. Each skin group becomes one
// primitive sharing the mesh's vertex attributes.
func Document(m *mesh.Mesh, opts Options) *gltf.Document {
	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}

	doc := gltf.NewDocument()
	if opts.Generator != "" {
		doc.Asset.Generator = opts.Generator
	}

	positions := make([][3]float32, len(m.Vertices))
	normals := make([][3]float32, len(m.Vertices))
	texCoords := make([][2]float32, len(m.Vertices))
	for i, v := range m.Vertices {
		positions[i] = v.Position.Mul(scale)
		normals[i] = v.Normal
		texCoords[i] = v.TexCoord
	}

	posAcc := modeler.WritePosition(doc, positions)
	normAcc := modeler.WriteNormal(doc, normals)
	uvAcc := modeler.WriteTextureCoord(doc, texCoords)

	// Morph targets carry position deltas only; glTF has no TEXCOORD
	// targets, so per-frame UV overrides stay in the mesh.
	var targets []uint32
	var targetNames []string
	if opts.Morphs {
		for i, morph := range m.Morphs {
			deltas := make([][3]float32, len(m.Vertices))
			for vi, p := range m.MorphVertexPositions(i) {
				deltas[vi] = p.Sub(m.Vertices[vi].Position).Mul(scale)
			}
			targets = append(targets, modeler.WritePosition(doc, deltas))
			targetNames = append(targetNames, morph.Name)
		}
	}

	gm := &gltf.Mesh{Name: m.Name}
	for _, g := range m.Groups {
		prim := &gltf.Primitive{
			Indices:  gltf.Index(modeler.WriteIndices(doc, m.Indices[g.StartIndex:g.StartIndex+g.IndexCount])),
			Material: gltf.Index(addMaterial(doc, g, opts.SkinExt)),
			Attributes: gltf.Attribute{
				gltf.POSITION:   posAcc,
				gltf.NORMAL:     normAcc,
				gltf.TEXCOORD_0: uvAcc,
			},
		}
		for _, acc := range targets {
			prim.Targets = append(prim.Targets, gltf.Attribute{gltf.POSITION: acc})
		}
		gm.Primitives = append(gm.Primitives, prim)
	}
	if len(targets) > 0 {
		gm.Weights = make([]float64, len(targets))
		gm.Extras = map[string]any{"targetNames": targetNames}
	}
	doc.Meshes = append(doc.Meshes, gm)

	root := &gltf.Node{Name: m.Name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))}
	doc.Nodes = append(doc.Nodes, root)
	rootIdx := uint32(len(doc.Nodes) - 1)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, rootIdx)

	for _, a := range opts.Mounts {
		// glTF nodes take column vectors, so the row-vector rotation is
		// transposed.
		q := mgl32.Mat4ToQuat(a.Rotate.Transpose().Mat4()).Normalize()
		t := a.Translate.Mul(scale)
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        a.Name,
			Translation: [3]float64{float64(t[0]), float64(t[1]), float64(t[2])},
			Rotation:    [4]float64{float64(q.V[0]), float64(q.V[1]), float64(q.V[2]), float64(q.W)},
		})
		root.Children = append(root.Children, uint32(len(doc.Nodes)-1))
	}
	return doc
}

func addMaterial(doc *gltf.Document, g mesh.SkinGroup, ext string) uint32 {
	mat := &gltf.Material{
		Name:        g.Skin,
		DoubleSided: true,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			MetallicFactor: gltf.Float(0),
		},
	}
	if g.Skin == "" {
		mat.Name = "untextured"
	} else if ext != "" {
		doc.Images = append(doc.Images, &gltf.Image{Name: g.Skin, URI: g.Skin + ext})
		doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(uint32(len(doc.Images) - 1))})
		mat.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: uint32(len(doc.Textures) - 1)}
	}
	doc.Materials = append(doc.Materials, mat)
	return uint32(len(doc.Materials) - 1)
}

// WriteGLB writes m to path as a binary glTF file, creating the directory
// if needed.
func WriteGLB(path string, m *mesh.Mesh, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := gltf.SaveBinary(Document(m, opts), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
