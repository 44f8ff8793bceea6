package mdx

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mdxkit/pkg/ascf"
)

// Groups is the number of quantization groups per frame.
const Groups = 16

// Record sizes in bytes.
const (
	frameInfoSize = 768
	vertexSize    = 8
	texVertSize   = 4
	triangleSize  = 16
	skinSize      = 76
)

// FrameInfo holds the per-group dequantization tables of one frame.
type FrameInfo struct {
	Scales     [Groups][3]float32
	Translates [Groups][3]float32
	BBox       [2][Groups][3]float32 // [min/max][group][xyz]
}

// BoundsMin returns the bounding box minimum of a group.
func (fi *FrameInfo) BoundsMin(group int) mgl32.Vec3 {
	return fi.BBox[0][group&0x0F]
}

// BoundsMax returns the bounding box maximum of a group.
func (fi *FrameInfo) BoundsMax(group int) mgl32.Vec3 {
	return fi.BBox[1][group&0x0F]
}

func readFrameInfo(r *ascf.Reader, fi *FrameInfo) (failed bool) {
	return r.Struct(fi)
}

// MountRefKind says how a vertex picks its mount basis.
type MountRefKind int

const (
	MountInherit MountRefKind = iota // 0: reference frame's choice (origin for RFRM)
	MountNone                        // 0xFF: forced to none
	MountSlot                        // 1..254: slot index-1 of the MPNT chunk
)

// PackedVertex is the 8-byte on-disk vertex record.
type PackedVertex struct {
	Group  uint8    // low 4 bits select the FrameInfo group
	Pos    [3]uint8 // quantized position
	Normal [3]uint8 // sign bit + 7-bit magnitude per axis
	Mount  uint8
}

// MountRef decodes the mount index byte.
func (v PackedVertex) MountRef() (slot int, kind MountRefKind) {
	switch v.Mount {
	case 0:
		return -1, MountInherit
	case 0xFF:
		return -1, MountNone
	default:
		return int(v.Mount) - 1, MountSlot
	}
}

// TexVert is a packed texture coordinate in skin pixels.
type TexVert struct {
	S, T int16
}

// DecodePosition dequantizes v with the scale and translate of its group.
func DecodePosition(v PackedVertex, fi *FrameInfo) mgl32.Vec3 {
	g := v.Group & 0x0F
	scale, translate := fi.Scales[g], fi.Translates[g]
	// The explicit float32 conversions round the product before the add so
	// the compiler cannot fuse it; base and animated frames must agree bit
	// for bit.
	return mgl32.Vec3{
		float32(float32(v.Pos[0])*scale[0]) + translate[0],
		float32(float32(v.Pos[1])*scale[1]) + translate[1],
		float32(float32(v.Pos[2])*scale[2]) + translate[2],
	}
}

// DecodeNormal unpacks the sign+magnitude normal of v.
func DecodeNormal(v PackedVertex) mgl32.Vec3 {
	return mgl32.Vec3{
		decodeNormalAxis(v.Normal[0]),
		decodeNormalAxis(v.Normal[1]),
		decodeNormalAxis(v.Normal[2]),
	}
}

func decodeNormalAxis(b uint8) float32 {
	n := float32(b&0x7F) / 127
	if b&0x80 != 0 {
		n = -n
	}
	return n
}

// DecodeUV converts a texture vertex to normalized coordinates. Without a
// skin (or with a skin of zero size) the divisor is 255.
func DecodeUV(tv TexVert, skin *Skin) mgl32.Vec2 {
	w, h := float32(255), float32(255)
	if skin != nil && skin.Width > 0 && skin.Height > 0 {
		w, h = float32(skin.Width), float32(skin.Height)
	}
	return mgl32.Vec2{float32(tv.S) / w, float32(tv.T) / h}
}
