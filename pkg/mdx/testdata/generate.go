//go:build ignore

// This program generates a sample DNXM file for unit tests.
// Run with: go run generate.go
package main

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/Faultbox/mdxkit/pkg/ascf"
	"github.com/Faultbox/mdxkit/pkg/mdx"
)

func put(buf *bytes.Buffer, values ...any) {
	for _, v := range values {
		binary.Write(buf, binary.LittleEndian, v)
	}
}

func name(s string, size int) []byte {
	b := make([]byte, size)
	copy(b, s)
	return b
}

func frameInfo(buf *bytes.Buffer, scale float32) {
	var scales, translates [16][3]float32
	var bbox [2][16][3]float32
	for g := range 16 {
		scales[g] = [3]float32{scale, scale, scale}
		translates[g] = [3]float32{-1, -1, -1}
		bbox[1][g] = [3]float32{1, 1, 1}
	}
	put(buf, scales, translates, bbox)
}

func main() {
	w := ascf.NewWriter(mdx.TypeMarker, mdx.TypeVersion)

	// SKIN: one 64x64 skin
	var skin bytes.Buffer
	put(&skin, int32(1), int32(64), int32(64), int32(8))
	skin.Write(name(`skins\octa`, 64))
	w.Add(mdx.LabelSkin, 1, "", skin.Bytes())

	// Octahedron: 6 vertices on the axes, quantized with scale 2/255.
	verts := [][8]uint8{
		{0, 255, 128, 128, 0x7F, 0, 0, 0},
		{0, 0, 128, 128, 0xFF, 0, 0, 0},
		{0, 128, 255, 128, 0, 0x7F, 0, 0},
		{0, 128, 0, 128, 0, 0xFF, 0, 0},
		{0, 128, 128, 255, 0, 0, 0x7F, 2}, // mounted to slot 1
		{0, 128, 128, 0, 0, 0, 0xFF, 0},
	}
	faces := [][3]int16{
		{0, 2, 4}, {2, 1, 4}, {1, 3, 4}, {3, 0, 4},
		{2, 0, 5}, {1, 2, 5}, {3, 1, 5}, {0, 3, 5},
	}

	// RFRM
	var rfrm bytes.Buffer
	frameInfo(&rfrm, 2.0/255)
	put(&rfrm, int32(len(verts)), int32(len(faces)), verts)
	for i := range faces {
		put(&rfrm, [3][2]int16{{int16(i * 8), 0}, {int16(i*8 + 8), 0}, {int16(i*8 + 4), 63}})
	}
	rfrm.Write(make([]byte, len(faces))) // all skin 0
	w.Add(mdx.LabelReference, 1, "octa_base", rfrm.Bytes())

	// TRIS
	var tris bytes.Buffer
	put(&tris, int32(len(faces)))
	for _, f := range faces {
		put(&tris, f, [3]uint16{}, int16(0), uint8(0), uint8(0))
	}
	w.Add(mdx.LabelTris, 1, "", tris.Bytes())

	// FRMD stretch01: pull the top vertex up.
	var stretch bytes.Buffer
	frameInfo(&stretch, 4.0/255)
	put(&stretch, int32(0))
	put(&stretch, uint16(1<<12|4), [8]uint8{0, 64, 64, 255, 0, 0, 0x7F, 2}, uint16(0))
	w.Add(mdx.LabelFrame, 1, "stretch01", stretch.Bytes())

	// FRMD stretch02: range replace of the two side vertices plus a skin
	// change on the top faces.
	var stretch2 bytes.Buffer
	frameInfo(&stretch2, 2.0/255)
	put(&stretch2, int32(2+2+16+2))
	put(&stretch2, uint16(2<<12|0), uint16(2),
		[8]uint8{0, 255, 128, 128, 0x7F, 0, 0, 0},
		[8]uint8{0, 0, 128, 128, 0xFF, 0, 0, 0},
		uint16(0))
	put(&stretch2, uint16(7<<12|0), uint16(0), uint16(4), uint16(0))
	w.Add(mdx.LabelFrame, 1, "stretch02", stretch2.Bytes())

	// MPNT: slot 1 on the top vertex of face 0.
	var mpnt bytes.Buffer
	put(&mpnt, int32(32), int32(2), uint32(1<<1))
	for slot := range 32 {
		tri := int32(-1)
		if slot == 1 {
			tri = 0
		}
		put(&mpnt, tri, [3]float32{0, 0, 1},
			[3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, [3]float32{1, 1, 1}, [3]float32{})
	}
	for _, frame := range []string{"octa_base", "stretch01"} {
		mpnt.Write(name(frame, 32))
		put(&mpnt, uint32(1<<1), [32][3]float32{})
		var rot [32][3][3]float32
		for slot := range rot {
			rot[slot] = [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
		}
		put(&mpnt, rot)
	}
	w.Add(mdx.LabelMount, 1, "", mpnt.Bytes())

	// FSEQ v3 with one trigger
	var fseq bytes.Buffer
	put(&fseq, float32(10), int32(3))
	fseq.Write(name("stretch01", 32))
	put(&fseq, float32(0), int32(0))
	fseq.Write(name("stretch02", 32))
	put(&fseq, float32(0), int32(0))
	fseq.Write(name("", 32))
	put(&fseq, float32(0.5), int32(8+3*40))
	fseq.WriteString("sound:step")
	w.Add(mdx.LabelSequence, 3, "stretch", fseq.Bytes())

	if err := os.WriteFile("sample.mdx", w.Bytes(), 0644); err != nil {
		panic(err)
	}

	println("Generated sample.mdx")
	println("  - 6 vertices, 8 triangles, 1 skin")
	println("  - 2 frames (stretch01, stretch02)")
	println("  - 1 mount slot, 1 sequence with a trigger")
}
