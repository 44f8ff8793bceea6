package mdx

import (
	"fmt"

	"github.com/Faultbox/mdxkit/pkg/ascf"
	"github.com/Faultbox/mdxkit/pkg/encoding"
)

// Skin describes one skin image referenced by triangles.
type Skin struct {
	Width    int32
	Height   int32
	BitDepth int32
	File     string // relative to the model, no extension
}

type rawSkin struct {
	Width    int32
	Height   int32
	BitDepth int32
	File     [64]byte
}

// ParseSkins parses a SKIN chunk.
func ParseSkins(c *ascf.Chunk) ([]Skin, error) {
	r := c.Reader()

	var count int
	if r.Count(&count, skinSize) {
		return nil, fmt.Errorf("%w: skin count: %w", ascf.ErrMalformedContainer, r.Err())
	}

	raw := make([]rawSkin, count)
	if r.Struct(raw) {
		return nil, fmt.Errorf("%w: skins: %w", ascf.ErrMalformedContainer, r.Err())
	}

	skins := make([]Skin, count)
	for i, s := range raw {
		skins[i] = Skin{
			Width:    s.Width,
			Height:   s.Height,
			BitDepth: s.BitDepth,
			File:     encoding.NormalizeSkinPath(encoding.FixedStringToUTF8(s.File[:])),
		}
	}
	return skins, nil
}
