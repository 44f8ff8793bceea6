// Package mdx decodes DNXM extended model files (.mdx): animated, skinned
// models stored in an ASCF chunk container.
//
// A file holds one reference frame (RFRM) with the base pose, one triangle
// list (TRIS), optional skins (SKIN), any number of frame deformation chunks
// (FRMD) encoded as command streams against the reference frame, an optional
// mount point chunk (MPNT) and any number of frame sequences (FSEQ).
//
// Decoding works on an in-memory buffer and does no I/O. A Decoder holds no
// mutable state, so independent buffers may be decoded concurrently.
package mdx

import (
	"errors"
	"fmt"

	"github.com/Faultbox/mdxkit/pkg/ascf"
)

// DNXM file type identification.
const TypeVersion = 5

// TypeMarker is the ASCF type marker of DNXM files.
var TypeMarker = ascf.MakeLabel("DNXM")

// Chunk labels.
var (
	LabelSkin      = ascf.MakeLabel("SKIN")
	LabelTris      = ascf.MakeLabel("TRIS")
	LabelMount     = ascf.MakeLabel("MPNT")
	LabelReference = ascf.MakeLabel("RFRM")
	LabelFrame     = ascf.MakeLabel("FRMD")
	LabelSequence  = ascf.MakeLabel("FSEQ")
)

// FrameChunkVersion is the only FRMD chunk version the decoder replays.
const FrameChunkVersion = 1

// Decode errors. Malformed containers are reported with
// ascf.ErrMalformedContainer.
var (
	ErrMissingChunk        = errors.New("missing required chunk")
	ErrCorruptDelta        = errors.New("corrupt frame deformation stream")
	ErrInvalidMount        = errors.New("invalid mount point chunk")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrUnsupportedSequence = errors.New("unsupported frame sequence version")
	ErrCorruptSequence     = errors.New("corrupt frame sequence")
	ErrUnsupportedFrame    = errors.New("unsupported frame deformation version")
)

// ChunkError records which chunk an error came from.
type ChunkError struct {
	Entry ascf.Entry
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %s: %v", e.Entry, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Check reports whether buf looks like a DNXM file. Only the container
// header is inspected, so it is cheap enough to run against many candidates.
func Check(buf []byte) bool {
	return ascf.Check(buf, TypeMarker, TypeVersion)
}

func indexError(kind string, start, count, bound int) error {
	if count == 1 {
		return fmt.Errorf("%w: %s %d, have %d", ErrIndexOutOfRange, kind, start, bound)
	}
	return fmt.Errorf("%w: %s range %d+%d, have %d", ErrIndexOutOfRange, kind, start, count, bound)
}

// checkRange validates [start, start+count) against bound.
func checkRange(kind string, start, count, bound int) error {
	if start < 0 || count < 0 || start+count > bound {
		return indexError(kind, start, count, bound)
	}
	return nil
}
