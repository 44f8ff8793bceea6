package mdx

import (
	"fmt"
	"sort"

	"github.com/Faultbox/mdxkit/pkg/ascf"
)

const (
	seqBlockV2Size = 48
	seqBlockV3Size = 40
)

// SequenceBlock is one entry of a frame sequence: either a playback range
// starting at a named frame or, in version 3, a trigger.
type SequenceBlock struct {
	Frame   string // FRMD (or RFRM) instance name; empty for v3 triggers
	Trigger bool

	// Version 2 range, in milliseconds.
	TimeStart    int32
	TimeDuration int32
	Flags        int32

	// Version 3 trigger time within the sequence, 0.0-1.0.
	TriggerTime float32

	// Offset of trigger data from the start of the chunk, 0 for none.
	TriggerOfs int32
}

// Sequence is a decoded FSEQ chunk. It carries playback metadata only.
type Sequence struct {
	Name            string
	Version         uint8
	FramesPerSecond float32 // version 3 only
	Blocks          []SequenceBlock

	data        []byte
	triggerBase int // first byte after the block list
}

// ParseSequence parses a version 2 or 3 FSEQ chunk.
func ParseSequence(c *ascf.Chunk) (*Sequence, error) {
	seq := &Sequence{Name: c.Instance, Version: c.Version, data: c.Data}
	r := c.Reader()

	switch c.Version {
	case 2:
		var count int
		if r.Count(&count, seqBlockV2Size) {
			return nil, fmt.Errorf("%w: block count: %w", ErrCorruptSequence, r.Err())
		}
		seq.Blocks = make([]SequenceBlock, count)
		for i := range seq.Blocks {
			b := &seq.Blocks[i]
			if r.Number(&b.TimeStart) || r.Number(&b.TimeDuration) || r.Number(&b.TriggerOfs) ||
				r.Number(&b.Flags) || r.Name(&b.Frame, ascf.NameSize) {
				return nil, fmt.Errorf("%w: block %d: %w", ErrCorruptSequence, i, r.Err())
			}
		}

	case 3:
		if r.Number(&seq.FramesPerSecond) {
			return nil, fmt.Errorf("%w: frame rate: %w", ErrCorruptSequence, r.Err())
		}
		var count int
		if r.Count(&count, seqBlockV3Size) {
			return nil, fmt.Errorf("%w: block count: %w", ErrCorruptSequence, r.Err())
		}
		seq.Blocks = make([]SequenceBlock, count)
		for i := range seq.Blocks {
			b := &seq.Blocks[i]
			if r.Name(&b.Frame, ascf.NameSize) || r.Number(&b.TriggerTime) || r.Number(&b.TriggerOfs) {
				return nil, fmt.Errorf("%w: block %d: %w", ErrCorruptSequence, i, r.Err())
			}
			b.Trigger = b.Frame == ""
		}

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSequence, c.Version)
	}

	seq.triggerBase = r.Offset()
	for i, b := range seq.Blocks {
		if b.TriggerOfs == 0 {
			continue
		}
		if int(b.TriggerOfs) < seq.triggerBase || int(b.TriggerOfs) > len(seq.data) {
			return nil, fmt.Errorf("%w: block %d trigger offset %d outside trigger buffer [%d, %d]",
				ErrCorruptSequence, i, b.TriggerOfs, seq.triggerBase, len(seq.data))
		}
	}
	return seq, nil
}

// Triggers returns the trigger blocks in order.
func (s *Sequence) Triggers() []SequenceBlock {
	var result []SequenceBlock
	for _, b := range s.Blocks {
		if b.Trigger {
			result = append(result, b)
		}
	}
	return result
}

// TriggerData returns the trigger bytes of block i: from its offset up to the
// next trigger offset in the chunk, or the end of the chunk.
func (s *Sequence) TriggerData(i int) []byte {
	if i < 0 || i >= len(s.Blocks) || s.Blocks[i].TriggerOfs == 0 {
		return nil
	}
	start := int(s.Blocks[i].TriggerOfs)

	offsets := make([]int, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		if int(b.TriggerOfs) > start {
			offsets = append(offsets, int(b.TriggerOfs))
		}
	}
	end := len(s.data)
	if len(offsets) > 0 {
		sort.Ints(offsets)
		end = offsets[0]
	}
	return s.data[start:end]
}

// Duration returns the total length in milliseconds of a version 2 sequence.
func (s *Sequence) Duration() int32 {
	var end int32
	for _, b := range s.Blocks {
		end = max(end, b.TimeStart+b.TimeDuration)
	}
	return end
}
