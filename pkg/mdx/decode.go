package mdx

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/mdxkit/pkg/ascf"
)

// Model is a fully decoded DNXM file.
type Model struct {
	Header     ascf.Header
	Name       string // reference frame instance name
	Skins      []Skin
	Triangles  []Triangle
	Reference  *ReferenceFrame
	Morphs     []*MorphTarget // accepted FRMD chunks, directory order
	Mounts     *MountPointSet // nil when absent or invalid
	MountPoses []MountPose
	Sequences  []*Sequence

	// Warnings accumulates recoverable problems: skipped frames, an invalid
	// mount chunk, unreadable sequences. Use multierr.Errors to list them.
	Warnings error
}

// Morph returns the morph target with the given name.
func (m *Model) Morph(name string) (*MorphTarget, bool) {
	for _, mt := range m.Morphs {
		if mt.Name == name {
			return mt, true
		}
	}
	return nil, false
}

// Sequence returns the frame sequence with the given name.
func (m *Model) Sequence(name string) (*Sequence, bool) {
	for _, s := range m.Sequences {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger recoverable problems are reported to.
func WithLogger(log *zap.Logger) Option {
	return func(d *Decoder) {
		if log != nil {
			d.log = log
		}
	}
}

// WithMountRefCheck enables cross-checking reference vertex mount indices
// against the mount chunk's valid bits. Mismatches become warnings.
func WithMountRefCheck(on bool) Option {
	return func(d *Decoder) {
		d.checkMountRefs = on
	}
}

// Decoder decodes DNXM files. It is safe for concurrent use.
type Decoder struct {
	log            *zap.Logger
	checkMountRefs bool
}

// NewDecoder returns a decoder with the given options.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode decodes buf. Malformed containers, missing or broken base geometry
// fail the whole decode; problems confined to one frame, the mount chunk or
// a sequence are logged, recorded in Model.Warnings and skipped.
func (d *Decoder) Decode(buf []byte) (*Model, error) {
	f, err := ascf.Open(buf, TypeMarker, TypeVersion)
	if err != nil {
		return nil, err
	}

	m := &Model{Header: f.Header}
	for _, e := range f.Entries(0) {
		if !e.ReservedClean() {
			d.warn(m, e, "reserved directory bytes set", errors.New("reserved bytes are not zero"))
		}
	}

	if err := d.decodeBase(f, m); err != nil {
		return nil, err
	}
	d.decodeFrames(f, m)
	d.decodeMounts(f, m)
	d.decodeSequences(f, m)

	d.log.Debug("decoded model",
		zap.String("name", m.Name),
		zap.Int("vertices", m.Reference.NumVerts()),
		zap.Int("triangles", len(m.Triangles)),
		zap.Int("skins", len(m.Skins)),
		zap.Int("morphs", len(m.Morphs)),
		zap.Int("mount_poses", len(m.MountPoses)),
		zap.Int("sequences", len(m.Sequences)),
		zap.Int("warnings", len(multierr.Errors(m.Warnings))),
	)
	return m, nil
}

// DecodeTo decodes buf and assembles the result into sink. Nothing reaches
// the sink when decoding fails.
func (d *Decoder) DecodeTo(buf []byte, sink MeshSink) (*Model, error) {
	m, err := d.Decode(buf)
	if err != nil {
		return nil, err
	}
	Assemble(m, sink)
	return m, nil
}

func (d *Decoder) warn(m *Model, e ascf.Entry, msg string, err error) {
	err = &ChunkError{Entry: e, Err: err}
	m.Warnings = multierr.Append(m.Warnings, err)
	d.log.Warn(msg,
		zap.Stringer("label", e.Label),
		zap.String("instance", e.Instance),
		zap.Error(err),
	)
}

func (d *Decoder) decodeBase(f *ascf.File, m *Model) error {
	refEntry, ok := f.Find(LabelReference)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingChunk, LabelReference)
	}
	trisEntry, ok := f.Find(LabelTris)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingChunk, LabelTris)
	}

	ref, err := ParseReferenceFrame(f.Chunk(refEntry))
	if err != nil {
		return &ChunkError{Entry: refEntry, Err: err}
	}
	tris, err := ParseTriangles(f.Chunk(trisEntry))
	if err != nil {
		return &ChunkError{Entry: trisEntry, Err: err}
	}
	if err := ref.Validate(tris); err != nil {
		return &ChunkError{Entry: trisEntry, Err: err}
	}

	if e, ok := f.Find(LabelSkin); ok {
		skins, err := ParseSkins(f.Chunk(e))
		if err != nil {
			return &ChunkError{Entry: e, Err: err}
		}
		m.Skins = skins
	}

	m.Name = ref.Name
	m.Reference = ref
	m.Triangles = tris
	return nil
}

// decodeFrames reconstructs every FRMD chunk independently.
func (d *Decoder) decodeFrames(f *ascf.File, m *Model) {
	for _, e := range f.Entries(LabelFrame) {
		if e.Version != FrameChunkVersion {
			d.warn(m, e, "skipping frame", fmt.Errorf("%w: %d", ErrUnsupportedFrame, e.Version))
			continue
		}

		frame, err := ParseDeltaFrame(f.Chunk(e))
		if err != nil {
			d.warn(m, e, "skipping frame", err)
			continue
		}
		morph, err := frame.Reconstruct(m.Reference)
		if err != nil {
			d.warn(m, e, "skipping frame", err)
			continue
		}
		m.Morphs = append(m.Morphs, morph)
	}
}

func (d *Decoder) decodeMounts(f *ascf.File, m *Model) {
	e, ok := f.Find(LabelMount)
	if ok {
		set, err := ParseMountPoints(f.Chunk(e))
		if err != nil {
			d.warn(m, e, "ignoring mount points", err)
		} else {
			m.Mounts = set
			m.MountPoses = BuildMountPoses(set, m.Reference, m.Triangles, m.Morphs)
		}
	}

	if d.checkMountRefs {
		refEntry, _ := f.Find(LabelReference)
		d.checkVertexMounts(m, refEntry)
	}
}

// checkVertexMounts reports reference vertices whose mount index names a slot
// the mount chunk does not mark as used. Slot 0 is the model origin and always
// available. One warning per slot.
func (d *Decoder) checkVertexMounts(m *Model, e ascf.Entry) {
	counts := make(map[int]int)
	for _, v := range m.Reference.Vertices {
		slot, kind := v.MountRef()
		if kind != MountSlot || slot == 0 {
			continue
		}
		if m.Mounts == nil || !m.Mounts.Active(slot) {
			counts[slot]++
		}
	}

	slots := make([]int, 0, len(counts))
	for slot := range counts {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	for _, slot := range slots {
		d.warn(m, e, "vertices reference unused mount slot", fmt.Errorf("%w: %d vertices reference unused mount slot %d", ErrIndexOutOfRange, counts[slot], slot))
	}
}

func (d *Decoder) decodeSequences(f *ascf.File, m *Model) {
	for _, e := range f.Entries(LabelSequence) {
		seq, err := ParseSequence(f.Chunk(e))
		if err != nil {
			d.warn(m, e, "skipping sequence", err)
			continue
		}
		m.Sequences = append(m.Sequences, seq)
	}
}
