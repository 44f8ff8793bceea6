package mdx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/mdxkit/pkg/ascf"
	"github.com/Faultbox/mdxkit/pkg/encoding"
)

// MountSlots is the only non-zero mount point count a file may declare.
const MountSlots = 32

const mountFrameSize = 32 + 4 + MountSlots*3*4 + MountSlots*9*4

// MountPoint is the source definition of one mount slot.
type MountPoint struct {
	TriIndex  int32      // -1 when unused
	Barys     [3]float32 // origin weights for the triangle's v0-v2
	DefFrame  [3][3]float32
	DefScale  [3]float32
	DefOrigin [3]float32
}

// Used reports whether the slot is tied to a triangle.
func (p *MountPoint) Used() bool {
	return p.TriIndex >= 0
}

// MountFrame is the precomputed mounting data for one animation frame.
type MountFrame struct {
	Frame      string // FRMD instance name, or the reference frame's
	ValidBits  uint32
	Translates [MountSlots]mgl32.Vec3
	Adjusts    [MountSlots]mgl32.Mat3 // stored row-major per slot
}

type rawMountFrame struct {
	Frame      [32]byte
	ValidBits  uint32
	Translates [MountSlots][3]float32
	Rotates    [MountSlots][3][3]float32
}

// Active reports whether slot is used in this frame. Slot 0 is the model
// origin and never stored.
func (f *MountFrame) Active(slot int) bool {
	return slotActive(f.ValidBits, slot)
}

// MountPointSet is a decoded MPNT chunk.
type MountPointSet struct {
	ValidBits uint32
	Points    [MountSlots]MountPoint
	Frames    []MountFrame
}

// Active reports whether slot is used anywhere in the model.
func (s *MountPointSet) Active(slot int) bool {
	return slotActive(s.ValidBits, slot)
}

func slotActive(bits uint32, slot int) bool {
	return slot > 0 && slot < MountSlots && bits&(1<<slot) != 0
}

// ParseMountPoints parses an MPNT chunk. A chunk declaring zero mount points
// yields nil without reading further; any count other than 0 or 32 is
// ErrInvalidMount.
func ParseMountPoints(c *ascf.Chunk) (*MountPointSet, error) {
	r := c.Reader()

	var numMounts int32
	if r.Number(&numMounts) {
		return nil, fmt.Errorf("%w: mount count: %w", ErrInvalidMount, r.Err())
	}
	switch numMounts {
	case 0:
		return nil, nil
	case MountSlots:
	default:
		return nil, fmt.Errorf("%w: %d mount points, want 0 or %d", ErrInvalidMount, numMounts, MountSlots)
	}

	var numFrames int32
	set := &MountPointSet{}
	if r.Number(&numFrames) || r.Number(&set.ValidBits) || r.Struct(&set.Points) {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidMount, r.Err())
	}

	if r.Need(int(numFrames), mountFrameSize) {
		return nil, fmt.Errorf("%w: %d frames: %w", ErrInvalidMount, numFrames, r.Err())
	}
	set.Frames = make([]MountFrame, numFrames)
	for i := range set.Frames {
		var raw rawMountFrame
		if r.Struct(&raw) {
			return nil, fmt.Errorf("%w: frame %d: %w", ErrInvalidMount, i, r.Err())
		}

		f := &set.Frames[i]
		f.Frame = encoding.FixedStringToUTF8(raw.Frame[:])
		f.ValidBits = raw.ValidBits
		for slot := range MountSlots {
			f.Translates[slot] = raw.Translates[slot]
			rows := raw.Rotates[slot]
			f.Adjusts[slot] = mgl32.Mat3FromRows(rows[0], rows[1], rows[2])
		}
	}
	return set, nil
}

// MountTransform is the resolved placement of one mount slot in one frame.
// Points use row vectors: world = p*Rotate + Translate.
type MountTransform struct {
	Valid     bool
	Inherited bool // taken from the reference frame
	Translate mgl32.Vec3
	Adjust    mgl32.Mat3
}

// Rotation combines the slot's default frame with the per-frame adjustment.
func (t *MountTransform) Rotation(p *MountPoint) mgl32.Mat3 {
	def := mgl32.Mat3FromRows(p.DefFrame[0], p.DefFrame[1], p.DefFrame[2])
	return def.Mul3(t.Adjust)
}

// MountToWorld transforms a point from mount space into model space.
// Exterior mounts (attached models) also apply the default scale and origin.
func (t *MountTransform) MountToWorld(v mgl32.Vec3, p *MountPoint, exterior bool) mgl32.Vec3 {
	if exterior {
		v = mulComponents(v, p.DefScale).Add(p.DefOrigin)
	}
	// Row vector times matrix is the transpose applied to a column vector.
	return t.Rotation(p).Transpose().Mul3x1(v).Add(t.Translate)
}

// WorldToMount is the inverse of MountToWorld; the rotation is orthonormal so
// its inverse is the transpose.
func (t *MountTransform) WorldToMount(v mgl32.Vec3, p *MountPoint, exterior bool) mgl32.Vec3 {
	v = t.Rotation(p).Mul3x1(v.Sub(t.Translate))
	if exterior {
		v = v.Sub(p.DefOrigin)
		v = mulComponents(v, [3]float32{1 / p.DefScale[0], 1 / p.DefScale[1], 1 / p.DefScale[2]})
	}
	return v
}

func mulComponents(v mgl32.Vec3, s [3]float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0] * s[0], v[1] * s[1], v[2] * s[2]}
}

// MountPose holds every slot's transform for one frame.
type MountPose struct {
	Frame string
	Slots [MountSlots]MountTransform
}

// BuildMountPoses resolves a pose for every mount frame in set. Translations
// are recomputed from the frame's geometry where it is available; rotations
// are taken as stored. Slots active in the model but not in a frame inherit
// the reference frame's transform.
func BuildMountPoses(set *MountPointSet, ref *ReferenceFrame, tris []Triangle, morphs []*MorphTarget) []MountPose {
	if set == nil {
		return nil
	}

	geometry := map[string][]mgl32.Vec3{ref.Name: ref.positions}
	for _, m := range morphs {
		if _, dup := geometry[m.Name]; !dup {
			geometry[m.Name] = m.Positions
		}
	}

	var refPose *MountPose
	for i := range set.Frames {
		if set.Frames[i].Frame == ref.Name {
			pose := resolvePose(set, &set.Frames[i], ref.positions, tris, nil)
			refPose = &pose
			break
		}
	}
	if refPose == nil {
		refPose = defaultPose(set, ref, tris)
	}

	poses := make([]MountPose, len(set.Frames))
	for i := range set.Frames {
		f := &set.Frames[i]
		poses[i] = resolvePose(set, f, geometry[f.Frame], tris, refPose)
	}
	return poses
}

func resolvePose(set *MountPointSet, f *MountFrame, positions []mgl32.Vec3, tris []Triangle, refPose *MountPose) MountPose {
	pose := MountPose{Frame: f.Frame}
	pose.Slots[0] = originTransform()

	for slot := 1; slot < MountSlots; slot++ {
		switch {
		case f.Active(slot):
			t := MountTransform{
				Valid:     true,
				Translate: f.Translates[slot],
				Adjust:    f.Adjusts[slot],
			}
			if origin, ok := mountOrigin(&set.Points[slot], positions, tris); ok {
				t.Translate = origin
			}
			pose.Slots[slot] = t
		case set.Active(slot) && refPose != nil:
			t := refPose.Slots[slot]
			t.Inherited = true
			pose.Slots[slot] = t
		}
	}
	return pose
}

// defaultPose places every active slot on the reference geometry with an
// identity adjustment. Used when no mount frame describes the reference frame.
func defaultPose(set *MountPointSet, ref *ReferenceFrame, tris []Triangle) *MountPose {
	pose := &MountPose{Frame: ref.Name}
	pose.Slots[0] = originTransform()
	for slot := 1; slot < MountSlots; slot++ {
		if !set.Active(slot) {
			continue
		}
		if origin, ok := mountOrigin(&set.Points[slot], ref.positions, tris); ok {
			pose.Slots[slot] = MountTransform{Valid: true, Translate: origin, Adjust: mgl32.Ident3()}
		}
	}
	return pose
}

func originTransform() MountTransform {
	return MountTransform{Valid: true, Adjust: mgl32.Ident3()}
}

// mountOrigin is the barycentric combination of the mount triangle's
// vertices in the given frame.
func mountOrigin(p *MountPoint, positions []mgl32.Vec3, tris []Triangle) (mgl32.Vec3, bool) {
	if positions == nil || !p.Used() || int(p.TriIndex) >= len(tris) {
		return mgl32.Vec3{}, false
	}
	tri := tris[p.TriIndex]
	var origin mgl32.Vec3
	for k, vi := range tri.VertIndex {
		if int(vi) < 0 || int(vi) >= len(positions) {
			return mgl32.Vec3{}, false
		}
		origin = origin.Add(positions[vi].Mul(p.Barys[k]))
	}
	return origin, true
}

// MountPose returns the resolved pose for a frame name.
func (m *Model) MountPose(frame string) (*MountPose, bool) {
	for i := range m.MountPoses {
		if m.MountPoses[i].Frame == frame {
			return &m.MountPoses[i], true
		}
	}
	return nil, false
}
