package mdx

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDecodeNormal(t *testing.T) {
	tests := []struct {
		b    uint8
		want float32
	}{
		{0x00, 0},
		{0x7F, 1},
		{0x80, 0},
		{0xFF, -1},
		{0x40, 64.0 / 127},
		{0xC0, -64.0 / 127},
	}

	for _, tt := range tests {
		v := PackedVertex{Normal: [3]uint8{tt.b, tt.b, tt.b}}
		got := DecodeNormal(v)
		for k := range 3 {
			if got[k] != tt.want {
				t.Errorf("DecodeNormal(0x%02X)[%d] = %v, want %v", tt.b, k, got[k], tt.want)
			}
		}
	}
}

func TestDecodeUV(t *testing.T) {
	tv := TexVert{S: 128, T: 255}

	tests := []struct {
		name string
		skin *Skin
		want mgl32.Vec2
	}{
		{"skin size", &Skin{Width: 256, Height: 256}, mgl32.Vec2{0.5, 255.0 / 256}},
		{"no skin", nil, mgl32.Vec2{128.0 / 255, 1}},
		{"zero size skin", &Skin{Width: 0, Height: 64}, mgl32.Vec2{128.0 / 255, 1}},
		{"non-square skin", &Skin{Width: 128, Height: 510}, mgl32.Vec2{1, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeUV(tv, tt.skin); got != tt.want {
				t.Errorf("DecodeUV = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodePosition(t *testing.T) {
	fi := unitInfo()
	fi.Scales[3] = [3]float32{2, 0.5, 1}
	fi.Translates[3] = [3]float32{1, 2, 3}

	v := PackedVertex{Group: 3, Pos: [3]uint8{10, 20, 30}}
	want := mgl32.Vec3{21, 12, 33}
	if got := DecodePosition(v, &fi); got != want {
		t.Errorf("DecodePosition = %v, want %v", got, want)
	}

	// Only the low four bits select the group.
	v.Group = 0xF3
	if got := DecodePosition(v, &fi); got != want {
		t.Errorf("DecodePosition with high group bits = %v, want %v", got, want)
	}

	v.Group = 0
	if got := DecodePosition(v, &fi); got != (mgl32.Vec3{10, 20, 30}) {
		t.Errorf("DecodePosition group 0 = %v", got)
	}
}

func TestDecodePosition_AllGroups(t *testing.T) {
	var fi FrameInfo
	for g := range Groups {
		fi.Scales[g] = [3]float32{float32(g + 1), 0.5 * float32(g+1), 0.25 + float32(g)}
		fi.Translates[g] = [3]float32{10 * float32(g), -float32(g), 100 + float32(g)/4}
	}
	pos := [3]uint8{7, 128, 255}

	want := func(fi *FrameInfo, g int) mgl32.Vec3 {
		var v mgl32.Vec3
		for k := range 3 {
			v[k] = float32(float32(pos[k])*fi.Scales[g][k]) + fi.Translates[g][k]
		}
		return v
	}

	for g := range Groups {
		v := PackedVertex{Group: uint8(g), Pos: pos}
		expected := want(&fi, g)
		if got := DecodePosition(v, &fi); got != expected {
			t.Errorf("group %d: DecodePosition = %v, want %v", g, got, expected)
		}
		v.Group |= 0xA0
		if got := DecodePosition(v, &fi); got != expected {
			t.Errorf("group %d with high bits: DecodePosition = %v, want %v", g, got, expected)
		}

		// Changing every other group leaves this one untouched.
		other := fi
		for o := range Groups {
			if o != g {
				other.Scales[o] = [3]float32{-3, -3, -3}
				other.Translates[o] = [3]float32{999, 999, 999}
			}
		}
		v.Group = uint8(g)
		if got := DecodePosition(v, &other); got != expected {
			t.Errorf("group %d: other groups leaked into %v, want %v", g, got, expected)
		}
	}
}

func TestMountRef(t *testing.T) {
	tests := []struct {
		mount    uint8
		wantSlot int
		wantKind MountRefKind
	}{
		{0, -1, MountInherit},
		{0xFF, -1, MountNone},
		{1, 0, MountSlot},
		{5, 4, MountSlot},
	}

	for _, tt := range tests {
		slot, kind := PackedVertex{Mount: tt.mount}.MountRef()
		if slot != tt.wantSlot || kind != tt.wantKind {
			t.Errorf("MountRef(%d) = %d, %v, want %d, %v", tt.mount, slot, kind, tt.wantSlot, tt.wantKind)
		}
	}
}
