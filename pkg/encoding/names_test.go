package encoding

import "testing"

func TestFixedStringToUTF8(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"plain", []byte("frame01\x00\x00\x00"), "frame01"},
		{"no terminator", []byte("skin"), "skin"},
		{"garbage after nul", []byte("walk\x00junk"), "walk"},
		{"empty", make([]byte, 32), ""},
		{"latin1", []byte{'c', 'a', 'f', 0xE9, 0}, "café"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixedStringToUTF8(tt.data); got != tt.want {
				t.Errorf("FixedStringToUTF8(%q) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}

func TestUTF8ToFixedString(t *testing.T) {
	b := UTF8ToFixedString("café", 8)
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	if b[3] != 0xE9 {
		t.Errorf("b[3] = 0x%X, want 0xE9", b[3])
	}
	if got := FixedStringToUTF8(b); got != "café" {
		t.Errorf("round trip = %q, want %q", got, "café")
	}

	long := UTF8ToFixedString("abcdefghij", 4)
	if long[3] != 0 {
		t.Errorf("truncated field not terminated: %q", long)
	}
}

func TestNormalizeSkinPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`skins\duke\body`, "skins/duke/body"},
		{"./body", "body"},
		{"body", "body"},
	}
	for _, tt := range tests {
		if got := NormalizeSkinPath(tt.in); got != tt.want {
			t.Errorf("NormalizeSkinPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
