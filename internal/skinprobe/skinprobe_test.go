package skinprobe

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/mdxkit/pkg/mdx"
)

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	switch filepath.Ext(path) {
	case ".tga":
		err = tga.Encode(f, img)
	case ".bmp":
		err = bmp.Encode(f, img)
	case ".png":
		err = png.Encode(f, img)
	default:
		_, err = f.Write([]byte("not an image"))
	}
	if err != nil {
		t.Fatal(err)
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "skins", "body.tga"), 16, 8)
	writeImage(t, filepath.Join(dir, "face.bmp"), 4, 4)
	writeImage(t, filepath.Join(dir, "cape.png"), 32, 32)
	if err := os.WriteFile(filepath.Join(dir, "broken.tga"), []byte{1, 2}, 0o644); err != nil {
		t.Fatal(err)
	}

	skins := []mdx.Skin{
		{Width: 16, Height: 8, File: "skins/body"},
		{Width: 4, Height: 4, File: "face"},
		{Width: 64, Height: 64, File: "cape"},
		{Width: 8, Height: 8, File: "hat"},
		{Width: 8, Height: 8, File: "broken"},
		{Width: 4, Height: 4, File: "face.bmp"},
	}
	want := []Status{Found, Found, SizeMismatch, Missing, Unreadable, Found}

	results := Probe(dir, skins)
	for i, r := range results {
		if r.Status != want[i] {
			t.Errorf("%s: status %v, want %v (err %v)", skins[i].File, r.Status, want[i], r.Err)
		}
	}

	if results[2].Width != 32 || results[2].Height != 32 {
		t.Errorf("cape size = %dx%d", results[2].Width, results[2].Height)
	}
	if results[3].Path != "" {
		t.Errorf("missing skin has path %q", results[3].Path)
	}
	if results[4].Err == nil {
		t.Error("unreadable skin has no error")
	}
}

func TestFind_Order(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "body.png"), 2, 2)
	writeImage(t, filepath.Join(dir, "body.tga"), 2, 2)

	if got := Find(dir, "body"); got != filepath.Join(dir, "body.tga") {
		t.Errorf("Find = %q, want the .tga candidate first", got)
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "skins", "body.tga"), 16, 8)
	res := Probe(dir, []mdx.Skin{{Width: 16, Height: 8, File: "skins/body"}})[0]

	out := t.TempDir()
	for _, format := range []string{"png", "webp"} {
		t.Run(format, func(t *testing.T) {
			path, err := Convert(res, out, format)
			if err != nil {
				t.Fatalf("Convert failed: %v", err)
			}
			if path != filepath.Join(out, "skins", "body."+format) {
				t.Errorf("path = %q", path)
			}
			if info, err := os.Stat(path); err != nil || info.Size() == 0 {
				t.Errorf("output not written: %v", err)
			}
		})
	}

	if _, err := Convert(res, out, "jpg"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("jpg error = %v, want ErrUnknownFormat", err)
	}
	if _, err := Convert(Result{Skin: mdx.Skin{File: "hat"}}, out, "png"); err == nil {
		t.Error("Convert of a missing skin succeeded")
	}
}

func TestConvert_UnsafePath(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "body.tga"), 4, 4)
	found := Probe(dir, []mdx.Skin{{Width: 4, Height: 4, File: "body"}})[0]

	root := t.TempDir()
	out := filepath.Join(root, "out")
	for _, name := range []string{"../escape", "skins/../../escape", "/abs/escape"} {
		res := found
		res.Skin.File = name
		if _, err := Convert(res, out, "png"); !errors.Is(err, ErrUnsafePath) {
			t.Errorf("Convert(%q) error = %v, want ErrUnsafePath", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "escape.png")); !os.IsNotExist(err) {
		t.Errorf("file written outside the output directory: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "face.bmp")
	writeImage(t, path, 4, 3)

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Errorf("bounds = %v", b)
	}
	if _, err := Load(filepath.Join(dir, "face.gif")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("gif error = %v, want ErrUnknownFormat", err)
	}
}
