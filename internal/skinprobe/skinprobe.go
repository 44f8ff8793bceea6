// Package skinprobe finds the skin images a model references and checks them
// against the sizes recorded in the model.
package skinprobe

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/mdxkit/pkg/mdx"
)

// Extensions are tried in this order when a skin file name has none.
var Extensions = []string{".tga", ".bmp", ".png"}

var (
	// ErrUnknownFormat is returned for image extensions the probe cannot read.
	ErrUnknownFormat = errors.New("unknown image format")
	// ErrUnsafePath is returned when a skin name would write outside the
	// output directory.
	ErrUnsafePath = errors.New("skin path escapes output directory")
)

// Status is the outcome of probing one skin.
type Status int

const (
	Found Status = iota
	Missing
	SizeMismatch
	Unreadable
)

func (s Status) String() string {
	switch s {
	case Found:
		return "ok"
	case Missing:
		return "missing"
	case SizeMismatch:
		return "size mismatch"
	case Unreadable:
		return "unreadable"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result describes one probed skin.
type Result struct {
	Skin   mdx.Skin
	Path   string // empty when Missing
	Width  int
	Height int
	Status Status
	Err    error
}

type codec struct {
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
}

var codecs = map[string]codec{
	".tga": {tga.Decode, tga.DecodeConfig},
	".bmp": {bmp.Decode, bmp.DecodeConfig},
	".png": {png.Decode, png.DecodeConfig},
}

// Probe looks up every skin relative to dir and reads its header.
func Probe(dir string, skins []mdx.Skin) []Result {
	results := make([]Result, len(skins))
	for i, s := range skins {
		results[i] = probe(dir, s)
	}
	return results
}

func probe(dir string, s mdx.Skin) Result {
	res := Result{Skin: s, Status: Missing}

	path := Find(dir, s.File)
	if path == "" {
		return res
	}
	res.Path = path

	cfg, err := readConfig(path)
	if err != nil {
		res.Status = Unreadable
		res.Err = err
		return res
	}
	res.Width, res.Height = cfg.Width, cfg.Height
	if cfg.Width != int(s.Width) || cfg.Height != int(s.Height) {
		res.Status = SizeMismatch
	} else {
		res.Status = Found
	}
	return res
}

// Find returns the path of the first existing candidate for a skin file
// name, or "" if there is none.
func Find(dir, file string) string {
	base := filepath.Join(dir, filepath.FromSlash(file))
	if _, ok := codecs[strings.ToLower(filepath.Ext(base))]; ok {
		if fileExists(base) {
			return base
		}
	}
	for _, ext := range Extensions {
		if fileExists(base + ext) {
			return base + ext
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func codecFor(path string) (codec, error) {
	c, ok := codecs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return codec{}, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return c, nil
}

func readConfig(path string) (image.Config, error) {
	c, err := codecFor(path)
	if err != nil {
		return image.Config{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	return c.decodeConfig(f)
}

// Load decodes a skin image.
func Load(path string) (image.Image, error) {
	c, err := codecFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := c.decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Convert re-encodes a found skin as PNG or WebP under outDir, keeping the
// skin's relative path. It returns the written file.
func Convert(res Result, outDir, format string) (string, error) {
	if format != "png" && format != "webp" {
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	rel := filepath.FromSlash(res.Skin.File)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, res.Skin.File)
	}
	if res.Path == "" {
		return "", fmt.Errorf("skin %s: not found", res.Skin.File)
	}
	img, err := Load(res.Path)
	if err != nil {
		return "", err
	}

	out := filepath.Join(outDir, rel) + "." + format
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch format {
	case "png":
		err = png.Encode(f, img)
	case "webp":
		err = nativewebp.Encode(f, img, nil)
	}
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", out, err)
	}
	return out, nil
}
