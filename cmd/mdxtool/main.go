// mdxtool is a CLI utility for inspecting and converting DNXM (.mdx) models.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/mdxkit/internal/config"
	"github.com/Faultbox/mdxkit/internal/export"
	"github.com/Faultbox/mdxkit/internal/logger"
	"github.com/Faultbox/mdxkit/internal/skinprobe"
	"github.com/Faultbox/mdxkit/pkg/ascf"
	"github.com/Faultbox/mdxkit/pkg/mdx"
	"github.com/Faultbox/mdxkit/pkg/mesh"
)

var errStrict = errors.New("decode warnings in strict mode")

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if err := logger.Setup(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    logFile(cfg.Logging.LogFile),
		Console: os.Stderr,
	}); err != nil {
		fatal(err)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command, args := args[0], args[1:]
	switch command {
	case "check":
		err = cmdCheck(args)
	case "info":
		err = cmdInfo(cfg, args)
	case "chunks", "ls":
		err = cmdChunks(args)
	case "sequences", "seq":
		err = cmdSequences(cfg, args)
	case "mounts":
		err = cmdMounts(cfg, args)
	case "skins":
		err = cmdSkins(cfg, args)
	case "export", "x":
		err = cmdExport(cfg, args)
	case "config":
		err = cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Sync()
		fatal(err)
	}
}

func printUsage() {
	fmt.Println(`mdxtool - DNXM extended model utility

Usage:
  mdxtool [flags] <command> [args]

Commands:
  check <file.mdx>...            Report which files are DNXM models
  info <file.mdx>                Show header, counts, skins and frames
  chunks <file.mdx>              List the chunk directory
  sequences <file.mdx>           Show frame sequences and triggers
  mounts <file.mdx>              Show mount points and per-frame transforms
  skins [-convert] <file.mdx> [dir]
                                 Probe skin images next to the model
  export <file.mdx> [out.glb]    Write the model as binary glTF
  config [-save]                 Print (or save) the effective configuration

Flags:`)
	flag.PrintDefaults()
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func logFile(path string) logger.FileConfig {
	if path == "" {
		return logger.FileConfig{}
	}
	return logger.DefaultFileConfig(path)
}

func usageError(usage string) error {
	return fmt.Errorf("usage: mdxtool %s", usage)
}

// decodeFile reads and decodes one model. In strict mode a model with
// warnings is returned together with errStrict.
func decodeFile(cfg *config.Config, path string) (*mdx.Model, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	d := mdx.NewDecoder(
		mdx.WithLogger(logger.Named("mdx").With(zap.String("file", path))),
		mdx.WithMountRefCheck(cfg.Decode.CheckMountRefs),
	)
	m, err := d.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Decode.Strict && m.Warnings != nil {
		return m, fmt.Errorf("%s: %w: %d", path, errStrict, len(multierr.Errors(m.Warnings)))
	}
	return m, nil
}

func cmdCheck(args []string) error {
	if len(args) < 1 {
		return usageError("check <file.mdx>...")
	}

	rejected := 0
	for _, path := range args {
		buf, err := os.ReadFile(path)
		switch {
		case err != nil:
			fmt.Printf("%-40s error: %v\n", path, err)
			rejected++
		case mdx.Check(buf):
			fmt.Printf("%-40s ok\n", path)
		default:
			fmt.Printf("%-40s not a DNXM v%d file\n", path, mdx.TypeVersion)
			rejected++
		}
	}
	if rejected > 0 {
		return fmt.Errorf("%d of %d files rejected", rejected, len(args))
	}
	return nil
}

func cmdInfo(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usageError("info <file.mdx>")
	}
	m, err := decodeFile(cfg, args[0])
	if m == nil {
		return err
	}

	fmt.Printf("Model:      %s\n", m.Name)
	fmt.Printf("File:       %s (%d bytes)\n", args[0], m.Header.FileSize)
	fmt.Printf("Type:       %s v%d (container v%d)\n", m.Header.TypeMarker, m.Header.TypeVersion, m.Header.Version)
	fmt.Printf("Vertices:   %d\n", m.Reference.NumVerts())
	fmt.Printf("Triangles:  %d\n", len(m.Triangles))
	fmt.Printf("Frames:     %d\n", len(m.Morphs))
	fmt.Printf("Sequences:  %d\n", len(m.Sequences))
	if m.Mounts != nil {
		fmt.Printf("Mounts:     %d slots, %d frames\n", bits.OnesCount32(m.Mounts.ValidBits&^1), len(m.Mounts.Frames))
	}

	if len(m.Skins) > 0 {
		fmt.Println()
		fmt.Println("Skins:")
		for i, s := range m.Skins {
			fmt.Printf("  %2d  %-40s %dx%d %d-bit\n", i, s.File, s.Width, s.Height, s.BitDepth)
		}
	}
	if len(m.Morphs) > 0 {
		fmt.Println()
		fmt.Println("Frames:")
		for _, mt := range m.Morphs {
			var extra []string
			if mt.TexVerts != nil {
				extra = append(extra, "uv")
			}
			if mt.SkinIndices != nil {
				extra = append(extra, "skin")
			}
			fmt.Printf("  %-32s %s\n", mt.Name, strings.Join(extra, ","))
		}
	}
	printWarnings(m)
	return err
}

func printWarnings(m *mdx.Model) {
	warnings := multierr.Errors(m.Warnings)
	if len(warnings) == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("Warnings (%d):\n", len(warnings))
	for _, w := range warnings {
		fmt.Printf("  %v\n", w)
	}
}

func cmdChunks(args []string) error {
	if len(args) < 1 {
		return usageError("chunks <file.mdx>")
	}
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	f, err := ascf.Open(buf, mdx.TypeMarker, mdx.TypeVersion)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	fmt.Printf("%-5s %10s %10s %4s  %s\n", "LABEL", "OFFSET", "LENGTH", "VER", "INSTANCE")
	for _, e := range f.Entries(0) {
		fmt.Printf("%-5s %10d %10d %4d  %s\n", e.Label, e.Offset, e.Length, e.Version, e.Instance)
	}
	return nil
}

func cmdSequences(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usageError("sequences <file.mdx>")
	}
	m, err := decodeFile(cfg, args[0])
	if m == nil {
		return err
	}

	for _, s := range m.Sequences {
		switch s.Version {
		case 2:
			fmt.Printf("%s (v2, %d ms)\n", s.Name, s.Duration())
			for _, b := range s.Blocks {
				fmt.Printf("  %-32s start %6d  duration %6d  flags 0x%X\n", b.Frame, b.TimeStart, b.TimeDuration, b.Flags)
			}
		default:
			fmt.Printf("%s (v%d, %.2f fps)\n", s.Name, s.Version, s.FramesPerSecond)
			for i, b := range s.Blocks {
				if b.Trigger {
					fmt.Printf("  trigger at %.3f  %d bytes\n", b.TriggerTime, len(s.TriggerData(i)))
				} else {
					fmt.Printf("  %s\n", b.Frame)
				}
			}
		}
	}
	return err
}

func cmdMounts(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usageError("mounts <file.mdx>")
	}
	m, err := decodeFile(cfg, args[0])
	if m == nil {
		return err
	}
	if m.Mounts == nil {
		fmt.Println("No mount points")
		printWarnings(m)
		return err
	}

	fmt.Println("Mount points:")
	for slot := 1; slot < mdx.MountSlots; slot++ {
		if !m.Mounts.Active(slot) {
			continue
		}
		p := m.Mounts.Points[slot]
		fmt.Printf("  %2d  tri %-5d barys %.3f %.3f %.3f\n", slot, p.TriIndex, p.Barys[0], p.Barys[1], p.Barys[2])
	}

	for _, pose := range m.MountPoses {
		fmt.Println()
		fmt.Printf("%s:\n", pose.Frame)
		for slot := 1; slot < mdx.MountSlots; slot++ {
			t := pose.Slots[slot]
			if !t.Valid {
				continue
			}
			note := ""
			if t.Inherited {
				note = " (inherited)"
			}
			fmt.Printf("  %2d  %8.3f %8.3f %8.3f%s\n", slot, t.Translate[0], t.Translate[1], t.Translate[2], note)
		}
	}
	return err
}

func cmdSkins(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("skins", flag.ExitOnError)
	convert := fs.Bool("convert", false, "Re-encode found skins into the output directory")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return usageError("skins [-convert] <file.mdx> [dir]")
	}
	m, err := decodeFile(cfg, fs.Arg(0))
	if m == nil {
		return err
	}

	dir := filepath.Dir(fs.Arg(0))
	if fs.NArg() > 1 {
		dir = fs.Arg(1)
	}

	problems := 0
	for _, r := range skinprobe.Probe(dir, m.Skins) {
		switch r.Status {
		case skinprobe.Found:
			fmt.Printf("  %-40s ok %dx%d\n", r.Skin.File, r.Width, r.Height)
		case skinprobe.SizeMismatch:
			fmt.Printf("  %-40s size %dx%d, model says %dx%d\n", r.Skin.File, r.Width, r.Height, r.Skin.Width, r.Skin.Height)
			problems++
		case skinprobe.Unreadable:
			fmt.Printf("  %-40s unreadable: %v\n", r.Skin.File, r.Err)
			problems++
		default:
			fmt.Printf("  %-40s %s\n", r.Skin.File, r.Status)
			problems++
		}

		if *convert && r.Path != "" && r.Status != skinprobe.Unreadable {
			out, cerr := skinprobe.Convert(r, cfg.Export.OutputDir, cfg.Export.SkinFormat)
			if cerr != nil {
				logger.Warn("skin conversion failed", zap.String("skin", r.Skin.File), zap.Error(cerr))
				continue
			}
			logger.Info("converted skin", zap.String("skin", r.Skin.File), zap.String("out", out))
		}
	}
	if problems > 0 {
		logger.Warn("skin problems", zap.Int("count", problems), zap.Int("skins", len(m.Skins)))
	}
	return err
}

func cmdExport(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return usageError("export <file.mdx> [out.glb]")
	}
	m, err := decodeFile(cfg, args[0])
	if err != nil {
		return err
	}

	out := filepath.Join(cfg.Export.OutputDir, strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))+".glb")
	if len(args) > 1 {
		out = args[1]
	}

	opts := export.Options{
		Scale:     cfg.Export.Scale,
		Morphs:    cfg.Export.Morphs,
		SkinExt:   cfg.Export.SkinExt,
		Generator: "mdxtool",
	}
	if cfg.Export.Mounts {
		frame := cfg.Export.MountFrame
		if frame == "" {
			frame = m.Name
		}
		opts.Mounts = export.Attachments(m, frame)
		if opts.Mounts == nil && cfg.Export.MountFrame == "" && len(m.MountPoses) > 0 {
			opts.Mounts = export.Attachments(m, m.MountPoses[0].Frame)
		}
	}

	msh := mesh.BuildMesh(m)
	if err := export.WriteGLB(out, msh, opts); err != nil {
		return err
	}
	logger.Info("exported model",
		zap.String("model", m.Name),
		zap.String("out", out),
		zap.Int("triangles", msh.TriangleCount()),
		zap.Int("morphs", len(msh.Morphs)),
		zap.Int("mounts", len(opts.Mounts)),
	)
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Save to the user config directory")
	fs.Parse(args)

	if *save {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved to %s\n", filepath.Join(config.ConfigDir(), config.FileName))
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if src := cfg.Source(); src != "" {
		fmt.Printf("# loaded from %s\n", src)
	}
	fmt.Print(string(data))
	return nil
}
