package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagLogFormat   = flag.String("log-format", "", "Log format: console or json")
	flagStrict      = flag.Bool("strict", false, "Exit non-zero when decoding produces warnings")
	flagCheckMounts = flag.Bool("check-mounts", false, "Cross-check vertex mount indices against the mount chunk")
	flagOut         = flag.String("out", "", "Output directory")
	flagScale       = flag.Float64("scale", 0, "Uniform scale applied on export")
	flagNoMorphs    = flag.Bool("no-morphs", false, "Skip morph targets on export")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFormat != "" {
		cfg.Logging.Format = *flagLogFormat
	}
	if *flagStrict {
		cfg.Decode.Strict = true
	}
	if *flagCheckMounts {
		cfg.Decode.CheckMountRefs = true
	}
	if *flagOut != "" {
		cfg.Export.OutputDir = *flagOut
	}
	if *flagScale > 0 {
		cfg.Export.Scale = float32(*flagScale)
	}
	if *flagNoMorphs {
		cfg.Export.Morphs = false
	}
}
