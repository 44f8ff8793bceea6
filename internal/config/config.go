// Package config handles mdxtool configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all mdxtool settings.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Decode  DecodeConfig  `yaml:"decode"`
	Export  ExportConfig  `yaml:"export"`

	source string
}

// Source returns the file the config was loaded from, or "" when only
// defaults and flags apply.
func (c *Config) Source() string {
	return c.source
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"` // console or json
}

// DecodeConfig holds model decoding settings.
type DecodeConfig struct {
	CheckMountRefs bool `yaml:"check_mount_refs"` // cross-check vertex mount indices
	Strict         bool `yaml:"strict"`           // exit non-zero on decode warnings
}

// ExportConfig holds glTF export settings.
type ExportConfig struct {
	OutputDir  string  `yaml:"output_dir"`
	Scale      float32 `yaml:"scale"`
	Morphs     bool    `yaml:"morphs"`
	Mounts     bool    `yaml:"mounts"`
	MountFrame string  `yaml:"mount_frame"` // pose used for mount nodes, empty for the reference frame
	SkinExt    string  `yaml:"skin_ext"`    // texture URI extension, empty for untextured materials
	SkinFormat string  `yaml:"skin_format"` // png or webp, for converted skins
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Export: ExportConfig{
			OutputDir:  ".",
			Scale:      1,
			Morphs:     true,
			Mounts:     true,
			SkinExt:    ".png",
			SkinFormat: "png",
		},
	}
}

// Validate reports settings mdxtool cannot act on.
func (c *Config) Validate() error {
	var errs []error
	switch c.Logging.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want console or json", c.Logging.Format))
	}
	if c.Export.Scale <= 0 {
		errs = append(errs, fmt.Errorf("export.scale %v: must be positive", c.Export.Scale))
	}
	switch c.Export.SkinFormat {
	case "png", "webp":
	default:
		errs = append(errs, fmt.Errorf("export.skin_format %q: want png or webp", c.Export.SkinFormat))
	}
	return errors.Join(errs...)
}
