// Package config loads the weaveio TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bamford/weave-io/internal/compiler"
)

// DefaultFile is the configuration file read when --config is not given.
const DefaultFile = "weaveio.toml"

// Config holds CLI defaults. Command-line flags override every field.
type Config struct {
	Compiler Compiler `toml:"compiler"`
	Store    Store    `toml:"store"`
	Schema   Schema   `toml:"schema"`
	Output   Output   `toml:"output"`
}

type Compiler struct {
	// MaxSteps bounds the walk. Zero means compiler.DefaultMaxSteps.
	MaxSteps int `toml:"max_steps"`
}

type Store struct {
	// Path is the SQLite statement log. Empty disables recording.
	Path string `toml:"path"`
}

type Schema struct {
	// Dir holds the CUE hierarchy definitions.
	Dir string `toml:"dir"`
}

type Output struct {
	Format string `toml:"format"`
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json"}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads path. A missing file yields Default(); any other read or
// decode failure is an error. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes TOML source.
func Parse(src string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(src, &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decode config: unknown keys %s", strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Compiler.MaxSteps == 0 {
		cfg.Compiler.MaxSteps = compiler.DefaultMaxSteps
	}
	if strings.TrimSpace(cfg.Schema.Dir) == "" {
		cfg.Schema.Dir = "schema"
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
}

func validate(cfg *Config) error {
	if cfg.Compiler.MaxSteps < 0 {
		return fmt.Errorf("compiler.max_steps must not be negative, got %d", cfg.Compiler.MaxSteps)
	}
	if !slices.Contains(Formats, cfg.Output.Format) {
		return fmt.Errorf("output.format %q must be one of %v", cfg.Output.Format, Formats)
	}
	return nil
}
