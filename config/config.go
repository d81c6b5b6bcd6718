// Package config loads and validates tool configuration from TOML files,
// layering file values over built-in defaults.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration document.
type Config struct {
	Formatter FormatterConfig `toml:"formatter"`
	Compactor CompactorConfig `toml:"compactor"`
	Limits    LimitsConfig    `toml:"limits"`
}

// FormatterConfig controls the human renderer.
type FormatterConfig struct {
	Unicode    bool `toml:"unicode"`
	BoxDrawing bool `toml:"box_drawing"`
	KeyPadding bool `toml:"key_padding"`
	Color      bool `toml:"color"`
	Indent     int  `toml:"indent"`
}

// CompactorConfig controls dictionary substitution.
type CompactorConfig struct {
	MinLength int    `toml:"min_length"`
	MinOccurs int    `toml:"min_occurs"`
	MaxLength int    `toml:"max_length"`
	Tokenizer string `toml:"tokenizer"`
}

// LimitsConfig bounds parser resource use.
type LimitsConfig struct {
	MaxInputSize int `toml:"max_input_size"`
	MaxDepth     int `toml:"max_depth"`
	MaxTableRows int `toml:"max_table_rows"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Formatter: FormatterConfig{
			Unicode:    true,
			KeyPadding: true,
			Indent:     2,
		},
		Compactor: CompactorConfig{
			MinLength: 4,
			MinOccurs: 2,
			MaxLength: 64,
			Tokenizer: "heuristic",
		},
		Limits: LimitsConfig{
			MaxInputSize: 100 * 1024 * 1024,
			MaxDepth:     1000,
			MaxTableRows: 10_000_000,
		},
	}
}

// Load reads a TOML file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Encode renders the configuration back to TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("config: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks numeric ranges.
func (c Config) Validate() error {
	if c.Formatter.Indent <= 0 {
		return fmt.Errorf("config: formatter.indent must be positive, got %d", c.Formatter.Indent)
	}
	if c.Compactor.MinLength <= 0 {
		return fmt.Errorf("config: compactor.min_length must be positive, got %d", c.Compactor.MinLength)
	}
	if c.Compactor.MinOccurs < 2 {
		return fmt.Errorf("config: compactor.min_occurs must be at least 2, got %d", c.Compactor.MinOccurs)
	}
	if c.Compactor.MaxLength < c.Compactor.MinLength {
		return fmt.Errorf("config: compactor.max_length %d is below min_length %d",
			c.Compactor.MaxLength, c.Compactor.MinLength)
	}
	if c.Limits.MaxInputSize <= 0 {
		return fmt.Errorf("config: limits.max_input_size must be positive, got %d", c.Limits.MaxInputSize)
	}
	if c.Limits.MaxDepth <= 0 {
		return fmt.Errorf("config: limits.max_depth must be positive, got %d", c.Limits.MaxDepth)
	}
	if c.Limits.MaxTableRows <= 0 {
		return fmt.Errorf("config: limits.max_table_rows must be positive, got %d", c.Limits.MaxTableRows)
	}
	return nil
}
