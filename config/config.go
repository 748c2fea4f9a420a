// Package config loads the optional regiondump configuration file
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"regiondump/format"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v2"
)

const (
	configDir  = ".regiondump"
	configFile = "config.yml"
)

// Config defines the defaults of the dump command. Flags override them.
type Config struct {
	// Format is the output format identifier, json or yaml
	Format string `yaml:"format"`

	// Output is the default dump path; {pid} is replaced with the target pid
	Output string `yaml:"output"`

	// MaxRegionSize skips larger regions, e.g. "100MB". Empty or "0" means no limit.
	MaxRegionSize string `yaml:"max-region-size"`

	// Parallel is the number of concurrent region readers
	Parallel int `yaml:"parallel"`

	// Compress writes zstd compressed dumps
	Compress bool `yaml:"compress"`
}

// DefaultMaxRegionSize keeps one huge mapping, such as a mapped file, from
// exhausting memory: every region is read into a single buffer.
const DefaultMaxRegionSize = "100MB"

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Format:        format.DefaultFormat,
		Output:        "pid_{pid}.json",
		MaxRegionSize: DefaultMaxRegionSize,
		Parallel:      4,
	}
}

// DefaultPath returns $HOME/.regiondump/config.yml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, configFile), nil
}

// Load reads the configuration at path over the defaults. An empty path
// means the default location, which is allowed not to exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	c := Default()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("unable to decode config file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return c, nil
}

// Validate checks the fields that have a fixed vocabulary
func (c *Config) Validate() error {
	if _, err := format.Lookup(c.Format); err != nil {
		return err
	}
	if _, err := c.MaxRegionBytes(); err != nil {
		return err
	}
	if c.Parallel < 0 {
		return fmt.Errorf("parallel must not be negative, got %d", c.Parallel)
	}
	return nil
}

// MaxRegionBytes parses MaxRegionSize, returning 0 for no limit
func (c *Config) MaxRegionBytes() (uint64, error) {
	return ParseSize(c.MaxRegionSize)
}

// ParseSize parses a human size such as "64MB" or "1gb"
func ParseSize(s string) (uint64, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	size, err := datasize.ParseString(s)
	if err != nil {
		return 0, fmt.Errorf("bad size %q: %w", s, err)
	}
	return size.Bytes(), nil
}
