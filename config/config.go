// Package config loads seqtest settings from a TOML file.
//
// Every file field is optional. Unset fields keep their defaults, and
// command-line flags override whatever the file sets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/confirm"
	"github.com/blockberries/seqtest/local"
)

// DefaultListen is the address the engine serves on.
const DefaultListen = "127.0.0.1:50551"

// FileConfig represents the raw config.toml file contents.
// All fields are pointers to distinguish "not set" from "set to zero".
type FileConfig struct {
	// Engine
	Listen        *string `toml:"listen"`
	DataDir       *string `toml:"data_dir"` // empty: in-memory store
	Programs      *string `toml:"programs"` // directory of <name>.bin artifacts
	BlockTime     *string `toml:"block_time"`
	MaxTxPerBlock *int    `toml:"max_tx_per_block"`
	MempoolSize   *int    `toml:"mempool_max_size"`
	Metrics       *string `toml:"metrics"` // prometheus listen address

	// Waiter
	PollInterval *string `toml:"poll_interval"`
	Timeout      *string `toml:"timeout"`
}

// Config is the effective configuration.
type Config struct {
	Listen        string
	DataDir       string
	Programs      string
	Metrics       string
	BlockTime     time.Duration
	MaxTxPerBlock int
	MempoolSize   int

	// Zero means derived from BlockTime.
	PollInterval time.Duration
	Timeout      time.Duration

	// BlockTimeSet records that BlockTime came from a file or flag
	// rather than the default.
	BlockTimeSet bool
}

// Default returns the reference settings.
func Default() Config {
	e := local.DefaultConfig()
	return Config{
		Listen:        DefaultListen,
		BlockTime:     e.BlockTime,
		MaxTxPerBlock: e.MaxTxPerBlock,
		MempoolSize:   e.MempoolSize,
	}
}

// Load reads path over the defaults. A missing file is an IOError.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &seqtest.IOError{Path: path, Err: err}
	}
	fc, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.Apply(fc); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML, rejecting unknown keys.
func Parse(data []byte) (*FileConfig, error) {
	var fc FileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown keys:\n%s", strict.String())
		}
		return nil, err
	}
	return &fc, nil
}

// Apply sets every field fc carries, then validates the result.
func (c *Config) Apply(fc *FileConfig) error {
	if fc == nil {
		return c.Validate()
	}
	if fc.Listen != nil {
		c.Listen = *fc.Listen
	}
	if fc.DataDir != nil {
		c.DataDir = *fc.DataDir
	}
	if fc.Programs != nil {
		c.Programs = *fc.Programs
	}
	if fc.Metrics != nil {
		c.Metrics = *fc.Metrics
	}
	if fc.MaxTxPerBlock != nil {
		c.MaxTxPerBlock = *fc.MaxTxPerBlock
	}
	if fc.MempoolSize != nil {
		c.MempoolSize = *fc.MempoolSize
	}
	for _, d := range []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"block_time", fc.BlockTime, &c.BlockTime},
		{"poll_interval", fc.PollInterval, &c.PollInterval},
		{"timeout", fc.Timeout, &c.Timeout},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, *d.src, err)
		}
		*d.dst = v
	}
	if fc.BlockTime != nil {
		c.BlockTimeSet = true
	}
	return c.Validate()
}

// Validate checks values against allowed ranges.
func (c Config) Validate() error {
	if c.BlockTime <= 0 {
		return fmt.Errorf("invalid block_time: %s (must be positive)", c.BlockTime)
	}
	if c.MaxTxPerBlock < 1 {
		return fmt.Errorf("invalid max_tx_per_block: %d (must be at least 1)", c.MaxTxPerBlock)
	}
	if c.MempoolSize < 1 {
		return fmt.Errorf("invalid mempool_max_size: %d (must be at least 1)", c.MempoolSize)
	}
	if c.PollInterval < 0 || c.Timeout < 0 {
		return errors.New("poll_interval and timeout must not be negative")
	}
	return nil
}

// Engine returns the settings for the in-process engine.
func (c Config) Engine() local.Config {
	return local.Config{
		BlockTime:     c.BlockTime,
		MaxTxPerBlock: c.MaxTxPerBlock,
		MempoolSize:   c.MempoolSize,
	}
}

// Poller returns a waiter over src. Unset knobs follow BlockTime.
func (c Config) Poller(src confirm.HeightSource) *confirm.Poller {
	p := confirm.FromBlockTime(src, c.BlockTime)
	if c.PollInterval > 0 {
		p.PollInterval = c.PollInterval
	}
	if c.Timeout > 0 {
		p.Timeout = c.Timeout
	}
	return p
}

// Marshal renders c as a complete config file.
func (c Config) Marshal() ([]byte, error) {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	fc := FileConfig{
		Listen:        str(c.Listen),
		DataDir:       str(c.DataDir),
		Programs:      str(c.Programs),
		Metrics:       str(c.Metrics),
		BlockTime:     str(c.BlockTime.String()),
		MaxTxPerBlock: num(c.MaxTxPerBlock),
		MempoolSize:   num(c.MempoolSize),
	}
	p := c.Poller(nil)
	fc.PollInterval = str(p.PollInterval.String())
	fc.Timeout = str(p.Timeout.String())
	return toml.Marshal(fc)
}
