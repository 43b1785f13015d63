package orion

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oliverbestmann/onscreen/pulse"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the settings that can be read from a config file. Empty
// values keep their default.
type Config struct {
	Driver string `toml:"driver" yaml:"driver"`

	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
	Title  string `toml:"title" yaml:"title"`

	PresentMode string `toml:"present_mode" yaml:"present_mode"`
	Images      uint32 `toml:"images" yaml:"images"`
	Filter      string `toml:"filter" yaml:"filter"`
	Clear       string `toml:"clear" yaml:"clear"`

	// maximum time to wait for a swap image, e.g. "500ms"
	AcquireTimeout string `toml:"acquire_timeout" yaml:"acquire_timeout"`

	Frames int  `toml:"frames" yaml:"frames"`
	Watch  bool `toml:"watch" yaml:"watch"`
	Fit    bool `toml:"fit" yaml:"fit"`

	LogLevel string `toml:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the configuration used without any file or flags.
func DefaultConfig() Config {
	return Config{
		Driver:      "webgpu",
		Width:       1000,
		Height:      600,
		Title:       "onscreen",
		PresentMode: "fifo",
		Filter:      "linear",
		Clear:       "#000000",
		LogLevel:    "info",
	}
}

// LoadConfig reads a TOML or YAML file, chosen by its extension, on top
// of base. Unknown keys are rejected.
func LoadConfig(path string, base Config) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}

	config := base

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(content))
		dec.DisallowUnknownFields()
		err = dec.Decode(&config)

	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		err = dec.Decode(&config)

		// an empty document keeps the defaults
		if errors.Is(err, io.EOF) {
			err = nil
		}

	default:
		return base, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}

	if err != nil {
		return base, fmt.Errorf("parse config %q: %w", path, err)
	}

	return config, nil
}

// LoopOptions validates the config and converts it into options for the
// frame loop.
func (c Config) LoopOptions() (LoopOptions, error) {
	var opts LoopOptions

	if c.Width < 0 || c.Height < 0 {
		return opts, fmt.Errorf("invalid window size %dx%d", c.Width, c.Height)
	}

	if c.Frames < 0 {
		return opts, fmt.Errorf("invalid frame count %d", c.Frames)
	}

	presentMode, err := pulse.ParsePresentMode(c.PresentMode)
	if err != nil {
		return opts, err
	}

	filter, err := pulse.ParseFilterMode(c.Filter)
	if err != nil {
		return opts, err
	}

	if c.Clear != "" {
		clearColor, err := pulse.ParseColor(c.Clear)
		if err != nil {
			return opts, err
		}

		opts.ClearColor = &clearColor
	}

	if c.AcquireTimeout != "" {
		timeout, err := time.ParseDuration(c.AcquireTimeout)
		if err != nil {
			return opts, fmt.Errorf("invalid acquire timeout: %w", err)
		}

		opts.Surface.AcquireTimeout = timeout
	}

	opts.Filter = filter
	opts.MaxFrames = c.Frames
	opts.Surface.PresentMode = presentMode
	opts.Surface.ImageCount = c.Images

	return opts, nil
}
