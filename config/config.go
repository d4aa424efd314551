// Package config loads engine configuration files. YAML and TOML are supported; the format is
// chosen by file extension.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned for configuration files that parse but hold values the engine cannot use.
var ErrInvalid = errors.New("config: invalid configuration")

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatOf returns the format matching path's extension.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - Format: the format
//   - error: ErrInvalid for unknown extensions
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: unsupported file type %q", ErrInvalid, filepath.Ext(path))
}

// DeviceConfig configures one graphics device.
type DeviceConfig struct {
	// Label names the device in logs.
	Label string `yaml:"label" toml:"label"`

	// TextureQuality is "high", "medium" or "low". Empty means high.
	TextureQuality string `yaml:"texture_quality" toml:"texture_quality"`

	// MSAA is the default multisample count of the device's targets: 1, 4, 8 or 16. Zero keeps the
	// device default.
	MSAA uint32 `yaml:"msaa" toml:"msaa"`

	// MaxTextureSize caps texture dimensions. Zero keeps the device default.
	MaxTextureSize uint32 `yaml:"max_texture_size" toml:"max_texture_size"`
}

// EngineConfig is the engine section of a configuration file.
type EngineConfig struct {
	// TickRate is the engine tick rate in ticks per second. Zero keeps the default of 60.
	TickRate float64 `yaml:"tick_rate" toml:"tick_rate"`

	// FrameLimit caps the render loop in frames per second. Zero leaves it uncapped.
	FrameLimit float64 `yaml:"frame_limit" toml:"frame_limit"`

	// MaxFrames stops the run loop after this many frames. Zero renders until quit.
	MaxFrames uint64 `yaml:"max_frames" toml:"max_frames"`

	// Profiling enables the profiler report.
	Profiling bool `yaml:"profiling" toml:"profiling"`

	// ProfilingInterval is the profiler report interval as a Go duration, for example "2s".
	ProfilingInterval string `yaml:"profiling_interval" toml:"profiling_interval"`

	// AsyncWorkers is the number of texture decode workers. Zero keeps the default.
	AsyncWorkers int `yaml:"async_workers" toml:"async_workers"`

	// HotReload lists texture files reloaded when they change on disk.
	HotReload []string `yaml:"hot_reload" toml:"hot_reload"`

	// LogLevel is "debug", "info", "warn" or "error". Empty disables logging.
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// Devices are enumerated in order; the first gets ordinal 0.
	Devices []DeviceConfig `yaml:"devices" toml:"devices"`
}

// file is the top-level layout of a configuration file.
type file struct {
	Engine EngineConfig `yaml:"engine" toml:"engine"`
}

// Load reads and validates the configuration file at path.
//
// Parameters:
//   - path: a .yaml, .yml or .toml file
//
// Returns:
//   - *EngineConfig: the configuration
//   - error: a read, parse or validation error
func Load(path string) (*EngineConfig, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a configuration in the given format. Unknown keys are rejected.
//
// Parameters:
//   - r: the configuration source
//   - format: the syntax of r
//
// Returns:
//   - *EngineConfig: the configuration
//   - error: a parse or validation error
func Parse(r io.Reader, format Format) (*EngineConfig, error) {
	var f file
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: yaml: %w", err)
		}
	case FormatTOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("config: toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalid, format)
	}

	if err := f.Engine.Validate(); err != nil {
		return nil, err
	}
	return &f.Engine, nil
}

// Validate checks value ranges that the decoders cannot.
//
// Returns:
//   - error: ErrInvalid describing the first bad value, or nil
func (c *EngineConfig) Validate() error {
	switch {
	case c.TickRate < 0:
		return fmt.Errorf("%w: tick_rate %v is negative", ErrInvalid, c.TickRate)
	case c.FrameLimit < 0:
		return fmt.Errorf("%w: frame_limit %v is negative", ErrInvalid, c.FrameLimit)
	case c.AsyncWorkers < 0:
		return fmt.Errorf("%w: async_workers %d is negative", ErrInvalid, c.AsyncWorkers)
	}
	if c.ProfilingInterval != "" {
		if d, err := time.ParseDuration(c.ProfilingInterval); err != nil || d <= 0 {
			return fmt.Errorf("%w: profiling_interval %q", ErrInvalid, c.ProfilingInterval)
		}
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}
	for i, d := range c.Devices {
		switch d.TextureQuality {
		case "", "high", "medium", "low":
		default:
			return fmt.Errorf("%w: devices[%d].texture_quality %q", ErrInvalid, i, d.TextureQuality)
		}
		if d.MSAA != 0 && !device.MSAASampleCount(d.MSAA).Valid() {
			return fmt.Errorf("%w: devices[%d].msaa %d", ErrInvalid, i, d.MSAA)
		}
	}
	return nil
}

// EngineOptions converts the engine settings into engine options. Devices are not included; use
// DeviceOptions with a backend per device.
//
// Returns:
//   - []engine.EngineBuilderOption: the options
func (c *EngineConfig) EngineOptions() []engine.EngineBuilderOption {
	opts := []engine.EngineBuilderOption{engine.WithProfiling(c.Profiling)}
	if c.TickRate > 0 {
		opts = append(opts, engine.WithTickRate(c.TickRate))
	}
	if c.FrameLimit > 0 {
		opts = append(opts, engine.WithRenderFrameLimit(c.FrameLimit))
	}
	if c.MaxFrames > 0 {
		opts = append(opts, engine.WithMaxFrames(c.MaxFrames))
	}
	if c.AsyncWorkers > 0 {
		opts = append(opts, engine.WithAsyncWorkers(c.AsyncWorkers))
	}
	if d, err := time.ParseDuration(c.ProfilingInterval); err == nil {
		opts = append(opts, engine.WithProfilingInterval(d))
	}
	return opts
}

// Options converts a device entry into device options.
//
// Returns:
//   - []device.DeviceBuilderOption: the options
func (d DeviceConfig) Options() []device.DeviceBuilderOption {
	opts := []device.DeviceBuilderOption{
		device.WithTextureQuality(device.ParseTextureQuality(d.TextureQuality)),
	}
	if d.Label != "" {
		opts = append(opts, device.WithLabel(d.Label))
	}
	if d.MSAA != 0 {
		opts = append(opts, device.WithMSAA(device.MSAASampleCount(d.MSAA)))
	}
	if d.MaxTextureSize != 0 {
		opts = append(opts, device.WithMaxTextureSize(d.MaxTextureSize))
	}
	return opts
}

// Logger returns a text logger writing to w at the configured level, or nil when logging is disabled.
// Pass the result to common.SetLogger.
//
// Parameters:
//   - w: the log destination
//
// Returns:
//   - *slog.Logger: the logger, or nil
func (c *EngineConfig) Logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	if c.LogLevel == "" {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}
