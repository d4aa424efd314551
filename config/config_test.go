package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/config"
	"github.com/Carmen-Shannon/oxy-rt/engine"
	"github.com/Carmen-Shannon/oxy-rt/engine/device"
	"github.com/Carmen-Shannon/oxy-rt/engine/device/recording_backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `
engine:
  tick_rate: 30
  max_frames: 2
  profiling: true
  profiling_interval: 2s
  async_workers: 3
  hot_reload: [assets/albedo.png]
  log_level: debug
  devices:
    - label: primary
      msaa: 4
    - label: laptop
      texture_quality: low
      msaa: 1
      max_texture_size: 2048
`

const tomlConfig = `
[engine]
tick_rate = 30
max_frames = 2
profiling = true
profiling_interval = "2s"
async_workers = 3
hot_reload = ["assets/albedo.png"]
log_level = "debug"

[[engine.devices]]
label = "primary"
msaa = 4

[[engine.devices]]
label = "laptop"
texture_quality = "low"
msaa = 1
max_texture_size = 2048
`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLAndTOMLAgree(t *testing.T) {
	fromYAML, err := config.Load(write(t, "engine.yaml", yamlConfig))
	require.NoError(t, err)
	fromTOML, err := config.Load(write(t, "engine.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromTOML)
	assert.Equal(t, 30.0, fromYAML.TickRate)
	assert.Equal(t, []string{"assets/albedo.png"}, fromYAML.HotReload)
	require.Len(t, fromYAML.Devices, 2)
	assert.Equal(t, "laptop", fromYAML.Devices[1].Label)
}

func TestDeviceOptions(t *testing.T) {
	cfg, err := config.Load(write(t, "engine.yml", yamlConfig))
	require.NoError(t, err)

	dev := device.NewDevice(0, recording_backend.New(), cfg.Devices[1].Options()...)
	caps := dev.Capabilities()
	assert.Equal(t, "laptop", caps.Label)
	assert.Equal(t, device.TextureQualityLow, caps.TextureQuality)
	assert.Equal(t, device.MSAAOff, caps.SampleCount)
	assert.Equal(t, uint32(2048), caps.MaxTextureSize)

	caps = device.NewDevice(1, recording_backend.New(), cfg.Devices[0].Options()...).Capabilities()
	assert.Equal(t, device.TextureQualityHigh, caps.TextureQuality)
	assert.Equal(t, device.MSAA4x, caps.SampleCount)
}

func TestEngineOptionsDriveRun(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(yamlConfig), config.FormatYAML)
	require.NoError(t, err)

	opts := append(cfg.EngineOptions(), engine.WithDevice(recording_backend.New(), cfg.Devices[0].Options()...))
	e := engine.NewEngine(opts...)
	defer e.Close()
	e.Run()
	assert.Equal(t, uint64(2), e.Frame())
}

func TestLogger(t *testing.T) {
	cfg := &config.EngineConfig{LogLevel: "warn"}
	var buf bytes.Buffer
	l := cfg.Logger(&buf)
	require.NotNil(t, l)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	assert.Nil(t, (&config.EngineConfig{}).Logger(&buf))
}

func TestInvalidConfigurations(t *testing.T) {
	tests := []struct {
		name   string
		format config.Format
		body   string
	}{
		{"unknown yaml key", config.FormatYAML, "engine:\n  tick: 3\n"},
		{"unknown toml key", config.FormatTOML, "[engine]\ntick = 3\n"},
		{"negative tick rate", config.FormatYAML, "engine:\n  tick_rate: -1\n"},
		{"bad interval", config.FormatYAML, "engine:\n  profiling_interval: soon\n"},
		{"bad log level", config.FormatTOML, "[engine]\nlog_level = \"loud\"\n"},
		{"bad msaa", config.FormatYAML, "engine:\n  devices:\n    - msaa: 3\n"},
		{"bad quality", config.FormatYAML, "engine:\n  devices:\n    - texture_quality: ultra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse(strings.NewReader(tt.body), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestFormatOf(t *testing.T) {
	f, err := config.FormatOf("a/b.TOML")
	require.NoError(t, err)
	assert.Equal(t, config.FormatTOML, f)

	_, err = config.Load("engine.json")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestEmptyFileIsDefault(t *testing.T) {
	cfg, err := config.Load(write(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Devices)
	assert.NotEmpty(t, cfg.EngineOptions())
}
