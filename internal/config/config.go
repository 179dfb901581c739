// SPDX-License-Identifier: MIT
/*
Package config loads the tuner configuration from an optional YAML
file, applies environment overrides, and validates the result. The
zero configuration (no file, no flags) runs the spectral estimator on
the default input device at CD rates.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tuner/internal/dsp"
	"tuner/pkg/bitint"
)

// Defaults and limits for the audio pipeline.
const (
	DefaultSampleRate = 44100.0
	DefaultFrameSize  = 2048
	DefaultChannels   = 1
	DefaultDeviceID   = -1 // system default input device

	MinSampleRate = 8000.0
	MaxSampleRate = 192000.0
	MinFrameSize  = 32
	MaxFrameSize  = 8192

	DefaultSilenceFloorHz = 20.0
)

// Config is the root configuration, loaded from YAML.
type Config struct {
	Debug    bool   `yaml:"debug"`     // verbose logging
	LogLevel string `yaml:"log_level"` // "debug", "info", "warn", "error"
	TUIMode  bool   `yaml:"tui"`       // render results in the terminal UI

	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Transport TransportConfig `yaml:"transport"`

	// One-off command ("list") resolved from the CLI, never from file.
	Command string `yaml:"-"`
}

// AudioConfig selects the input source.
type AudioConfig struct {
	InputDevice   int     `yaml:"input_device"`      // PortAudio device index, -1 for default
	SampleRate    float64 `yaml:"sample_rate"`       // Hz
	FrameSize     int     `yaml:"frames_per_buffer"` // samples per analysis frame, power of 2
	InputChannels int     `yaml:"input_channels"`    // captured channels, mixed to mono
	LowLatency    bool    `yaml:"low_latency"`       // request low-latency device profile
	InputFile     string  `yaml:"input_file"`        // tune from a WAV file instead of a device
}

// AnalysisConfig selects the estimation pipeline.
type AnalysisConfig struct {
	Algorithm      string  `yaml:"algorithm"`        // "spectral", "autocorr", "fft-autocorr"
	Window         string  `yaml:"window"`           // window function name, e.g. "hann"
	SilenceFloorHz float64 `yaml:"silence_floor_hz"` // estimates at or below are skipped
}

// TransportConfig enables the network sinks.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		TUIMode:  false,
		Audio: AudioConfig{
			InputDevice:   DefaultDeviceID,
			SampleRate:    DefaultSampleRate,
			FrameSize:     DefaultFrameSize,
			InputChannels: DefaultChannels,
			LowLatency:    false,
		},
		Analysis: AnalysisConfig{
			Algorithm:      dsp.AlgorithmSpectral,
			Window:         "hann",
			SilenceFloorHz: DefaultSilenceFloorHz,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    "127.0.0.1:8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30 Hz
		},
	}
}

// Load reads configuration from the YAML file at path. An empty path
// searches the default location ("tuner.yaml"); when no file is found
// the defaults are used. Environment overrides apply after the file,
// then the result is validated.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		if _, err := os.Stat("tuner.yaml"); err == nil {
			path = "tuner.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks bounds and name sets. Called by Load and again by
// the CLI after flag overrides.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%.0f, %.0f]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FrameSize < MinFrameSize || c.Audio.FrameSize > MaxFrameSize {
		return fmt.Errorf("audio.frames_per_buffer %d outside [%d, %d]",
			c.Audio.FrameSize, MinFrameSize, MaxFrameSize)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FrameSize) {
		return fmt.Errorf("audio.frames_per_buffer must be a power of 2, got %d", c.Audio.FrameSize)
	}
	if c.Audio.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be at least 1, got %d", c.Audio.InputChannels)
	}
	if c.Analysis.SilenceFloorHz < 0 {
		return fmt.Errorf("analysis.silence_floor_hz must not be negative, got %f", c.Analysis.SilenceFloorHz)
	}
	if _, err := dsp.ParseWindowFunc(c.Analysis.Window); err != nil {
		return err
	}
	switch c.Analysis.Algorithm {
	case dsp.AlgorithmSpectral, "fft", dsp.AlgorithmAutocorr, "autocorrelation", dsp.AlgorithmFastAutocorr:
	default:
		return fmt.Errorf("analysis.algorithm %q is not one of spectral, autocorr, fft-autocorr", c.Analysis.Algorithm)
	}
	if c.Transport.UDPEnabled {
		if c.Transport.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if c.Transport.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddr == "" {
		return fmt.Errorf("transport.websocket_addr must be set when the WebSocket sink is enabled")
	}
	return nil
}

// applyEnvOverrides applies TUNER_-prefixed environment variables on
// top of file values.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("TUNER_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("TUNER_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("TUNER_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("TUNER_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("TUNER_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		}
	}
}
