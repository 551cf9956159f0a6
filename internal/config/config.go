// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults and limits for the visualizer configuration.
const (
	DefaultLogLevel            = "info"
	DefaultDriver              = DriverPortAudio
	DefaultPreferredFormat     = "f32"
	DefaultMaxChannels         = 0 // driver default; stereo at most for PortAudio
	DefaultSyntheticFrequency  = 440.0
	DefaultSyntheticSampleRate = 48000
	DefaultAnalysisInterval    = 16 * time.Millisecond // ~60 frames per second
	DefaultWindow              = "hann"
	DefaultResultCapacity      = 10
	DefaultUDPTargetAddress    = "127.0.0.1:9090"
	DefaultUDPSendInterval     = 33 * time.Millisecond // ~30Hz
	DefaultWebSocketAddress    = ":8080"
	DefaultMetricsAddress      = ":9100"

	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
)

// Audio drivers.
const (
	DriverPortAudio = "portaudio"
	DriverMiniaudio = "miniaudio"
	DriverSynthetic = "synthetic"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Shorthand for log_level debug.
	LogLevel  string          `yaml:"log_level"`         // debug, info, warn, error.
	Command   string          `yaml:"command,omitempty"` // One-off command instead of running (e.g. "list").
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AudioConfig selects the capture driver and device.
type AudioConfig struct {
	Driver              string    `yaml:"driver"`                // portaudio, miniaudio or synthetic.
	Device              string    `yaml:"device"`                // Index or name substring; empty picks the first device.
	PreferredFormat     string    `yaml:"preferred_format"`      // f32, i16 or u16.
	MaxChannels         int       `yaml:"max_channels"`          // Cap on captured channels, 0 for the driver default.
	LowLatency          bool      `yaml:"low_latency"`           // Request low latency from PortAudio.
	SyntheticTones      []float64 `yaml:"synthetic_tones"`       // One synthetic device per tone (Hz).
	SyntheticSampleRate uint32    `yaml:"synthetic_sample_rate"` // Sample rate of synthetic devices.
	SyntheticChannels   int       `yaml:"synthetic_channels"`    // Channels of synthetic devices.
}

// AnalysisConfig tunes the spectral analyzer.
type AnalysisConfig struct {
	Interval       time.Duration `yaml:"interval"`        // Analyzer wake-up period.
	Window         string        `yaml:"window"`          // FFT window function name.
	ResultCapacity int           `yaml:"result_capacity"` // Frames buffered between analyzer and consumer.
}

// TransportConfig holds settings related to sending frames over the network.
type TransportConfig struct {
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"` // e.g. "127.0.0.1:9090".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Minimum interval between packets.
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddress string        `yaml:"websocket_address"` // Listen address for /ws.
	LogFrames        int           `yaml:"log_frames"`        // Log every Nth frame at debug level, 0 disables.
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // Listen address for /metrics.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Driver:              DefaultDriver,
			PreferredFormat:     DefaultPreferredFormat,
			MaxChannels:         DefaultMaxChannels,
			SyntheticTones:      []float64{DefaultSyntheticFrequency},
			SyntheticSampleRate: DefaultSyntheticSampleRate,
			SyntheticChannels:   1,
		},
		Analysis: AnalysisConfig{
			Interval:       DefaultAnalysisInterval,
			Window:         DefaultWindow,
			ResultCapacity: DefaultResultCapacity,
		},
		Transport: TransportConfig{
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
			WebSocketAddress: DefaultWebSocketAddress,
		},
		Metrics: MetricsConfig{
			Address: DefaultMetricsAddress,
		},
	}
}

// EffectiveLogLevel folds Debug into LogLevel.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}
