// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "visualizer/internal/log"
)

var (
	logLevels        = []string{"debug", "info", "warn", "warning", "error"}
	drivers          = []string{DriverPortAudio, DriverMiniaudio, DriverSynthetic}
	sampleFormats    = []string{"f32", "i16", "u16"}
	windowFunctions  = []string{"hann", "hanning", "bartletthann", "blackman", "blackmannuttall", "hamming", "lanczos", "nuttall"}
	configCandidates = []string{"config.yaml", "config.yml"}
)

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. A .env file in the working directory or next to the config file is
// loaded into the environment first; variables already set win. After loading,
// ENV_ overrides are applied and the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, candidate := range configCandidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	loadDotEnv(path)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(configPath string) {
	files := []string{".env"}
	if configPath != "" {
		if dir := filepath.Dir(configPath); dir != "." {
			files = append(files, filepath.Join(dir, ".env"))
		}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			applog.Warnf("configuration: ignoring %s: %v", f, err)
		}
	}
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if !oneOf(c.LogLevel, logLevels) {
		errs = append(errs, fmt.Errorf("log_level %q must be one of %s", c.LogLevel, strings.Join(logLevels, ", ")))
	}

	if !oneOf(c.Audio.Driver, drivers) {
		errs = append(errs, fmt.Errorf("audio.driver %q must be one of %s", c.Audio.Driver, strings.Join(drivers, ", ")))
	}
	if !oneOf(c.Audio.PreferredFormat, sampleFormats) {
		errs = append(errs, fmt.Errorf("audio.preferred_format %q must be one of %s", c.Audio.PreferredFormat, strings.Join(sampleFormats, ", ")))
	}
	if c.Audio.MaxChannels < 0 {
		errs = append(errs, fmt.Errorf("audio.max_channels must not be negative"))
	}
	if c.Audio.Driver == DriverSynthetic {
		rate := c.Audio.SyntheticSampleRate
		if rate < MinSampleRate || rate > MaxSampleRate {
			errs = append(errs, fmt.Errorf("audio.synthetic_sample_rate %d outside %d-%d Hz", rate, MinSampleRate, MaxSampleRate))
		}
		if c.Audio.SyntheticChannels < 1 {
			errs = append(errs, fmt.Errorf("audio.synthetic_channels must be at least 1"))
		}
		for _, tone := range c.Audio.SyntheticTones {
			if tone <= 0 || tone >= float64(rate)/2 {
				errs = append(errs, fmt.Errorf("audio.synthetic_tones: %.1f Hz is not below Nyquist (%d Hz)", tone, rate/2))
			}
		}
	}

	if c.Analysis.Interval <= 0 {
		errs = append(errs, fmt.Errorf("analysis.interval must be positive"))
	}
	if !oneOf(c.Analysis.Window, windowFunctions) {
		errs = append(errs, fmt.Errorf("analysis.window %q is unknown", c.Analysis.Window))
	}
	if c.Analysis.ResultCapacity < 1 {
		errs = append(errs, fmt.Errorf("analysis.result_capacity must be at least 1"))
	}

	if c.Transport.UDPEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.UDPTargetAddress); err != nil {
			errs = append(errs, fmt.Errorf("transport.udp_target_address %q: %w", c.Transport.UDPTargetAddress, err))
		}
		if c.Transport.UDPSendInterval <= 0 {
			errs = append(errs, fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled"))
		}
	}
	if c.Transport.WebSocketEnabled {
		if _, _, err := net.SplitHostPort(c.Transport.WebSocketAddress); err != nil {
			errs = append(errs, fmt.Errorf("transport.websocket_address %q: %w", c.Transport.WebSocketAddress, err))
		}
	}
	if c.Transport.LogFrames < 0 {
		errs = append(errs, fmt.Errorf("transport.log_frames must not be negative"))
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			errs = append(errs, fmt.Errorf("metrics.address %q: %w", c.Metrics.Address, err))
		}
	}

	return errors.Join(errs...)
}

func oneOf(v string, set []string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// applyEnvOverrides applies ENV_ variables on top of the file values.
// Unparsable values are reported rather than silently ignored.
func (c *Config) applyEnvOverrides() error {
	var errs []error

	boolVar := func(key string, dst *bool) {
		if val, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
			applog.Debugf("configuration: Overriding %s from env: %v", key, b)
		}
	}
	stringVar := func(key string, dst *string) {
		if val, ok := os.LookupEnv(key); ok {
			*dst = val
			applog.Debugf("configuration: Overriding %s from env: %s", key, val)
		}
	}
	durationVar := func(key string, dst *time.Duration) {
		if val, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(val)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
			applog.Debugf("configuration: Overriding %s from env: %s", key, d)
		}
	}

	// ENV_{...}
	// These are general overrides.
	boolVar("ENV_DEBUG", &c.Debug)
	stringVar("ENV_LOG_LEVEL", &c.LogLevel)

	// ENV_AUDIO_{...}
	stringVar("ENV_AUDIO_DRIVER", &c.Audio.Driver)
	stringVar("ENV_AUDIO_DEVICE", &c.Audio.Device)

	// ENV_UDP_{...} and ENV_WS_{...}
	// These are specific to the transport layer.
	boolVar("ENV_UDP_ENABLED", &c.Transport.UDPEnabled)
	stringVar("ENV_UDP_TARGET_ADDRESS", &c.Transport.UDPTargetAddress)
	durationVar("ENV_UDP_SEND_INTERVAL", &c.Transport.UDPSendInterval)
	boolVar("ENV_WS_ENABLED", &c.Transport.WebSocketEnabled)
	stringVar("ENV_WS_ADDRESS", &c.Transport.WebSocketAddress)

	// ENV_METRICS_{...}
	boolVar("ENV_METRICS_ENABLED", &c.Metrics.Enabled)

	return errors.Join(errs...)
}
