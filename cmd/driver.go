// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"visualizer/internal/analysis"
	"visualizer/internal/audio"
	"visualizer/internal/config"
	"visualizer/internal/metrics"
	"visualizer/internal/processor"
)

// NewDriver builds the configured audio driver. The returned release function
// must be called once the driver is no longer used.
func NewDriver(cfg config.AudioConfig) (audio.Driver, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.DriverPortAudio:
		if err := audio.Initialize(); err != nil {
			return nil, nil, err
		}
		return audio.PortAudioDriver{LowLatency: cfg.LowLatency}, audio.Terminate, nil
	case config.DriverMiniaudio:
		return audio.MiniaudioDriver{}, noop, nil
	case config.DriverSynthetic:
		return audio.SyntheticDriver{
			Tones:      cfg.SyntheticTones,
			SampleRate: cfg.SyntheticSampleRate,
			Channels:   cfg.SyntheticChannels,
		}, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown audio driver %q", cfg.Driver)
	}
}

// ProcessorOptions translates the configuration into processor options.
func ProcessorOptions(cfg *config.Config, driver audio.Driver, m *metrics.Metrics) (processor.Options, error) {
	format, err := audio.ParseSampleFormat(cfg.Audio.PreferredFormat)
	if err != nil {
		return processor.Options{}, err
	}
	window, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return processor.Options{}, err
	}
	return processor.Options{
		Driver:          driver,
		PreferredFormat: format,
		MaxChannels:     cfg.Audio.MaxChannels,
		Interval:        cfg.Analysis.Interval,
		Window:          window,
		ResultCapacity:  cfg.Analysis.ResultCapacity,
		Metrics:         m,
	}, nil
}
