// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"time"

	"visualizer/internal/analysis"
	applog "visualizer/internal/log"
	"visualizer/internal/metrics"
)

// Pump is the single consumer of a FrameSource. It polls at a fixed rate and
// fans each new frame out to every transport.
type Pump struct {
	source     FrameSource
	transports []Transport
	interval   time.Duration
	metrics    *metrics.Metrics
	log        applog.Logger
	sequence   uint32

	onset  *analysis.OnsetDetector
	levels []float32
}

// NewPump returns a Pump polling source every interval.
func NewPump(source FrameSource, interval time.Duration, m *metrics.Metrics, transports ...Transport) *Pump {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &Pump{
		source:     source,
		transports: transports,
		interval:   interval,
		metrics:    m,
		log:        applog.With("pump"),
		onset:      analysis.NewOnsetDetector(),
		levels:     make([]float32, len(analysis.DefaultBands)),
	}
}

// Run polls until ctx is done, then closes every transport.
func (p *Pump) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Infof("Publishing to %d transport(s) every %s", len(p.transports), p.interval)
	for {
		select {
		case <-ctx.Done():
			return p.close()
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick performs one poll and reports whether a frame was delivered.
func (p *Pump) Tick() bool {
	snap, ok := p.source.PollLatest()
	if !ok {
		return false
	}

	spectrum, rate := snap.Frame, snap.SampleRate
	p.sequence++
	frame := Frame{
		Sequence:   p.sequence,
		Timestamp:  time.Now().UnixNano(),
		SampleRate: rate,
		Device:     snap.Device,
		Magnitudes: spectrum,
	}
	if bin, _ := spectrum.Peak(); bin > 0 {
		frame.PeakHz = spectrum.FrequencyForBin(bin, rate)
	}
	frame.Onset = p.onset.Detect(spectrum)
	analysis.BandLevels(p.levels, spectrum, rate, analysis.DefaultBands)
	frame.Bands = make(map[string]float32, len(p.levels))
	for i, band := range analysis.DefaultBands {
		frame.Bands[band.Name] = p.levels[i]
	}

	for _, t := range p.transports {
		if err := t.Send(frame); err != nil {
			p.log.Warnf("%s: %v", t.Name(), err)
			continue
		}
		p.metrics.FrameSent(t.Name())
	}
	return true
}

func (p *Pump) close() error {
	var errs []error
	for _, t := range p.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
