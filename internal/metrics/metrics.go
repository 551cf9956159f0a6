// SPDX-License-Identifier: MIT

// Package metrics exposes capture and analysis statistics to Prometheus.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Device switch outcomes.
const (
	SwitchOK         = "switched"
	SwitchRolledBack = "rolled_back"
	SwitchNoAudio    = "no_audio"
)

// Metrics holds every metric of the visualizer pipeline.
//
// All methods are safe on a nil receiver so callers never need to check
// whether metrics are enabled. ObserveStreamError is called from device
// threads and only touches pre-resolved counters.
type Metrics struct {
	framesPublished prometheus.Counter
	samplesDropped  prometheus.Counter
	streamErrors    prometheus.Counter
	deviceSwitches  *prometheus.CounterVec
	capturing       prometheus.Gauge
	sampleRate      prometheus.Gauge
	framesSent      *prometheus.CounterVec
}

// NewMetrics creates the pipeline metrics and registers them with registry.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register visualizer metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.framesPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visualizer_frames_published_total",
		Help: "Total number of spectral frames published by the analyzer",
	})
	m.samplesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visualizer_samples_dropped_total",
		Help: "Total number of samples discarded because the ring buffer was full",
	})
	m.streamErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visualizer_stream_errors_total",
		Help: "Total number of non-benign asynchronous stream errors",
	})
	m.deviceSwitches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visualizer_device_switches_total",
		Help: "Device switch attempts by outcome",
	}, []string{"result"})
	m.capturing = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visualizer_capturing",
		Help: "1 while an input stream is active, 0 in the no-audio state",
	})
	m.sampleRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visualizer_sample_rate_hertz",
		Help: "Sample rate of the active input stream",
	})
	m.framesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "visualizer_frames_sent_total",
		Help: "Frames delivered to consumers by transport",
	}, []string{"transport"})
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.framesPublished.Describe(ch)
	m.samplesDropped.Describe(ch)
	m.streamErrors.Describe(ch)
	m.deviceSwitches.Describe(ch)
	m.capturing.Describe(ch)
	m.sampleRate.Describe(ch)
	m.framesSent.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.framesPublished.Collect(ch)
	m.samplesDropped.Collect(ch)
	m.streamErrors.Collect(ch)
	m.deviceSwitches.Collect(ch)
	m.capturing.Collect(ch)
	m.sampleRate.Collect(ch)
	m.framesSent.Collect(ch)
}

// FramePublished counts one analyzer frame.
func (m *Metrics) FramePublished() {
	if m != nil {
		m.framesPublished.Inc()
	}
}

// SamplesDropped adds n rejected ring buffer pushes.
func (m *Metrics) SamplesDropped(n uint64) {
	if m != nil {
		m.samplesDropped.Add(float64(n))
	}
}

// ObserveStreamError counts one reported stream error.
func (m *Metrics) ObserveStreamError() {
	if m != nil {
		m.streamErrors.Inc()
	}
}

// RecordSwitch counts a device switch with the given outcome.
func (m *Metrics) RecordSwitch(result string) {
	if m != nil {
		m.deviceSwitches.WithLabelValues(result).Inc()
	}
}

// SetCapturing records the active stream state. A zero sample rate means
// no stream.
func (m *Metrics) SetCapturing(sampleRate uint32) {
	if m == nil {
		return
	}
	if sampleRate == 0 {
		m.capturing.Set(0)
	} else {
		m.capturing.Set(1)
	}
	m.sampleRate.Set(float64(sampleRate))
}

// FrameSent counts a frame delivered by transport.
func (m *Metrics) FrameSent(transport string) {
	if m != nil {
		m.framesSent.WithLabelValues(transport).Inc()
	}
}

// Handler serves the metrics gathered by gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
