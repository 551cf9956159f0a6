// SPDX-License-Identifier: MIT

// Package transport delivers spectral frames to consumers outside the process.
package transport

import "visualizer/internal/processor"

// Frame is one published spectrum with its metadata.
type Frame struct {
	Sequence   uint32    `json:"seq"`
	Timestamp  int64     `json:"ts"` // nanoseconds since epoch
	SampleRate uint32    `json:"sample_rate"`
	Device     string    `json:"device"`
	PeakHz     float64   `json:"peak_hz"`
	Magnitudes []float32 `json:"magnitudes"`

	Bands map[string]float32 `json:"bands,omitempty"` // RMS magnitude per named band
	Onset bool               `json:"onset"`
}

// Transport defines a generic interface for sending frames.
// Implementations should be thread-safe.
type Transport interface {
	Name() string
	Send(frame Frame) error
	Close() error
}

// FrameSource is the polling side of the capture pipeline. Each snapshot
// carries the rate and device of the stream that produced it.
type FrameSource interface {
	PollLatest() (processor.Snapshot, bool)
}
