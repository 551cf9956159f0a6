// SPDX-License-Identifier: MIT
package transport

import (
	applog "visualizer/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of every Nth frame at debug level.
type LoggingTransport struct {
	every uint32
	log   applog.Logger
}

// NewLoggingTransport creates a new LoggingTransport instance. every <= 0
// logs each frame.
func NewLoggingTransport(every int) *LoggingTransport {
	if every <= 0 {
		every = 1
	}
	return &LoggingTransport{every: uint32(every), log: applog.With("transport.log")}
}

func (lt *LoggingTransport) Name() string { return "log" }

// Send logs the frame's peak frequency.
func (lt *LoggingTransport) Send(frame Frame) error {
	if frame.Sequence%lt.every != 0 {
		return nil
	}
	lt.log.Debugf("Frame %d from %q: %d bins @ %d Hz, peak %.1f Hz",
		frame.Sequence, frame.Device, len(frame.Magnitudes), frame.SampleRate, frame.PeakHz)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
