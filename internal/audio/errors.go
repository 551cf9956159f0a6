// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDeviceEnumeration is returned when the platform cannot list devices.
	ErrDeviceEnumeration = errors.New("audio device enumeration failed")
	// ErrNoInputDevice is returned when no input device is available.
	ErrNoInputDevice = errors.New("no input device available")
	// ErrUnsupportedFormat is returned when a device only offers sample
	// encodings outside f32, i16 and u16.
	ErrUnsupportedFormat = errors.New("unsupported sample format")
	// ErrStreamBuild is returned when a stream cannot be built or started.
	ErrStreamBuild = errors.New("failed to build input stream")
)

// InitError describes a failed capture initialisation step. It unwraps to one
// of the sentinel errors above.
type InitError struct {
	Op     string // "enumerate", "default device", "negotiate", "open", "start"
	Device string
	Err    error
}

func (e *InitError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("audio %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("audio %s %q: %v", e.Op, e.Device, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// StreamError is an asynchronous fault raised by a running stream.
type StreamError struct {
	Message string
	benign  bool
}

// NewStreamError classifies msg once so the value can be reported from a
// real-time callback without further work.
func NewStreamError(msg string) *StreamError {
	return &StreamError{Message: msg, benign: IsBenign(msg)}
}

func (e *StreamError) Error() string { return "audio stream: " + e.Message }

// Benign reports whether the fault is known driver noise.
func (e *StreamError) Benign() bool { return e.benign }

// Substrings of driver messages that are emitted routinely by ALSA and
// friends and do not indicate a broken stream.
var benignPatterns = []string{
	"htstamp",
	"timestamp",
	"trigger",
	"spuriously returned",
	"poll()",
}

// IsBenign reports whether a driver message matches a known benign pattern.
func IsBenign(msg string) bool {
	for _, p := range benignPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
