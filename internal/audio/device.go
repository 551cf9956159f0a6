// SPDX-License-Identifier: MIT
package audio

// Driver exposes the hosts provided by one audio library.
type Driver interface {
	Name() string
	// Hosts returns every host that could be initialised, in preference order.
	Hosts() ([]Host, error)
	// DefaultHost returns the platform default host.
	DefaultHost() (Host, error)
}

// Host is one audio backend of a driver.
type Host interface {
	Name() string
	InputDevices() ([]Device, error)
	DefaultInputDevice() (Device, error)
}

// Device is an opaque handle to an input-capable device.
type Device interface {
	Name() string
	HostName() string
	// DefaultInputConfig negotiates a StreamConfig from the device defaults.
	DefaultInputConfig(opts ConfigOptions) (StreamConfig, error)
	// OpenInputStream builds a paused stream delivering into sink. Runtime
	// faults are passed to report from the driver's thread.
	OpenInputStream(cfg StreamConfig, sink *Downmixer, report ErrorReporter) (Stream, error)
}

// Stream is an open device stream. Close stops callbacks and releases the
// hardware before returning.
type Stream interface {
	Start() error
	Close() error
}

// ErrorReporter receives asynchronous stream faults. Implementations must not
// block or allocate.
type ErrorReporter func(err *StreamError)

// SameDevice reports whether a and b refer to the same device.
func SameDevice(a, b Device) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.HostName() == b.HostName() && a.Name() == b.Name()
}

// Describer is implemented by devices that can report extra details for the
// device list.
type Describer interface {
	Details() string
}
