// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SelectHost returns the first host of d that reports at least one input
// device. Hosts that fail to enumerate are skipped. When none qualifies the
// driver's default host is returned.
func SelectHost(d Driver) (Host, error) {
	hosts, err := d.Hosts()
	if err != nil {
		return nil, &InitError{Op: "enumerate", Err: fmt.Errorf("%w: %w", ErrDeviceEnumeration, err)}
	}
	for _, h := range hosts {
		devices, err := h.InputDevices()
		if err != nil {
			continue
		}
		if len(devices) > 0 {
			return h, nil
		}
	}

	h, err := d.DefaultHost()
	if err != nil {
		return nil, &InitError{Op: "enumerate", Err: fmt.Errorf("%w: %w", ErrDeviceEnumeration, err)}
	}
	return h, nil
}

// ListInputDevices returns the input devices of the selected host in
// enumeration order. An empty slice is not an error.
func ListInputDevices(d Driver) ([]Device, error) {
	h, err := SelectHost(d)
	if err != nil {
		return nil, err
	}
	devices, err := h.InputDevices()
	if err != nil {
		return nil, &InitError{Op: "enumerate", Err: fmt.Errorf("%w: %w", ErrDeviceEnumeration, err)}
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// DefaultInputDevice returns the default input device of the selected host.
func DefaultInputDevice(d Driver) (Device, error) {
	h, err := SelectHost(d)
	if err != nil {
		return nil, err
	}
	dev, err := h.DefaultInputDevice()
	if err != nil {
		if errors.Is(err, ErrNoInputDevice) {
			return nil, &InitError{Op: "default device", Err: err}
		}
		return nil, &InitError{Op: "default device", Err: fmt.Errorf("%w: %w", ErrNoInputDevice, err)}
	}
	if dev == nil {
		return nil, &InitError{Op: "default device", Err: ErrNoInputDevice}
	}
	return dev, nil
}

// FindInputDevice resolves a device by zero-based index ("2") or by a
// case-insensitive name substring.
func FindInputDevice(d Driver, query string) (Device, error) {
	devices, err := ListInputDevices(d)
	if err != nil {
		return nil, err
	}

	if index, convErr := strconv.Atoi(query); convErr == nil {
		if index < 0 || index >= len(devices) {
			return nil, fmt.Errorf("invalid device index: %d: %w", index, ErrNoInputDevice)
		}
		return devices[index], nil
	}

	needle := strings.ToLower(query)
	for _, dev := range devices {
		if strings.Contains(strings.ToLower(dev.Name()), needle) {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q: %w", query, ErrNoInputDevice)
}
