// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"io"
	"strings"

	"visualizer/internal/audio"
)

// ListDevices prints the input devices of the driver's selected host as
// "(index) name [host]". The index is accepted by --device.
func ListDevices(w io.Writer, d audio.Driver) error {
	devices, err := audio.ListInputDevices(d)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintf(w, "No input devices found (%s).\n", d.Name())
		return nil
	}

	def, _ := audio.DefaultInputDevice(d)

	fmt.Fprintf(w, "Input devices (%s):\n", d.Name())
	for i, dev := range devices {
		marker := ""
		if audio.SameDevice(dev, def) {
			marker = " *"
		}
		fmt.Fprintf(w, "(%d) %s [%s]%s\n", i, dev.Name(), dev.HostName(), marker)
		if desc, ok := dev.(audio.Describer); ok {
			for _, line := range strings.Split(strings.TrimSpace(desc.Details()), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	return nil
}
