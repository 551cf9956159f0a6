// SPDX-License-Identifier: MIT
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"visualizer/internal/audio"
	applog "visualizer/internal/log"
	"visualizer/internal/processor"
)

const controlsHelp = "Commands: n (next device), <index> (switch device), l (list), ? (help)"

// Controls reads one command per line from r and applies it to p until r is
// exhausted or ctx is done. Output goes to w.
func Controls(ctx context.Context, r io.Reader, w io.Writer, p *processor.Processor, d audio.Driver) {
	log := applog.With("controls")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		var err error
		switch line {
		case "":
			continue
		case "n", "next":
			err = p.NextDevice()
		case "l", "list":
			if err := ListDevices(w, d); err != nil {
				log.Warnf("list: %v", err)
			}
			continue
		case "?", "h", "help":
			fmt.Fprintln(w, controlsHelp)
			continue
		default:
			var device audio.Device
			device, err = audio.FindInputDevice(d, line)
			if err == nil {
				err = p.SwitchDevice(device)
			}
		}

		if err != nil {
			log.Warnf("%s: %v", line, err)
		}
		fmt.Fprintf(w, "Now: %s (%s, %d Hz)\n", p.DeviceName(), p.State(), p.SampleRate())
	}
}
