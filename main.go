// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"visualizer/cmd"
	applog "visualizer/internal/log"
	"visualizer/pkg/build"
)

// main wires configuration, the audio driver and the run loop together.
//
// 1. Startup: build info, CLI and config, log level, driver.
// 2. Run: capture, analysis and transports until SIGINT or SIGTERM.
// 3. Shutdown: transports close, the stream stops, the driver is released.
func main() {
	os.Exit(run())
}

func run() int {
	if err := build.Initialize(); err != nil {
		applog.Errorf("%v", err)
		return 1
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		applog.Errorf("%v", err)
		return 2
	}
	if cfg == nil {
		return 0
	}

	level, _ := applog.ParseLevel(cfg.EffectiveLogLevel())
	applog.SetLevel(level)

	driver, release, err := cmd.NewDriver(cfg.Audio)
	if err != nil {
		applog.Errorf("%v", err)
		return 1
	}
	defer func() {
		if err := release(); err != nil {
			applog.Warnf("Releasing %s: %v", driver.Name(), err)
		}
	}()

	// One-off commands don't need the pipeline.
	if cfg.Command == "list" {
		if err := cmd.ListDevices(os.Stdout, driver); err != nil {
			applog.Errorf("%v", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ro := cmd.RunOptions{Output: os.Stdout}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		ro.Controls = os.Stdin
	}
	if err := cmd.Run(ctx, cfg, driver, ro); err != nil {
		applog.Errorf("%v", err)
		return 1
	}
	return 0
}
