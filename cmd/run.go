// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"visualizer/internal/audio"
	"visualizer/internal/config"
	applog "visualizer/internal/log"
	"visualizer/internal/metrics"
	"visualizer/internal/processor"
	"visualizer/internal/transport"
	"visualizer/internal/transport/udp"
)

const shutdownTimeout = 2 * time.Second

// RunOptions carries the process-level inputs of Run.
type RunOptions struct {
	// Controls, when non-nil, is read for interactive device commands.
	Controls io.Reader
	// Output receives interactive feedback.
	Output io.Writer
	// Ready, when non-nil, is called once everything is listening.
	Ready func(*Runtime)
}

// Runtime exposes the live components to RunOptions.Ready.
type Runtime struct {
	Processor *processor.Processor
	WebSocket *transport.WebSocketTransport
	Registry  *prometheus.Registry
	Metrics   *http.Server
}

// Run captures from the configured device and publishes frames until ctx is
// done.
func Run(ctx context.Context, cfg *config.Config, driver audio.Driver, ro RunOptions) error {
	log := applog.With("run")
	rt := &Runtime{Registry: prometheus.NewRegistry()}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		var err error
		if m, err = metrics.NewMetrics(rt.Registry); err != nil {
			return err
		}
	}

	opts, err := ProcessorOptions(cfg, driver, m)
	if err != nil {
		return err
	}
	proc, err := openProcessor(cfg.Audio.Device, opts)
	if err != nil {
		return err
	}
	rt.Processor = proc
	defer func() {
		if err := proc.Close(); err != nil {
			log.Warnf("Closing processor: %v", err)
		}
	}()
	log.Infof("Capturing from %q at %d Hz (%s)", proc.DeviceName(), proc.SampleRate(), proc.State())

	transports, err := buildTransports(cfg, rt)
	if err != nil {
		return err
	}
	pump := transport.NewPump(proc, cfg.Analysis.Interval, m, transports...)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pump.Run(ctx) })
	g.Go(func() error {
		watchStreamErrors(ctx, proc)
		return nil
	})

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(rt.Registry))
		rt.Metrics = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
		g.Go(func() error {
			log.Infof("Serving metrics on %s/metrics", cfg.Metrics.Address)
			if err := rt.Metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return rt.Metrics.Shutdown(shutdownCtx)
		})
	}

	if ro.Controls != nil {
		out := ro.Output
		if out == nil {
			out = io.Discard
		}
		// Not part of the group: a blocked read must not hold up shutdown.
		go Controls(ctx, ro.Controls, out, proc, driver)
	}

	if ro.Ready != nil {
		ro.Ready(rt)
	}
	return g.Wait()
}

// openProcessor starts on the device matching query, falling back to the
// automatic selection when the query is empty or cannot be started.
func openProcessor(query string, opts processor.Options) (*processor.Processor, error) {
	if query != "" {
		device, err := audio.FindInputDevice(opts.Driver, query)
		if err == nil {
			var p *processor.Processor
			if p, err = processor.New(device, opts); err == nil {
				return p, nil
			}
		}
		applog.Warnf("Device %q unavailable, using automatic selection: %v", query, err)
	}
	return processor.Open(opts)
}

func buildTransports(cfg *config.Config, rt *Runtime) ([]transport.Transport, error) {
	var transports []transport.Transport
	fail := func(err error) ([]transport.Transport, error) {
		for _, t := range transports {
			t.Close()
		}
		return nil, err
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return fail(err)
		}
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender)
		if err != nil {
			sender.Close()
			return fail(err)
		}
		transports = append(transports, publisher)
	}

	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err != nil {
			return fail(err)
		}
		rt.WebSocket = ws
		transports = append(transports, ws)
	}

	if cfg.Transport.LogFrames > 0 {
		transports = append(transports, transport.NewLoggingTransport(cfg.Transport.LogFrames))
	}
	return transports, nil
}

func watchStreamErrors(ctx context.Context, proc *processor.Processor) {
	log := applog.With("stream")
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-proc.StreamErrors():
			log.Warn(err, "Audio stream error")
		}
	}
}
