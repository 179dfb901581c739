// SPDX-License-Identifier: MIT
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"tuner/cmd"
	"tuner/internal/audio"
	"tuner/internal/config"
	"tuner/internal/dsp"
	applog "tuner/internal/log"
	"tuner/internal/pitch"
	"tuner/internal/transport"
	"tuner/internal/transport/udp"
	"tuner/internal/tui"
	"tuner/internal/tuner"
)

// main runs in three phases:
//
// 1. Startup (cold path): parse configuration, resolve the input
// source, build the analysis pipeline and sinks.
//
// 2. Concurrent (hot path): the processor goroutine pulls frames from
// the source and reports results to the sinks until a signal, a TUI
// quit, or the end of a file input.
//
// 3. Shutdown (cold path): stop the source, drain the processor,
// close the sinks.
func main() {
	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	} else if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	// One-off commands don't need the analysis pipeline.
	if cfg.Command == "list" {
		if err := audio.Initialize(); err != nil {
			applog.Fatalf("%v", err)
		}
		defer audio.Terminate()
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// One thread for the capture callback, one for analysis and I/O.
	runtime.GOMAXPROCS(2)

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	// ==================== STARTUP PHASE ====================

	var source tuner.Source
	var stopSource func() error

	fileMode := cfg.Audio.InputFile != ""
	if fileMode {
		fileSource, err := audio.NewFileSource(cfg.Audio.InputFile, cfg.Audio.FrameSize)
		if err != nil {
			return err
		}
		defer fileSource.Close()
		// Analysis follows the file's own sample rate.
		cfg.Audio.SampleRate = fileSource.SampleRate()
		source = fileSource
		stopSource = func() error { return nil }
	} else {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()

		engine, err := audio.NewEngine(audio.CaptureConfig{
			DeviceID:   cfg.Audio.InputDevice,
			SampleRate: cfg.Audio.SampleRate,
			FrameSize:  cfg.Audio.FrameSize,
			Channels:   cfg.Audio.InputChannels,
			LowLatency: cfg.Audio.LowLatency,
		})
		if err != nil {
			return err
		}
		if err := engine.Start(); err != nil {
			return err
		}
		source = engine
		stopSource = engine.Stop
	}

	windowFn, err := dsp.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return err
	}
	window, err := dsp.NewWindow(cfg.Audio.FrameSize, windowFn)
	if err != nil {
		return err
	}
	estimator, err := dsp.NewEstimator(cfg.Analysis.Algorithm, cfg.Audio.FrameSize, cfg.Audio.SampleRate)
	if err != nil {
		return err
	}

	var sinks []tuner.Sink
	var program *tea.Program
	if cfg.TUIMode {
		program = tea.NewProgram(tui.NewModel(), tea.WithAltScreen())
		sinks = append(sinks, tui.NewSink(program))
	} else {
		sinks = append(sinks, transport.NewLogSink())
	}
	if cfg.Transport.WebSocketEnabled {
		sinks = append(sinks, transport.NewWebSocketSink(cfg.Transport.WebSocketAddr))
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender)
		if err != nil {
			return err
		}
		publisher.Start()
		sinks = append(sinks, publisher)
	}

	processor, err := tuner.NewProcessor(source, window, estimator, pitch.DefaultTable(), sinks...)
	if err != nil {
		return err
	}
	processor.SetSilenceFloor(cfg.Analysis.SilenceFloorHz)

	// ==================== CONCURRENT PHASE ====================

	if err := processor.Start(); err != nil {
		return err
	}

	switch {
	case cfg.TUIMode:
		// The UI owns the foreground; quitting it ends the run.
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "error running terminal UI: %v\n", err)
		}
	case fileMode:
		// A file input ends on its own.
		processor.Wait()
	default:
		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		<-done
	}

	// ==================== SHUTDOWN PHASE ====================

	// Stopping the source first unblocks any in-flight frame read.
	if err := stopSource(); err != nil {
		applog.Warnf("%v", err)
	}
	stopErr := processor.Stop()

	for _, sink := range sinks {
		if err := sink.Close(); err != nil {
			applog.Warnf("failed to close sink: %v", err)
		}
	}

	// The stop-induced read failure is the normal way the loop ends.
	if stopErr != nil &&
		!errors.Is(stopErr, audio.ErrCaptureStopped) &&
		!errors.Is(stopErr, audio.ErrStreamEnded) {
		return stopErr
	}
	return nil
}
