// SPDX-License-Identifier: MIT
/*
Package audio provides the frame sources for the tuner: a real-time
PortAudio capture engine and a WAV file reader. Both fill fixed-size
mono frames of float64 samples in [-1, 1], which is the contract the
analysis loop consumes through its Source interface.
*/
package audio

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	applog "tuner/internal/log"
)

// Capture state errors.
var (
	ErrCaptureRunning = errors.New("audio: capture already started")
	ErrCaptureStopped = errors.New("audio: capture not running")
)

// CaptureConfig holds the input-stream parameters for an Engine.
type CaptureConfig struct {
	DeviceID   int     // PortAudio device index, DefaultDeviceID for the system default
	SampleRate float64 // Hz
	FrameSize  int     // samples per analysis frame
	Channels   int     // input channels; multi-channel input is averaged to mono
	LowLatency bool    // request the device's low-latency profile
}

// Engine captures audio from a PortAudio input stream. The stream
// callback (the single producer) mixes each buffer to mono and hands
// it to a bounded channel; Read (the single consumer) blocks on that
// channel. When the channel is full the oldest pending frame is
// dropped so the callback never blocks the audio thread.
type Engine struct {
	config  CaptureConfig
	device  *portaudio.DeviceInfo
	latency time.Duration
	stream  *portaudio.Stream

	frames  chan []float64
	running atomic.Bool
}

// frameQueueDepth bounds how many frames may be pending between the
// audio callback and the analysis loop.
const frameQueueDepth = 4

// NewEngine resolves the input device for the given configuration.
// PortAudio must be initialized first.
func NewEngine(config CaptureConfig) (*Engine, error) {
	if config.FrameSize < 2 {
		return nil, fmt.Errorf("audio: frame size must be at least 2, got %d", config.FrameSize)
	}
	if config.Channels < 1 {
		return nil, fmt.Errorf("audio: channel count must be at least 1, got %d", config.Channels)
	}

	device, err := InputDevice(config.DeviceID)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighInputLatency
	if config.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	return &Engine{
		config:  config,
		device:  device,
		latency: latency,
		frames:  make(chan []float64, frameQueueDepth),
	}, nil
}

// Start opens and starts the input stream.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrCaptureRunning
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Channels,
			Device:   e.device,
			Latency:  e.latency,
		},
		FramesPerBuffer: e.config.FrameSize,
		SampleRate:      e.config.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.onInput)
	if err != nil {
		e.running.Store(false)
		return fmt.Errorf("audio: failed to open input stream: %w", err)
	}
	e.stream = stream

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		e.stream = nil
		e.running.Store(false)
		return fmt.Errorf("audio: failed to start input stream: %w", err)
	}

	applog.Infof("audio: capturing from %q (%.0f Hz, %d samples/frame)",
		e.device.Name, e.config.SampleRate, e.config.FrameSize)
	return nil
}

// onInput is the PortAudio stream callback. It mixes the interleaved
// input down to one mono frame and queues it, dropping the oldest
// pending frame on overrun.
func (e *Engine) onInput(in []float32) {
	if !e.running.Load() {
		// Stop is tearing the stream down; the frames channel may
		// already be closed.
		return
	}

	mono := make([]float64, e.config.FrameSize)
	ch := e.config.Channels
	if ch == 1 {
		for i := range mono {
			if i < len(in) {
				mono[i] = float64(in[i])
			}
		}
	} else {
		for i := range mono {
			base := i * ch
			if base+ch > len(in) {
				break
			}
			sum := 0.0
			for c := 0; c < ch; c++ {
				sum += float64(in[base+c])
			}
			mono[i] = sum / float64(ch)
		}
	}

	select {
	case e.frames <- mono:
	default:
		select {
		case <-e.frames:
		default:
		}
		select {
		case e.frames <- mono:
		default:
		}
	}
}

// Read blocks until the next captured frame is available and copies it
// into frame. Returns ErrCaptureStopped once the engine is stopped and
// the queue has drained.
func (e *Engine) Read(frame []float64) error {
	if len(frame) != e.config.FrameSize {
		return fmt.Errorf("audio: frame length %d does not match capture size %d", len(frame), e.config.FrameSize)
	}

	mono, ok := <-e.frames
	if !ok {
		return ErrCaptureStopped
	}
	copy(frame, mono)
	return nil
}

// Stop stops and closes the input stream and unblocks any pending
// Read.
func (e *Engine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return ErrCaptureStopped
	}

	var err error
	if e.stream != nil {
		if stopErr := e.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("audio: failed to stop input stream: %w", stopErr)
		}
		if closeErr := e.stream.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("audio: failed to close input stream: %w", closeErr)
		}
		e.stream = nil
	}
	close(e.frames)

	applog.Infof("audio: capture stopped")
	return err
}

// IsRunning reports whether the capture stream is active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}
