// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrStreamEnded is returned by FileSource.Read when the file is
// exhausted. The analysis loop treats it like any other acquisition
// failure: the loop ends and the error is surfaced to the owner.
var ErrStreamEnded = errors.New("audio: input stream ended")

// FileSource streams a WAV file as analysis frames, mixing
// multi-channel content to mono and normalizing samples to [-1, 1].
// It lets the tuner run against recorded material and backs the
// pipeline tests.
type FileSource struct {
	file    *os.File
	decoder *wav.Decoder
	buf     *goaudio.IntBuffer
	scale   float64

	// Decoded samples not yet handed out.
	pending []float64
}

// NewFileSource opens path and prepares it for frame reads of the
// given size.
func NewFileSource(path string, frameSize int) (*FileSource, error) {
	if frameSize < 2 {
		return nil, fmt.Errorf("audio: frame size must be at least 2, got %d", frameSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: failed to open input file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("audio: %s is not a valid WAV file", path)
	}

	channels := int(decoder.NumChans)
	return &FileSource{
		file:    f,
		decoder: decoder,
		buf: &goaudio.IntBuffer{
			Data: make([]int, frameSize*channels),
			Format: &goaudio.Format{
				NumChannels: channels,
				SampleRate:  int(decoder.SampleRate),
			},
		},
		scale: 1 / float64(int(1)<<(decoder.BitDepth-1)),
	}, nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *FileSource) SampleRate() float64 {
	return float64(s.decoder.SampleRate)
}

// Read fills frame with the next len(frame) mono samples. Returns
// ErrStreamEnded when the file cannot supply a full frame.
func (s *FileSource) Read(frame []float64) error {
	channels := s.buf.Format.NumChannels

	for len(s.pending) < len(frame) {
		n, err := s.decoder.PCMBuffer(s.buf)
		if err != nil && err != io.EOF {
			return fmt.Errorf("audio: failed to decode WAV data: %w", err)
		}
		if n == 0 {
			return ErrStreamEnded
		}

		for i := 0; i+channels <= n; i += channels {
			sum := 0.0
			for c := 0; c < channels; c++ {
				sum += float64(s.buf.Data[i+c])
			}
			s.pending = append(s.pending, sum/float64(channels)*s.scale)
		}
	}

	copy(frame, s.pending[:len(frame)])
	s.pending = s.pending[len(frame):]
	return nil
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	return s.file.Close()
}
