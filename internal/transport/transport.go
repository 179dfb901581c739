// SPDX-License-Identifier: MIT
/*
Package transport implements the output sinks a Processor reports
tuning results to: a log line sink, a WebSocket broadcaster, and (in
the udp subpackage) a binary UDP publisher. All sinks satisfy
tuner.Sink and are non-blocking toward the analysis loop.
*/
package transport

import (
	applog "tuner/internal/log"
	"tuner/internal/tuner"
)

// LogSink reports each result as one log line. Never fails.
type LogSink struct{}

// NewLogSink creates a LogSink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Report logs the result at info level.
func (s *LogSink) Report(res tuner.Result) error {
	applog.Infof("note %-3s | %7.2f Hz (ref %7.2f) | cents %+6.1f",
		res.Note, res.Frequency, res.Reference, res.Cents)
	return nil
}

// Close is a no-op.
func (s *LogSink) Close() error {
	return nil
}

var _ tuner.Sink = (*LogSink)(nil)
