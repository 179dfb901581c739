// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "tuner/internal/log"
	"tuner/internal/tuner"
)

/*
Packet layout (BigEndian), 40 bytes:

	| Field       | Type    | Bytes | Description                      |
	|-------------|---------|-------|----------------------------------|
	| Sequence    | uint32  | 4     | Monotonically increasing         |
	| Timestamp   | int64   | 8     | Nanoseconds since epoch          |
	| Note        | [4]byte | 4     | Note name, NUL padded ("A#4\0")  |
	| Reference   | float64 | 8     | Reference frequency in Hz        |
	| Frequency   | float64 | 8     | Measured frequency in Hz         |
	| Cents       | float64 | 8     | Signed deviation in cents        |
*/

// Publisher is a rate-limited tuner.Sink over UDP. Report stores the
// latest result; a publisher goroutine sends one packet per interval
// so a fast analysis loop cannot flood the network.
type Publisher struct {
	sender   *Sender
	interval time.Duration

	latestMu sync.Mutex
	latest   tuner.Result
	hasData  bool

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker/doneChan during Start/Stop

	sequenceNum  uint32
	packetBuffer *bytes.Buffer // reused across packets
}

// NewPublisher creates a Publisher over sender. A non-positive
// interval defaults to 33ms (~30 Hz).
func NewPublisher(interval time.Duration, sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp: sender cannot be nil")
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("udp: invalid publish interval, defaulting to %s", interval)
	}

	return &Publisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Report stores res as the latest result to publish. Never blocks.
func (p *Publisher) Report(res tuner.Result) error {
	p.latestMu.Lock()
	p.latest = res
	p.hasData = true
	p.latestMu.Unlock()
	return nil
}

// Start launches the publisher goroutine. No-op if already running.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("udp: publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("udp: publisher started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishLatest()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine and waits for it to exit. Safe
// to call more than once.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("udp: publisher stopped")
	return nil
}

// publishLatest packs and sends the most recent result, if any.
func (p *Publisher) publishLatest() {
	p.latestMu.Lock()
	if !p.hasData {
		p.latestMu.Unlock()
		return
	}
	res := p.latest
	p.latestMu.Unlock()

	packet, err := p.buildPacket(res)
	if err != nil {
		applog.Errorf("udp: failed to pack result: %v", err)
		return
	}
	if err := p.sender.Send(packet); err != nil {
		applog.Debugf("udp: send failed: %v", err)
		return
	}
	applog.Debugf("udp: sent packet %d (%d bytes)", p.sequenceNum, len(packet))
}

// buildPacket serializes res into the packet layout above. The
// returned slice is only valid until the next call.
func (p *Publisher) buildPacket(res tuner.Result) ([]byte, error) {
	p.sequenceNum++

	var note [4]byte
	copy(note[:], res.Note)

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, time.Now().UnixNano())
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, note)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, res.Reference)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, res.Frequency)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, res.Cents)
	}
	if err != nil {
		return nil, err
	}
	return p.packetBuffer.Bytes(), nil
}

// Close stops the publisher and closes the sender.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ tuner.Sink = (*Publisher)(nil)
