// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "visualizer/internal/log"
	"visualizer/internal/transport"
)

// HeaderSize is the fixed size of a packet before the magnitudes.
const HeaderSize = 4 + 8 + 4 + 2

// UDPPublisher packs frames into a binary datagram and sends them through a
// UDPSender, no more often than its interval.
type UDPPublisher struct {
	sender   *UDPSender
	interval time.Duration
	log      applog.Logger

	mu       sync.Mutex
	lastSent time.Time
	packet   []byte // reused between sends
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}

	log := applog.With("transport.udp")
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("Invalid interval provided, defaulting to %s", interval)
	}
	log.Infof("Initializing (Interval: %s, Target: %s)", interval, sender.Target())

	return &UDPPublisher{
		sender:   sender,
		interval: interval,
		log:      log,
		packet:   make([]byte, 0, HeaderSize+4*1024),
	}, nil
}

func (p *UDPPublisher) Name() string { return "udp" }

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Sample Rate       | uint32         | 4            | Hz, for bin frequencies |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Array of FFT magnitudes |
+-----------------------------------------------------------------------------+
*/

// AppendPacket encodes frame onto dst.
func AppendPacket(dst []byte, frame transport.Frame) []byte {
	dst = binary.BigEndian.AppendUint32(dst, frame.Sequence)
	dst = binary.BigEndian.AppendUint64(dst, uint64(frame.Timestamp))
	dst = binary.BigEndian.AppendUint32(dst, frame.SampleRate)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(frame.Magnitudes)))
	for _, m := range frame.Magnitudes {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(m))
	}
	return dst
}

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp packet too short")

// DecodePacket parses a packet produced by AppendPacket.
func DecodePacket(b []byte) (transport.Frame, error) {
	if len(b) < HeaderSize {
		return transport.Frame{}, ErrShortPacket
	}
	f := transport.Frame{
		Sequence:   binary.BigEndian.Uint32(b[0:4]),
		Timestamp:  int64(binary.BigEndian.Uint64(b[4:12])),
		SampleRate: binary.BigEndian.Uint32(b[12:16]),
	}
	n := int(binary.BigEndian.Uint16(b[16:18]))
	body := b[HeaderSize:]
	if len(body) < 4*n {
		return transport.Frame{}, ErrShortPacket
	}
	f.Magnitudes = make([]float32, n)
	for i := range f.Magnitudes {
		f.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(body[4*i:]))
	}
	return f, nil
}

// Send transmits frame unless the previous packet went out less than one
// interval ago.
func (p *UDPPublisher) Send(frame transport.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if !p.lastSent.IsZero() && now.Sub(p.lastSent) < p.interval {
		return nil
	}

	p.packet = AppendPacket(p.packet[:0], frame)
	if err := p.sender.Send(p.packet); err != nil {
		return err
	}
	p.lastSent = now
	p.log.Debugf("Sent packet %d (%d bytes)", frame.Sequence, len(p.packet))
	return nil
}

// Close closes the underlying sender.
func (p *UDPPublisher) Close() error {
	return p.sender.Close()
}

var _ transport.Transport = (*UDPPublisher)(nil)
