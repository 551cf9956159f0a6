// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"visualizer/internal/analysis"
	"visualizer/internal/processor"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource labels frames with the device active when they were pushed.
type fakeSource struct {
	mu     sync.Mutex
	rate   uint32
	device string
	frames []processor.Snapshot
}

func newFakeSource() *fakeSource {
	return &fakeSource{rate: 1024, device: "Mic"}
}

func (s *fakeSource) push(f analysis.SpectralFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, processor.Snapshot{Frame: f, SampleRate: s.rate, Device: s.device})
}

func (s *fakeSource) switchTo(device string, rate uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device, s.rate = device, rate
}

func (s *fakeSource) PollLatest() (processor.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return processor.Snapshot{}, false
	}
	f := s.frames[len(s.frames)-1]
	s.frames = nil
	return f, true
}

type recordingTransport struct {
	mu     sync.Mutex
	name   string
	frames []Frame
	err    error
	closed bool
}

func (r *recordingTransport) Name() string { return r.name }

func (r *recordingTransport) Send(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestPumpTick(t *testing.T) {
	src := newFakeSource()
	good := &recordingTransport{name: "good"}
	bad := &recordingTransport{name: "bad", err: errors.New("unreachable")}
	p := NewPump(src, time.Millisecond, nil, bad, good)

	assert.False(t, p.Tick())

	// 4 bins at 1024 Hz: bin 2 is 256 Hz.
	src.push(analysis.SpectralFrame{0, 1, 2, 0})
	src.push(analysis.SpectralFrame{9, 1, 5, 0})
	require.True(t, p.Tick())

	require.Len(t, good.frames, 1)
	f := good.frames[0]
	assert.Equal(t, uint32(1), f.Sequence)
	assert.Equal(t, uint32(1024), f.SampleRate)
	assert.Equal(t, "Mic", f.Device)
	assert.Equal(t, 256.0, f.PeakHz)
	assert.Equal(t, []float32{9, 1, 5, 0}, f.Magnitudes)
	assert.True(t, f.Onset)
	assert.Len(t, f.Bands, len(analysis.DefaultBands))
	assert.InDelta(t, 1, f.Bands["bass"], 1e-6)
	assert.InDelta(t, math.Sqrt(12.5), f.Bands["lowMid"], 1e-6)
	assert.Zero(t, f.Bands["sub"])
}

func TestPumpLabelsFrameWithItsOwnStream(t *testing.T) {
	src := newFakeSource()
	rec := &recordingTransport{name: "rec"}
	p := NewPump(src, time.Millisecond, nil, rec)

	src.push(analysis.SpectralFrame{0, 1, 2, 0})
	src.switchTo("Headset", 16000)
	require.True(t, p.Tick())

	require.Len(t, rec.frames, 1)
	assert.Equal(t, "Mic", rec.frames[0].Device)
	assert.Equal(t, uint32(1024), rec.frames[0].SampleRate)
	assert.Equal(t, 256.0, rec.frames[0].PeakHz)
}

func TestPumpRunClosesTransports(t *testing.T) {
	src := newFakeSource()
	rec := &recordingTransport{name: "rec"}
	p := NewPump(src, time.Millisecond, nil, rec, NewLoggingTransport(1))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	src.push(analysis.SpectralFrame{0, 1})
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.True(t, rec.closed)
}

func TestWebSocketBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)
	defer wst.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return wst.Clients() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, wst.Send(Frame{Sequence: 3, SampleRate: 48000, Magnitudes: []float32{1.5}}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got Frame
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, uint32(3), got.Sequence)
	assert.Equal(t, []float32{1.5}, got.Magnitudes)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return wst.Clients() == 0 }, time.Second, time.Millisecond)
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close())
	assert.Error(t, wst.Send(Frame{}))
}
