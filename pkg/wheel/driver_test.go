package wheel

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/flywheel.go/pkg/wheel/transport"
)

// mockDevice consumes command frames from its pipe end and answers set
// commands with an echoed acknowledgment plus a telemetry frame carrying
// the setpoint, and polls with a telemetry frame.
type mockDevice struct {
	tr *transport.Pipe

	mu     sync.Mutex
	target float32
	frames [][]byte
}

func startMockDevice(tr *transport.Pipe) *mockDevice {
	d := &mockDevice{tr: tr}
	go d.run()
	return d
}

func (d *mockDevice) run() {
	// Command frames are always exactly 8 bytes, so the device side frames
	// the stream by fixed length. (The host-side Assembler cannot be reused
	// here: it reads the poll code 0xDD at offset 2 as a 32-byte telemetry
	// frame and would buffer an 8-byte poll command forever.)
	var pending []byte
	buf := make([]byte, 64)
	for {
		n, err := d.tr.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		pending = append(pending, buf[:n]...)
		for len(pending) >= CommandFrameLen {
			d.handle(pending[:CommandFrameLen:CommandFrameLen])
			pending = append(pending[:0:0], pending[CommandFrameLen:]...)
		}
	}
}

func (d *mockDevice) handle(frame []byte) {
	d.mu.Lock()
	d.frames = append(d.frames, frame)
	d.mu.Unlock()
	switch frame[2] {
	case codeSpeed, codeTorque, codeCurrent:
		d.mu.Lock()
		d.target = math.Float32frombits(binary.BigEndian.Uint32(frame[3:7]))
		target := d.target
		d.mu.Unlock()
		d.tr.Write(frame) // acknowledgment echo
		d.tr.Write(makeTelemetryFrame(frame[2], target, target, 0, 0))
	case codePoll:
		d.mu.Lock()
		target := d.target
		d.mu.Unlock()
		d.tr.Write(makeTelemetryFrame(codePoll, target, target, 0, 0))
	}
}

func (d *mockDevice) received() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

func testConfig() Config {
	conf := DefaultConfig()
	conf.Port = "pipe"
	conf.CommFrequency = 500
	conf.QueueSize = 32
	conf.TelemetrySize = 16
	return conf
}

func TestDriverEndToEnd(t *testing.T) {
	host, dev := transport.NewPipePair(5 * time.Millisecond)
	startMockDevice(dev)

	drv := New(testConfig(), host)
	pairCh := make(chan [2]Record, 16)
	drv.OnTelemetry(func(cur, prev Record) {
		pairCh <- [2]Record{cur, prev}
	})
	require.NoError(t, drv.Connect())
	drv.Start()
	defer drv.Disconnect()

	require.NoError(t, drv.SetSpeed(100))

	var first [2]Record
	select {
	case first = <-pairCh:
	case <-time.After(2 * time.Second):
		t.Fatal("no telemetry received")
	}
	require.Equal(t, float32(100), first[0].ControlTarget)
	// the first record pairs with itself
	require.Equal(t, first[0], first[1])

	require.NoError(t, drv.PollStatus())
	var second [2]Record
	select {
	case second = <-pairCh:
	case <-time.After(2 * time.Second):
		t.Fatal("no telemetry for poll")
	}
	require.Equal(t, first[0], second[1])

	last, ok := drv.LastTelemetry()
	require.True(t, ok)
	require.Equal(t, float32(100), last.ControlTarget)
	require.NotEmpty(t, drv.Telemetry())
}

func TestDriverStopHaltsWrites(t *testing.T) {
	host, dev := transport.NewPipePair(5 * time.Millisecond)
	drv := New(testConfig(), host)
	require.NoError(t, drv.Connect())
	drv.Start()
	drv.Stop()

	// commands queued after stop must never reach the transport
	require.NoError(t, drv.SetSpeed(50))
	buf := make([]byte, 64)
	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		n, err := dev.Read(buf)
		require.NoError(t, err)
		require.Zero(t, n, "write observed after Stop returned")
	}
	drv.Disconnect()
}

func TestDriverOutOfRangeNoEnqueue(t *testing.T) {
	host, _ := transport.NewPipePair(5 * time.Millisecond)
	drv := New(testConfig(), host)

	var rangeErr *OutOfRangeError
	require.ErrorAs(t, drv.SetSpeed(9000), &rangeErr)
	require.ErrorAs(t, drv.SetTorque(-51), &rangeErr)
	require.ErrorAs(t, drv.SetCurrent(1500.5), &rangeErr)
	require.Zero(t, drv.cmdQueue.Len())
}

func TestDriverQueueFull(t *testing.T) {
	host, _ := transport.NewPipePair(5 * time.Millisecond)
	conf := testConfig()
	conf.QueueSize = 1
	drv := New(conf, host)

	require.NoError(t, drv.SetSpeed(1))
	require.ErrorIs(t, drv.SetSpeed(2), ErrQueueFull)
}

func TestDriverPollRequiresConnection(t *testing.T) {
	host, _ := transport.NewPipePair(5 * time.Millisecond)
	drv := New(testConfig(), host)
	require.ErrorIs(t, drv.PollStatus(), ErrNotConnected)
}

func TestDriverConnectIdempotent(t *testing.T) {
	host, _ := transport.NewPipePair(5 * time.Millisecond)
	drv := New(testConfig(), host)
	require.NoError(t, drv.Connect())
	require.NoError(t, drv.Connect())
	require.True(t, drv.IsConnected())
	drv.Disconnect()
	drv.Disconnect()
	require.False(t, drv.IsConnected())
}

type failingTransport struct{ err error }

func (f *failingTransport) Open() error                { return f.err }
func (f *failingTransport) Read(p []byte) (int, error) { return 0, f.err }
func (f *failingTransport) Write(p []byte) (int, error) {
	return 0, f.err
}
func (f *failingTransport) Close() error { return nil }

func TestDriverConnectError(t *testing.T) {
	cause := errors.New("no such port")
	drv := New(testConfig(), &failingTransport{err: cause})
	err := drv.Connect()
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	require.ErrorIs(t, err, cause)
	require.False(t, drv.IsConnected())
}

func TestDriverHandleFramePairing(t *testing.T) {
	host, _ := transport.NewPipePair(5 * time.Millisecond)
	drv := New(testConfig(), host)
	var pairs [][2]Record
	drv.OnTelemetry(func(cur, prev Record) {
		pairs = append(pairs, [2]Record{cur, prev})
	})

	drv.handleFrame(makeTelemetryFrame(codeSpeed, 1, 1, 0, 0))
	drv.handleFrame(makeTelemetryFrame(codeSpeed, 2, 2, 0, 0))
	require.Len(t, pairs, 2)
	require.Equal(t, pairs[0][0], pairs[0][1])
	require.Equal(t, pairs[0][0], pairs[1][1])
	require.Equal(t, float32(2), pairs[1][0].ControlTarget)
}

func TestDriverHandleFrameDiscardsBadChecksum(t *testing.T) {
	host, _ := transport.NewPipePair(5 * time.Millisecond)
	drv := New(testConfig(), host)

	frame := makeTelemetryFrame(codeSpeed, 1, 1, 0, 0)
	frame[31] ^= 0xFF
	drv.handleFrame(frame)
	require.Zero(t, drv.ring.Len())
}

func TestDriverExportJSON(t *testing.T) {
	host, _ := transport.NewPipePair(5 * time.Millisecond)
	drv := New(testConfig(), host)
	drv.handleFrame(makeTelemetryFrame(codeSpeed, 42, 41.5, 0, 0))

	var buf bytes.Buffer
	require.NoError(t, drv.ExportJSON(&buf))
	var records []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 1)
	require.Equal(t, float32(42), records[0].ControlTarget)
}
