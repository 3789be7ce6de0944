package export

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/flywheel.go/pkg/wheel"
)

func TestWriteArchive(t *testing.T) {
	records := []wheel.Record{
		{ControlTarget: 100, SpeedFeedback: 99.5, Temperature: -4},
		{ControlTarget: -30, MotorStatus: 1},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteArchive(&buf, records))

	var decoded []wheel.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, records, decoded)
}

func TestFeedDropsWhenFull(t *testing.T) {
	feed, cb := NewFeed(1)
	cb(wheel.Record{MotorStatus: 1}, wheel.Record{})
	cb(wheel.Record{MotorStatus: 2}, wheel.Record{}) // dropped, no stall
	rec := <-feed
	require.Equal(t, byte(1), rec.MotorStatus)
	require.Empty(t, feed)
}

func TestUDPForwarder(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	feed, cb := NewFeed(4)
	fwd := NewUDPForwarder(conn.LocalAddr().String(), feed)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		fwd.Run(ctx)
		close(done)
	}()

	cb(wheel.Record{ControlTarget: 123}, wheel.Record{})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 4096)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	var rec wheel.Record
	require.NoError(t, json.Unmarshal(buf[:n], &rec))
	require.Equal(t, float32(123), rec.ControlTarget)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop")
	}
}
