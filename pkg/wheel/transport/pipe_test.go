package transport

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := NewPipePair(10 * time.Millisecond)
	require.NoError(t, a.Open())

	n, err := a.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	buf := make([]byte, 8)
	n, err = b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestPipeReadTimeout(t *testing.T) {
	a, _ := NewPipePair(10 * time.Millisecond)
	start := time.Now()
	n, err := a.Read(make([]byte, 4))
	require.NoError(t, err)
	require.Zero(t, n)
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestPipePartialRead(t *testing.T) {
	a, b := NewPipePair(10 * time.Millisecond)
	_, err := a.Write([]byte{1, 2, 3, 4, 5})
	require.NoError(t, err)

	buf := make([]byte, 2)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, buf[:n])
	// leftover bytes of the chunk served by the next read
	n, err = b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{3, 4}, buf[:n])
}

func TestPipePeerClose(t *testing.T) {
	a, b := NewPipePair(10 * time.Millisecond)
	_, err := a.Write([]byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// Bytes in flight before the close are still delivered.
	buf := make([]byte, 4)
	n, err := b.Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, buf[:n])

	// Afterwards reads report the hangup instead of timing out forever.
	_, err = b.Read(buf)
	require.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestPipeClose(t *testing.T) {
	a, b := NewPipePair(10 * time.Millisecond)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err := a.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.ErrClosedPipe)
	_, err = b.Write([]byte{1})
	require.ErrorIs(t, err, io.ErrClosedPipe)
}
