package wheel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCommandQueueFIFO(t *testing.T) {
	q := NewCommandQueue(4)
	first := mustEncode(t, Speed, 1)
	second := mustEncode(t, Speed, 2)
	require.NoError(t, q.Enqueue(first))
	require.NoError(t, q.Enqueue(second))

	frame, ok := q.Dequeue(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, first, frame)
	frame, ok = q.Dequeue(time.Millisecond)
	require.True(t, ok)
	require.Equal(t, second, frame)
}

func TestCommandQueueFull(t *testing.T) {
	q := NewCommandQueue(2)
	frame := mustEncode(t, Poll, 0)
	require.NoError(t, q.Enqueue(frame))
	require.NoError(t, q.Enqueue(frame))
	require.ErrorIs(t, q.Enqueue(frame), ErrQueueFull)

	_, ok := q.Dequeue(time.Millisecond)
	require.True(t, ok)
	// one dequeue frees one slot
	require.NoError(t, q.Enqueue(frame))
	require.Equal(t, 2, q.Len())
}

func TestCommandQueueDequeueTimeout(t *testing.T) {
	q := NewCommandQueue(1)
	start := time.Now()
	frame, ok := q.Dequeue(20 * time.Millisecond)
	require.False(t, ok)
	require.Nil(t, frame)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
