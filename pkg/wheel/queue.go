package wheel

import "time"

// CommandQueue is a bounded FIFO of outbound command frames, shared between
// the actuation calls and the writer loop. Safe for concurrent use.
type CommandQueue struct {
	ch chan []byte
}

// NewCommandQueue creates a queue with the given capacity.
func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &CommandQueue{ch: make(chan []byte, capacity)}
}

// Enqueue adds a frame without blocking. At capacity it fails with
// ErrQueueFull; the frame is not enqueued and the caller may retry.
func (q *CommandQueue) Enqueue(frame []byte) error {
	select {
	case q.ch <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue waits up to timeout for the next frame. ok is false when the
// timeout elapses with the queue empty.
func (q *CommandQueue) Dequeue(timeout time.Duration) (frame []byte, ok bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case frame = <-q.ch:
		return frame, true
	case <-timer.C:
		return nil, false
	}
}

// Len reports the number of queued frames.
func (q *CommandQueue) Len() int {
	return len(q.ch)
}

// Cap reports the queue capacity.
func (q *CommandQueue) Cap() int {
	return cap(q.ch)
}
