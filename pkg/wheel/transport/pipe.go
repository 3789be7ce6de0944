package transport

import (
	"io"
	"sync"
	"time"
)

// Pipe is an in-memory Transport. Two cross-connected ends behave like a
// serial link with a finite read timeout, which makes it useful for tests
// and mock devices. Each end expects a single reader goroutine.
type Pipe struct {
	timeout time.Duration
	in      chan []byte
	peer    *Pipe
	pending []byte
	closed  chan struct{}
	once    sync.Once
}

// NewPipePair creates two connected pipe ends: bytes written to one are
// read from the other. timeout bounds each Read.
func NewPipePair(timeout time.Duration) (*Pipe, *Pipe) {
	if timeout <= 0 {
		timeout = 10 * time.Millisecond
	}
	a := &Pipe{timeout: timeout, in: make(chan []byte, 256), closed: make(chan struct{})}
	b := &Pipe{timeout: timeout, in: make(chan []byte, 256), closed: make(chan struct{})}
	a.peer, b.peer = b, a
	return a, b
}

// Open implements Transport.
func (p *Pipe) Open() error {
	return nil
}

// Read implements Transport. It drains buffered bytes first, then waits up
// to the timeout for the next chunk from the peer.
func (p *Pipe) Read(buf []byte) (int, error) {
	if len(p.pending) > 0 {
		n := copy(buf, p.pending)
		p.pending = p.pending[n:]
		return n, nil
	}
	// Chunks delivered before the peer closed are still served.
	select {
	case chunk := <-p.in:
		n := copy(buf, chunk)
		p.pending = chunk[n:]
		return n, nil
	default:
	}
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case chunk := <-p.in:
		n := copy(buf, chunk)
		p.pending = chunk[n:]
		return n, nil
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-p.peer.closed:
		return 0, io.ErrClosedPipe
	case <-timer.C:
		return 0, nil
	}
}

// Write implements Transport, delivering one chunk to the peer.
func (p *Pipe) Write(buf []byte) (int, error) {
	chunk := make([]byte, len(buf))
	copy(chunk, buf)
	// Check for closed ends first: the buffered send below could otherwise
	// win the select against an already-closed channel.
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-p.peer.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-p.peer.closed:
		return 0, io.ErrClosedPipe
	case p.peer.in <- chunk:
		return len(buf), nil
	}
}

// Close implements Transport.
func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}
