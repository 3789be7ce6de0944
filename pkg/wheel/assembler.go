package wheel

import "bytes"

var marker = []byte{Marker0, Marker1}

// Assembler reassembles frames out of an arbitrarily chunked byte stream.
// It owns a rolling buffer and is not safe for concurrent use; the decoder
// loop is its only caller.
type Assembler struct {
	buf []byte
}

// Feed appends one raw chunk and returns every length-complete candidate
// frame now extractable, in stream order. Returned frames are copies;
// checksum validation is the caller's concern.
//
// A chunk whose first byte equals the marker's first byte clears any
// buffered partial frame before appending. This treats such a chunk as
// evidence of a fresh frame boundary and bounds desync recovery time, at
// the cost of discarding a legitimate partial frame whose continuation
// happens to start with 0xEB. Known, documented policy.
func (a *Assembler) Feed(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}
	if chunk[0] == Marker0 {
		a.buf = a.buf[:0]
	}
	a.buf = append(a.buf, chunk...)

	var frames [][]byte
	for {
		frame := a.next()
		if frame == nil {
			return frames
		}
		frames = append(frames, frame)
	}
}

// next extracts one candidate frame from the buffer, or returns nil when
// the buffer holds no marker yet, or an in-progress frame whose length is
// not yet determinable or not yet fully received.
func (a *Assembler) next() []byte {
	start := bytes.Index(a.buf, marker)
	if start < 0 {
		return nil
	}
	if start > 0 {
		a.buf = append(a.buf[:0], a.buf[start:]...)
	}
	if len(a.buf) < 3 {
		return nil
	}
	want := CommandFrameLen
	if a.buf[2] == codePoll {
		want = TelemetryFrameLen
	}
	if len(a.buf) < want {
		return nil
	}
	frame := make([]byte, want)
	copy(frame, a.buf[:want])
	a.buf = append(a.buf[:0], a.buf[want:]...)
	return frame
}

// Pending reports how many bytes are buffered awaiting more data.
func (a *Assembler) Pending() int {
	return len(a.buf)
}
