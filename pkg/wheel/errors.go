package wheel

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull indicates the command queue is at capacity. The command
	// was not enqueued; callers may retry.
	ErrQueueFull = errors.New("command queue full")
	// ErrNotConnected indicates the transport is not open.
	ErrNotConnected = errors.New("not connected")
)

// OutOfRangeError indicates an actuation value outside its legal band.
// The value is rejected before any frame is built or enqueued.
type OutOfRangeError struct {
	Kind  CommandKind
	Value float32
	Min   float32
	Max   float32
}

// Error implements error.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s value %g out of range [%g, %g]", e.Kind, e.Value, e.Min, e.Max)
}

// ChecksumError indicates a frame failed its integrity check. The frame is
// discarded and decoding resumes; it is never fatal.
type ChecksumError struct {
	Want byte
	Got  byte
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: frame carries %02X, computed %02X", e.Got, e.Want)
}

// ConnectionError wraps a transport open failure.
type ConnectionError struct {
	Port string
	Err  error
}

// Error implements error.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Port, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}
