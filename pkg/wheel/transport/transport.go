// Package transport provides point-to-point byte-stream transports for the
// wheel driver.
package transport

// Transport is a point-to-point byte stream. Read performs one bounded
// read: it blocks at most the transport's configured read timeout and
// returns n == 0 with a nil error when no bytes arrived in time. The finite
// timeout is what keeps driver shutdown bounded.
type Transport interface {
	// Open establishes the link. Opening an already open transport is an
	// error.
	Open() error
	// Read reads up to len(p) bytes within the read timeout.
	Read(p []byte) (n int, err error)
	// Write writes p, returning the count actually written.
	Write(p []byte) (n int, err error)
	// Close tears the link down. Safe to call multiple times.
	Close() error
}
