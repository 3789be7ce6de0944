// Package wheel implements the serial protocol driver for a reaction-wheel
// actuator.
package wheel

// The wheel protocol is a point-to-point byte stream. The host sends 8-byte
// command frames (speed/torque/current setpoints and status polls) and the
// device answers with 8-byte acknowledgments or 32-byte telemetry frames.
// Every frame starts with the marker EB 90 and ends with a mod-256 checksum
// over the bytes between marker and checksum.
//
// The driver runs four paced loops: a writer draining a bounded command
// queue into the transport, a reader forwarding raw chunks off the
// transport, a decoder resynchronizing frames out of the chunk stream, and
// an optional poller enqueueing periodic status requests. Frame corruption
// is recovered locally by resynchronization and never stops the pipeline.
//
// Producer: wheel device firmware
// Consumer: host-side control code
