package wheel

import (
	"encoding/binary"
	"math"
)

// Frame marker and per-kind command codes on the wire.
const (
	Marker0 byte = 0xEB
	Marker1 byte = 0x90

	codeCurrent byte = 0xD1
	codeSpeed   byte = 0xD2
	codeTorque  byte = 0xD3
	codePoll    byte = 0xDD
)

// Frame lengths. Telemetry frames are identified by the discriminator byte
// codePoll at offset 2; everything else is an 8-byte acknowledgment.
const (
	CommandFrameLen   = 8
	TelemetryFrameLen = 32
)

// CommandKind identifies one of the wheel's command frames.
type CommandKind int

// Command kinds.
const (
	Speed CommandKind = iota
	Torque
	Current
	Poll
)

// String implements fmt.Stringer.
func (k CommandKind) String() string {
	switch k {
	case Speed:
		return "speed"
	case Torque:
		return "torque"
	case Current:
		return "current"
	case Poll:
		return "poll"
	}
	return "unknown"
}

// Legal actuation ranges, device units.
const (
	SpeedMax   float32 = 6050 // RPM
	TorqueMax  float32 = 50   // mN.m
	CurrentMax float32 = 1500 // mA
)

func (k CommandKind) code() byte {
	switch k {
	case Speed:
		return codeSpeed
	case Torque:
		return codeTorque
	case Current:
		return codeCurrent
	}
	return codePoll
}

func (k CommandKind) limit() float32 {
	switch k {
	case Speed:
		return SpeedMax
	case Torque:
		return TorqueMax
	}
	return CurrentMax
}

// pollFrame is the fixed poll command. The payload is all zero, so the
// checksum equals the code byte.
var pollFrame = []byte{Marker0, Marker1, codePoll, 0x00, 0x00, 0x00, 0x00, codePoll}

// Checksum computes the wire checksum: the sum of the given bytes mod 256.
// Frames apply it from the command-code byte through the last payload byte.
func Checksum(p []byte) byte {
	var sum byte
	for _, b := range p {
		sum += b
	}
	return sum
}

// EncodeCommand builds the 8-byte command frame for kind. value is the
// setpoint in device units and must be within the kind's legal range;
// otherwise *OutOfRangeError is returned and nothing is built. Poll ignores
// value and yields the fixed poll frame.
func EncodeCommand(kind CommandKind, value float32) ([]byte, error) {
	if kind == Poll {
		frame := make([]byte, CommandFrameLen)
		copy(frame, pollFrame)
		return frame, nil
	}
	if lim := kind.limit(); value < -lim || value > lim {
		return nil, &OutOfRangeError{Kind: kind, Value: value, Min: -lim, Max: lim}
	}
	frame := make([]byte, CommandFrameLen)
	frame[0], frame[1], frame[2] = Marker0, Marker1, kind.code()
	binary.BigEndian.PutUint32(frame[3:7], math.Float32bits(value))
	frame[7] = Checksum(frame[2:7])
	return frame, nil
}
