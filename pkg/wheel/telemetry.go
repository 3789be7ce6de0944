package wheel

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Record is an immutable telemetry snapshot decoded from one 32-byte frame.
// Numeric fields are in device units (RPM, mA, degrees C). Counters are
// 8-bit and wrap at 256. MotorStatus is an opaque status/fault bitfield.
type Record struct {
	Timestamp time.Time `json:"timestamp"`

	Header      [3]byte `json:"header"`
	LastCommand byte    `json:"last_command"`

	ControlTarget        float32 `json:"control_target"`
	SpeedFeedback        float32 `json:"speed_feedback"`
	CurrentFeedback      float32 `json:"current_feedback"`
	AccelerationFeedback float32 `json:"acceleration_feedback"`

	CommandResponseCount  uint8 `json:"command_response_count"`
	TelemetryCommandCount uint8 `json:"telemetry_command_count"`
	ErrorCommandCount     uint8 `json:"error_command_count"`

	MotherboardCurrent uint16 `json:"motherboard_current"`
	Temperature        int8   `json:"temperature"`
	MotorStatus        byte   `json:"single_motor_status"`

	Reserved [4]byte `json:"reserved"`
	Checksum byte    `json:"checksum"`
}

// DecodeTelemetry decodes a 32-byte telemetry frame. The checksum is
// recomputed over bytes [2..31) and compared to byte 31; a mismatch yields
// *ChecksumError and the caller discards the frame.
func DecodeTelemetry(frame []byte) (Record, error) {
	if len(frame) != TelemetryFrameLen {
		return Record{}, fmt.Errorf("telemetry frame must be %d bytes, got %d", TelemetryFrameLen, len(frame))
	}
	if sum := Checksum(frame[2:31]); sum != frame[31] {
		return Record{}, &ChecksumError{Want: sum, Got: frame[31]}
	}
	rec := Record{
		Timestamp:   time.Now(),
		LastCommand: frame[3],

		ControlTarget:        math.Float32frombits(binary.BigEndian.Uint32(frame[4:8])),
		SpeedFeedback:        math.Float32frombits(binary.BigEndian.Uint32(frame[8:12])),
		CurrentFeedback:      math.Float32frombits(binary.BigEndian.Uint32(frame[12:16])),
		AccelerationFeedback: math.Float32frombits(binary.BigEndian.Uint32(frame[16:20])),

		CommandResponseCount:  frame[20],
		TelemetryCommandCount: frame[21],
		ErrorCommandCount:     frame[22],

		MotherboardCurrent: binary.BigEndian.Uint16(frame[23:25]),
		Temperature:        int8(frame[25]),
		MotorStatus:        frame[26],

		Checksum: frame[31],
	}
	copy(rec.Header[:], frame[0:3])
	copy(rec.Reserved[:], frame[27:31])
	return rec, nil
}
