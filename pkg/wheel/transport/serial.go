package transport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialConfig configures a serial port link. The wheel speaks 8N1.
type SerialConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Serial implements Transport over a hardware serial port.
type Serial struct {
	conf SerialConfig
	port serial.Port
}

var errPortNotOpen = errors.New("serial port not open")

// NewSerial creates an unopened serial transport.
func NewSerial(conf SerialConfig) *Serial {
	if conf.BaudRate == 0 {
		conf.BaudRate = 115200
	}
	if conf.ReadTimeout == 0 {
		conf.ReadTimeout = time.Second
	}
	return &Serial{conf: conf}
}

// Open implements Transport.
func (s *Serial) Open() error {
	if s.port != nil {
		return fmt.Errorf("serial port %s already open", s.conf.Port)
	}
	if s.conf.Port == "" {
		return errors.New("serial port name required")
	}
	mode := &serial.Mode{
		BaudRate: s.conf.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.conf.Port, mode)
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(s.conf.ReadTimeout); err != nil {
		port.Close()
		return err
	}
	port.ResetInputBuffer()
	s.port = port
	return nil
}

// Read implements Transport. A timed-out read returns 0, nil.
func (s *Serial) Read(p []byte) (int, error) {
	if s.port == nil {
		return 0, errPortNotOpen
	}
	return s.port.Read(p)
}

// Write implements Transport.
func (s *Serial) Write(p []byte) (int, error) {
	if s.port == nil {
		return 0, errPortNotOpen
	}
	return s.port.Write(p)
}

// Close implements Transport.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
