package serial

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// RealSink forwards drained bytes to a physical serial port or PTY.
type RealSink struct {
	port   serial.Port
	config SinkConfig
	isOpen bool
}

// Open opens a serial device with the given configuration.
func Open(config SinkConfig) (*RealSink, error) {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: convertStopBits(config.StopBits),
		Parity:   convertParity(config.Parity),
	}

	port, err := serial.Open(config.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", config.Device, err)
	}

	if err := port.SetReadTimeout(time.Second * 5); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &RealSink{
		port:   port,
		config: config,
		isOpen: true,
	}, nil
}

// Write writes data to the serial port.
func (s *RealSink) Write(data []byte) (int, error) {
	if !s.isOpen {
		return 0, fmt.Errorf("sink is closed")
	}
	return s.port.Write(data)
}

// Close closes the serial port.
func (s *RealSink) Close() error {
	if !s.isOpen {
		return nil
	}
	s.isOpen = false
	return s.port.Close()
}

// Flush waits until all output has been transmitted.
func (s *RealSink) Flush() error {
	if !s.isOpen {
		return fmt.Errorf("sink is closed")
	}
	return s.port.Drain()
}

// Device returns the device path.
func (s *RealSink) Device() string {
	return s.config.Device
}

// IsOpen returns true if the sink is currently open.
func (s *RealSink) IsOpen() bool {
	return s.isOpen
}

// ListPorts returns a list of available serial ports on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

func convertStopBits(bits int) serial.StopBits {
	switch bits {
	case 2:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}

func convertParity(parity string) serial.Parity {
	switch parity {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	case "mark":
		return serial.MarkParity
	case "space":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}
