// Package uart opens the GPS and monitor serial lines.
package uart

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"go.bug.st/serial"
)

// Port is an opened serial line.
type Port interface {
	io.ReadWriteCloser
}

var openPort = func(device string, mode *serial.Mode) (Port, error) {
	return serial.Open(device, mode)
}

var listPorts = serial.GetPortsList

// Open opens device at baud, 8N1, no flow control.
func Open(device string, baud int) (Port, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, fmt.Errorf("uart: device is empty")
	}
	if baud <= 0 {
		return nil, fmt.Errorf("uart: invalid baud %d", baud)
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := openPort(device, mode)
	if err != nil {
		return nil, fmt.Errorf("uart: open %s @ %d: %w", device, baud, err)
	}
	return p, nil
}

// AutoDetect returns the first USB or ACM serial port, which is where USB
// GPS receivers enumerate.
func AutoDetect() (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("uart: list ports: %w", err)
	}
	sort.Strings(ports)
	for _, prefix := range []string{"/dev/ttyACM", "/dev/ttyUSB"} {
		for _, p := range ports {
			if strings.HasPrefix(p, prefix) {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("uart: no /dev/ttyACM* or /dev/ttyUSB* found")
}
