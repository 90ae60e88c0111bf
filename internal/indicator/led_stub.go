//go:build !linux

package indicator

import "fmt"

// Stub implementation for non-Linux platforms.
func openGPIO(chip string, pin int) (LED, error) {
	return nil, fmt.Errorf("indicator: gpio unsupported on this platform")
}

var openFn = openGPIO
