//go:build linux

package indicator

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

func openGPIO(chip string, pin int) (LED, error) {
	if pin < 0 {
		return nil, fmt.Errorf("indicator: invalid gpio pin %d", pin)
	}
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("rtcsync-led"))
	if err != nil {
		return nil, fmt.Errorf("indicator: request %s line %d: %w", chip, pin, err)
	}
	return &gpiodLED{line: line}, nil
}

var openFn = openGPIO

type gpiodLED struct {
	mu    sync.Mutex
	line  *gpiocdev.Line
	value int
}

func (l *gpiodLED) Toggle() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.line == nil {
		return fmt.Errorf("indicator: led closed")
	}
	l.value ^= 1
	return l.line.SetValue(l.value)
}

func (l *gpiodLED) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.line == nil {
		return nil
	}
	// Leave the LED off.
	_ = l.line.SetValue(0)
	err := l.line.Close()
	l.line = nil
	return err
}
