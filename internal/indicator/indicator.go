// Package indicator drives the activity LEDs: one toggles per received byte
// batch, the other per recognised RMC sentence.
package indicator

// LED is a toggling indicator output.
type LED interface {
	Toggle() error
	Close() error
}

// Nop is an LED that does nothing; used when a pin is not configured.
type Nop struct{}

func (Nop) Toggle() error { return nil }
func (Nop) Close() error  { return nil }

// Open returns the LED on the given line of chip, or Nop when pin is 0.
func Open(chip string, pin int) (LED, error) {
	if pin == 0 {
		return Nop{}, nil
	}
	return openFn(chip, pin)
}
