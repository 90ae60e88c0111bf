package rtc

import (
	"fmt"

	"rtcsync/internal/i2c"
)

// Minimal PCF8523 driver.
//
// Supports raw register-addressed writes (the clock-set transaction) and
// reading back seconds/minutes/hours for diagnostics.

const (
	addrDefault = 0x68

	regControl1 = 0x00

	RegSeconds = 0x03
	RegMinutes = 0x04
	RegHours   = 0x05

	// Seconds register bit 7: oscillator stopped, clock integrity not guaranteed.
	secondsOS = 0x80
)

type Device struct {
	dev regIO
}

type regIO interface {
	Write(p []byte) error
	ReadReg(reg byte, dst []byte) error
}

// Clock is the decoded time-of-day registers.
type Clock struct {
	Hours   int
	Minutes int
	Seconds int

	OscillatorStopped bool
}

func (c Clock) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", c.Hours, c.Minutes, c.Seconds)
	if c.OscillatorStopped {
		s += " (OS)"
	}
	return s
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("rtc: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("rtc: dev is nil")
	}
	d := &Device{dev: dev}

	// Probe: any successful register read means something ACKs at the address.
	var ctl [1]byte
	if err := d.dev.ReadReg(regControl1, ctl[:]); err != nil {
		return nil, fmt.Errorf("rtc: probe failed: %w", err)
	}
	return d, nil
}

// Write sends one register-addressed transaction: tx[0] is the register,
// the rest is data written to consecutive registers.
func (d *Device) Write(tx []byte) error {
	if len(tx) < 2 {
		return fmt.Errorf("rtc: transaction too short (%d bytes)", len(tx))
	}
	if err := d.dev.Write(tx); err != nil {
		return fmt.Errorf("rtc: write reg 0x%02X: %w", tx[0], err)
	}
	return nil
}

// ReadClock reads the seconds, minutes and hours registers (24h mode).
func (d *Device) ReadClock() (Clock, error) {
	var buf [3]byte
	if err := d.dev.ReadReg(RegSeconds, buf[:]); err != nil {
		return Clock{}, fmt.Errorf("rtc: read clock failed: %w", err)
	}
	return Clock{
		Seconds:           fromBCD(buf[0] &^ secondsOS),
		Minutes:           fromBCD(buf[1] & 0x7F),
		Hours:             fromBCD(buf[2] & 0x3F),
		OscillatorStopped: buf[0]&secondsOS != 0,
	}, nil
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}
