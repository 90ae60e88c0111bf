package transmit

import (
	"fmt"
	"strings"

	"rtcsync/internal/gps"
)

// Encoding selects how two ASCII digits become one register byte.
type Encoding int

const (
	// EncodingDecimal sends the binary value of the digits: "35" -> 35 (0x23).
	EncodingDecimal Encoding = iota
	// EncodingBCD packs the digits into nibbles: "35" -> 0x35. This is the
	// PCF8523 seconds/minutes register format.
	EncodingBCD
)

func (e Encoding) String() string {
	switch e {
	case EncodingDecimal:
		return "decimal"
	case EncodingBCD:
		return "bcd"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "decimal":
		return EncodingDecimal, nil
	case "bcd":
		return EncodingBCD, nil
	default:
		return 0, fmt.Errorf("transmit: unknown encoding %q", s)
	}
}

// Encode converts an ASCII tens/ones pair. Non-digit input is not rejected;
// the byte arithmetic wraps, so the same input always yields the same byte.
func (e Encoding) Encode(tens, ones byte) byte {
	t := tens - '0'
	o := ones - '0'
	if e == EncodingBCD {
		return t<<4 | o&0x0F
	}
	return t*10 + o
}

// Time buffer offsets of the digits sent to the RTC (hhmmss...).
const (
	minutesTens = 2
	minutesOnes = 3
	secondsTens = 4
	secondsOnes = 5
)

// TxLen is the length of one clock-set bus transaction.
const TxLen = 3

// ClockSet emits {register, seconds, minutes}, one byte per bus-ready event.
// After the third byte the cursor wraps to 0 without re-arming.
//
// ClockSet is owned by the control loop goroutine.
type ClockSet struct {
	register byte
	enc      Encoding

	// snapshot of time[2:6] taken at bus-start.
	digits [4]byte
	cursor int
}

func NewClockSet(register byte, enc Encoding) *ClockSet {
	return &ClockSet{register: register, enc: enc}
}

// Start is the bus-start: it snapshots the digits from rec and rewinds.
func (c *ClockSet) Start(rec gps.Record) {
	copy(c.digits[:], rec.Time[minutesTens:secondsOnes+1])
	c.cursor = 0
}

// Next returns the byte for the current bus-ready event.
func (c *ClockSet) Next() byte {
	var b byte
	switch c.cursor {
	case 0:
		b = c.register
	case 1:
		b = c.enc.Encode(c.digits[secondsTens-minutesTens], c.digits[secondsOnes-minutesTens])
	default:
		b = c.enc.Encode(c.digits[0], c.digits[minutesOnes-minutesTens])
	}
	c.cursor = (c.cursor + 1) % TxLen
	return b
}

// Transaction runs one bus-start and collects the three bytes.
func (c *ClockSet) Transaction(rec gps.Record) [TxLen]byte {
	var tx [TxLen]byte
	c.Start(rec)
	for i := range tx {
		tx[i] = c.Next()
	}
	return tx
}

func (c *ClockSet) Encoding() Encoding { return c.enc }
