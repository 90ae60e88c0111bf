// Package replay feeds a recorded NMEA capture through the bridge as if it
// were arriving on the serial line.
package replay

import (
	"io"
	"time"
)

var sleep = time.Sleep

// chunk is the most bytes handed out per Read, so the classifier sees the
// stream in roughly the same small batches a UART driver delivers.
const chunk = 16

// PacedReader throttles r to the byte rate of a serial line at baud (10 bits
// per byte on 8N1). baud <= 0 disables throttling.
type PacedReader struct {
	r    io.Reader
	baud int
}

func NewPacedReader(r io.Reader, baud int) *PacedReader {
	return &PacedReader{r: r, baud: baud}
}

func (p *PacedReader) Read(b []byte) (int, error) {
	if len(b) > chunk {
		b = b[:chunk]
	}
	n, err := p.r.Read(b)
	if n > 0 && p.baud > 0 {
		sleep(ByteTime(p.baud) * time.Duration(n))
	}
	return n, err
}

// ByteTime is how long one 8N1 byte occupies the line at baud.
func ByteTime(baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	return time.Second * 10 / time.Duration(baud)
}
