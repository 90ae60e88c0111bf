package transmit

import (
	"context"
	"fmt"
	"io"
	"sync"

	"rtcsync/internal/gps"
)

// Terminator follows the time field on the monitor line.
const Terminator = "\r\n\n"

const echoLen = gps.TimeCapacity + len(Terminator)

// Echo streams the full time buffer plus Terminator, one byte per
// transmit-ready event, then disarms itself.
//
// Arm and Next may be called from different goroutines.
type Echo struct {
	mu      sync.Mutex
	buf     [echoLen]byte
	cursor  int
	armed   bool
	runs    uint64
	dropped uint64

	ready chan struct{}
	// idle is closed whenever no run is in flight.
	idle chan struct{}
}

func NewEcho() *Echo {
	idle := make(chan struct{})
	close(idle)
	return &Echo{ready: make(chan struct{}, 1), idle: idle}
}

// Arm snapshots rec's time buffer and rewinds the cursor. While a run is in
// flight the new record is dropped and Arm returns false; the in-flight run
// keeps its cursor and content.
func (e *Echo) Arm(rec gps.Record) bool {
	e.mu.Lock()
	if e.armed {
		e.dropped++
		e.mu.Unlock()
		return false
	}
	copy(e.buf[:gps.TimeCapacity], rec.Time[:])
	copy(e.buf[gps.TimeCapacity:], Terminator)
	e.cursor = 0
	e.armed = true
	e.idle = make(chan struct{})
	e.runs++
	e.mu.Unlock()

	select {
	case e.ready <- struct{}{}:
	default:
	}
	return true
}

// Next returns the byte for the current transmit-ready event. ok is false
// when the transmitter is disarmed.
func (e *Echo) Next() (b byte, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.armed {
		return 0, false
	}
	b = e.buf[e.cursor]
	e.cursor++
	if e.cursor == len(e.buf) {
		e.disarm()
	}
	return b, true
}

// disarm requires e.mu.
func (e *Echo) disarm() {
	if !e.armed {
		return
	}
	e.armed = false
	close(e.idle)
}

func (e *Echo) Armed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.armed
}

// Ready fires after each successful Arm.
func (e *Echo) Ready() <-chan struct{} { return e.ready }

// Idle returns a channel that is closed once the current run, if any, has
// finished or been abandoned.
func (e *Echo) Idle() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idle
}

func (e *Echo) Runs() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

// Dropped counts Arm calls refused because a run was in flight.
func (e *Echo) Dropped() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

func (e *Echo) abort() {
	e.mu.Lock()
	e.disarm()
	e.mu.Unlock()
}

// Pump writes the armed run to w with one Write call per byte; the return of
// each Write is the next ready event. A write error abandons the run so the
// next Arm is accepted.
func (e *Echo) Pump(ctx context.Context, w io.Writer) error {
	var one [1]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, ok := e.Next()
		if !ok {
			return nil
		}
		one[0] = b
		if _, err := w.Write(one[:]); err != nil {
			e.abort()
			return fmt.Errorf("echo write: %w", err)
		}
	}
}
