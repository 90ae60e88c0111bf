// Package bridge wires the RMC classifier to the echo and clock-set
// transmitters and runs the periodic RTC control loop.
package bridge

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rtcsync/internal/gps"
	"rtcsync/internal/indicator"
	"rtcsync/internal/rtc"
	"rtcsync/internal/transmit"
)

// ErrNoRecord is returned by BusStart before the first RMC sentence completes.
var ErrNoRecord = errors.New("bridge: no completed record yet")

type Config struct {
	Detection gps.Detection
	Register  byte
	Encoding  transmit.Encoding
	Interval  time.Duration
	// Verify reads the RTC back after each write.
	Verify bool
	// Lockstep holds the receiver after each completed record until its echo
	// run has drained. For unpaced sources such as replay files.
	Lockstep bool
}

// RTC accepts one register-addressed transaction per bus-start.
type RTC interface {
	Write(tx []byte) error
}

// ClockReader is optionally implemented by an RTC for Verify.
type ClockReader interface {
	ReadClock() (rtc.Clock, error)
}

type Deps struct {
	GPS     io.Reader
	Monitor io.Writer
	// RTC may be nil: transactions are built and logged but not sent.
	RTC RTC

	RxLED     indicator.LED
	RecordLED indicator.LED
}

type Bridge struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	classifier *gps.Classifier
	latest     gps.Latest
	echo       *transmit.Echo
	clockSet   *transmit.ClockSet

	// clockSet is driven from the control loop and from BusStart callers.
	busMu sync.Mutex

	// echoArmed is set by Arm and consumed by the receiver in lockstep mode.
	echoArmed bool

	lastFix atomic.Pointer[gps.Fix]
	lastTx  atomic.Pointer[[transmit.TxLen]byte]

	rxBytes    atomic.Uint64
	echoRuns   atomic.Uint64
	echoErrors atomic.Uint64
	busStarts  atomic.Uint64
	rtcWrites  atomic.Uint64
	rtcErrors  atomic.Uint64
	lastErr    atomic.Value // string
}

func New(cfg Config, deps Deps, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if deps.RxLED == nil {
		deps.RxLED = indicator.Nop{}
	}
	if deps.RecordLED == nil {
		deps.RecordLED = indicator.Nop{}
	}
	if deps.Monitor == nil {
		deps.Monitor = io.Discard
	}

	b := &Bridge{
		cfg:      cfg,
		deps:     deps,
		log:      log,
		echo:     transmit.NewEcho(),
		clockSet: transmit.NewClockSet(cfg.Register, cfg.Encoding),
	}
	b.classifier = gps.NewClassifier(gps.Options{
		Detection: cfg.Detection,
		OnConfirm: func() { _ = b.deps.RecordLED.Toggle() },
	}, b)
	b.lastErr.Store("")
	return b
}

// Arm is the classifier's completion hook. It runs on the receiver
// goroutine: publish the record, then arm the echo with the same snapshot.
func (b *Bridge) Arm(rec gps.Record) {
	b.latest.Store(rec)

	if fix, err := gps.DecodeFix(rec); err != nil {
		b.log.Debug("rmc decode failed", zap.Uint64("seq", rec.Seq), zap.Error(err))
	} else {
		b.lastFix.Store(&fix)
	}

	if !b.echo.Arm(rec) {
		b.log.Debug("echo busy, record not echoed", zap.Uint64("seq", rec.Seq))
		return
	}
	b.echoArmed = true
	b.log.Debug("rmc record",
		zap.Uint64("seq", rec.Seq),
		zap.String("time", rec.TimeText()),
		zap.String("date", rec.DateText()),
	)
}

// Run blocks until ctx is cancelled or the GPS reader ends. io.EOF from the
// reader is a clean stop and returns nil.
//
// On cancellation a GPS reader that is also an io.Closer is closed, and Run
// waits for the receiver to finish before stopping the echo pump, so a record
// completed during shutdown is still echoed. Other readers are abandoned; a
// Read blocked on them is not interrupted.
func (b *Bridge) Run(ctx context.Context) error {
	if b.deps.GPS == nil {
		return fmt.Errorf("bridge: gps reader is nil")
	}
	pumpCtx, stopPumps := context.WithCancel(context.Background())
	defer stopPumps()

	recvErr := make(chan error, 1)
	go func() { recvErr <- b.receive(ctx) }()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.pumpEcho(pumpCtx)
	}()
	go func() {
		defer wg.Done()
		b.controlLoop(pumpCtx)
	}()

	var err error
	select {
	case err = <-recvErr:
	case <-ctx.Done():
		if c, ok := b.deps.GPS.(io.Closer); ok {
			_ = c.Close()
			err = <-recvErr
		}
	}
	stopPumps()
	wg.Wait()
	return err
}

func (b *Bridge) receive(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := b.deps.GPS.Read(buf)
		for i := 0; i < n; i++ {
			b.classifier.Feed(buf[i])
			if b.echoArmed {
				b.echoArmed = false
				if b.cfg.Lockstep && !b.waitEcho(ctx) {
					return nil
				}
			}
		}
		if n > 0 {
			b.rxBytes.Add(uint64(n))
			_ = b.deps.RxLED.Toggle()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				b.log.Info("gps stream ended")
				return nil
			}
			if ctx.Err() != nil {
				// Reader closed by Run on shutdown.
				return nil
			}
			b.setErr(fmt.Sprintf("gps read: %v", err))
			return fmt.Errorf("bridge: gps read: %w", err)
		}
	}
}

// waitEcho blocks until the armed echo run drains. It reports false if ctx
// ends first.
func (b *Bridge) waitEcho(ctx context.Context) bool {
	select {
	case <-b.echo.Idle():
		return true
	case <-ctx.Done():
		return false
	}
}

// pumpEcho drives the echo transmitter. On shutdown an in-flight run is
// finished first so the monitor never sees half a line.
func (b *Bridge) pumpEcho(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if b.echo.Armed() {
				b.pumpOnce(context.Background())
			}
			return
		case <-b.echo.Ready():
			b.pumpOnce(ctx)
		}
	}
}

func (b *Bridge) pumpOnce(ctx context.Context) {
	err := b.echo.Pump(ctx, b.deps.Monitor)
	switch {
	case err == nil:
		b.echoRuns.Add(1)
	case errors.Is(err, context.Canceled):
		// Finished on the shutdown path.
		if b.echo.Armed() {
			b.pumpOnce(context.Background())
		}
	default:
		b.echoErrors.Add(1)
		b.setErr(err.Error())
		b.log.Warn("monitor write failed", zap.Error(err))
	}
}

func (b *Bridge) controlLoop(ctx context.Context) {
	t := time.NewTicker(b.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, err := b.BusStart()
			switch {
			case err == nil:
			case errors.Is(err, ErrNoRecord):
				b.log.Debug("rtc skipped, no record yet")
			default:
				b.log.Warn("rtc write failed", zap.Error(err))
			}
		}
	}
}

// BusStart runs one clock-set transaction from the latest completed record.
// It does not care whether that record is new since the previous call.
func (b *Bridge) BusStart() ([transmit.TxLen]byte, error) {
	rec, ok := b.latest.Load()
	if !ok {
		return [transmit.TxLen]byte{}, ErrNoRecord
	}

	b.busMu.Lock()
	tx := b.clockSet.Transaction(rec)
	b.busMu.Unlock()

	b.busStarts.Add(1)
	b.lastTx.Store(&tx)

	if b.deps.RTC == nil {
		b.log.Debug("rtc transaction (not sent)", zap.String("tx", hex.EncodeToString(tx[:])))
		return tx, nil
	}
	if err := b.deps.RTC.Write(tx[:]); err != nil {
		b.rtcErrors.Add(1)
		b.setErr(err.Error())
		return tx, err
	}
	b.rtcWrites.Add(1)
	b.log.Debug("rtc write",
		zap.Uint64("seq", rec.Seq),
		zap.String("tx", hex.EncodeToString(tx[:])),
		zap.Stringer("encoding", b.cfg.Encoding),
	)

	if b.cfg.Verify {
		if cr, ok := b.deps.RTC.(ClockReader); ok {
			c, err := cr.ReadClock()
			if err != nil {
				b.log.Warn("rtc read back failed", zap.Error(err))
			} else {
				b.log.Debug("rtc read back", zap.Stringer("clock", c))
			}
		}
	}
	return tx, nil
}

func (b *Bridge) setErr(msg string) {
	b.lastErr.Store(msg)
}

// Latest returns the most recent completed record.
func (b *Bridge) Latest() (gps.Record, bool) { return b.latest.Load() }
