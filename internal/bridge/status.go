package bridge

import (
	"encoding/hex"
	"time"

	"rtcsync/internal/gps"
)

// Snapshot is a point-in-time view of the bridge for the status endpoint.
type Snapshot struct {
	Classifier gps.Stats `json:"classifier"`

	RxBytes      uint64 `json:"rx_bytes"`
	EchoRuns     uint64 `json:"echo_runs"`
	EchoDropped  uint64 `json:"echo_dropped"`
	EchoErrors   uint64 `json:"echo_errors"`
	BusStarts    uint64 `json:"bus_starts"`
	RTCWrites    uint64 `json:"rtc_writes"`
	RTCErrors    uint64 `json:"rtc_errors"`
	Encoding     string `json:"encoding"`
	Detection    string `json:"detection"`
	IntervalText string `json:"interval"`

	LastSeq      uint64   `json:"last_seq,omitempty"`
	LastTime     string   `json:"last_time,omitempty"`
	LastDate     string   `json:"last_date,omitempty"`
	LastSentence string   `json:"last_sentence,omitempty"`
	LastFix      *gps.Fix `json:"last_fix,omitempty"`
	LastTx       string   `json:"last_tx,omitempty"`

	LastError string `json:"last_error,omitempty"`
	AtUTC     string `json:"at_utc"`
}

// Snapshot is safe to call from any goroutine.
func (b *Bridge) Snapshot(nowUTC time.Time) Snapshot {
	s := Snapshot{
		Classifier:   b.classifier.Stats(),
		RxBytes:      b.rxBytes.Load(),
		EchoRuns:     b.echoRuns.Load(),
		EchoDropped:  b.echo.Dropped(),
		EchoErrors:   b.echoErrors.Load(),
		BusStarts:    b.busStarts.Load(),
		RTCWrites:    b.rtcWrites.Load(),
		RTCErrors:    b.rtcErrors.Load(),
		Encoding:     b.cfg.Encoding.String(),
		Detection:    b.cfg.Detection.String(),
		IntervalText: b.cfg.Interval.String(),
		AtUTC:        nowUTC.UTC().Format(time.RFC3339Nano),
	}
	if rec, ok := b.latest.Load(); ok {
		s.LastSeq = rec.Seq
		s.LastTime = rec.TimeText()
		s.LastDate = rec.DateText()
		s.LastSentence = string(rec.Sentence)
	}
	if f := b.lastFix.Load(); f != nil {
		fix := *f
		s.LastFix = &fix
	}
	if tx := b.lastTx.Load(); tx != nil {
		s.LastTx = hex.EncodeToString(tx[:])
	}
	if v, ok := b.lastErr.Load().(string); ok {
		s.LastError = v
	}
	return s
}
