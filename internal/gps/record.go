package gps

import "sync/atomic"

const (
	// TimeCapacity is the fixed width of the captured time field (hhmmss.ss).
	TimeCapacity = 10
	// DateCapacity is the fixed width of the captured date field (ddmmyy).
	DateCapacity = 6

	// maxSentence bounds the raw copy kept for diagnostics. NMEA 0183 caps a
	// sentence at 82 chars; leave headroom for chatty receivers.
	maxSentence = 128
)

// Record is an immutable snapshot of one completed RMC sentence.
//
// Time and Date always carry the full buffer capacity. Bytes past TimeLen /
// DateLen are whatever an earlier, longer field left behind.
type Record struct {
	Seq uint64

	Time    [TimeCapacity]byte
	TimeLen int
	Date    [DateCapacity]byte
	DateLen int

	// Sentence is the raw sentence from '$' through LF, truncated at 128 bytes.
	Sentence []byte
}

// TimeText returns the bytes captured for the time field in this sentence.
func (r Record) TimeText() string { return string(r.Time[:r.TimeLen]) }

// DateText returns the bytes captured for the date field in this sentence.
func (r Record) DateText() string { return string(r.Date[:r.DateLen]) }

// RecordSink receives completed records. Arm is called from the goroutine
// feeding the Classifier and must not block.
type RecordSink interface {
	Arm(rec Record)
}

// Latest holds the most recently completed record.
//
// One goroutine stores, any number load. Loaded records are copies, so a
// reader never sees a record that is being rebuilt.
type Latest struct {
	p atomic.Pointer[Record]
}

func (l *Latest) Store(rec Record) {
	r := rec
	r.Sentence = append([]byte(nil), rec.Sentence...)
	l.p.Store(&r)
}

// Load returns the latest record, or false before the first one completes.
func (l *Latest) Load() (Record, bool) {
	r := l.p.Load()
	if r == nil {
		return Record{}, false
	}
	return *r, true
}
