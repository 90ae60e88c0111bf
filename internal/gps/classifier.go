package gps

import (
	"fmt"
	"strings"
	"sync/atomic"
)

const (
	SentenceStart  = '$'
	FieldSeparator = ','
	LineFeed       = '\n'

	// TypeCode is the sentence type of interest, without talker ID.
	TypeCode = "RMC"

	// TimeField and DateField are comma-indexed RMC fields (0 is the type).
	TimeField = 1
	DateField = 9

	// Longest talker+type we bother keeping (e.g. "GPRMC", "PGRMZ", "PMTK001").
	typeFieldCap = 8
)

// Detection selects how the Classifier recognises an RMC sentence.
type Detection int

const (
	// DetectTypeCode matches the last three characters of field 0 against
	// "RMC" when the first comma arrives. Talker ID is ignored.
	DetectTypeCode Detection = iota

	// DetectMarkers confirms the record as soon as two of the characters
	// 'R', 'M', 'C' have been seen since '$'. Any sentence containing two such
	// characters before its time field confirms too (e.g. "$PGRMZ"), and the
	// marker characters themselves are never captured.
	DetectMarkers
)

func (d Detection) String() string {
	switch d {
	case DetectTypeCode:
		return "type_code"
	case DetectMarkers:
		return "markers"
	default:
		return fmt.Sprintf("Detection(%d)", int(d))
	}
}

func ParseDetection(s string) (Detection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "type_code":
		return DetectTypeCode, nil
	case "markers":
		return DetectMarkers, nil
	default:
		return 0, fmt.Errorf("gps: unknown detection %q", s)
	}
}

// State is the Classifier's position within the byte stream.
type State int

const (
	// IdleSearch: just saw '$' (or nothing yet); type not determined.
	IdleSearch State = iota
	// Counting: reading field 0 / marker characters.
	Counting
	CapturingTime
	SkippingFields
	CapturingDate
	// RecordComplete: LF seen after the date; waiting for the next '$'.
	RecordComplete
)

func (s State) String() string {
	switch s {
	case IdleSearch:
		return "idle_search"
	case Counting:
		return "counting"
	case CapturingTime:
		return "capturing_time"
	case SkippingFields:
		return "skipping_fields"
	case CapturingDate:
		return "capturing_date"
	case RecordComplete:
		return "record_complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Options struct {
	Detection Detection

	// OnConfirm, if set, runs each time a sentence is recognised as RMC,
	// before any field is captured.
	OnConfirm func()
}

// Stats are cumulative counters. Safe to read from any goroutine.
type Stats struct {
	Sentences uint64 `json:"sentences"`
	Confirmed uint64 `json:"confirmed"`
	Completed uint64 `json:"completed"`
	// Overflow counts bytes dropped because a field outgrew its buffer.
	Overflow uint64 `json:"overflow"`
}

// Classifier turns a byte stream into RMC time/date captures, one byte at a
// time. It is not safe for concurrent use: exactly one goroutine feeds it.
type Classifier struct {
	opts Options
	sink RecordSink

	state      State
	inSentence bool
	confirmed  bool
	markers    int
	commas     int

	typeBuf [typeFieldCap]byte
	typeLen int

	time    [TimeCapacity]byte
	timeIdx int
	date    [DateCapacity]byte
	dateIdx int

	raw    [maxSentence]byte
	rawLen int

	seq uint64

	sentences atomic.Uint64
	confirms  atomic.Uint64
	completed atomic.Uint64
	overflow  atomic.Uint64
}

// NewClassifier returns a Classifier that hands each completed record to sink.
// sink may be nil.
func NewClassifier(opts Options, sink RecordSink) *Classifier {
	return &Classifier{opts: opts, sink: sink}
}

// Feed classifies one byte.
func (c *Classifier) Feed(b byte) {
	if b == SentenceStart {
		c.startSentence()
		return
	}
	if !c.inSentence {
		return
	}
	c.keepRaw(b)

	switch {
	case b == FieldSeparator:
		c.commas++
		if c.opts.Detection == DetectTypeCode && c.commas == 1 && c.typeMatches() {
			// The comma closing field 0 is the first comma of the record.
			c.confirm()
			c.commas = 1
		}
		c.trackField()

	case c.opts.Detection == DetectMarkers && isMarker(b):
		c.markers++
		if c.state == IdleSearch {
			c.state = Counting
		}
		if c.markers == 2 {
			c.confirm()
		}

	default:
		c.content(b)
	}
}

func (c *Classifier) startSentence() {
	c.inSentence = true
	c.confirmed = false
	c.markers = 0
	c.commas = 0
	c.typeLen = 0
	c.rawLen = 0
	c.state = IdleSearch
	c.keepRaw(SentenceStart)
	c.sentences.Add(1)
}

func (c *Classifier) content(b byte) {
	if c.commas == 0 {
		if c.state == IdleSearch {
			c.state = Counting
		}
		if c.typeLen < len(c.typeBuf) {
			c.typeBuf[c.typeLen] = b
			c.typeLen++
		}
		return
	}
	if !c.confirmed {
		return
	}

	switch {
	case c.commas == TimeField:
		if c.timeIdx >= len(c.time) {
			c.overflow.Add(1)
			return
		}
		c.time[c.timeIdx] = b
		c.timeIdx++
	case c.commas == DateField:
		if c.dateIdx >= len(c.date) {
			c.overflow.Add(1)
			return
		}
		c.date[c.dateIdx] = b
		c.dateIdx++
	case c.commas > DateField && b == LineFeed:
		c.complete()
	}
}

func (c *Classifier) confirm() {
	c.confirmed = true
	c.timeIdx = 0
	c.dateIdx = 0
	c.commas = 0
	c.confirms.Add(1)
	if c.opts.OnConfirm != nil {
		c.opts.OnConfirm()
	}
}

// trackField updates the reported state after a comma.
func (c *Classifier) trackField() {
	if !c.confirmed {
		c.state = Counting
		return
	}
	switch c.commas {
	case TimeField:
		c.state = CapturingTime
	case DateField:
		c.state = CapturingDate
	default:
		c.state = SkippingFields
	}
}

func (c *Classifier) complete() {
	c.seq++
	rec := Record{
		Seq:      c.seq,
		Time:     c.time,
		TimeLen:  c.timeIdx,
		Date:     c.date,
		DateLen:  c.dateIdx,
		Sentence: append([]byte(nil), c.raw[:c.rawLen]...),
	}
	// One completion per sentence; trailing bytes wait for the next '$'.
	c.confirmed = false
	c.inSentence = false
	c.state = RecordComplete
	c.completed.Add(1)
	if c.sink != nil {
		c.sink.Arm(rec)
	}
}

func (c *Classifier) typeMatches() bool {
	if c.typeLen < len(TypeCode) {
		return false
	}
	return string(c.typeBuf[c.typeLen-len(TypeCode):c.typeLen]) == TypeCode
}

func (c *Classifier) keepRaw(b byte) {
	if c.rawLen < len(c.raw) {
		c.raw[c.rawLen] = b
		c.rawLen++
	}
}

func isMarker(b byte) bool {
	return b == 'R' || b == 'M' || b == 'C'
}

func (c *Classifier) State() State { return c.state }

// Buffers returns copies of the live time and date buffers.
func (c *Classifier) Buffers() (time [TimeCapacity]byte, date [DateCapacity]byte) {
	return c.time, c.date
}

func (c *Classifier) Stats() Stats {
	return Stats{
		Sentences: c.sentences.Load(),
		Confirmed: c.confirms.Load(),
		Completed: c.completed.Load(),
		Overflow:  c.overflow.Load(),
	}
}
