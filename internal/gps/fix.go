package gps

import (
	"fmt"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// Fix is the decoded view of a Record's raw sentence. It is used for logs and
// the status endpoint only; capture and transmission never depend on it.
type Fix struct {
	Valid    bool      `json:"valid"`
	UTC      time.Time `json:"utc"`
	LatDeg   float64   `json:"lat_deg"`
	LonDeg   float64   `json:"lon_deg"`
	GroundKt float64   `json:"ground_kt"`
	TrackDeg float64   `json:"track_deg"`
}

// DecodeFix parses rec.Sentence as an RMC sentence. Unlike the Classifier,
// this checks the NMEA checksum, so a record can capture fine and still fail
// to decode.
func DecodeFix(rec Record) (Fix, error) {
	line := strings.TrimSpace(string(rec.Sentence))
	if line == "" {
		return Fix{}, fmt.Errorf("gps: record %d has no sentence", rec.Seq)
	}
	s, err := nmea.Parse(line)
	if err != nil {
		return Fix{}, fmt.Errorf("gps: decode record %d: %w", rec.Seq, err)
	}
	rmc, ok := s.(nmea.RMC)
	if !ok {
		return Fix{}, fmt.Errorf("gps: record %d is %s, not %s", rec.Seq, s.DataType(), nmea.TypeRMC)
	}

	f := Fix{
		Valid:    rmc.Validity == nmea.ValidRMC,
		LatDeg:   rmc.Latitude,
		LonDeg:   rmc.Longitude,
		GroundKt: rmc.Speed,
		TrackDeg: rmc.Course,
	}
	if rmc.Time.Valid && rmc.Date.Valid {
		// Two-digit year; RMC has no century.
		f.UTC = time.Date(2000+rmc.Date.YY, time.Month(rmc.Date.MM), rmc.Date.DD,
			rmc.Time.Hour, rmc.Time.Minute, rmc.Time.Second, rmc.Time.Millisecond*int(time.Millisecond), time.UTC)
	}
	return f, nil
}
