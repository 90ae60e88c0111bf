package web

import (
	"sync/atomic"
	"time"

	"rtcsync/internal/bridge"
)

// StatusSource is implemented by *bridge.Bridge.
type StatusSource interface {
	Snapshot(nowUTC time.Time) bridge.Snapshot
}

type Status struct {
	startUnixNano int64
	src           StatusSource
	static        atomic.Value // map[string]string
}

func NewStatus(src StatusSource) *Status {
	s := &Status{src: src}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.static.Store(map[string]string{})
	return s
}

// SetStatic records fixed facts about the process (devices, addresses).
func (s *Status) SetStatic(info map[string]string) {
	cp := make(map[string]string, len(info))
	for k, v := range info {
		cp[k] = v
	}
	s.static.Store(cp)
}

type StatusSnapshot struct {
	Service    string            `json:"service"`
	StartedUTC string            `json:"started_utc"`
	UptimeSec  int64             `json:"uptime_sec"`
	Static     map[string]string `json:"static,omitempty"`
	Bridge     *bridge.Snapshot  `json:"bridge,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	out := StatusSnapshot{
		Service:    "rtcsync",
		StartedUTC: start.Format(time.RFC3339),
		UptimeSec:  int64(nowUTC.Sub(start).Seconds()),
	}
	if m, ok := s.static.Load().(map[string]string); ok && len(m) > 0 {
		out.Static = m
	}
	if s.src != nil {
		snap := s.src.Snapshot(nowUTC)
		out.Bridge = &snap
	}
	return out
}
