package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"rtcsync/internal/config"
)

func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

func writeCapture(t *testing.T, lines ...string) string {
	t.Helper()
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(nmeaLine(l))
	}
	path := filepath.Join(t.TempDir(), "capture.nmea")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func TestRunReplay_EchoAndFinalTransaction(t *testing.T) {
	path := writeCapture(t,
		"GNGGA,123520,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
		"GPRMC,123519.00,A,4807.038,N,01131.000,E,022.4,084.4,230324,003.1,W",
	)

	var out bytes.Buffer
	snap, err := runReplay(context.Background(), config.Default(), path, 0, &out, zap.NewNop())
	if err != nil {
		t.Fatalf("runReplay() error: %v", err)
	}
	if got, want := out.String(), "123519.00\x00\r\n\n"; got != want {
		t.Fatalf("echo=%q want %q", got, want)
	}
	if snap.LastTx != "031323" {
		t.Fatalf("last tx=%q want 031323", snap.LastTx)
	}
	if snap.Classifier.Sentences != 2 || snap.Classifier.Completed != 1 {
		t.Fatalf("classifier=%+v", snap.Classifier)
	}
	if snap.LastFix == nil || !snap.LastFix.Valid {
		t.Fatalf("last fix=%+v", snap.LastFix)
	}
}

func TestRunReplay_UnthrottledEchoesEveryRecord(t *testing.T) {
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines,
			fmt.Sprintf("GPRMC,1235%02d.00,A,4807.038,N,01131.000,E,022.4,084.4,230324,003.1,W", i),
			"GNGGA,123520,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
		)
	}
	path := writeCapture(t, lines...)

	var out bytes.Buffer
	snap, err := runReplay(context.Background(), config.Default(), path, 0, &out, zap.NewNop())
	if err != nil {
		t.Fatalf("runReplay() error: %v", err)
	}
	if snap.EchoRuns != 20 || snap.EchoDropped != 0 {
		t.Fatalf("echo_runs=%d dropped=%d want 20/0", snap.EchoRuns, snap.EchoDropped)
	}
	var want bytes.Buffer
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&want, "1235%02d.00\x00\r\n\n", i)
	}
	if out.String() != want.String() {
		t.Fatalf("echo=%q want %q", out.String(), want.String())
	}
	// Minutes 35, seconds from the last record.
	if snap.LastTx != "031323" {
		t.Fatalf("last tx=%q want 031323", snap.LastTx)
	}
}

func TestRunReplay_BCD(t *testing.T) {
	path := writeCapture(t, "GPRMC,123519.00,A,4807.038,N,01131.000,E,022.4,084.4,230324,003.1,W")

	cfg := config.Default()
	cfg.RTC.Encoding = "bcd"
	var out bytes.Buffer
	snap, err := runReplay(context.Background(), cfg, path, 0, &out, zap.NewNop())
	if err != nil {
		t.Fatalf("runReplay() error: %v", err)
	}
	if snap.LastTx != "031935" {
		t.Fatalf("last tx=%q want 031935", snap.LastTx)
	}
}

func TestRunReplay_NoRMC(t *testing.T) {
	path := writeCapture(t, "GNGGA,123520,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")

	var out bytes.Buffer
	snap, err := runReplay(context.Background(), config.Default(), path, 0, &out, zap.NewNop())
	if err != nil {
		t.Fatalf("runReplay() error: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected echo %q", out.String())
	}
	if snap.LastTx != "" || snap.BusStarts != 0 {
		t.Fatalf("snapshot=%+v", snap)
	}
}

func TestRunReplay_MissingFile(t *testing.T) {
	_, err := runReplay(context.Background(), config.Default(), filepath.Join(t.TempDir(), "nope"), 0, &bytes.Buffer{}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestBridgeConfig(t *testing.T) {
	cfg := config.Default()
	cfg.GPS.Detection = "markers"
	cfg.RTC.Encoding = "bcd"
	bc, err := bridgeConfig(cfg)
	if err != nil {
		t.Fatalf("bridgeConfig() error: %v", err)
	}
	if bc.Detection.String() != "markers" || bc.Encoding.String() != "bcd" {
		t.Fatalf("bridge config=%+v", bc)
	}
	if bc.Register != 0x03 || bc.Interval <= 0 {
		t.Fatalf("bridge config=%+v", bc)
	}

	cfg.RTC.Encoding = "hex"
	if _, err := bridgeConfig(cfg); err == nil {
		t.Fatalf("expected encoding error")
	}
}

func TestOpenMonitor_DefaultsToStdout(t *testing.T) {
	w, desc, err := openMonitor(config.MonitorConfig{})
	if err != nil {
		t.Fatalf("openMonitor() error: %v", err)
	}
	defer w.Close()
	if desc != "stdout" {
		t.Fatalf("desc=%q", desc)
	}
}

func TestOpenRTC_Disabled(t *testing.T) {
	clock, closeFn, err := openRTC(config.RTCConfig{})
	if err != nil {
		t.Fatalf("openRTC() error: %v", err)
	}
	if clock != nil {
		t.Fatalf("expected nil rtc")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close error: %v", err)
	}
}
