//go:build linux

package i2c

import (
	"os"
	"strings"
	"testing"
)

func openNullBus(t *testing.T) *Bus {
	t.Helper()
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return &Bus{f: f, name: "/dev/null"}
}

func TestDev_InvalidAddr(t *testing.T) {
	b := openNullBus(t)
	for _, addr := range []uint16{0, 0x80} {
		err := b.Dev(addr).Write([]byte{0x03, 0x00, 0x00})
		if err == nil || !strings.Contains(err.Error(), "invalid addr") {
			t.Fatalf("addr=0x%X err=%v want invalid addr", addr, err)
		}
	}
}

func TestDev_EmptyTransfersAreNoops(t *testing.T) {
	b := openNullBus(t)
	d := b.Dev(0x68)

	if err := d.Write(nil); err != nil {
		t.Fatalf("Write(nil) err=%v", err)
	}
	if err := d.ReadReg(0x03, nil); err != nil {
		t.Fatalf("ReadReg(nil) err=%v", err)
	}
}

func TestDev_ClosedBus(t *testing.T) {
	b := openNullBus(t)
	d := b.Dev(0x68)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Write([]byte{0x03}); err == nil {
		t.Fatalf("expected error on closed bus")
	}
}

func TestDev_IoctlErrorNamesTarget(t *testing.T) {
	// /dev/null does not implement I2C_RDWR.
	b := openNullBus(t)
	err := b.Dev(0x68).Write([]byte{0x03, 19, 35})
	if err == nil || !strings.Contains(err.Error(), "addr 0x68") {
		t.Fatalf("err=%v want error naming addr 0x68", err)
	}
	dst := make([]byte, 3)
	err = b.Dev(0x68).ReadReg(0x03, dst)
	if err == nil || !strings.Contains(err.Error(), "/dev/null addr 0x68") {
		t.Fatalf("err=%v want error naming bus and addr", err)
	}
}
