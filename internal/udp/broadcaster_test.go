package udp

import (
	"errors"
	"net"
	"testing"
)

type fakeConn struct {
	writes    [][]byte
	writeErr  error
	closed    bool
	closeErr  error
	writeHits int
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.writeHits++
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	cp := append([]byte(nil), p...)
	c.writes = append(c.writes, cp)
	return len(p), nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return c.closeErr
}

func newTestBroadcaster(t *testing.T, fc *fakeConn) *Broadcaster {
	t.Helper()
	resolve := func(network, address string) (*net.UDPAddr, error) {
		return net.ResolveUDPAddr(network, address)
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return fc, nil
	}
	b, err := newBroadcaster("127.0.0.1:4000", resolve, dial)
	if err != nil {
		t.Fatalf("newBroadcaster() error: %v", err)
	}
	return b
}

func TestNewBroadcaster_DialsResolvedAddr(t *testing.T) {
	var gotNetwork string
	var gotRaddr *net.UDPAddr
	fc := &fakeConn{}

	resolve := func(network, address string) (*net.UDPAddr, error) {
		return net.ResolveUDPAddr(network, address)
	}

	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		gotNetwork = network
		gotRaddr = raddr
		return fc, nil
	}

	b, err := newBroadcaster("127.0.0.1:4000", resolve, dial)
	if err != nil {
		t.Fatalf("newBroadcaster() error: %v", err)
	}
	defer b.Close()

	if gotNetwork != "udp" {
		t.Fatalf("network=%q want %q", gotNetwork, "udp")
	}
	if gotRaddr == nil || gotRaddr.Port != 4000 || !gotRaddr.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Fatalf("raddr=%v want 127.0.0.1:4000", gotRaddr)
	}
}

func TestNewBroadcaster_ResolveError(t *testing.T) {
	resolve := func(network, address string) (*net.UDPAddr, error) {
		return nil, errors.New("no such host")
	}
	dial := func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		t.Fatalf("dial should not be called")
		return nil, nil
	}
	if _, err := newBroadcaster("nowhere:1", resolve, dial); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWrite_OneDatagramPerLine(t *testing.T) {
	fc := &fakeConn{}
	b := newTestBroadcaster(t, fc)

	echo := "123519.00\x00\r\n\n"
	for i := 0; i < len(echo); i++ {
		n, err := b.Write([]byte{echo[i]})
		if err != nil || n != 1 {
			t.Fatalf("Write byte %d: n=%d err=%v", i, n, err)
		}
	}
	if len(fc.writes) != 2 {
		t.Fatalf("datagrams=%d want 2", len(fc.writes))
	}
	if string(fc.writes[0]) != "123519.00\x00\r\n" || string(fc.writes[1]) != "\n" {
		t.Fatalf("datagrams=%q", fc.writes)
	}
}

func TestWrite_FlushesLongLine(t *testing.T) {
	fc := &fakeConn{}
	b := newTestBroadcaster(t, fc)

	if _, err := b.Write(make([]byte, maxLine)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(fc.writes) != 1 || len(fc.writes[0]) != maxLine {
		t.Fatalf("writes=%d", len(fc.writes))
	}
}

func TestWrite_PropagatesSendError(t *testing.T) {
	fc := &fakeConn{writeErr: errors.New("network down")}
	b := newTestBroadcaster(t, fc)

	n, err := b.Write([]byte("x\n"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if n != 2 {
		t.Fatalf("n=%d want 2", n)
	}
	// The failed line is not retried.
	fc.writeErr = nil
	if _, err := b.Write([]byte("y\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(fc.writes) != 1 || string(fc.writes[0]) != "y\n" {
		t.Fatalf("writes=%q", fc.writes)
	}
}

func TestClose_ClosesConn(t *testing.T) {
	fc := &fakeConn{closeErr: errors.New("boom")}
	b := newTestBroadcaster(t, fc)
	if err := b.Close(); err == nil {
		t.Fatalf("expected close error")
	}
	if !fc.closed {
		t.Fatalf("conn not closed")
	}
}
