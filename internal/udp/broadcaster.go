// Package udp mirrors the monitor line to a UDP destination.
package udp

import (
	"bytes"
	"fmt"
	"net"
	"sync"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// maxLine bounds the pending datagram if the stream never sends LF.
const maxLine = 512

// Broadcaster is an io.Writer that sends one datagram per LF-terminated line.
// The monitor stream is written one byte at a time; batching by line keeps a
// 13-byte echo from becoming 13 datagrams.
type Broadcaster struct {
	dest string
	conn udpConn

	mu      sync.Mutex
	pending []byte
}

func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{
		dest:    dest,
		conn:    conn,
		pending: make([]byte, 0, 64),
	}, nil
}

func (b *Broadcaster) Dest() string { return b.dest }

// Write buffers p and flushes every complete line. It reports len(p) written
// even when the datagram send fails, since the bytes were consumed.
func (b *Broadcaster) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, p...)
	for {
		i := bytes.IndexByte(b.pending, '\n')
		if i < 0 {
			break
		}
		if err := b.send(b.pending[:i+1]); err != nil {
			b.pending = b.pending[i+1:]
			return len(p), err
		}
		b.pending = b.pending[i+1:]
	}
	if len(b.pending) >= maxLine {
		err := b.send(b.pending)
		b.pending = b.pending[:0]
		return len(p), err
	}
	return len(p), nil
}

func (b *Broadcaster) send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
