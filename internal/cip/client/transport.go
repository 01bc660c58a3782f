package client

// Stream transport for encapsulation frames

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/tturner/cipmsg/internal/enip"
)

// Transport carries whole encapsulation frames. Receive returns exactly one
// frame or an error; the client owns framing semantics above that.
type Transport interface {
	Connect(ctx context.Context, addr string) error
	Disconnect() error
	Send(ctx context.Context, data []byte) error
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	IsConnected() bool
}

// TCPTransport carries frames over one TCP stream. A Disconnect from another
// goroutine closes the socket and so unblocks a pending Receive.
//
// Bytes of a frame that did not fully arrive before a Receive deadline are
// kept, and the next Receive continues the same frame.
type TCPTransport struct {
	mu          sync.RWMutex
	conn        net.Conn
	dialTimeout time.Duration

	readMu  sync.Mutex
	partial []byte
}

var _ Transport = (*TCPTransport)(nil)

var errNotConnected = errors.New("not connected")

// NewTCPTransport returns a disconnected transport with a 5s dial timeout.
func NewTCPTransport() *TCPTransport {
	return &TCPTransport{dialTimeout: 5 * time.Second}
}

func (t *TCPTransport) current() (net.Conn, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.conn == nil {
		return nil, errNotConnected
	}
	return t.conn, nil
}

// Connect dials addr with Nagle disabled.
func (t *TCPTransport) Connect(ctx context.Context, addr string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return fmt.Errorf("already connected to %s", t.conn.RemoteAddr())
	}

	d := net.Dialer{Timeout: t.dialTimeout, KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial TCP %s: %w", addr, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			conn.Close()
			return fmt.Errorf("set no-delay: %w", err)
		}
	}
	t.conn = conn
	return nil
}

// Disconnect closes the socket. It is a no-op when not connected.
func (t *TCPTransport) Disconnect() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	t.readMu.Lock()
	t.partial = nil
	t.readMu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Send writes one frame, bounded by the context deadline if any.
func (t *TCPTransport) Send(ctx context.Context, data []byte) error {
	conn, err := t.current()
	if err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive reads one frame: the fixed header, then the length it declares.
// The deadline is the earlier of now+timeout and the context deadline.
func (t *TCPTransport) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	conn, err := t.current()
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()
	if err := t.fill(conn, enip.HeaderSize); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	total, err := enip.FrameLength(t.partial)
	if err != nil {
		t.partial = nil
		return nil, err
	}
	if err := t.fill(conn, total); err != nil {
		return nil, fmt.Errorf("read %d-byte body: %w", total-enip.HeaderSize, err)
	}
	frame := t.partial
	t.partial = nil
	return frame, nil
}

// fill reads until the pending frame holds n bytes. Whatever arrived is
// kept when the read fails.
func (t *TCPTransport) fill(conn net.Conn, n int) error {
	have := len(t.partial)
	if have >= n {
		return nil
	}
	if cap(t.partial) < n {
		grown := make([]byte, have, n)
		copy(grown, t.partial)
		t.partial = grown
	}
	got, err := io.ReadFull(conn, t.partial[have:n])
	t.partial = t.partial[:have+got]
	return err
}

// IsConnected reports whether a socket is open.
func (t *TCPTransport) IsConnected() bool {
	_, err := t.current()
	return err == nil
}

// LocalAddr returns the local socket address, or nil when disconnected.
func (t *TCPTransport) LocalAddr() net.Addr {
	if conn, err := t.current(); err == nil {
		return conn.LocalAddr()
	}
	return nil
}

// RemoteAddr returns the peer socket address, or nil when disconnected.
func (t *TCPTransport) RemoteAddr() net.Addr {
	if conn, err := t.current(); err == nil {
		return conn.RemoteAddr()
	}
	return nil
}
