// Package client is the session and connection state machine for
// EtherNet/IP explicit messaging: it registers sessions, opens Class-3
// connections, and correlates every request with its reply.
package client

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/enip"
	cipmsgErrors "github.com/tturner/cipmsg/internal/errors"
	"github.com/tturner/cipmsg/internal/logging"
	"github.com/tturner/cipmsg/internal/metrics"
)

// DefaultTimeout bounds the wait for each reply.
const DefaultTimeout = 5 * time.Second

// State is the lifecycle state of a client.
type State int

const (
	StateDisconnected State = iota
	StateSessionRegistered
	StateConnectionEstablished
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateSessionRegistered:
		return "SessionRegistered"
	case StateConnectionEstablished:
		return "ConnectionEstablished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// FrameRecorder receives every frame sent or received.
type FrameRecorder interface {
	RecordFrame(outbound bool, frame []byte) error
}

// MetricsRecorder receives one metric per exchange.
type MetricsRecorder interface {
	Record(m metrics.Metric) error
}

// Session is a snapshot of the registered session.
type Session struct {
	Handle   uint32
	Sequence uint16 // last sequence number consumed by a completed exchange
}

// Connection is a snapshot of the established Class-3 connection.
type Connection struct {
	OToTConnectionID uint32 // addresses connected requests
	TToOConnectionID uint32 // carried by connected replies
	ConnectionSerial uint16
	Sequence         uint16 // last connected sequence count sent
	OToTAPI          time.Duration
	TToOAPI          time.Duration
}

// Client owns one session and at most one connection over a transport.
// Exchanges are serialized; a Client is safe for concurrent use but never
// has more than one request in flight.
type Client struct {
	mu sync.Mutex

	transport Transport
	logger    *logging.Logger
	frames    FrameRecorder
	metrics   MetricsRecorder
	target    string
	timeout   time.Duration

	vendorID   uint16
	serial     uint32
	routePath  []byte
	connParams protocol.ConnectionParams

	state   State
	session Session
	conn    Connection
	params  protocol.ConnectionParams // as sent in the Forward Open

	attempt       uint32
	abandoned     boundedSet[[8]byte]
	abandonedConn boundedSet[connKey]
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. A nil logger is silent.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRecorder records every frame, e.g. to a pcap trace.
func WithRecorder(r FrameRecorder) Option {
	return func(c *Client) { c.frames = r }
}

// WithMetrics records one metric per exchange.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTarget names the target in logs and metrics.
func WithTarget(name string) Option {
	return func(c *Client) { c.target = name }
}

// WithTimeout sets the per-exchange reply timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithVendor sets the originator vendor ID and serial number used in
// Forward Open and PCCC requester IDs.
func WithVendor(vendorID uint16, serial uint32) Option {
	return func(c *Client) { c.vendorID, c.serial = vendorID, serial }
}

// WithRoutePath sets the port segments to the target processor, used for
// connection paths and Unconnected Send routing.
func WithRoutePath(path []byte) Option {
	return func(c *Client) { c.routePath = append([]byte(nil), path...) }
}

// WithConnectionParams sets the Forward Open timing and sizing. Connection
// IDs, serials and the route are filled in by the client.
func WithConnectionParams(p protocol.ConnectionParams) Option {
	return func(c *Client) { c.connParams = p }
}

// DefaultConnectionParams returns a 504-byte variable-size low-priority
// connection with a 2 second RPI.
func DefaultConnectionParams() protocol.ConnectionParams {
	return protocol.ConnectionParams{
		TimeoutMultiplier: 1,
		RPI:               2 * time.Second,
		PacketSize:        504,
		Priority:          "low",
	}
}

// New creates a client over a connected transport.
func New(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport:     transport,
		timeout:       DefaultTimeout,
		vendorID:      0x1337,
		serial:        0x21436587,
		connParams:    DefaultConnectionParams(),
		abandoned:     newBoundedSet[[8]byte](abandonedLimit),
		abandonedConn: newBoundedSet[connKey](abandonedLimit),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects a TCP transport to addr, creates a client and registers a session.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	transport := NewTCPTransport()
	if err := transport.Connect(ctx, addr); err != nil {
		return nil, err
	}
	c := New(transport, append([]Option{WithTarget(addr)}, opts...)...)
	if err := c.RegisterSession(ctx); err != nil {
		transport.Disconnect()
		return nil, err
	}
	return c, nil
}

// State returns the lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the session snapshot; ok is false without a session.
func (c *Client) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.state != StateDisconnected
}

// Connection returns the connection snapshot; ok is false without a connection.
func (c *Client) Connection() (Connection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn, c.state == StateConnectionEstablished
}

// RegisterSession registers a session. Only valid while Disconnected.
func (c *Client) RegisterSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDisconnected {
		return fmt.Errorf("register session: session 0x%08X already registered", c.session.Handle)
	}

	x, err := c.roundTrip(ctx, &exchange{
		op:      metrics.OperationRegisterSession,
		command: enip.ENIPCommandRegisterSession,
		build: func(senderCtx [8]byte, _ uint16) ([]byte, error) {
			return enip.BuildRegisterSession(senderCtx), nil
		},
	})
	if err != nil {
		c.session = Session{}
		return cipmsgErrors.RegistrationFailedError{Err: err}
	}
	if x.frame.SessionID == 0 {
		c.session = Session{}
		return cipmsgErrors.RegistrationFailedError{Err: cipmsgErrors.MalformedFrameError{
			Reason: "register session reply carries session handle 0",
			Length: enip.HeaderSize + len(x.frame.Data),
		}}
	}

	c.session = Session{Handle: x.frame.SessionID}
	c.state = StateSessionRegistered
	c.logger.Info("Registered session 0x%08X with %s", c.session.Handle, c.targetName())
	return nil
}

// ForwardOpen opens a Class-3 connection. Only valid while SessionRegistered;
// on failure the client stays SessionRegistered.
func (c *Client) ForwardOpen(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateDisconnected:
		return cipmsgErrors.ErrNoSession
	case StateConnectionEstablished:
		return fmt.Errorf("forward open: connection 0x%08X already established", c.conn.OToTConnectionID)
	}

	params := c.connParams
	params.VendorID = c.vendorID
	params.OriginatorSerial = c.serial
	params.RoutePath = c.routePath
	var ids [6]byte
	if _, err := rand.Read(ids[:]); err != nil {
		return fmt.Errorf("forward open: generate connection IDs: %w", err)
	}
	params.TToOConnectionID = binary.LittleEndian.Uint32(ids[0:4])
	params.ConnectionSerial = binary.LittleEndian.Uint16(ids[4:6])

	req, err := protocol.BuildForwardOpen(params)
	if err != nil {
		return fmt.Errorf("forward open: %w", err)
	}
	x, err := c.unconnected(ctx, metrics.OperationForwardOpen, "Connection_Manager", req)
	if err != nil {
		return fmt.Errorf("forward open: %w", err)
	}
	fo, err := protocol.ParseForwardOpenReply(x.result.Payload)
	if err != nil {
		return cipmsgErrors.MalformedFrameError{Reason: err.Error(), Length: len(x.result.Payload)}
	}
	if fo.ConnectionSerial != params.ConnectionSerial {
		return cipmsgErrors.SequenceMismatchError{Field: "connection serial", Want: uint64(params.ConnectionSerial), Got: uint64(fo.ConnectionSerial)}
	}

	c.params = params
	c.conn = Connection{
		OToTConnectionID: fo.OToTConnectionID,
		TToOConnectionID: fo.TToOConnectionID,
		ConnectionSerial: fo.ConnectionSerial,
		OToTAPI:          fo.OToTAPI,
		TToOAPI:          fo.TToOAPI,
	}
	c.state = StateConnectionEstablished
	c.logger.Info("Opened connection O->T 0x%08X T->O 0x%08X (serial 0x%04X)", fo.OToTConnectionID, fo.TToOConnectionID, fo.ConnectionSerial)
	return nil
}

// ForwardClose closes the connection. Safe in any state; without a
// connection it does nothing. The connection is dropped even when the
// target rejects the close.
func (c *Client) ForwardClose(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forwardClose(ctx)
}

func (c *Client) forwardClose(ctx context.Context) error {
	if c.state != StateConnectionEstablished {
		return nil
	}
	req, err := protocol.BuildForwardClose(c.params)
	if err == nil {
		_, err = c.unconnected(ctx, metrics.OperationForwardClose, "Connection_Manager", req)
	}
	c.logger.Info("Closed connection 0x%08X", c.conn.OToTConnectionID)
	c.conn = Connection{}
	c.params = protocol.ConnectionParams{}
	c.state = StateSessionRegistered
	if err != nil {
		return fmt.Errorf("forward close: %w", err)
	}
	return nil
}

// UnregisterSession ends the session. Safe in any state; without a session
// it does nothing. The target sends no reply. Any connection is forgotten
// with the session.
func (c *Client) UnregisterSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unregister(ctx)
}

func (c *Client) unregister(ctx context.Context) error {
	if c.state == StateDisconnected {
		return nil
	}
	senderCtx := newSenderContext(c.session.Sequence+1, c.nextAttempt())
	frame := enip.BuildUnregisterSession(c.session.Handle, senderCtx)
	c.recordFrame(true, frame)
	err := c.transport.Send(ctx, frame)

	c.logger.Info("Unregistered session 0x%08X", c.session.Handle)
	c.session = Session{}
	c.conn = Connection{}
	c.params = protocol.ConnectionParams{}
	c.state = StateDisconnected
	if err != nil {
		return fmt.Errorf("unregister session: %w", err)
	}
	return nil
}

// Close closes the connection, unregisters the session and disconnects the
// transport, in that order, returning every error encountered.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if err := c.forwardClose(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.unregister(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.transport.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("disconnect: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Client) targetName() string {
	if c.target == "" {
		return "target"
	}
	return c.target
}

func (c *Client) requireSession() error {
	if c.state == StateDisconnected {
		return cipmsgErrors.ErrNoSession
	}
	return nil
}

func (c *Client) requireConnection() error {
	if err := c.requireSession(); err != nil {
		return err
	}
	if c.state != StateConnectionEstablished {
		return cipmsgErrors.ErrNotConnected
	}
	return nil
}
