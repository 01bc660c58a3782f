package client

// Request/reply correlation

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/cip/spec"
	"github.com/tturner/cipmsg/internal/enip"
	cipmsgErrors "github.com/tturner/cipmsg/internal/errors"
	"github.com/tturner/cipmsg/internal/metrics"
	"github.com/tturner/cipmsg/internal/reply"
)

// abandonedLimit bounds how many timed-out exchanges are remembered.
const abandonedLimit = 64

// newSenderContext packs the session sequence and a per-send attempt
// counter. The attempt counter makes every context unique even when a
// timed-out sequence number is reused.
func newSenderContext(seq uint16, attempt uint32) [8]byte {
	var ctx [8]byte
	binary.LittleEndian.PutUint16(ctx[0:2], seq)
	binary.LittleEndian.PutUint32(ctx[4:8], attempt)
	return ctx
}

func contextValue(ctx [8]byte) uint64 {
	return binary.LittleEndian.Uint64(ctx[:])
}

// connKey identifies a connected reply by its T->O connection ID and
// sequence count.
type connKey struct {
	id  uint32
	seq uint16
}

// boundedSet is a FIFO set that forgets its oldest member past limit.
type boundedSet[K comparable] struct {
	limit int
	order []K
	set   map[K]struct{}
}

func newBoundedSet[K comparable](limit int) boundedSet[K] {
	return boundedSet[K]{limit: limit, set: make(map[K]struct{}, limit)}
}

func (s *boundedSet[K]) add(k K) {
	if _, ok := s.set[k]; ok {
		return
	}
	if len(s.order) == s.limit {
		delete(s.set, s.order[0])
		s.order = s.order[1:]
	}
	s.order = append(s.order, k)
	s.set[k] = struct{}{}
}

func (s *boundedSet[K]) has(k K) bool {
	_, ok := s.set[k]
	return ok
}

// exchange describes one request. build receives the sender context and
// the wire sequence: the connected sequence count for SendUnitData, the
// session sequence otherwise.
type exchange struct {
	op      metrics.OperationType
	target  string
	command uint16
	service protocol.CIPServiceCode
	build   func(senderCtx [8]byte, seq uint16) ([]byte, error)
}

type exchangeResult struct {
	frame  enip.ENIPEncapsulation
	result reply.Result
	seq    uint16
}

func (c *Client) nextAttempt() uint32 {
	c.attempt++
	return c.attempt
}

// roundTrip sends one request and waits for the reply that carries its
// sender context. Late replies to abandoned requests are dropped. The
// session sequence advances only once a correlated reply arrives; a
// timeout, transport failure or mismatch leaves it untouched and abandons
// the exchange. Connected requests also consume the next connected
// sequence count, which advances on every send. Callers hold c.mu.
func (c *Client) roundTrip(ctx context.Context, ex *exchange) (exchangeResult, error) {
	seq := c.session.Sequence + 1
	senderCtx := newSenderContext(seq, c.nextAttempt())
	connected := ex.command == enip.ENIPCommandSendUnitData
	wireSeq := seq
	if connected {
		wireSeq = c.conn.Sequence + 1
	}

	frame, err := ex.build(senderCtx, wireSeq)
	if err != nil {
		return exchangeResult{}, err
	}
	pending := connKey{c.conn.TToOConnectionID, wireSeq}
	if connected {
		c.conn.Sequence = wireSeq
	}
	abandon := func() {
		c.abandoned.add(senderCtx)
		if connected {
			c.abandonedConn.add(pending)
		}
	}
	fail := func(start time.Time, outcome string, err error) (exchangeResult, error) {
		abandon()
		c.finish(ex, start, nil, outcome, err)
		return exchangeResult{}, err
	}

	start := time.Now()
	c.recordFrame(true, frame)
	if err := c.transport.Send(ctx, frame); err != nil {
		return fail(start, metrics.OutcomeTransport, fmt.Errorf("send %s: %w", spec.CommandName(ex.command), err))
	}

	for {
		raw, err := c.transport.Receive(ctx, c.timeout)
		if err != nil {
			outcome := metrics.OutcomeTransport
			if isTimeout(ctx, err) {
				outcome = metrics.OutcomeTimeout
			}
			return fail(start, outcome, fmt.Errorf("receive %s reply: %w", spec.CommandName(ex.command), err))
		}
		c.recordFrame(false, raw)

		frame, err := enip.DecodeENIP(raw)
		if err != nil {
			return fail(start, metrics.OutcomeError, err)
		}

		if frame.SenderContext != senderCtx {
			if c.abandoned.has(frame.SenderContext) {
				c.logger.Verbose("Discarding late %s reply (context %016X)", spec.CommandName(frame.Command), contextValue(frame.SenderContext))
				continue
			}
			// Some adapters zero the context on connected replies; the
			// connection ID and sequence count correlate those instead.
			if !connected || frame.SenderContext != [8]byte{} {
				return fail(start, metrics.OutcomeError, cipmsgErrors.SequenceMismatchError{
					Field: "sender context",
					Want:  contextValue(senderCtx),
					Got:   contextValue(frame.SenderContext),
				})
			}
			if key, ok := connectedKey(frame); ok && c.abandonedConn.has(key) {
				c.logger.Verbose("Discarding late connected reply (connection 0x%08X sequence %d)", key.id, key.seq)
				continue
			}
		}

		if err := c.checkConnected(ex, frame, wireSeq); err != nil {
			return fail(start, metrics.OutcomeError, err)
		}

		c.session.Sequence = seq
		res, err := reply.Validate(ex.command, &frame)
		outcome := metrics.OutcomeSuccess
		switch {
		case err != nil:
			outcome = metrics.OutcomeError
		case res.MoreFragments:
			outcome = metrics.OutcomeRetry
		}
		c.finish(ex, start, &res, outcome, err)
		return exchangeResult{frame: frame, result: res, seq: wireSeq}, err
	}
}

// connectedKey returns the connection ID and sequence count of a
// successful SendUnitData reply.
func connectedKey(frame enip.ENIPEncapsulation) (connKey, bool) {
	if frame.Command != enip.ENIPCommandSendUnitData || frame.Status != enip.ENIPStatusSuccess {
		return connKey{}, false
	}
	id, seq, _, err := enip.ParseSendUnitDataResponse(frame.Data)
	if err != nil {
		return connKey{}, false
	}
	return connKey{id, seq}, true
}

// checkConnected verifies the connection ID and sequence count of a
// successful SendUnitData reply before its status is considered.
func (c *Client) checkConnected(ex *exchange, frame enip.ENIPEncapsulation, seq uint16) error {
	if ex.command != enip.ENIPCommandSendUnitData || frame.Command != ex.command || frame.Status != enip.ENIPStatusSuccess {
		return nil
	}
	key, ok := connectedKey(frame)
	if !ok {
		return nil // reported by the status decoder
	}
	if key.id != c.conn.TToOConnectionID {
		return cipmsgErrors.SequenceMismatchError{Field: "connection ID", Want: uint64(c.conn.TToOConnectionID), Got: uint64(key.id)}
	}
	if key.seq != seq {
		return cipmsgErrors.SequenceMismatchError{Field: "connected sequence", Want: uint64(seq), Got: uint64(key.seq)}
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// unconnected sends req over SendRRData.
func (c *Client) unconnected(ctx context.Context, op metrics.OperationType, target string, req protocol.CIPRequest) (exchangeResult, error) {
	return c.sendCIP(ctx, op, target, false, func(uint16) (protocol.CIPRequest, error) { return req, nil })
}

// sendCIP sends the request produced by build over SendUnitData when
// connected is set, else over SendRRData. build receives the wire sequence.
func (c *Client) sendCIP(ctx context.Context, op metrics.OperationType, target string, connected bool, build func(seq uint16) (protocol.CIPRequest, error)) (exchangeResult, error) {
	command := enip.ENIPCommandSendRRData
	if connected {
		command = enip.ENIPCommandSendUnitData
	}
	ex := &exchange{op: op, target: target, command: command}
	ex.build = func(senderCtx [8]byte, seq uint16) ([]byte, error) {
		req, err := build(seq)
		if err != nil {
			return nil, err
		}
		ex.service = req.Service
		data, err := protocol.EncodeCIPRequest(req)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("%s %s %s for %s", spec.CommandName(command), spec.ServiceName(req.Service), req.Path, target)
		if connected {
			return enip.BuildSendUnitData(c.session.Handle, senderCtx, c.conn.OToTConnectionID, seq, data), nil
		}
		return enip.BuildSendRRData(c.session.Handle, senderCtx, 0, data), nil
	}
	return c.roundTrip(ctx, ex)
}

func (c *Client) recordFrame(outbound bool, frame []byte) {
	label := "rx"
	if outbound {
		label = "tx"
	}
	c.logger.LogHex(label, frame)
	if c.frames == nil {
		return
	}
	if err := c.frames.RecordFrame(outbound, frame); err != nil {
		c.logger.Error("Record %s frame: %v", label, err)
	}
}

// finish logs the exchange and records its metric.
func (c *Client) finish(ex *exchange, start time.Time, res *reply.Result, outcome string, err error) {
	rtt := float64(time.Since(start).Microseconds()) / 1000
	var status uint8
	if res != nil {
		status = res.Outcome.General
	}
	var svcErr cipmsgErrors.ServiceError
	if errors.As(err, &svcErr) {
		status = svcErr.General
	}
	target := ex.target
	if target == "" {
		target = c.targetName()
	}
	command := spec.CommandName(ex.command)
	c.logger.LogExchange(string(ex.op), target, command, err == nil, rtt, status, err)

	if c.metrics == nil {
		return
	}
	m := metrics.Metric{
		Timestamp: start,
		Operation: ex.op,
		Target:    target,
		Command:   command,
		Success:   err == nil,
		RTTMs:     rtt,
		Status:    status,
		Outcome:   outcome,
	}
	if ex.service != 0 {
		m.Service = fmt.Sprintf("0x%02X", uint8(ex.service))
	}
	if err != nil {
		m.Error = err.Error()
	}
	if recErr := c.metrics.Record(m); recErr != nil {
		c.logger.Error("Record metric: %v", recErr)
	}
}
