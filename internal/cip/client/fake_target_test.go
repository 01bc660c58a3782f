package client

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tturner/cipmsg/internal/cip/codec"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/enip"
	"github.com/tturner/cipmsg/internal/reply"
)

// fakeTarget is an in-memory controller behind the Transport interface. It
// answers every request synchronously by queueing the reply for Receive.
type fakeTarget struct {
	t *testing.T

	tables  dataTables
	session uint32
	oToT    uint32
	tToO    uint32

	tagType  protocol.CIPDataType
	tagData  []byte
	tagChunk int
	symbols  []reply.TagInfo
	pageSize int

	sent      [][]byte
	cipSent   []protocol.CIPRequest // innermost request of each SendRRData/SendUnitData
	queue     [][]byte
	hold      bool
	held      [][]byte
	mutate    func(reply []byte) []byte
	lastRoute []byte
	closes    int
	connected bool
}

func newFakeTarget(t *testing.T) *fakeTarget {
	return &fakeTarget{
		t:         t,
		tables:    newDataTables(),
		session:   0x12345678,
		oToT:      0xAABB0001,
		tagType:   protocol.CIPTypeDINT,
		tagData:   []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0},
		tagChunk:  5,
		pageSize:  2,
		connected: true,
		symbols: []reply.TagInfo{
			{Instance: 0x10, Name: "Motor", Type: 0x00C4},
			{Instance: 0x22, Name: "Speed", Type: 0x00CA},
			{Instance: 0x23, Name: "Recipe", Type: 0x8F01},
			{Instance: 0x40, Name: "__Sys", Type: 0x10C4},
			{Instance: 0x41, Name: "Count", Type: 0x00C3},
		},
	}
}

func (f *fakeTarget) Connect(context.Context, string) error { f.connected = true; return nil }
func (f *fakeTarget) Disconnect() error                     { f.connected = false; return nil }
func (f *fakeTarget) IsConnected() bool                     { return f.connected }

func (f *fakeTarget) Send(_ context.Context, data []byte) error {
	f.sent = append(f.sent, append([]byte(nil), data...))
	frame, err := enip.DecodeENIP(data)
	if err != nil {
		return err
	}
	out := f.serve(frame)
	if out == nil {
		return nil
	}
	if f.mutate != nil {
		out = f.mutate(out)
	}
	if f.hold {
		f.held = append(f.held, out)
	} else {
		f.queue = append(f.queue, out)
	}
	return nil
}

func (f *fakeTarget) Receive(context.Context, time.Duration) ([]byte, error) {
	if len(f.queue) == 0 {
		return nil, fmt.Errorf("read header: %w", context.DeadlineExceeded)
	}
	out := f.queue[0]
	f.queue = f.queue[1:]
	return out, nil
}

// releaseHeld delivers replies withheld while hold was set, ahead of
// anything queued later.
func (f *fakeTarget) releaseHeld() {
	f.hold = false
	f.queue = append(f.held, f.queue...)
	f.held = nil
}

func (f *fakeTarget) serve(frame enip.ENIPEncapsulation) []byte {
	switch frame.Command {
	case enip.ENIPCommandRegisterSession:
		return enip.EncodeENIP(enip.ENIPEncapsulation{
			Command:       frame.Command,
			SessionID:     f.session,
			SenderContext: frame.SenderContext,
			Data:          frame.Data,
		})
	case enip.ENIPCommandUnregisterSession:
		return nil
	case enip.ENIPCommandSendRRData:
		cip, err := enip.ParseSendRRDataResponse(frame.Data)
		if err != nil {
			f.t.Errorf("SendRRData request: %v", err)
			return nil
		}
		return enip.BuildSendRRData(f.session, frame.SenderContext, 0, f.handleCIP(cip))
	case enip.ENIPCommandSendUnitData:
		connID, seq, cip, err := enip.ParseSendUnitDataResponse(frame.Data)
		if err != nil {
			f.t.Errorf("SendUnitData request: %v", err)
			return nil
		}
		if connID != f.oToT {
			f.t.Errorf("connected request addressed to 0x%08X, want 0x%08X", connID, f.oToT)
		}
		return enip.BuildSendUnitData(f.session, frame.SenderContext, f.tToO, seq, f.handleCIP(cip))
	}
	f.t.Errorf("unexpected command 0x%04X", frame.Command)
	return nil
}

func (f *fakeTarget) handleCIP(data []byte) []byte {
	req, err := protocol.DecodeCIPRequest(data)
	if err != nil {
		f.t.Errorf("decode CIP request: %v", err)
		return nil
	}
	respond := func(status uint8, payload []byte) []byte {
		return protocol.EncodeCIPResponse(protocol.CIPResponse{Service: req.Service.Reply(), Status: status, Payload: payload})
	}

	if req.Service == 0x52 && req.Path.Name == "" && req.Path.Class == 0x06 {
		msg, route, err := protocol.ParseUnconnectedSendRequestPayload(req.Payload)
		if err != nil {
			f.t.Errorf("unconnected send: %v", err)
			return nil
		}
		f.lastRoute = route
		return f.handleCIP(msg)
	}
	f.cipSent = append(f.cipSent, req)

	switch {
	case req.Service == 0x54 && req.Path.Class == 0x06:
		p := req.Payload
		f.tToO, _ = codec.Uint32(p, 6)
		rpi, _ := codec.Uint32(p, 22)
		out := codec.AppendUint32(nil, f.oToT)
		out = codec.AppendUint32(out, f.tToO)
		out = append(out, p[10:18]...)
		out = codec.AppendUint32(out, rpi)
		out = codec.AppendUint32(out, rpi)
		return respond(0, append(out, 0, 0))
	case req.Service == 0x4E && req.Path.Class == 0x06:
		f.closes++
		return respond(0, append(append([]byte(nil), req.Payload[2:10]...), 0, 0))
	case req.Service == 0x4B && req.Path.Class == 0x67:
		requester := req.Payload[:7]
		out, err := f.tables.serve(req.Payload[7:])
		if err != nil {
			f.t.Errorf("serve PCCC: %v", err)
			return respond(0x04, nil)
		}
		return respond(0, append(append([]byte(nil), requester...), out...))
	case req.Service == 0x0E && req.Path.Class == 0x01:
		return respond(0, []byte{0x2A, 0x00})
	case req.Service == 0x52 && req.Path.Name != "":
		if req.Path.Name != "BigTag" {
			return respond(0x04, nil)
		}
		offset, _ := codec.Uint32(req.Payload, 2)
		rest := f.tagData[offset:]
		status := uint8(0)
		if len(rest) > f.tagChunk {
			rest, status = rest[:f.tagChunk], 0x06
		}
		return respond(status, append(codec.AppendUint16(nil, uint16(f.tagType)), rest...))
	case req.Service == 0x55 && req.Path.Class == 0x6B:
		var out []byte
		status, n := uint8(0), 0
		for _, sym := range f.symbols {
			if sym.Instance < req.Path.Instance {
				continue
			}
			if n == f.pageSize {
				status = 0x06
				break
			}
			out = codec.AppendUint32(out, sym.Instance)
			out = codec.AppendUint16(out, uint16(len(sym.Name)))
			out = append(out, sym.Name...)
			out = codec.AppendUint16(out, sym.Type)
			n++
		}
		return respond(status, out)
	}
	return respond(0x08, nil)
}
