package client

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/cip/spec"
	cipmsgErrors "github.com/tturner/cipmsg/internal/errors"
	"github.com/tturner/cipmsg/internal/metrics"
	"github.com/tturner/cipmsg/internal/pccc"
	"github.com/tturner/cipmsg/internal/reply"
)

// maxFragments bounds a fragmented read or tag list walk.
const maxFragments = 4096

// GenericRequest is an explicit message to any object.
type GenericRequest struct {
	Service      protocol.CIPServiceCode
	Class        uint16
	Instance     uint32
	Attribute    uint16
	HasAttribute bool
	RequestData  []byte
	// Connected sends over the Class-3 connection instead of SendRRData.
	Connected bool
	// UnconnectedSend wraps the request for routing through the Connection
	// Manager. RoutePath overrides the client's route when non-empty.
	UnconnectedSend bool
	RoutePath       []byte
	// Format decodes the reply data; without it only Raw is set.
	Format []protocol.Field
}

// GenericReply is the decoded reply to a GenericRequest.
type GenericReply struct {
	Service protocol.CIPServiceCode
	Raw     []byte
	Values  []protocol.FieldValue
}

// GenericMessage sends req and decodes the reply per req.Format.
func (c *Client) GenericMessage(ctx context.Context, req GenericRequest) (GenericReply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireSession(); err != nil {
		return GenericReply{}, err
	}
	if req.Connected {
		if err := c.requireConnection(); err != nil {
			return GenericReply{}, err
		}
	}

	cipReq := protocol.CIPRequest{
		Service: req.Service,
		Path: protocol.CIPPath{
			Class:        req.Class,
			Instance:     req.Instance,
			Attribute:    req.Attribute,
			HasAttribute: req.HasAttribute,
		},
		Payload: req.RequestData,
	}
	if req.UnconnectedSend && !req.Connected {
		route := req.RoutePath
		if len(route) == 0 {
			route = c.routePath
		}
		wrapped, err := protocol.BuildUnconnectedSend(cipReq, protocol.UnconnectedSendOptions{RoutePath: route})
		if err != nil {
			return GenericReply{}, fmt.Errorf("generic message: %w", err)
		}
		cipReq = wrapped
	}

	target := fmt.Sprintf("%s %s", spec.ServiceName(req.Service), cipReq.Path)
	x, err := c.sendCIP(ctx, metrics.OperationGeneric, target, req.Connected, func(uint16) (protocol.CIPRequest, error) {
		return cipReq, nil
	})
	if err != nil {
		return GenericReply{}, err
	}
	if x.result.MoreFragments {
		return GenericReply{}, fmt.Errorf("generic message: %w", cipmsgErrors.ErrInsufficientPacketSpace)
	}

	out := GenericReply{Service: x.result.Outcome.Service, Raw: x.result.Payload}
	if len(req.Format) > 0 {
		out.Values, err = protocol.DecodeFields(out.Raw, req.Format)
		if err != nil {
			return out, fmt.Errorf("decode reply: %w", err)
		}
	}
	return out, nil
}

// ReadTag reads n items at a PCCC data-table address over the connection.
// Bit addresses yield bool; structured elements yield three words each.
func (c *Client) ReadTag(ctx context.Context, address string, n int) ([]any, error) {
	addr, err := pccc.ParseAddress(address)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireConnection(); err != nil {
		return nil, err
	}

	data, err := c.executePCCC(ctx, metrics.OperationRead, addr.String(), func(tns uint16) (pccc.Request, error) {
		return pccc.BuildTypedReadRequest(tns, addr, n)
	})
	if err != nil {
		return nil, err
	}
	return pccc.DecodeValues(addr, data, n)
}

// WriteTag writes values at a PCCC data-table address over the connection.
// A bit address takes exactly one value and is written with a masked write
// so the rest of the word is untouched.
func (c *Client) WriteTag(ctx context.Context, address string, values []any) error {
	addr, err := pccc.ParseAddress(address)
	if err != nil {
		return err
	}

	var build func(tns uint16) (pccc.Request, error)
	if addr.HasBit {
		if len(values) != 1 {
			return fmt.Errorf("%s: bit write takes one value, got %d", address, len(values))
		}
		mask, word, err := pccc.BitMask(addr, values[0])
		if err != nil {
			return err
		}
		build = func(tns uint16) (pccc.Request, error) {
			return pccc.BuildMaskedWriteRequest(tns, addr, mask, word), nil
		}
	} else {
		data, err := pccc.EncodeValues(addr, values)
		if err != nil {
			return err
		}
		build = func(tns uint16) (pccc.Request, error) {
			return pccc.BuildTypedWriteRequest(tns, addr, data)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireConnection(); err != nil {
		return err
	}
	_, err = c.executePCCC(ctx, metrics.OperationWrite, addr.String(), build)
	return err
}

// Echo sends payload through the PCCC object with the Echo function and
// returns the data the processor sent back, which must equal payload.
func (c *Client) Echo(ctx context.Context, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireConnection(); err != nil {
		return nil, err
	}
	data, err := c.executePCCC(ctx, metrics.OperationEcho, "PCCC echo", func(tns uint16) (pccc.Request, error) {
		return pccc.EchoRequest(tns, payload), nil
	})
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(data, payload) {
		return data, fmt.Errorf("PCCC echo: got % X, sent % X", data, payload)
	}
	return data, nil
}

// executePCCC carries one PCCC request in Execute PCCC over the connection
// and returns the reply data. The PCCC transaction number is the connected
// sequence count of the exchange.
func (c *Client) executePCCC(ctx context.Context, op metrics.OperationType, target string, build func(tns uint16) (pccc.Request, error)) ([]byte, error) {
	x, err := c.sendCIP(ctx, op, target, true, func(seq uint16) (protocol.CIPRequest, error) {
		req, err := build(seq)
		if err != nil {
			return protocol.CIPRequest{}, err
		}
		return pccc.WrapExecutePCCC(pccc.EncodeRequest(req), c.vendorID, c.serial), nil
	})
	if err != nil {
		return nil, err
	}
	if x.result.MoreFragments {
		return nil, fmt.Errorf("%s: %w", target, cipmsgErrors.ErrInsufficientPacketSpace)
	}
	if x.result.Outcome.Service != spec.CIPServiceExecutePCCC.Reply() {
		return nil, fmt.Errorf("%s: reply service 0x%02X is not Execute PCCC", target, uint8(x.result.Outcome.Service))
	}

	raw, err := pccc.UnwrapExecutePCCC(x.result.Payload)
	if err != nil {
		return nil, cipmsgErrors.MalformedFrameError{Reason: err.Error(), Length: len(x.result.Payload)}
	}
	resp, err := pccc.DecodeResponse(raw)
	if err != nil {
		return nil, cipmsgErrors.MalformedFrameError{Reason: err.Error(), Length: len(raw)}
	}
	if err := pccc.CheckResponse(resp, x.seq); err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}
	return resp.Data, nil
}

// ReadTagFragmented reads a Logix symbolic tag with Read Tag Fragmented,
// reissuing the request at the next byte offset while the target reports
// insufficient packet space. The connection is used when established.
func (c *Client) ReadTagFragmented(ctx context.Context, name string, elements uint16) (reply.TagValue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return reply.TagValue{}, err
	}
	connected := c.state == StateConnectionEstablished
	path := protocol.BuildSymbolicEPATH(name)

	var asm reply.Assembler
	var first reply.TagValue
	for !asm.Done() {
		if asm.Fragments() >= maxFragments {
			return reply.TagValue{}, fmt.Errorf("%s: more than %d fragments", name, maxFragments)
		}
		offset := asm.Offset()
		x, err := c.sendCIP(ctx, metrics.OperationReadFragmented, name, connected, func(uint16) (protocol.CIPRequest, error) {
			return c.routed(protocol.CIPRequest{
				Service: spec.CIPServiceReadTagFragmented,
				Path:    protocol.CIPPath{Name: name},
				RawPath: path,
				Payload: protocol.BuildReadTagFragmentedPayload(elements, offset),
			}, connected)
		})
		if err != nil {
			return reply.TagValue{}, err
		}
		value, err := reply.DecodeReadTagFragment(x.result.Outcome)
		if err != nil {
			return reply.TagValue{}, err
		}
		if asm.Fragments() == 0 {
			first = value
		} else if value.Type != first.Type {
			return reply.TagValue{}, fmt.Errorf("%s: fragment type 0x%04X differs from 0x%04X", name, uint16(value.Type), uint16(first.Type))
		}
		if x.result.MoreFragments && len(value.Data) == 0 {
			return reply.TagValue{}, fmt.Errorf("%s: empty fragment at offset %d: %w", name, offset, cipmsgErrors.ErrInsufficientPacketSpace)
		}
		if _, err := asm.Add(value.Data, x.result.MoreFragments); err != nil {
			return reply.TagValue{}, err
		}
	}

	first.Data = asm.Bytes()
	return first, nil
}

// GetTagList walks the controller's Symbol object with Get Instance
// Attribute List, continuing after the last instance while the target
// reports insufficient packet space.
func (c *Client) GetTagList(ctx context.Context) ([]reply.TagInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	connected := c.state == StateConnectionEstablished

	var tags []reply.TagInfo
	instance := uint32(0)
	for i := 0; ; i++ {
		if i >= maxFragments {
			return tags, fmt.Errorf("tag list: more than %d fragments", maxFragments)
		}
		start := instance
		x, err := c.sendCIP(ctx, metrics.OperationTagList, "Symbol", connected, func(uint16) (protocol.CIPRequest, error) {
			return c.routed(protocol.CIPRequest{
				Service: spec.CIPServiceGetInstanceAttrList,
				Path:    protocol.CIPPath{Class: spec.CIPClassSymbolObject, Instance: start},
				Payload: protocol.BuildGetInstanceAttributeListPayload(),
			}, connected)
		})
		if err != nil {
			return tags, err
		}
		page, err := reply.DecodeTagList(x.result.Outcome)
		if err != nil {
			return tags, err
		}
		tags = append(tags, page...)
		if !x.result.MoreFragments {
			return tags, nil
		}
		if len(page) == 0 {
			return tags, fmt.Errorf("tag list: empty page at instance %d: %w", start, cipmsgErrors.ErrInsufficientPacketSpace)
		}
		instance = page[len(page)-1].Instance + 1
	}
}

// routed wraps an unconnected request in Unconnected Send when the client
// has a route path. Connected requests travel the connection's own path.
func (c *Client) routed(req protocol.CIPRequest, connected bool) (protocol.CIPRequest, error) {
	if connected || len(c.routePath) == 0 {
		return req, nil
	}
	return protocol.BuildUnconnectedSend(req, protocol.UnconnectedSendOptions{RoutePath: c.routePath})
}
