package protocol

import (
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/codec"
)

const (
	serviceUnconnectedSend CIPServiceCode = 0x52
	classConnectionManager uint16         = 0x06

	// DefaultPriorityTick is the priority/time-tick byte used by Unconnected
	// Send and Forward Open requests.
	DefaultPriorityTick uint8 = 0x0A
	// DefaultTimeoutTicks is the timeout tick count paired with DefaultPriorityTick.
	DefaultTimeoutTicks uint8 = 0x05
)

// UnconnectedSendOptions defines UCMM unconnected send payload settings.
type UnconnectedSendOptions struct {
	PriorityTick uint8
	TimeoutTicks uint8
	RoutePath    []byte
}

// BuildUnconnectedSendPayload builds the payload for an Unconnected Send (0x52) request:
// priority, timeout ticks, message size, message, pad, route size in words, reserved, route.
func BuildUnconnectedSendPayload(messageRequest []byte, opts UnconnectedSendOptions) ([]byte, error) {
	if len(messageRequest) == 0 {
		return nil, fmt.Errorf("embedded message is empty")
	}
	if len(messageRequest) > 0xFFFF {
		return nil, fmt.Errorf("embedded message too long: %d bytes", len(messageRequest))
	}
	priority := opts.PriorityTick
	if priority == 0 {
		priority = DefaultPriorityTick
	}
	timeout := opts.TimeoutTicks
	if timeout == 0 {
		timeout = DefaultTimeoutTicks
	}

	routePath := codec.PadToWord(append([]byte(nil), opts.RoutePath...))
	if len(routePath)/2 > 0xFF {
		return nil, fmt.Errorf("route path too long: %d words", len(routePath)/2)
	}

	payload := make([]byte, 0, 6+len(messageRequest)+len(routePath))
	payload = append(payload, priority, timeout)
	payload = codec.AppendUint16(payload, uint16(len(messageRequest)))
	payload = append(payload, messageRequest...)
	if len(messageRequest)%2 != 0 {
		payload = append(payload, 0x00)
	}
	payload = append(payload, uint8(len(routePath)/2), 0x00)
	payload = append(payload, routePath...)
	return payload, nil
}

// BuildUnconnectedSend wraps an encoded request in an Unconnected Send addressed
// to the Connection Manager.
func BuildUnconnectedSend(embedded CIPRequest, opts UnconnectedSendOptions) (CIPRequest, error) {
	message, err := EncodeCIPRequest(embedded)
	if err != nil {
		return CIPRequest{}, fmt.Errorf("encode embedded request: %w", err)
	}
	payload, err := BuildUnconnectedSendPayload(message, opts)
	if err != nil {
		return CIPRequest{}, err
	}
	return CIPRequest{
		Service: serviceUnconnectedSend,
		Path:    CIPPath{Class: classConnectionManager, Instance: 0x01},
		Payload: payload,
	}, nil
}

// ParseUnconnectedSendRequestPayload extracts the embedded message and route path.
func ParseUnconnectedSendRequestPayload(payload []byte) ([]byte, []byte, error) {
	msgSize, err := codec.Uint16(payload, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("unconnected send header: %w", err)
	}
	offset := 4
	end := offset + int(msgSize)
	if msgSize == 0 || end > len(payload) {
		return nil, nil, fmt.Errorf("embedded message size %d exceeds payload", msgSize)
	}
	msg := payload[offset:end]
	offset = end
	if msgSize%2 != 0 {
		offset++
	}
	if len(payload) < offset+2 {
		return msg, nil, nil
	}
	routeBytes := int(payload[offset]) * 2
	offset += 2
	if len(payload) < offset+routeBytes {
		return msg, nil, fmt.Errorf("route path truncated: need %d bytes, have %d", routeBytes, len(payload)-offset)
	}
	return msg, payload[offset : offset+routeBytes], nil
}
