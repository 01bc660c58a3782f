package protocol

// Forward Open / Forward Close for Class-3 connected explicit messaging.

import (
	"fmt"
	"strings"
	"time"

	"github.com/tturner/cipmsg/internal/cip/codec"
)

const (
	serviceForwardOpen  CIPServiceCode = 0x54
	serviceForwardClose CIPServiceCode = 0x4E

	// TransportClass3Server is transport class 3, application triggered, server.
	TransportClass3Server uint8 = 0xA3

	// Network connection parameter bits.
	netParamVariableSize uint16 = 0x0200
	netParamPointToPoint uint16 = 0x4000
	netParamSizeMask     uint16 = 0x01FF
)

// messageRouterPath addresses the Message Router at the end of a connection path.
var messageRouterPath = []byte{0x20, 0x02, 0x24, 0x01}

// ConnectionParams describes a Class-3 connection request.
type ConnectionParams struct {
	PriorityTick      uint8
	TimeoutTicks      uint8
	TToOConnectionID  uint32 // proposed by the originator
	ConnectionSerial  uint16
	VendorID          uint16
	OriginatorSerial  uint32
	TimeoutMultiplier uint8
	RPI               time.Duration
	PacketSize        uint16 // at most 511 bytes
	FixedSize         bool
	Priority          string // low, high, scheduled or urgent
	TransportTrigger  uint8
	RoutePath         []byte // port segments in front of the Message Router
}

// NetworkParameters encodes the 16-bit connection parameter word:
// point-to-point, priority, fixed/variable and size.
func (p ConnectionParams) NetworkParameters() (uint16, error) {
	if p.PacketSize == 0 || p.PacketSize > netParamSizeMask {
		return 0, fmt.Errorf("packet size %d outside 1-%d", p.PacketSize, netParamSizeMask)
	}
	word := netParamPointToPoint | p.PacketSize
	if !p.FixedSize {
		word |= netParamVariableSize
	}
	switch strings.ToLower(p.Priority) {
	case "", "low":
	case "high":
		word |= 0x0400
	case "scheduled":
		word |= 0x0800
	case "urgent":
		word |= 0x0C00
	default:
		return 0, fmt.Errorf("unknown connection priority %q", p.Priority)
	}
	return word, nil
}

// BuildForwardOpen builds a Forward Open (0x54) to the Connection Manager.
func BuildForwardOpen(p ConnectionParams) (CIPRequest, error) {
	netParams, err := p.NetworkParameters()
	if err != nil {
		return CIPRequest{}, err
	}
	rpi := p.RPI.Microseconds()
	if rpi <= 0 || rpi > 0xFFFFFFFF {
		return CIPRequest{}, fmt.Errorf("RPI %s out of range", p.RPI)
	}
	path := codec.PadToWord(append(append([]byte(nil), p.RoutePath...), messageRouterPath...))
	if len(path)/2 > 0xFF {
		return CIPRequest{}, fmt.Errorf("connection path too long: %d words", len(path)/2)
	}

	priority, ticks := p.PriorityTick, p.TimeoutTicks
	if priority == 0 {
		priority = DefaultPriorityTick
	}
	if ticks == 0 {
		ticks = DefaultTimeoutTicks
	}
	trigger := p.TransportTrigger
	if trigger == 0 {
		trigger = TransportClass3Server
	}

	payload := []byte{priority, ticks}
	payload = codec.AppendUint32(payload, 0) // O->T CID, assigned by the target
	payload = codec.AppendUint32(payload, p.TToOConnectionID)
	payload = codec.AppendUint16(payload, p.ConnectionSerial)
	payload = codec.AppendUint16(payload, p.VendorID)
	payload = codec.AppendUint32(payload, p.OriginatorSerial)
	payload = append(payload, p.TimeoutMultiplier, 0x00, 0x00, 0x00)
	payload = codec.AppendUint32(payload, uint32(rpi))
	payload = codec.AppendUint16(payload, netParams)
	payload = codec.AppendUint32(payload, uint32(rpi))
	payload = codec.AppendUint16(payload, netParams)
	payload = append(payload, trigger, uint8(len(path)/2))
	payload = append(payload, path...)

	return CIPRequest{
		Service: serviceForwardOpen,
		Path:    CIPPath{Class: classConnectionManager, Instance: 0x01},
		Payload: payload,
	}, nil
}

// ForwardOpenReply is the success reply data of a Forward Open.
type ForwardOpenReply struct {
	OToTConnectionID uint32 // used on every connected request
	TToOConnectionID uint32
	ConnectionSerial uint16
	VendorID         uint16
	OriginatorSerial uint32
	OToTAPI          time.Duration
	TToOAPI          time.Duration
}

// ParseForwardOpenReply decodes the data of a successful Forward Open reply.
func ParseForwardOpenReply(data []byte) (ForwardOpenReply, error) {
	if len(data) < 26 {
		return ForwardOpenReply{}, fmt.Errorf("forward open reply too short: %d bytes (minimum 26)", len(data))
	}
	var r ForwardOpenReply
	r.OToTConnectionID, _ = codec.Uint32(data, 0)
	r.TToOConnectionID, _ = codec.Uint32(data, 4)
	r.ConnectionSerial, _ = codec.Uint16(data, 8)
	r.VendorID, _ = codec.Uint16(data, 10)
	r.OriginatorSerial, _ = codec.Uint32(data, 12)
	oToT, _ := codec.Uint32(data, 16)
	tToO, _ := codec.Uint32(data, 20)
	r.OToTAPI = time.Duration(oToT) * time.Microsecond
	r.TToOAPI = time.Duration(tToO) * time.Microsecond
	return r, nil
}

// BuildForwardClose builds a Forward Close (0x4E) for the connection
// identified by its serial triad.
func BuildForwardClose(p ConnectionParams) (CIPRequest, error) {
	path := codec.PadToWord(append(append([]byte(nil), p.RoutePath...), messageRouterPath...))
	if len(path)/2 > 0xFF {
		return CIPRequest{}, fmt.Errorf("connection path too long: %d words", len(path)/2)
	}
	priority, ticks := p.PriorityTick, p.TimeoutTicks
	if priority == 0 {
		priority = DefaultPriorityTick
	}
	if ticks == 0 {
		ticks = DefaultTimeoutTicks
	}

	payload := []byte{priority, ticks}
	payload = codec.AppendUint16(payload, p.ConnectionSerial)
	payload = codec.AppendUint16(payload, p.VendorID)
	payload = codec.AppendUint32(payload, p.OriginatorSerial)
	payload = append(payload, uint8(len(path)/2), 0x00)
	payload = append(payload, path...)

	return CIPRequest{
		Service: serviceForwardClose,
		Path:    CIPPath{Class: classConnectionManager, Instance: 0x01},
		Payload: payload,
	}, nil
}
