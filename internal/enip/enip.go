package enip

// EtherNet/IP (ENIP) encapsulation framing. All header fields are little-endian.

import (
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/codec"
	"github.com/tturner/cipmsg/internal/cip/spec"
	"github.com/tturner/cipmsg/internal/errors"
)

// HeaderSize is the fixed length of the encapsulation header.
const HeaderSize = 24

// Encapsulation command codes (mirrors of the cip/spec constants).
const (
	ENIPCommandNOP               = spec.ENIPCommandNOP
	ENIPCommandListServices      = spec.ENIPCommandListServices
	ENIPCommandListIdentity      = spec.ENIPCommandListIdentity
	ENIPCommandListInterfaces    = spec.ENIPCommandListInterfaces
	ENIPCommandRegisterSession   = spec.ENIPCommandRegisterSession
	ENIPCommandUnregisterSession = spec.ENIPCommandUnregisterSession
	ENIPCommandSendRRData        = spec.ENIPCommandSendRRData
	ENIPCommandSendUnitData      = spec.ENIPCommandSendUnitData
)

// ENIPStatusSuccess is the only header status after which the payload is trusted.
const ENIPStatusSuccess = spec.ENIPStatusSuccess

// ENIPEncapsulation represents an EtherNet/IP encapsulation frame.
type ENIPEncapsulation struct {
	Command       uint16
	Length        uint16
	SessionID     uint32
	Status        uint32
	SenderContext [8]byte
	Options       uint32
	Data          []byte
}

// EncodeENIP encodes an EtherNet/IP encapsulation packet. Length is taken
// from len(Data).
func EncodeENIP(encap ENIPEncapsulation) []byte {
	packet := make([]byte, 0, HeaderSize+len(encap.Data))
	packet = codec.AppendUint16(packet, encap.Command)
	packet = codec.AppendUint16(packet, uint16(len(encap.Data)))
	packet = codec.AppendUint32(packet, encap.SessionID)
	packet = codec.AppendUint32(packet, encap.Status)
	packet = append(packet, encap.SenderContext[:]...)
	packet = codec.AppendUint32(packet, encap.Options)
	return append(packet, encap.Data...)
}

// DecodeENIP decodes an EtherNet/IP encapsulation packet. The declared
// length must match the bytes following the header exactly.
func DecodeENIP(data []byte) (ENIPEncapsulation, error) {
	if len(data) < HeaderSize {
		return ENIPEncapsulation{}, errors.MalformedFrameError{
			Reason: fmt.Sprintf("packet shorter than %d-byte header", HeaderSize),
			Length: len(data),
		}
	}

	var encap ENIPEncapsulation
	encap.Command, _ = codec.Uint16(data, 0)
	encap.Length, _ = codec.Uint16(data, 2)
	encap.SessionID, _ = codec.Uint32(data, 4)
	encap.Status, _ = codec.Uint32(data, 8)
	copy(encap.SenderContext[:], data[12:20])
	encap.Options, _ = codec.Uint32(data, 20)

	if int(encap.Length) != len(data)-HeaderSize {
		return encap, errors.MalformedFrameError{
			Reason: fmt.Sprintf("declared length %d, have %d bytes after header", encap.Length, len(data)-HeaderSize),
			Length: len(data),
		}
	}
	if encap.Length > 0 {
		encap.Data = data[HeaderSize:]
	}
	return encap, nil
}

// FrameLength returns the total frame size announced by a header, for
// stream readers that must know how much to read.
func FrameLength(header []byte) (int, error) {
	length, err := codec.Uint16(header, 2)
	if err != nil || len(header) < HeaderSize {
		return 0, errors.MalformedFrameError{Reason: "incomplete header", Length: len(header)}
	}
	return HeaderSize + int(length), nil
}

// BuildRegisterSession builds a RegisterSession encapsulation
// (protocol version 1, option flags 0).
func BuildRegisterSession(senderContext [8]byte) []byte {
	var regData []byte
	regData = codec.AppendUint16(regData, 1)
	regData = codec.AppendUint16(regData, 0)

	return EncodeENIP(ENIPEncapsulation{
		Command:       ENIPCommandRegisterSession,
		SenderContext: senderContext,
		Data:          regData,
	})
}

// BuildUnregisterSession builds an UnregisterSession encapsulation.
func BuildUnregisterSession(sessionID uint32, senderContext [8]byte) []byte {
	return EncodeENIP(ENIPEncapsulation{
		Command:       ENIPCommandUnregisterSession,
		SessionID:     sessionID,
		SenderContext: senderContext,
	})
}

// BuildSendRRData builds a SendRRData (UCMM) encapsulation: interface handle 0,
// timeout, CPF with a null address item and an unconnected data item.
func BuildSendRRData(sessionID uint32, senderContext [8]byte, timeout uint16, cipData []byte) []byte {
	items := []CPFItem{
		{TypeID: CPFItemNullAddress},
		{TypeID: CPFItemUnconnectedData, Data: cipData},
	}
	return EncodeENIP(ENIPEncapsulation{
		Command:       ENIPCommandSendRRData,
		SessionID:     sessionID,
		SenderContext: senderContext,
		Data:          buildCommandData(timeout, items),
	})
}

// BuildSendUnitData builds a SendUnitData (connected Class-3) encapsulation:
// CPF with a connected address item carrying the target connection ID and a
// connected data item led by the 16-bit sequence count.
func BuildSendUnitData(sessionID uint32, senderContext [8]byte, connectionID uint32, sequence uint16, cipData []byte) []byte {
	data := make([]byte, 0, 2+len(cipData))
	data = codec.AppendUint16(data, sequence)
	data = append(data, cipData...)

	items := []CPFItem{
		{TypeID: CPFItemConnectedAddress, Data: codec.AppendUint32(nil, connectionID)},
		{TypeID: CPFItemConnectedData, Data: data},
	}
	return EncodeENIP(ENIPEncapsulation{
		Command:       ENIPCommandSendUnitData,
		SessionID:     sessionID,
		SenderContext: senderContext,
		Data:          buildCommandData(0, items),
	})
}

func buildCommandData(timeout uint16, items []CPFItem) []byte {
	data := codec.AppendUint32(nil, 0) // interface handle
	data = codec.AppendUint16(data, timeout)
	return append(data, EncodeCPF(items)...)
}

// ParseCommandData splits a SendRRData/SendUnitData body into its CPF items.
func ParseCommandData(data []byte) ([]CPFItem, error) {
	if len(data) < 6 {
		return nil, errors.MalformedFrameError{Reason: "command data shorter than interface handle and timeout", Length: len(data)}
	}
	return DecodeCPF(data[6:])
}

// ParseSendRRDataResponse returns the unconnected data item of a SendRRData reply.
func ParseSendRRDataResponse(data []byte) ([]byte, error) {
	items, err := ParseCommandData(data)
	if err != nil {
		return nil, err
	}
	item, ok := FindItem(items, CPFItemUnconnectedData)
	if !ok {
		return nil, errors.MalformedFrameError{Reason: "no unconnected data item", Length: len(data)}
	}
	return item.Data, nil
}

// ParseSendUnitDataResponse returns the connection ID, sequence count and CIP
// data of a SendUnitData reply.
func ParseSendUnitDataResponse(data []byte) (uint32, uint16, []byte, error) {
	items, err := ParseCommandData(data)
	if err != nil {
		return 0, 0, nil, err
	}
	addr, ok := FindItem(items, CPFItemConnectedAddress)
	if !ok || len(addr.Data) < 4 {
		return 0, 0, nil, errors.MalformedFrameError{Reason: "no connected address item", Length: len(data)}
	}
	item, ok := FindItem(items, CPFItemConnectedData)
	if !ok || len(item.Data) < 2 {
		return 0, 0, nil, errors.MalformedFrameError{Reason: "no connected data item", Length: len(data)}
	}
	connID, _ := codec.Uint32(addr.Data, 0)
	sequence, _ := codec.Uint16(item.Data, 0)
	return connID, sequence, item.Data[2:], nil
}
