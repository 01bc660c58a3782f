package pccc

// PCCC message encoding and decoding.
//
// PCCC messages have this structure when tunneled via CIP Execute PCCC (0x4B):
//   request: CMD (1) | STS (1) | TNS (2 LE) | [FNC (1)] | [Data...]
//   reply:   CMD|0x40 (1) | STS (1) | TNS (2 LE) | [EXT STS (1)] | [Data...]
//
// The CMD byte determines whether FNC is present (CmdExtended uses FNC,
// simple commands like CmdProtectedRead/Write do not).

import (
	"encoding/binary"
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/codec"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/cip/spec"
	"github.com/tturner/cipmsg/internal/errors"
)

// MinRequestLen is the minimum PCCC request length (CMD + STS + TNS).
const MinRequestLen = 4

// requesterIDLength covers the length byte, vendor ID and serial number.
const requesterIDLength = 7

// EncodeRequest encodes a PCCC request into bytes.
func EncodeRequest(req Request) []byte {
	size := 4 // CMD + STS + TNS
	hasFnc := req.Command.HasFunctionCode()
	if hasFnc {
		size++ // FNC byte
	}
	size += len(req.Data)

	buf := make([]byte, size)
	buf[0] = uint8(req.Command)
	buf[1] = req.Status
	binary.LittleEndian.PutUint16(buf[2:4], req.TNS)

	offset := 4
	if hasFnc {
		buf[offset] = uint8(req.Function)
		offset++
	}
	copy(buf[offset:], req.Data)

	return buf
}

// DecodeRequest decodes a PCCC request from bytes.
func DecodeRequest(data []byte) (Request, error) {
	if len(data) < MinRequestLen {
		return Request{}, fmt.Errorf("PCCC request too short: %d bytes (minimum %d)", len(data), MinRequestLen)
	}

	req := Request{
		Command: Command(data[0]),
		Status:  data[1],
		TNS:     binary.LittleEndian.Uint16(data[2:4]),
	}

	offset := 4
	if req.Command.HasFunctionCode() {
		if len(data) < 5 {
			return Request{}, fmt.Errorf("PCCC extended command missing function code")
		}
		req.Function = FunctionCode(data[offset])
		offset++
	}

	if offset < len(data) {
		req.Data = make([]byte, len(data)-offset)
		copy(req.Data, data[offset:])
	}

	return req, nil
}

// EncodeResponse encodes a PCCC reply into bytes.
func EncodeResponse(resp Response) []byte {
	buf := make([]byte, 4, 5+len(resp.Data))
	buf[0] = uint8(resp.Command)
	buf[1] = resp.Status
	binary.LittleEndian.PutUint16(buf[2:4], resp.TNS)
	if resp.Status == StatusExtended {
		buf = append(buf, resp.ExtSTS)
	}
	return append(buf, resp.Data...)
}

// DecodeResponse decodes a PCCC reply from bytes.
func DecodeResponse(data []byte) (Response, error) {
	if len(data) < MinRequestLen {
		return Response{}, fmt.Errorf("PCCC response too short: %d bytes (minimum %d)", len(data), MinRequestLen)
	}

	resp := Response{
		Command: Command(data[0]),
		Status:  data[1],
		TNS:     binary.LittleEndian.Uint16(data[2:4]),
	}

	offset := 4
	if resp.Status == StatusExtended {
		if len(data) < 5 {
			return Response{}, fmt.Errorf("PCCC response missing EXT STS")
		}
		resp.ExtSTS = data[offset]
		offset++
	}

	if offset < len(data) {
		resp.Data = make([]byte, len(data)-offset)
		copy(resp.Data, data[offset:])
	}

	return resp, nil
}

// CheckResponse validates a reply against the request that produced it.
func CheckResponse(resp Response, tns uint16) error {
	if !resp.Command.IsReply() {
		return fmt.Errorf("PCCC command 0x%02X is not a reply", uint8(resp.Command))
	}
	if resp.TNS != tns {
		return errors.SequenceMismatchError{Field: "PCCC TNS", Want: uint64(tns), Got: uint64(resp.TNS)}
	}
	if resp.Status != 0 {
		return StatusError{Status: resp.Status, ExtSTS: resp.ExtSTS}
	}
	return nil
}

// BuildTypedReadRequest builds a protected typed logical read with three
// address fields (CMD 0x0F, FNC 0xA2) for count items starting at addr.
func BuildTypedReadRequest(tns uint16, addr Address, count int) (Request, error) {
	if count < 1 {
		return Request{}, fmt.Errorf("element count must be positive, got %d", count)
	}
	byteCount := addr.ElementSize() * count
	if byteCount > 0xFF {
		return Request{}, fmt.Errorf("read of %d bytes exceeds 255-byte PCCC limit", byteCount)
	}
	return Request{
		Command:  CmdExtended,
		TNS:      tns,
		Function: FncTypedRead3Addr,
		Data:     buildAddressData(addr, uint8(byteCount)),
	}, nil
}

// BuildTypedWriteRequest builds a protected typed logical write with three
// address fields (CMD 0x0F, FNC 0xAA).
func BuildTypedWriteRequest(tns uint16, addr Address, writeData []byte) (Request, error) {
	if len(writeData) == 0 {
		return Request{}, fmt.Errorf("no data to write")
	}
	if len(writeData) > 0xFF {
		return Request{}, fmt.Errorf("write of %d bytes exceeds 255-byte PCCC limit", len(writeData))
	}
	data := buildAddressData(addr, uint8(len(writeData)))
	return Request{
		Command:  CmdExtended,
		TNS:      tns,
		Function: FncTypedWrite3Addr,
		Data:     append(data, writeData...),
	}, nil
}

// BuildMaskedWriteRequest builds a protected typed logical masked write
// (CMD 0x0F, FNC 0xAB) touching only the bits set in mask.
func BuildMaskedWriteRequest(tns uint16, addr Address, mask, value uint16) Request {
	data := buildAddressData(addr, 2)
	data = codec.AppendUint16(data, mask)
	data = codec.AppendUint16(data, value)
	return Request{
		Command:  CmdExtended,
		TNS:      tns,
		Function: FncMaskedWrite3Addr,
		Data:     data,
	}
}

// EchoRequest builds an Echo request (CMD 0x0F, FNC 0x06).
func EchoRequest(tns uint16, payload []byte) Request {
	return Request{
		Command:  CmdExtended,
		TNS:      tns,
		Function: FncEcho,
		Data:     payload,
	}
}

// buildAddressData encodes the three address fields for typed read/write.
// Format: byte_count(1), file_number, file_type(1), element, sub_element.
func buildAddressData(addr Address, byteCount uint8) []byte {
	data := []byte{byteCount}
	data = appendAddressField(data, addr.FileNumber)
	data = append(data, uint8(addr.FileType))
	data = appendAddressField(data, addr.Element)
	sub := uint16(0)
	if addr.HasSub {
		sub = uint16(addr.SubElement)
	}
	return appendAddressField(data, sub)
}

// appendAddressField writes one byte, or 0xFF followed by a 16-bit value
// for numbers that do not fit below 0xFF.
func appendAddressField(data []byte, v uint16) []byte {
	if v < 0xFF {
		return append(data, uint8(v))
	}
	data = append(data, 0xFF)
	return codec.AppendUint16(data, v)
}

// DecodeAddressData parses the byte count and three address fields of a
// typed read/write request. The remaining bytes are the write data.
func DecodeAddressData(data []byte) (byteCount uint8, addr Address, remaining []byte, err error) {
	if len(data) < 5 {
		return 0, Address{}, nil, fmt.Errorf("typed address data too short: %d bytes (minimum 5)", len(data))
	}
	byteCount = data[0]
	offset := 1

	fileNumber, offset, err := readAddressField(data, offset)
	if err != nil {
		return 0, Address{}, nil, err
	}
	if offset >= len(data) {
		return 0, Address{}, nil, fmt.Errorf("typed address data missing file type")
	}
	addr.FileType = FileType(data[offset])
	offset++
	element, offset, err := readAddressField(data, offset)
	if err != nil {
		return 0, Address{}, nil, err
	}
	sub, offset, err := readAddressField(data, offset)
	if err != nil {
		return 0, Address{}, nil, err
	}
	if sub > 0xFF {
		return 0, Address{}, nil, fmt.Errorf("sub-element %d out of range", sub)
	}

	addr.FileNumber, addr.HasFileNumber = fileNumber, true
	addr.Element, addr.HasElement = element, true
	addr.SubElement, addr.HasSub = uint8(sub), sub != 0
	addr.Letter = addr.FileType.String()
	addr.AddressField = 3
	if offset < len(data) {
		remaining = data[offset:]
	}
	return byteCount, addr, remaining, nil
}

func readAddressField(data []byte, offset int) (uint16, int, error) {
	if offset >= len(data) {
		return 0, offset, fmt.Errorf("typed address data truncated at byte %d", offset)
	}
	if data[offset] != 0xFF {
		return uint16(data[offset]), offset + 1, nil
	}
	if offset+3 > len(data) {
		return 0, offset, fmt.Errorf("extended address field truncated at byte %d", offset)
	}
	return binary.LittleEndian.Uint16(data[offset+1:]), offset + 3, nil
}

// WrapExecutePCCC carries a PCCC frame in an Execute PCCC request to the
// PCCC Object, prefixed by the originator's requester ID.
func WrapExecutePCCC(pcccBytes []byte, vendorID uint16, serial uint32) protocol.CIPRequest {
	payload := make([]byte, 0, requesterIDLength+len(pcccBytes))
	payload = append(payload, requesterIDLength)
	payload = codec.AppendUint16(payload, vendorID)
	payload = codec.AppendUint32(payload, serial)
	payload = append(payload, pcccBytes...)
	return protocol.CIPRequest{
		Service: spec.CIPServiceExecutePCCC,
		Path: protocol.CIPPath{
			Class:    spec.CIPClassPCCCObject,
			Instance: 0x01,
		},
		Payload: payload,
	}
}

// UnwrapExecutePCCC strips the requester ID from an Execute PCCC payload
// (request or reply data) and returns the PCCC bytes.
func UnwrapExecutePCCC(payload []byte) ([]byte, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("execute PCCC payload empty")
	}
	idLen := int(payload[0])
	if idLen < 1 || len(payload) < idLen {
		return nil, fmt.Errorf("requester ID length %d exceeds %d-byte payload", idLen, len(payload))
	}
	return payload[idLen:], nil
}

// IsPCCCPayload performs a heuristic check to determine if a byte slice
// looks like a PCCC request or response. Used for protocol detection.
func IsPCCCPayload(data []byte) bool {
	if len(data) < MinRequestLen {
		return false
	}

	cmd := Command(data[0]) &^ replyBit
	sts := data[1]

	switch cmd {
	case CmdProtectedWrite, CmdUnprotectedRead, CmdProtectedRead,
		CmdUnprotectedWrite, CmdExtended:
	default:
		return false
	}

	// Requests carry STS 0; replies use the remote-error nibble or 0xF0.
	if sts&0x0F != 0 && sts != StatusExtended {
		return false
	}

	if cmd == CmdExtended && !Command(data[0]).IsReply() && len(data) >= 5 {
		switch FunctionCode(data[4]) {
		case FncEcho, FncTypedRead3Addr, FncTypedWrite3Addr, FncMaskedWrite3Addr:
		default:
			return false
		}
	}

	return true
}
