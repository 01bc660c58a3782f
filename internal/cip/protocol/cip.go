package protocol

// CIP (Common Industrial Protocol) Message Router encoding and decoding.

import (
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/codec"
)

// CIPServiceCode represents a CIP service code.
type CIPServiceCode uint8

// ReplyBit is OR'ed into the service code of every Message Router reply.
const ReplyBit = 0x80

// Reply returns the service code a target echoes in its reply.
func (s CIPServiceCode) Reply() CIPServiceCode {
	return s | ReplyBit
}

// IsReply reports whether the reply bit is set.
func (s CIPServiceCode) IsReply() bool {
	return s&ReplyBit != 0
}

// CIPPath represents a CIP logical path (class/instance/attribute).
type CIPPath struct {
	Class        uint16
	Instance     uint32
	Attribute    uint16
	HasAttribute bool
	Name         string // symbolic tag name, for logging
}

func (p CIPPath) String() string {
	if p.Name != "" {
		return p.Name
	}
	if p.HasAttribute {
		return fmt.Sprintf("0x%02X/%d/%d", p.Class, p.Instance, p.Attribute)
	}
	return fmt.Sprintf("0x%02X/%d", p.Class, p.Instance)
}

// CIPRequest represents a CIP service request.
type CIPRequest struct {
	Service CIPServiceCode
	Path    CIPPath
	RawPath []byte // Optional raw EPATH override (e.g., symbolic segments)
	Payload []byte // raw CIP request body (no service/path)
}

// CIPResponse represents a CIP service response.
type CIPResponse struct {
	Service   CIPServiceCode
	Path      CIPPath
	Status    uint8  // general status from CIP response
	ExtStatus []byte // optional additional status data
	Payload   []byte // raw response data
}

// EPATH logical segment types.
const (
	EPathSegmentClassID     = 0x20
	EPathSegmentInstanceID  = 0x24
	EPathSegmentAttributeID = 0x30

	epathFormat16 = 0x01
	epathFormat32 = 0x02
)

// EncodeEPATH encodes a CIP path into padded EPATH format. Segment width follows
// the magnitude of each value: 8-bit, 16-bit (pad byte) or 32-bit (pad byte).
func EncodeEPATH(path CIPPath) []byte {
	var epath []byte
	epath = appendLogical(epath, EPathSegmentClassID, uint32(path.Class))
	epath = appendLogical(epath, EPathSegmentInstanceID, path.Instance)
	if path.HasAttribute {
		epath = appendLogical(epath, EPathSegmentAttributeID, uint32(path.Attribute))
	}
	return epath
}

func appendLogical(epath []byte, segment byte, value uint32) []byte {
	switch {
	case value <= 0xFF:
		return append(epath, segment, uint8(value))
	case value <= 0xFFFF:
		epath = append(epath, segment|epathFormat16, 0x00)
		return codec.AppendUint16(epath, uint16(value))
	default:
		epath = append(epath, segment|epathFormat32, 0x00)
		return codec.AppendUint32(epath, value)
	}
}

// DecodeEPATH decodes a padded logical EPATH into a CIPPath.
func DecodeEPATH(data []byte) (CIPPath, error) {
	var path CIPPath
	offset := 0
	seen := 0
	for offset < len(data) {
		seg := data[offset]
		if seg == 0x00 {
			offset++
			continue
		}
		kind := seg &^ 0x03
		format := seg & 0x03
		var value uint32
		switch format {
		case 0x00:
			if len(data) < offset+2 {
				return path, fmt.Errorf("truncated 8-bit segment at offset %d", offset)
			}
			value = uint32(data[offset+1])
			offset += 2
		case epathFormat16:
			v, err := codec.Uint16(data, offset+2)
			if err != nil {
				return path, fmt.Errorf("truncated 16-bit segment: %w", err)
			}
			value = uint32(v)
			offset += 4
		case epathFormat32:
			v, err := codec.Uint32(data, offset+2)
			if err != nil {
				return path, fmt.Errorf("truncated 32-bit segment: %w", err)
			}
			value = v
			offset += 6
		default:
			return path, fmt.Errorf("unsupported segment format 0x%02X", seg)
		}
		switch kind {
		case EPathSegmentClassID:
			path.Class = uint16(value)
		case EPathSegmentInstanceID:
			path.Instance = value
		case EPathSegmentAttributeID:
			path.Attribute = uint16(value)
			path.HasAttribute = true
		default:
			return path, fmt.Errorf("unsupported segment type 0x%02X", seg)
		}
		seen++
	}
	if seen == 0 {
		return path, fmt.Errorf("empty EPATH")
	}
	return path, nil
}

// EncodeCIPRequest encodes a CIP request into bytes:
// service, path size in words, padded path, request data.
func EncodeCIPRequest(req CIPRequest) ([]byte, error) {
	epath := req.RawPath
	if len(epath) == 0 {
		epath = EncodeEPATH(req.Path)
	}
	epath = codec.PadToWord(append([]byte(nil), epath...))
	words := len(epath) / 2
	if words > 0xFF {
		return nil, fmt.Errorf("request path too long: %d words", words)
	}

	data := make([]byte, 0, 2+len(epath)+len(req.Payload))
	data = append(data, uint8(req.Service), uint8(words))
	data = append(data, epath...)
	data = append(data, req.Payload...)
	return data, nil
}

// DecodeCIPRequest decodes a CIP request from bytes.
func DecodeCIPRequest(data []byte) (CIPRequest, error) {
	if len(data) < 2 {
		return CIPRequest{}, fmt.Errorf("request too short: %d bytes", len(data))
	}
	req := CIPRequest{Service: CIPServiceCode(data[0])}
	pathBytes := int(data[1]) * 2
	if len(data) < 2+pathBytes {
		return req, fmt.Errorf("incomplete EPATH: need %d bytes, have %d", pathBytes, len(data)-2)
	}
	raw := data[2 : 2+pathBytes]
	req.RawPath = append([]byte(nil), raw...)
	if path, err := DecodeEPATH(raw); err == nil {
		req.Path = path
	} else if name, symErr := DecodeSymbolicEPATH(raw); symErr == nil {
		req.Path = CIPPath{Name: name}
	}
	if len(data) > 2+pathBytes {
		req.Payload = data[2+pathBytes:]
	}
	return req, nil
}

// EncodeCIPResponse encodes a CIP response into bytes.
func EncodeCIPResponse(resp CIPResponse) []byte {
	ext := codec.PadToWord(append([]byte(nil), resp.ExtStatus...))
	data := make([]byte, 0, 4+len(ext)+len(resp.Payload))
	data = append(data, uint8(resp.Service), 0x00, resp.Status, uint8(len(ext)/2))
	data = append(data, ext...)
	data = append(data, resp.Payload...)
	return data
}

// DecodeCIPResponse decodes a Message Router reply:
// service, reserved, general status, extended status size (words), extended status, data.
func DecodeCIPResponse(data []byte, path CIPPath) (CIPResponse, error) {
	if len(data) < 4 {
		return CIPResponse{}, fmt.Errorf("response too short: %d bytes (minimum 4: service + reserved + status + ext size)", len(data))
	}

	resp := CIPResponse{
		Service: CIPServiceCode(data[0]),
		Path:    path,
		Status:  data[2],
	}
	offset := 4
	extLen := int(data[3]) * 2
	if extLen > 0 {
		if len(data) < offset+extLen {
			return resp, fmt.Errorf("extended status too short: need %d bytes, have %d", extLen, len(data)-offset)
		}
		resp.ExtStatus = data[offset : offset+extLen]
		offset += extLen
	}
	if len(data) > offset {
		resp.Payload = data[offset:]
	}
	return resp, nil
}
