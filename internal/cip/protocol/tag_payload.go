package protocol

import "github.com/tturner/cipmsg/internal/cip/codec"

// Symbol object attributes requested by Get Instance Attribute List.
const (
	SymbolAttributeName uint16 = 0x01
	SymbolAttributeType uint16 = 0x02
)

// BuildReadTagPayload encodes a Read_Tag request payload.
func BuildReadTagPayload(elementCount uint16) []byte {
	if elementCount == 0 {
		elementCount = 1
	}
	return codec.AppendUint16(nil, elementCount)
}

// BuildReadTagFragmentedPayload encodes a Read_Tag_Fragmented request payload.
func BuildReadTagFragmentedPayload(elementCount uint16, byteOffset uint32) []byte {
	if elementCount == 0 {
		elementCount = 1
	}
	payload := make([]byte, 0, 6)
	payload = codec.AppendUint16(payload, elementCount)
	return codec.AppendUint32(payload, byteOffset)
}

// BuildWriteTagPayload encodes a Write_Tag request payload.
func BuildWriteTagPayload(typeCode CIPDataType, elementCount uint16, data []byte) []byte {
	if elementCount == 0 {
		elementCount = 1
	}
	payload := make([]byte, 0, 4+len(data))
	payload = codec.AppendUint16(payload, uint16(typeCode))
	payload = codec.AppendUint16(payload, elementCount)
	return append(payload, data...)
}

// BuildGetInstanceAttributeListPayload encodes the attribute list of a
// Get_Instance_Attribute_List request. With no attributes it asks for the
// symbol name and type.
func BuildGetInstanceAttributeListPayload(attributes ...uint16) []byte {
	if len(attributes) == 0 {
		attributes = []uint16{SymbolAttributeName, SymbolAttributeType}
	}
	payload := make([]byte, 0, 2+2*len(attributes))
	payload = codec.AppendUint16(payload, uint16(len(attributes)))
	for _, attr := range attributes {
		payload = codec.AppendUint16(payload, attr)
	}
	return payload
}
