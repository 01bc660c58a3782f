package enip

import (
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/codec"
	"github.com/tturner/cipmsg/internal/errors"
)

// Common Packet Format item type IDs.
const (
	CPFItemNullAddress      uint16 = 0x0000
	CPFItemListIdentity     uint16 = 0x000C
	CPFItemConnectedAddress uint16 = 0x00A1
	CPFItemConnectedData    uint16 = 0x00B1
	CPFItemUnconnectedData  uint16 = 0x00B2
	CPFItemSequencedAddress uint16 = 0x8002
)

// CPFItem is one Common Packet Format item. Order within a list is significant.
type CPFItem struct {
	TypeID uint16
	Data   []byte
}

// EncodeCPF encodes an item list: 2-byte count, then type, length and data per item.
func EncodeCPF(items []CPFItem) []byte {
	size := 2
	for _, item := range items {
		size += 4 + len(item.Data)
	}
	out := make([]byte, 0, size)
	out = codec.AppendUint16(out, uint16(len(items)))
	for _, item := range items {
		out = codec.AppendUint16(out, item.TypeID)
		out = codec.AppendUint16(out, uint16(len(item.Data)))
		out = append(out, item.Data...)
	}
	return out
}

// DecodeCPF decodes an item list. Declared lengths past the end of data are
// reported as MalformedFrameError.
func DecodeCPF(data []byte) ([]CPFItem, error) {
	count, err := codec.Uint16(data, 0)
	if err != nil {
		return nil, errors.MalformedFrameError{Reason: "missing CPF item count", Length: len(data)}
	}
	items := make([]CPFItem, 0, count)
	offset := 2
	for i := 0; i < int(count); i++ {
		typeID, err := codec.Uint16(data, offset)
		if err != nil {
			return nil, errors.MalformedFrameError{Reason: fmt.Sprintf("CPF item %d header truncated", i), Length: len(data)}
		}
		length, err := codec.Uint16(data, offset+2)
		if err != nil {
			return nil, errors.MalformedFrameError{Reason: fmt.Sprintf("CPF item %d header truncated", i), Length: len(data)}
		}
		offset += 4
		if offset+int(length) > len(data) {
			return nil, errors.MalformedFrameError{
				Reason: fmt.Sprintf("CPF item %d declares %d bytes, %d remain", i, length, len(data)-offset),
				Length: len(data),
			}
		}
		item := CPFItem{TypeID: typeID}
		if length > 0 {
			item.Data = data[offset : offset+int(length)]
		}
		items = append(items, item)
		offset += int(length)
	}
	return items, nil
}

// FindItem returns the first item with the given type.
func FindItem(items []CPFItem, typeID uint16) (CPFItem, bool) {
	for _, item := range items {
		if item.TypeID == typeID {
			return item, true
		}
	}
	return CPFItem{}, false
}
