package pccc

import (
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/protocol"
)

// WordType returns the CIP type used to interpret one word (or float) of
// the addressed file. Structured elements are read word by word as INT.
func (a Address) WordType() protocol.CIPDataType {
	switch a.FileType {
	case FileTypeFloat:
		return protocol.CIPTypeREAL
	case FileTypeInteger, FileTypeTimer, FileTypeCounter, FileTypeControl:
		return protocol.CIPTypeINT
	default:
		return protocol.CIPTypeWORD
	}
}

// DecodeValues interprets typed read data for count items at addr. Bit
// addresses yield bool, structured elements without a sub-element yield
// three words each, everything else one value per item.
func DecodeValues(addr Address, data []byte, count int) ([]any, error) {
	want := addr.ElementSize() * count
	if len(data) < want {
		return nil, fmt.Errorf("%s: expected %d bytes for %d item(s), got %d", addr.RawAddress, want, count, len(data))
	}
	data = data[:want]

	if addr.HasBit {
		values := make([]any, 0, count)
		for i := 0; i < count; i++ {
			word := uint16(data[2*i]) | uint16(data[2*i+1])<<8
			values = append(values, word&(1<<addr.BitNumber) != 0)
		}
		return values, nil
	}

	t := addr.WordType()
	values := make([]any, 0, want/t.Size())
	for offset := 0; offset < len(data); {
		v, n, err := protocol.DecodeValue(t, data[offset:])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", addr.RawAddress, err)
		}
		values = append(values, v)
		offset += n
	}
	return values, nil
}

// EncodeValues encodes values for a typed write at addr. Bit addresses are
// rejected; use BitMask with a masked write instead.
func EncodeValues(addr Address, values []any) ([]byte, error) {
	if addr.HasBit {
		return nil, fmt.Errorf("%s: bit address needs a masked write", addr.RawAddress)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: no values", addr.RawAddress)
	}
	t := addr.WordType()
	out := make([]byte, 0, len(values)*t.Size())
	for i, v := range values {
		b, err := protocol.EncodeValue(t, v)
		if err != nil {
			return nil, fmt.Errorf("%s value %d: %w", addr.RawAddress, i, err)
		}
		out = append(out, b...)
	}
	if len(out)%addr.ElementSize() != 0 {
		return nil, fmt.Errorf("%s: %d bytes is not a whole number of %d-byte elements", addr.RawAddress, len(out), addr.ElementSize())
	}
	return out, nil
}

// BitMask returns the mask and value words that set or clear addr's bit.
func BitMask(addr Address, value any) (mask, word uint16, err error) {
	if !addr.HasBit {
		return 0, 0, fmt.Errorf("%s is not a bit address", addr.RawAddress)
	}
	b, err := protocol.EncodeValue(protocol.CIPTypeBOOL, value)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", addr.RawAddress, err)
	}
	mask = 1 << addr.BitNumber
	if b[0] != 0 {
		word = mask
	}
	return mask, word, nil
}
