package codec

// Little-endian helpers shared by the ENIP, CIP and PCCC encoders. Every
// multi-byte field on the EtherNet/IP wire is little-endian.

import (
	"encoding/binary"
	"fmt"
	"math"
)

// AppendUint16 appends a little-endian uint16 to dst.
func AppendUint16(dst []byte, value uint16) []byte {
	return binary.LittleEndian.AppendUint16(dst, value)
}

// AppendUint32 appends a little-endian uint32 to dst.
func AppendUint32(dst []byte, value uint32) []byte {
	return binary.LittleEndian.AppendUint32(dst, value)
}

// AppendUint64 appends a little-endian uint64 to dst.
func AppendUint64(dst []byte, value uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, value)
}

// AppendFloat32 appends an IEEE-754 single as little-endian bytes.
func AppendFloat32(dst []byte, value float32) []byte {
	return binary.LittleEndian.AppendUint32(dst, math.Float32bits(value))
}

// Uint16 reads a little-endian uint16 at offset, reporting truncation.
func Uint16(data []byte, offset int) (uint16, error) {
	if offset < 0 || len(data) < offset+2 {
		return 0, fmt.Errorf("need 2 bytes at offset %d, have %d", offset, len(data))
	}
	return binary.LittleEndian.Uint16(data[offset:]), nil
}

// Uint32 reads a little-endian uint32 at offset, reporting truncation.
func Uint32(data []byte, offset int) (uint32, error) {
	if offset < 0 || len(data) < offset+4 {
		return 0, fmt.Errorf("need 4 bytes at offset %d, have %d", offset, len(data))
	}
	return binary.LittleEndian.Uint32(data[offset:]), nil
}

// PadToWord appends a zero byte when data has odd length.
func PadToWord(data []byte) []byte {
	if len(data)%2 != 0 {
		return append(data, 0x00)
	}
	return data
}

// WordLen returns the number of 16-bit words needed to hold n bytes.
func WordLen(n int) int {
	return (n + 1) / 2
}
