package reply

import (
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/codec"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/cip/spec"
	"github.com/tturner/cipmsg/internal/errors"
)

// structTypeCode prefixes a structure handle in Read Tag replies.
const structTypeCode = 0x02A0

// Assembler accumulates fragment bytes in arrival order.
type Assembler struct {
	buf       []byte
	fragments int
	done      bool
}

// Add appends one fragment. A fragment that is not marked MoreFragments
// completes the value; Add reports whether the value is complete.
func (a *Assembler) Add(data []byte, more bool) (bool, error) {
	if a.done {
		return true, fmt.Errorf("fragment %d after final fragment", a.fragments+1)
	}
	a.buf = append(a.buf, data...)
	a.fragments++
	a.done = !more
	return a.done, nil
}

// Offset is the byte offset the next fragment request should start at.
func (a *Assembler) Offset() uint32 {
	return uint32(len(a.buf))
}

// Bytes returns the accumulated value.
func (a *Assembler) Bytes() []byte {
	return a.buf
}

// Fragments returns how many fragments were added.
func (a *Assembler) Fragments() int {
	return a.fragments
}

// Done reports whether the final fragment has been added.
func (a *Assembler) Done() bool {
	return a.done
}

// TagValue is a Read Tag Fragmented fragment with its type code stripped.
// StructHandle is set for structure types.
type TagValue struct {
	Type         protocol.CIPDataType
	StructHandle uint16
	Data         []byte
}

// DecodeReadTagFragment decodes the data of a Read Tag Fragmented reply.
func DecodeReadTagFragment(out Outcome) (TagValue, error) {
	if out.Service != spec.CIPReplyReadTagFragmented {
		return TagValue{}, fmt.Errorf("reply service 0x%02X is not Read Tag Fragmented", uint8(out.Service))
	}
	code, err := codec.Uint16(out.Data, 0)
	if err != nil {
		return TagValue{}, errors.MalformedFrameError{Reason: "read tag reply missing type code", Length: len(out.Data)}
	}
	value := TagValue{Type: protocol.CIPDataType(code)}
	offset := 2
	if code == structTypeCode {
		value.StructHandle, err = codec.Uint16(out.Data, 2)
		if err != nil {
			return TagValue{}, errors.MalformedFrameError{Reason: "read tag reply missing structure handle", Length: len(out.Data)}
		}
		offset = 4
	}
	value.Data = out.Data[offset:]
	return value, nil
}

// TagInfo is one entry of a controller's symbol list.
type TagInfo struct {
	Instance uint32
	Name     string
	Type     uint16
}

// IsStructure reports whether the symbol type marks a structure.
func (t TagInfo) IsStructure() bool {
	return t.Type&0x8000 != 0
}

// IsSystem reports whether the symbol is a controller-internal tag.
func (t TagInfo) IsSystem() bool {
	return t.Type&0x1000 != 0
}

// DecodeTagList decodes the data of a Get Instance Attribute List reply
// requesting the name and type attributes: per entry a 32-bit instance, a
// 16-bit name length, the name, and a 16-bit symbol type.
func DecodeTagList(out Outcome) ([]TagInfo, error) {
	if out.Service != spec.CIPReplyGetInstanceAttrList {
		return nil, fmt.Errorf("reply service 0x%02X is not Get Instance Attribute List", uint8(out.Service))
	}
	data := out.Data
	var tags []TagInfo
	for offset := 0; offset < len(data); {
		instance, err := codec.Uint32(data, offset)
		if err != nil {
			return nil, truncatedEntry(len(tags), data)
		}
		nameLen, err := codec.Uint16(data, offset+4)
		if err != nil {
			return nil, truncatedEntry(len(tags), data)
		}
		nameStart := offset + 6
		nameEnd := nameStart + int(nameLen)
		symType, err := codec.Uint16(data, nameEnd)
		if err != nil {
			return nil, truncatedEntry(len(tags), data)
		}
		tags = append(tags, TagInfo{
			Instance: instance,
			Name:     string(data[nameStart:nameEnd]),
			Type:     symType,
		})
		offset = nameEnd + 2
	}
	return tags, nil
}

func truncatedEntry(index int, data []byte) error {
	return errors.MalformedFrameError{Reason: fmt.Sprintf("tag list entry %d truncated", index), Length: len(data)}
}
