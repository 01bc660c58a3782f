package protocol

import (
	"fmt"
	"strings"
)

// ANSI extended symbolic segment type.
const EPathSegmentSymbolic = 0x91

// BuildSymbolicEPATH builds an EPATH using ANSI extended symbolic segments (0x91),
// one per dotted member of tag.
func BuildSymbolicEPATH(tag string) []byte {
	if tag == "" {
		return nil
	}
	var epath []byte
	for _, seg := range strings.Split(tag, ".") {
		if seg == "" {
			continue
		}
		epath = append(epath, EPathSegmentSymbolic, byte(len(seg)))
		epath = append(epath, seg...)
		if len(seg)%2 != 0 {
			epath = append(epath, 0x00)
		}
	}
	return epath
}

// DecodeSymbolicEPATH decodes ANSI extended symbolic segments (0x91) into a tag name.
func DecodeSymbolicEPATH(data []byte) (string, error) {
	if len(data) < 2 || data[0] != EPathSegmentSymbolic {
		return "", fmt.Errorf("not a symbolic EPATH")
	}
	offset := 0
	var segments []string
	for offset < len(data) {
		if data[offset] == 0x00 {
			offset++
			continue
		}
		if data[offset] != EPathSegmentSymbolic {
			return "", fmt.Errorf("invalid symbolic segment: 0x%02X", data[offset])
		}
		if len(data) < offset+2 {
			return "", fmt.Errorf("incomplete symbolic segment length")
		}
		length := int(data[offset+1])
		offset += 2
		if len(data) < offset+length {
			return "", fmt.Errorf("incomplete symbolic segment data")
		}
		segments = append(segments, string(data[offset:offset+length]))
		offset += length
		if length%2 != 0 && offset < len(data) {
			offset++
		}
	}
	return strings.Join(segments, "."), nil
}
