package spec

import (
	"fmt"
	"strings"

	"github.com/tturner/cipmsg/internal/cip/protocol"
)

// LabelService returns a contextual label for a service code.
// Codes 0x4B-0x55 are object specific, so the class in path decides the name.
func LabelService(service uint8, path protocol.CIPPath, isResponse bool) (string, bool) {
	base := service &^ protocol.ReplyBit
	unknownLabel := fmt.Sprintf("Unknown(0x%02X)", base)
	name := ServiceName(protocol.CIPServiceCode(base))

	switch base {
	case 0x4B:
		if path.Class != 0 && path.Class != CIPClassPCCCObject {
			name = unknownLabel
		}
	case 0x4C:
		if path.Class == CIPClassTemplateObject {
			name = "Template_Read"
		}
	case 0x4E:
		if path.Class == CIPClassConnectionManager {
			name = "Forward_Close"
		}
	case 0x52:
		switch {
		case path.Class == CIPClassConnectionManager:
			name = "Unconnected_Send"
		case path.Class == CIPClassSymbolObject || path.Class == CIPClassTemplateObject || path.Name != "":
			name = "Read_Tag_Fragmented"
		default:
			name = unknownLabel
		}
	case 0x54:
		if path.Class != 0 && path.Class != CIPClassConnectionManager {
			name = unknownLabel
		}
	}

	known := name != unknownLabel
	if isResponse {
		name += "_Response"
	}
	return name, known
}

// IsUnknownServiceLabel reports if the label is an Unknown placeholder.
func IsUnknownServiceLabel(label string) bool {
	return strings.HasPrefix(label, "Unknown(")
}
