package pccc

import "fmt"

// PCCC function codes used with CmdExtended (CMD 0x0F).

const (
	// FncEcho requests an echo response from the processor.
	FncEcho FunctionCode = 0x06

	// FncTypedRead3Addr performs a protected typed logical read with 3 address fields.
	// Data: byte_size, file_number, file_type, element_number, sub_element_number.
	FncTypedRead3Addr FunctionCode = 0xA2

	// FncTypedWrite3Addr performs a protected typed logical write with 3 address fields.
	// Data: byte_size, file_number, file_type, element_number, sub_element_number, data...
	FncTypedWrite3Addr FunctionCode = 0xAA

	// FncMaskedWrite3Addr performs a protected typed logical masked write with 3 address fields.
	// Data: byte_size, file_number, file_type, element_number, sub_element_number, mask, data.
	FncMaskedWrite3Addr FunctionCode = 0xAB
)

// String returns a human-readable name for the function code.
func (f FunctionCode) String() string {
	switch f {
	case FncEcho:
		return "Echo"
	case FncTypedRead3Addr:
		return "Typed_Read_3Addr"
	case FncTypedWrite3Addr:
		return "Typed_Write_3Addr"
	case FncMaskedWrite3Addr:
		return "Masked_Write_3Addr"
	default:
		return "Unknown"
	}
}

// IsRead returns true if the function code is a read operation.
func (f FunctionCode) IsRead() bool {
	return f == FncTypedRead3Addr || f == FncEcho
}

// IsWrite returns true if the function code is a write operation.
func (f FunctionCode) IsWrite() bool {
	return f == FncTypedWrite3Addr || f == FncMaskedWrite3Addr
}

// StatusExtended in STS means the real error is in the EXT STS byte.
const StatusExtended uint8 = 0xF0

// Local (low nibble) and remote (high nibble) STS codes.
var statusNames = map[uint8]string{
	0x01: "Destination node is out of buffer space",
	0x02: "Cannot guarantee delivery: link layer",
	0x03: "Duplicate token holder detected",
	0x04: "Local port is disconnected",
	0x05: "Application layer timed out waiting for a response",
	0x06: "Duplicate node detected",
	0x07: "Station is offline",
	0x08: "Hardware fault",
	0x10: "Illegal command or format",
	0x20: "Host has a problem and will not communicate",
	0x30: "Remote node host is missing, disconnected, or shut down",
	0x40: "Host could not complete function due to hardware fault",
	0x50: "Addressing problem or memory protect rungs",
	0x60: "Function not allowed due to command protection selection",
	0x70: "Processor is in Program mode",
	0x80: "Compatibility mode file missing or communication zone problem",
	0x90: "Remote node cannot buffer command",
	0xA0: "Wait ACK (1775-KA buffer full)",
	0xB0: "Remote node problem due to download",
	0xC0: "Wait ACK (1775-KA buffer full)",
	0xF0: "Error code in the EXT STS byte",
}

var extStatusNames = map[uint8]string{
	0x01: "A field has an illegal value",
	0x02: "Less levels specified in address than minimum for any address",
	0x03: "More levels specified in address than system supports",
	0x04: "Symbol not found",
	0x05: "Symbol is of improper format",
	0x06: "Address does not point to something usable",
	0x07: "File is wrong size",
	0x08: "Cannot complete request, situation has changed since the start of the command",
	0x09: "Data or file is too large",
	0x0A: "Transaction size plus word address is too large",
	0x0B: "Access denied, improper privilege",
	0x0C: "Condition cannot be generated, resource is not available",
	0x0D: "Condition already exists, resource is already available",
	0x0E: "Command cannot be executed",
	0x0F: "Histogram overflow",
	0x10: "No access",
	0x11: "Illegal data type",
	0x12: "Invalid parameter or invalid data",
	0x13: "Address reference exists to deleted area",
	0x14: "Command execution failure for unknown reason",
	0x15: "Data conversion error",
	0x16: "Scanner not able to communicate with 1771 rack adapter",
	0x17: "Type mismatch",
	0x18: "1771 module response was not valid",
	0x19: "Duplicated label",
	0x1A: "File is open; another node owns it",
	0x1B: "Another node is the program owner",
}

// StatusError reports a non-zero STS in a PCCC reply.
type StatusError struct {
	Status uint8
	ExtSTS uint8
}

func (e StatusError) Error() string {
	if e.Status == StatusExtended {
		text, ok := extStatusNames[e.ExtSTS]
		if !ok {
			text = "unknown extended status"
		}
		return fmt.Sprintf("PCCC status 0x%02X, EXT STS 0x%02X: %s", e.Status, e.ExtSTS, text)
	}
	text, ok := statusNames[e.Status]
	if !ok {
		text = "unknown status"
	}
	return fmt.Sprintf("PCCC status 0x%02X: %s", e.Status, text)
}
