package spec

import "fmt"

// Encapsulation commands.
const (
	ENIPCommandNOP               uint16 = 0x0000
	ENIPCommandListTargets       uint16 = 0x0001
	ENIPCommandListServices      uint16 = 0x0004
	ENIPCommandListIdentity      uint16 = 0x0063
	ENIPCommandListInterfaces    uint16 = 0x0064
	ENIPCommandRegisterSession   uint16 = 0x0065
	ENIPCommandUnregisterSession uint16 = 0x0066
	ENIPCommandSendRRData        uint16 = 0x006F
	ENIPCommandSendUnitData      uint16 = 0x0070
)

// Encapsulation header status codes.
const (
	ENIPStatusSuccess            uint32 = 0x0000
	ENIPStatusUnsupportedCommand uint32 = 0x0001
	ENIPStatusOutOfMemory        uint32 = 0x0002
	ENIPStatusIncorrectData      uint32 = 0x0003
	ENIPStatusInvalidSession     uint32 = 0x0064
	ENIPStatusInvalidLength      uint32 = 0x0065
	ENIPStatusUnsupportedVersion uint32 = 0x0069
)

// CIP general status codes handled explicitly by the client.
const (
	CIPStatusSuccess                 uint8 = 0x00
	CIPStatusConnectionFailure       uint8 = 0x01
	CIPStatusInsufficientPacketSpace uint8 = 0x06
	CIPStatusGeneralError            uint8 = 0xFF
)

// commandNames holds the mnemonics printed for encapsulation commands and the
// Connection Manager services issued over them.
var commandNames = map[uint16]string{
	0x4E: "FORWARD_CLOSE",
	0x52: "UNCONNECTED_SEND",
	0x54: "FORWARD_OPEN",
	0x6F: "send_rr_data",
	0x70: "send_unit_data",
	0x00: "nop",
	0x01: "list_targets",
	0x04: "list_services",
	0x63: "list_identity",
	0x64: "list_interfaces",
	0x65: "register_session",
	0x66: "unregister_session",
}

var encapStatusNames = map[uint32]string{
	ENIPStatusSuccess:            "Success",
	ENIPStatusUnsupportedCommand: "Sender issued an invalid or unsupported encapsulation command",
	ENIPStatusOutOfMemory:        "Insufficient memory resources in the receiver to handle the command",
	ENIPStatusIncorrectData:      "Poorly formed or incorrect data in the data portion of the encapsulation message",
	ENIPStatusInvalidSession:     "Originator used an invalid session handle when sending an encapsulation message",
	ENIPStatusInvalidLength:      "Target received a message of invalid length",
	ENIPStatusUnsupportedVersion: "Unsupported encapsulation protocol revision",
}

var generalStatusNames = map[uint8]string{
	0x01: "Connection failure (see extended status)",
	0x02: "Insufficient resource",
	0x03: "Invalid value",
	0x04: "IOI syntax error. A syntax error was detected decoding the Request Path (see extended status)",
	0x05: "Destination unknown, class unsupported, instance undefined or structure element undefined (see extended status)",
	0x06: "Insufficient Packet Space",
	0x07: "Connection lost",
	0x08: "Service not supported",
	0x09: "Error in data segment or invalid attribute value",
	0x0A: "Attribute list error",
	0x0B: "State already exist",
	0x0C: "Object state conflict",
	0x0D: "Object already exist",
	0x0E: "Attribute not settable",
	0x0F: "Permission denied",
	0x10: "Device state conflict",
	0x11: "Reply data too large",
	0x12: "Fragmentation of a primitive value",
	0x13: "Insufficient command data",
	0x14: "Attribute not supported",
	0x15: "Too much data",
	0x16: "Object does not exist",
	0x17: "Service fragmentation sequence not in progress",
	0x18: "No stored attribute data",
	0x19: "Store operation failure",
	0x1A: "Bridge request too large",
	0x1B: "Bridge response too large",
	0x1C: "Attribute list shortage",
	0x1D: "Invalid attribute list",
	0x1E: "Request service error",
	0x1F: "Connection related failure (see extended status)",
	0x20: "Invalid parameter",
	0x21: "Write-once value or medium already written",
	0x22: "Invalid reply received",
	0x25: "Key segment error",
	0x26: "Invalid IOI error",
	0x27: "Unexpected attribute in list",
	0x28: "DeviceNet error - invalid member ID",
	0x29: "DeviceNet error - member not settable",
	0xD1: "Module not in run state",
	0xFB: "Message port not supported",
	0xFC: "Message unsupported data type",
	0xFD: "Message uninitialized",
	0xFE: "Message timeout",
	0xFF: "General Error (see extended status)",
}

var outOfResources = map[uint32]string{
	0x0000: "Extended status out of memory",
	0x0001: "Extended status out of instances",
}

// extendedStatusNames is keyed by general status, then extended code.
var extendedStatusNames = map[uint8]map[uint32]string{
	0x01: {
		0x0100: "Connection in use",
		0x0103: "Transport not supported",
		0x0106: "Ownership conflict",
		0x0107: "Connection not found",
		0x0108: "Invalid connection type",
		0x0109: "Invalid connection size",
		0x0110: "Module not configured",
		0x0111: "EPR not supported",
		0x0114: "Wrong module",
		0x0115: "Wrong device type",
		0x0116: "Wrong revision",
		0x0118: "Invalid configuration format",
		0x011A: "Application out of connections",
		0x0203: "Connection timeout",
		0x0204: "Unconnected message timeout",
		0x0205: "Unconnected send parameter error",
		0x0206: "Message too large",
		0x0301: "No buffer memory",
		0x0302: "Bandwidth not available",
		0x0303: "No screeners available",
		0x0305: "Signature match",
		0x0311: "Port not available",
		0x0312: "Link address not available",
		0x0315: "Invalid segment type",
		0x0317: "Connection not scheduled",
	},
	0x04: outOfResources,
	0x05: outOfResources,
	0x1F: {
		0x0203: "Connection timeout",
	},
	0xFF: {
		0x0007: "Wrong data type",
		0x2001: "Excessive IOI",
		0x2002: "Bad parameter value",
		0x2018: "Semaphore reject",
		0x201B: "Size too small",
		0x201C: "Invalid size",
		0x2100: "Privilege failure",
		0x2101: "Invalid keyswitch position",
		0x2102: "Password invalid",
		0x2103: "No password issued",
		0x2104: "Address out of range",
		0x2105: "Address and how many out of range",
		0x2106: "Data in use",
		0x2107: "Type is invalid or not supported",
		0x2108: "Controller in upload or download mode",
		0x2109: "Attempt to change number of array dimensions",
		0x210A: "Invalid symbol name",
		0x210B: "Symbol does not exist",
		0x210E: "Search failed",
		0x210F: "Task cannot start",
		0x2110: "Unable to write",
		0x2111: "Unable to read",
		0x2112: "Shared routine not editable",
		0x2113: "Controller in faulted mode",
		0x2114: "Run mode inhibited",
	},
}

// CommandName returns the mnemonic for an encapsulation command or Connection
// Manager service, or a hex placeholder.
func CommandName(command uint16) string {
	if name, ok := commandNames[command]; ok {
		return name
	}
	return fmt.Sprintf("command(0x%04X)", command)
}

// EncapStatusName looks up an encapsulation header status.
func EncapStatusName(code uint32) (string, bool) {
	name, ok := encapStatusNames[code]
	return name, ok
}

// GeneralStatusName looks up a CIP general status.
func GeneralStatusName(code uint8) (string, bool) {
	if code == CIPStatusSuccess {
		return "Success", true
	}
	name, ok := generalStatusNames[code]
	return name, ok
}

// ExtendedStatusName looks up an extended status under its general status.
func ExtendedStatusName(general uint8, code uint32) (string, bool) {
	table, ok := extendedStatusNames[general]
	if !ok {
		return "", false
	}
	name, ok := table[code]
	return name, ok
}
