package spec

// CIP object class IDs used by the client.
const (
	CIPClassIdentityObject    uint16 = 0x01
	CIPClassMessageRouter     uint16 = 0x02
	CIPClassAssembly          uint16 = 0x04
	CIPClassConnectionManager uint16 = 0x06
	CIPClassPCCCObject        uint16 = 0x67
	CIPClassSymbolObject      uint16 = 0x6B
	CIPClassTemplateObject    uint16 = 0x6C
	CIPClassTCPIPInterface    uint16 = 0xF5
	CIPClassEthernetLink      uint16 = 0xF6
)

var cipClassNames = map[uint16]string{
	CIPClassIdentityObject:    "Identity",
	CIPClassMessageRouter:     "Message_Router",
	CIPClassAssembly:          "Assembly",
	CIPClassConnectionManager: "Connection_Manager",
	CIPClassPCCCObject:        "PCCC",
	CIPClassSymbolObject:      "Symbol",
	CIPClassTemplateObject:    "Template",
	CIPClassTCPIPInterface:    "TCP/IP_Interface",
	CIPClassEthernetLink:      "Ethernet_Link",
}

// ClassName returns a display name for a class ID, or "" when unknown.
func ClassName(class uint16) string {
	return cipClassNames[class]
}
