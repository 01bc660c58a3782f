package spec

import (
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/protocol"
)

// serviceInfo names a service code. Common services mean the same thing on
// every object; the rest are object specific and LabelService refines
// them by class.
type serviceInfo struct {
	name   string
	common bool
}

// Codes shared by two objects (0x4E, 0x52) carry their Connection Manager
// name here.
var services = map[protocol.CIPServiceCode]serviceInfo{
	CIPServiceGetAttributeAll:      {"Get_Attribute_All", true},
	CIPServiceSetAttributeAll:      {"Set_Attribute_All", true},
	CIPServiceGetAttributeList:     {"Get_Attribute_List", true},
	CIPServiceSetAttributeList:     {"Set_Attribute_List", true},
	CIPServiceReset:                {"Reset", true},
	CIPServiceStart:                {"Start", true},
	CIPServiceStop:                 {"Stop", true},
	CIPServiceCreate:               {"Create", true},
	CIPServiceDelete:               {"Delete", true},
	CIPServiceMultipleService:      {"Multiple_Service_Packet", true},
	CIPServiceApplyAttributes:      {"Apply_Attributes", true},
	CIPServiceGetAttributeSingle:   {"Get_Attribute_Single", true},
	CIPServiceSetAttributeSingle:   {"Set_Attribute_Single", true},
	CIPServiceFindNextObjectInst:   {"Find_Next_Object_Instance", true},
	CIPServiceErrorResponse:        {"Error_Response", true},
	CIPServiceRestore:              {"Restore", true},
	CIPServiceSave:                 {"Save", true},
	CIPServiceNoOp:                 {"No_Op", true},
	CIPServiceGetMember:            {"Get_Member", true},
	CIPServiceSetMember:            {"Set_Member", true},
	CIPServiceInsertMember:         {"Insert_Member", true},
	CIPServiceRemoveMember:         {"Remove_Member", true},
	CIPServiceGroupSync:            {"Group_Sync", true},
	CIPServiceExecutePCCC:          {"Execute_PCCC", false},
	CIPServiceReadTag:              {"Read_Tag", false},
	CIPServiceWriteTag:             {"Write_Tag", false},
	CIPServiceReadModifyWrite:      {"Read_Modify_Write", false},
	CIPServiceUnconnectedSend:      {"Unconnected_Send", false},
	CIPServiceWriteTagFragmented:   {"Write_Tag_Fragmented", false},
	CIPServiceForwardOpen:          {"Forward_Open", false},
	CIPServiceGetInstanceAttrList:  {"Get_Instance_Attribute_List", false},
	CIPServiceGetConnectionData:    {"Get_Connection_Data", false},
	CIPServiceSearchConnectionData: {"Search_Connection_Data", false},
	CIPServiceGetConnectionOwner:   {"Get_Connection_Owner", false},
	CIPServiceLargeForwardOpen:     {"Large_Forward_Open", false},
}

// ServiceName returns the display name of a request service code. The
// reply bit is ignored.
func ServiceName(code protocol.CIPServiceCode) string {
	code &^= protocol.ReplyBit
	if info, ok := services[code]; ok {
		return info.name
	}
	return fmt.Sprintf("Unknown(0x%02X)", uint8(code))
}

// IsKnownService reports whether code has a name.
func IsKnownService(code protocol.CIPServiceCode) bool {
	_, ok := services[code&^protocol.ReplyBit]
	return ok
}

// IsCommonService reports whether code is one of the services every
// object class defines.
func IsCommonService(code protocol.CIPServiceCode) bool {
	return services[code&^protocol.ReplyBit].common
}
