package protocol

import "fmt"

// CIPMessageInfo is a best-effort view of a single CIP message that may be
// either a request or a reply. Used when rendering captured traffic.
type CIPMessageInfo struct {
	Service       CIPServiceCode
	BaseService   CIPServiceCode
	IsResponse    bool
	Path          CIPPath
	PathBytes     []byte
	GeneralStatus *uint8
	ExtStatus     []byte
	Payload       []byte
}

// LooksLikeEPATH reports whether data starts with a logical segment,
// skipping one leading pad byte.
func LooksLikeEPATH(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	seg := data[0]
	if seg == 0x00 {
		if len(data) < 2 {
			return false
		}
		seg = data[1]
	}
	switch seg &^ 0x03 {
	case EPathSegmentClassID, EPathSegmentInstanceID, EPathSegmentAttributeID:
		return seg&0x03 != 0x03
	}
	return false
}

// ParseCIPMessage decodes data as a reply when the reply bit is set and as a
// request otherwise.
func ParseCIPMessage(data []byte) (CIPMessageInfo, error) {
	if len(data) == 0 {
		return CIPMessageInfo{}, fmt.Errorf("empty CIP message")
	}
	service := CIPServiceCode(data[0])
	info := CIPMessageInfo{
		Service:     service,
		BaseService: service &^ ReplyBit,
		IsResponse:  service.IsReply(),
	}
	if info.IsResponse {
		resp, err := DecodeCIPResponse(data, CIPPath{})
		if err != nil {
			return info, err
		}
		status := resp.Status
		info.GeneralStatus = &status
		info.ExtStatus = resp.ExtStatus
		info.Payload = resp.Payload
		return info, nil
	}
	req, err := DecodeCIPRequest(data)
	if err != nil {
		return info, err
	}
	info.Path = req.Path
	info.PathBytes = req.RawPath
	info.Payload = req.Payload
	return info, nil
}
