package ui

import (
	"fmt"
	"strings"

	"github.com/tturner/cipmsg/internal/capture"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/cip/spec"
	"github.com/tturner/cipmsg/internal/enip"
	"github.com/tturner/cipmsg/internal/pccc"
)

// DescribeFrame returns a one-line summary of an encapsulation frame, going
// down through CPF and CIP to PCCC where the frame carries them.
func DescribeFrame(frame enip.ENIPEncapsulation, outbound bool) string {
	parts := []string{fmt.Sprintf("%s session=0x%08X", spec.CommandName(frame.Command), frame.SessionID)}
	if frame.Status != enip.ENIPStatusSuccess {
		text, _ := spec.EncapStatusName(frame.Status)
		parts = append(parts, fmt.Sprintf("status=0x%04X %s", frame.Status, text))
	}

	var cip []byte
	switch frame.Command {
	case enip.ENIPCommandSendRRData:
		data, err := enip.ParseSendRRDataResponse(frame.Data)
		if err != nil {
			return strings.Join(append(parts, "cpf error: "+err.Error()), " ")
		}
		cip = data
	case enip.ENIPCommandSendUnitData:
		connID, seq, data, err := enip.ParseSendUnitDataResponse(frame.Data)
		if err != nil {
			return strings.Join(append(parts, "cpf error: "+err.Error()), " ")
		}
		parts = append(parts, fmt.Sprintf("conn=0x%08X seq=%d", connID, seq))
		cip = data
	default:
		return strings.Join(parts, " ")
	}

	if outbound {
		parts = append(parts, describeRequest(cip))
	} else {
		parts = append(parts, describeResponse(cip))
	}
	return strings.Join(parts, " ")
}

func describeRequest(data []byte) string {
	req, err := protocol.DecodeCIPRequest(data)
	if err != nil {
		return "cip error: " + err.Error()
	}
	label, _ := spec.LabelService(uint8(req.Service), req.Path, false)
	out := fmt.Sprintf("%s %s", label, req.Path)
	if raw, ok := pcccPayload(req.Service, req.Payload); ok {
		if p, err := pccc.DecodeRequest(raw); err == nil {
			target := ""
			if _, addr, _, err := pccc.DecodeAddressData(p.Data); err == nil && p.Function != pccc.FncEcho {
				target = " " + addr.String()
			}
			out += fmt.Sprintf(" [PCCC %s %s%s tns=%d]", p.Command, p.Function, target, p.TNS)
		}
	}
	return out
}

// pcccPayload returns the PCCC frame inside an Execute PCCC payload when
// one is there.
func pcccPayload(service protocol.CIPServiceCode, payload []byte) ([]byte, bool) {
	if service&^protocol.ReplyBit != spec.CIPServiceExecutePCCC {
		return nil, false
	}
	raw, err := pccc.UnwrapExecutePCCC(payload)
	if err != nil || !pccc.IsPCCCPayload(raw) {
		return nil, false
	}
	return raw, true
}

func describeResponse(data []byte) string {
	resp, err := protocol.DecodeCIPResponse(data, protocol.CIPPath{})
	if err != nil {
		return "cip error: " + err.Error()
	}
	label, _ := spec.LabelService(uint8(resp.Service), resp.Path, true)
	out := fmt.Sprintf("%s status=0x%02X", label, resp.Status)
	if text, ok := spec.GeneralStatusName(resp.Status); ok && resp.Status != 0 {
		out += " (" + text + ")"
	}
	out += fmt.Sprintf(" %d bytes", len(resp.Payload))
	if raw, ok := pcccPayload(resp.Service, resp.Payload); ok && resp.Status == 0 {
		if p, err := pccc.DecodeResponse(raw); err == nil {
			out += fmt.Sprintf(" [PCCC sts=0x%02X tns=%d %d bytes]", p.Status, p.TNS, len(p.Data))
		}
	}
	return out
}

// RenderFrames lists captured frames, one per line.
func RenderFrames(frames []capture.Frame) string {
	lines := []string{headerStyle.Render(fmt.Sprintf("%d frames", len(frames)))}
	if len(frames) == 0 {
		return lines[0]
	}
	start := frames[0].Timestamp
	for i, f := range frames {
		dir := dimStyle.Render("<-")
		if f.Outbound {
			dir = "->"
		}
		offset := f.Timestamp.Sub(start).Seconds()
		lines = append(lines, fmt.Sprintf("%4d %9.6f %s %s", i+1, offset, dir, DescribeFrame(f.Encap, f.Outbound)))
	}
	return strings.Join(lines, "\n")
}
