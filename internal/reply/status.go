// Package reply judges encapsulation replies: status decoding against the
// fixed status tables, retry signalling for insufficient packet space, and
// reassembly of fragmented Logix replies.
package reply

import (
	"fmt"

	"github.com/tturner/cipmsg/internal/cip/codec"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/cip/spec"
	"github.com/tturner/cipmsg/internal/enip"
	"github.com/tturner/cipmsg/internal/errors"
)

// Kind classifies a reply that is not an error.
type Kind int

const (
	KindSuccess Kind = iota
	KindInsufficientPacketSpace
)

func (k Kind) String() string {
	if k == KindInsufficientPacketSpace {
		return "insufficient packet space"
	}
	return "success"
}

// Outcome is the decoded status of one reply. Service and Data are set for
// SendRRData and SendUnitData replies; ConnectionID and Sequence only for
// SendUnitData.
type Outcome struct {
	Command      uint16
	CommandName  string
	Kind         Kind
	General      uint8
	Extended     uint32
	HasExtended  bool
	Text         string
	Service      protocol.CIPServiceCode
	Data         []byte
	ConnectionID uint32
	Sequence     uint16
}

// DecodeStatus decodes the status of the reply to sentCommand. A nil frame
// means the exchange produced no reply. Anything other than success or
// insufficient packet space is returned as a typed error from internal/errors.
func DecodeStatus(sentCommand uint16, frame *enip.ENIPEncapsulation) (Outcome, error) {
	name := spec.CommandName(sentCommand)
	if frame == nil {
		return Outcome{}, errors.NoReplyError{Command: sentCommand, CommandName: name}
	}
	if frame.Command != sentCommand {
		return Outcome{}, errors.MalformedFrameError{
			Reason: fmt.Sprintf("%s reply carries command %s", name, spec.CommandName(frame.Command)),
			Length: enip.HeaderSize + len(frame.Data),
		}
	}

	if frame.Status != enip.ENIPStatusSuccess {
		text, ok := spec.EncapStatusName(frame.Status)
		if !ok {
			return Outcome{}, errors.UnknownStatusError{Command: sentCommand, CommandName: name, Kind: "encapsulation", Code: frame.Status}
		}
		return Outcome{}, errors.EncapsulationError{Command: sentCommand, CommandName: name, Code: frame.Status, Text: text}
	}

	out := Outcome{Command: sentCommand, CommandName: name, Kind: KindSuccess, Text: "Success"}

	var cipData []byte
	switch sentCommand {
	case enip.ENIPCommandSendRRData:
		data, err := enip.ParseSendRRDataResponse(frame.Data)
		if err != nil {
			return Outcome{}, err
		}
		cipData = data
	case enip.ENIPCommandSendUnitData:
		connID, seq, data, err := enip.ParseSendUnitDataResponse(frame.Data)
		if err != nil {
			return Outcome{}, err
		}
		out.ConnectionID, out.Sequence = connID, seq
		cipData = data
	default:
		out.Data = frame.Data
		return out, nil
	}

	resp, err := protocol.DecodeCIPResponse(cipData, protocol.CIPPath{})
	if err != nil {
		return Outcome{}, errors.MalformedFrameError{Reason: err.Error(), Length: len(cipData)}
	}
	out.Service = resp.Service
	out.General = resp.Status
	out.Data = resp.Payload
	if len(resp.ExtStatus) > 0 {
		out.Extended, out.HasExtended = extendedCode(resp.ExtStatus), true
	}

	switch resp.Status {
	case spec.CIPStatusSuccess:
		return out, nil
	case spec.CIPStatusInsufficientPacketSpace:
		out.Kind = KindInsufficientPacketSpace
		out.Text, _ = spec.GeneralStatusName(resp.Status)
		return out, nil
	}

	general, ok := spec.GeneralStatusName(resp.Status)
	if !ok {
		return Outcome{}, errors.UnknownStatusError{Command: sentCommand, CommandName: name, Kind: "general", Code: uint32(resp.Status)}
	}
	svcErr := errors.ServiceError{
		Command:     sentCommand,
		CommandName: name,
		General:     resp.Status,
		GeneralText: general,
	}
	if out.HasExtended {
		extended, ok := spec.ExtendedStatusName(resp.Status, out.Extended)
		if !ok {
			return Outcome{}, errors.UnknownExtendedStatusError{Command: sentCommand, CommandName: name, General: resp.Status, Code: out.Extended}
		}
		svcErr.Extended, svcErr.HasExtended, svcErr.ExtendedText = out.Extended, true, extended
	}
	return Outcome{}, svcErr
}

// extendedCode reads the first extended status value: one word is a 16-bit
// code, two or more words a 32-bit code.
func extendedCode(ext []byte) uint32 {
	if len(ext) >= 4 {
		v, _ := codec.Uint32(ext, 0)
		return v
	}
	v, _ := codec.Uint16(ext, 0)
	return uint32(v)
}
