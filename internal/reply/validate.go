package reply

import (
	"github.com/tturner/cipmsg/internal/enip"
)

// Result is the verdict on one reply. MoreFragments asks the caller to
// reissue the same logical request at a larger offset; Reason says why.
type Result struct {
	Outcome       Outcome
	Payload       []byte
	MoreFragments bool
	Reason        string
}

// Validate decodes the reply to sentCommand and returns Ok (MoreFragments
// false), Retry (MoreFragments true), or an error.
func Validate(sentCommand uint16, frame *enip.ENIPEncapsulation) (Result, error) {
	out, err := DecodeStatus(sentCommand, frame)
	if err != nil {
		return Result{}, err
	}
	res := Result{Outcome: out, Payload: out.Data}
	if out.Kind == KindInsufficientPacketSpace {
		res.MoreFragments = true
		res.Reason = out.Text
	}
	return res, nil
}
