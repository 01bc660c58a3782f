package errors

import (
	"errors"
	"fmt"
)

// Sentinel protocol errors.
var (
	// ErrNoSession is returned before any bytes are sent when no session is registered.
	ErrNoSession = errors.New("no registered session")
	// ErrNotConnected is returned for connected requests without a Class-3 connection.
	ErrNotConnected = errors.New("no established connection")
	// ErrInsufficientPacketSpace marks a reply that must be reissued at a larger offset.
	// The fragment loop consumes it; callers only see it if reassembly itself fails.
	ErrInsufficientPacketSpace = errors.New("insufficient packet space")
)

// RegistrationFailedError reports a failed RegisterSession exchange.
type RegistrationFailedError struct {
	Err error
}

func (e RegistrationFailedError) Error() string {
	return fmt.Sprintf("register session failed: %v", e.Err)
}

func (e RegistrationFailedError) Unwrap() error {
	return e.Err
}

// MalformedFrameError reports bytes that cannot be decoded as an encapsulation
// frame or CPF item list.
type MalformedFrameError struct {
	Reason string
	Length int
}

func (e MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame (%d bytes): %s", e.Length, e.Reason)
}

// NoReplyError reports an exchange that produced no reply frame.
type NoReplyError struct {
	Command     uint16
	CommandName string
}

func (e NoReplyError) Error() string {
	return fmt.Sprintf("%s without reply", e.CommandName)
}

// EncapsulationError reports a non-zero encapsulation header status.
type EncapsulationError struct {
	Command     uint16
	CommandName string
	Code        uint32
	Text        string
}

func (e EncapsulationError) Error() string {
	return fmt.Sprintf("%s reply status 0x%04X: %s", e.CommandName, e.Code, e.Text)
}

// ServiceError reports a CIP general status other than success or
// insufficient packet space, with the extended status when one was returned.
type ServiceError struct {
	Command      uint16
	CommandName  string
	General      uint8
	GeneralText  string
	Extended     uint32
	HasExtended  bool
	ExtendedText string
}

func (e ServiceError) Error() string {
	msg := fmt.Sprintf("%s: CIP status 0x%02X %s", e.CommandName, e.General, e.GeneralText)
	if e.HasExtended {
		msg += fmt.Sprintf(" (extended status 0x%04X %s)", e.Extended, e.ExtendedText)
	}
	return msg
}

// UnknownStatusError reports a status code absent from the status tables.
// Kind is "encapsulation" or "general".
type UnknownStatusError struct {
	Command     uint16
	CommandName string
	Kind        string
	Code        uint32
}

func (e UnknownStatusError) Error() string {
	return fmt.Sprintf("%s: unknown %s status 0x%02X", e.CommandName, e.Kind, e.Code)
}

// UnknownExtendedStatusError reports an extended code absent from the table for
// its general status.
type UnknownExtendedStatusError struct {
	Command     uint16
	CommandName string
	General     uint8
	Code        uint32
}

func (e UnknownExtendedStatusError) Error() string {
	return fmt.Sprintf("%s: CIP status 0x%02X with unknown extended status 0x%04X", e.CommandName, e.General, e.Code)
}

// SequenceMismatchError reports a reply that does not correlate with the
// outstanding request. Field names the value compared.
type SequenceMismatchError struct {
	Field string
	Want  uint64
	Got   uint64
}

func (e SequenceMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: want 0x%X, got 0x%X", e.Field, e.Want, e.Got)
}

// NotRecognizedError reports a tag address that matches none of the grammars.
type NotRecognizedError struct {
	Address string
}

func (e NotRecognizedError) Error() string {
	return fmt.Sprintf("address %q not recognized", e.Address)
}
