package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapNetworkError wraps network errors with user-friendly context
func WrapNetworkError(err error, ip string, port int) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to communicate with device at %s:%d", ip, port),
		Reason:  extractNetworkReason(err),
		Hint:    "Device may not be a CIP/EtherNet-IP device, or there may be a network connectivity issue",
		Try:     fmt.Sprintf("cipmsg generic --target %s --port %d --key identity.all", ip, port),
		Err:     err,
	}
}

// WrapCIPError wraps CIP protocol errors with user-friendly context
func WrapCIPError(err error, operation string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("CIP operation failed: %s", operation),
		Reason:  extractCIPReason(err),
		Hint:    cipHint(err),
		Try:     "Check the route path and the class/instance/attribute values, or rerun with --log-level debug",
		Err:     err,
	}
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "See docs/CONFIGURATION.md for configuration examples",
		Try:     fmt.Sprintf("Regenerate a default config: cipmsg config init --config %s", configPath),
		Err:     err,
	}
}

// reasonPattern maps a substring of a low-level error to a sentence.
type reasonPattern struct {
	substrings []string
	reason     string
}

var networkReasons = []reasonPattern{
	{[]string{"timeout", "deadline exceeded"}, "Connection timeout - device may be offline or unreachable"},
	{[]string{"connection refused"}, "Connection refused - device may not be listening on this port"},
	{[]string{"no route to host"}, "No route to host - network routing issue or device unreachable"},
	{[]string{"connection reset"}, "Connection reset - device closed the connection unexpectedly"},
}

var cipReasons = []reasonPattern{
	{[]string{"status 0x"}, "Device returned a CIP error status code"},
	{[]string{"invalid packet", "decode"}, "Received invalid or malformed response from device"},
	{[]string{"timeout"}, "Device did not respond within timeout period"},
}

func matchReason(err error, patterns []reasonPattern, fallback string) string {
	text := err.Error()
	for _, p := range patterns {
		for _, sub := range p.substrings {
			if strings.Contains(text, sub) {
				return p.reason
			}
		}
	}
	return fallback
}

func extractNetworkReason(err error) string {
	return matchReason(err, networkReasons, "Network communication failed")
}

func extractCIPReason(err error) string {
	var svc ServiceError
	var encap EncapsulationError
	var addr NotRecognizedError
	switch {
	case errors.As(err, &svc):
		return fmt.Sprintf("Device returned CIP status 0x%02X (%s)", svc.General, svc.GeneralText)
	case errors.As(err, &encap):
		return fmt.Sprintf("Device rejected %s with encapsulation status 0x%04X", encap.CommandName, encap.Code)
	case errors.As(err, &addr):
		return fmt.Sprintf("Tag address %q is not a recognized PCCC address", addr.Address)
	case errors.Is(err, ErrNoSession), errors.Is(err, ErrNotConnected):
		return "Request issued before the session or connection was established"
	}
	return matchReason(err, cipReasons, "CIP protocol error occurred")
}

func cipHint(err error) string {
	var svc ServiceError
	if errors.As(err, &svc) && svc.General == 0x01 {
		return "The target refused the connection; check the slot in the route path and the connection size"
	}
	var addr NotRecognizedError
	if errors.As(err, &addr) {
		return "Addresses look like N7:0, B3/4, T4:0.ACC, F8:1 or I:1/0"
	}
	return "The device may not support this operation, or the CIP path may be incorrect"
}
