package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserFriendlyErrorText(t *testing.T) {
	full := UserFriendlyError{
		Message: "read N7:0 failed",
		Reason:  "no reply",
		Hint:    "check the slot",
		Try:     "cipmsg read N7:0 --route 1,0",
		Err:     errors.New("i/o timeout"),
	}
	text := full.Error()
	for _, want := range []string{"read N7:0 failed", "\n  Reason: no reply", "\n  Hint: check the slot", "\n  Try: cipmsg read", "\n  Details: i/o timeout"} {
		if !strings.Contains(text, want) {
			t.Errorf("Error() = %q, missing %q", text, want)
		}
	}

	if got := (UserFriendlyError{Message: "bare"}).Error(); got != "bare" {
		t.Errorf("message-only Error() = %q", got)
	}
}

func TestUserFriendlyErrorUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("read: %w", ErrNotConnected)
	if !errors.Is(UserFriendlyError{Message: "x", Err: wrapped}, ErrNotConnected) {
		t.Error("errors.Is should see through UserFriendlyError")
	}
	if (UserFriendlyError{}).Unwrap() != nil {
		t.Error("Unwrap without Err should be nil")
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if WrapNetworkError(nil, "plc", 44818) != nil || WrapCIPError(nil, "read") != nil || WrapConfigError(nil, "c.yaml") != nil {
		t.Error("wrapping nil must return nil")
	}
}

func TestNetworkReasons(t *testing.T) {
	tests := []struct {
		cause string
		want  string
	}{
		{"dial tcp 10.0.0.9:44818: i/o timeout", "Connection timeout"},
		{"context deadline exceeded", "Connection timeout"},
		{"dial tcp: connect: connection refused", "Connection refused"},
		{"connect: no route to host", "No route to host"},
		{"read: connection reset by peer", "Connection reset"},
		{"broken pipe", "Network communication failed"},
	}
	for _, tt := range tests {
		t.Run(tt.cause, func(t *testing.T) {
			ufe := WrapNetworkError(errors.New(tt.cause), "10.0.0.9", 44818).(UserFriendlyError)
			if !strings.HasPrefix(ufe.Reason, tt.want) {
				t.Errorf("reason = %q, want prefix %q", ufe.Reason, tt.want)
			}
			if !strings.Contains(ufe.Message, "10.0.0.9:44818") || !strings.Contains(ufe.Try, "--port 44818") {
				t.Errorf("message %q try %q", ufe.Message, ufe.Try)
			}
		})
	}
}

func TestCIPReasons(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  string
		hint  string
	}{
		{"status text", errors.New("CIP status 0x08"), "CIP error status code", "may not support"},
		{"malformed", errors.New("invalid packet data"), "malformed", ""},
		{"decode", errors.New("decode reply: short frame"), "malformed", ""},
		{"timeout text", errors.New("timeout waiting for reply"), "within timeout", ""},
		{"fallback", errors.New("unexpected"), "CIP protocol error occurred", ""},
		{
			"service error",
			fmt.Errorf("forward open: %w", ServiceError{CommandName: "send_rr_data", General: 0x01, GeneralText: "Connection failure"}),
			"CIP status 0x01 (Connection failure)",
			"route path",
		},
		{
			"encapsulation error",
			EncapsulationError{CommandName: "register_session", Code: 0x0069},
			"encapsulation status 0x0069",
			"",
		},
		{"bad address", NotRecognizedError{Address: "Q9:1"}, `"Q9:1"`, "N7:0"},
		{"no session", fmt.Errorf("read: %w", ErrNoSession), "before the session", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ufe := WrapCIPError(tt.cause, "read N7:0").(UserFriendlyError)
			if !strings.Contains(ufe.Message, "read N7:0") {
				t.Errorf("message = %q", ufe.Message)
			}
			if !strings.Contains(ufe.Reason, tt.want) {
				t.Errorf("reason = %q, want %q", ufe.Reason, tt.want)
			}
			if tt.hint != "" && !strings.Contains(ufe.Hint, tt.hint) {
				t.Errorf("hint = %q, want %q", ufe.Hint, tt.hint)
			}
		})
	}
}

func TestWrapConfigError(t *testing.T) {
	ufe := WrapConfigError(errors.New("target.port must be 1-65535"), "plant.yaml").(UserFriendlyError)
	if !strings.Contains(ufe.Message, "plant.yaml") || ufe.Reason != "target.port must be 1-65535" {
		t.Errorf("message %q reason %q", ufe.Message, ufe.Reason)
	}
	if !strings.Contains(ufe.Hint, "CONFIGURATION.md") || !strings.Contains(ufe.Try, "config init --config plant.yaml") {
		t.Errorf("hint %q try %q", ufe.Hint, ufe.Try)
	}
}
