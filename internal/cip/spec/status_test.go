package spec

import "testing"

func TestCommandName(t *testing.T) {
	tests := []struct {
		command uint16
		want    string
	}{
		{ENIPCommandRegisterSession, "register_session"},
		{ENIPCommandSendRRData, "send_rr_data"},
		{ENIPCommandSendUnitData, "send_unit_data"},
		{uint16(CIPServiceForwardOpen), "FORWARD_OPEN"},
		{0x1234, "command(0x1234)"},
	}
	for _, tt := range tests {
		if got := CommandName(tt.command); got != tt.want {
			t.Errorf("CommandName(0x%04X) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestGeneralStatusName(t *testing.T) {
	if name, ok := GeneralStatusName(CIPStatusInsufficientPacketSpace); !ok || name != "Insufficient Packet Space" {
		t.Errorf("GeneralStatusName(0x06) = %q, %v", name, ok)
	}
	if name, ok := GeneralStatusName(CIPStatusGeneralError); !ok || name != "General Error (see extended status)" {
		t.Errorf("GeneralStatusName(0xFF) = %q, %v", name, ok)
	}
	if _, ok := GeneralStatusName(0x40); ok {
		t.Error("0x40 should not be a known general status")
	}
}

func TestExtendedStatusName(t *testing.T) {
	tests := []struct {
		general uint8
		code    uint32
		want    string
		ok      bool
	}{
		{0x01, 0x0100, "Connection in use", true},
		{0x01, 0x0317, "Connection not scheduled", true},
		{0x05, 0x0001, "Extended status out of instances", true},
		{0x1F, 0x0203, "Connection timeout", true},
		{0xFF, 0x2104, "Address out of range", true},
		{0xFF, 0x0007, "Wrong data type", true},
		{0xFF, 0x9999, "", false},
		{0x08, 0x0000, "", false},
	}
	for _, tt := range tests {
		got, ok := ExtendedStatusName(tt.general, tt.code)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ExtendedStatusName(0x%02X, 0x%04X) = %q, %v; want %q, %v", tt.general, tt.code, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEncapStatusName(t *testing.T) {
	if _, ok := EncapStatusName(ENIPStatusInvalidSession); !ok {
		t.Error("invalid session status should be known")
	}
	if _, ok := EncapStatusName(0x00FF); ok {
		t.Error("0x00FF should not be a known encapsulation status")
	}
}
