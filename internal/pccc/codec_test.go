package pccc

import (
	"bytes"
	stderrors "errors"
	"math"
	"testing"

	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/errors"
)

func TestEncodeDecodeRequest(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "extended_typed_read",
			req: Request{
				Command:  CmdExtended,
				TNS:      0x1234,
				Function: FncTypedRead3Addr,
				Data:     []byte{0x02, 0x07, 0x89, 0x00, 0x00},
			},
		},
		{
			name: "extended_typed_write",
			req: Request{
				Command:  CmdExtended,
				TNS:      0xABCD,
				Function: FncTypedWrite3Addr,
				Data:     []byte{0x02, 0x07, 0x89, 0x00, 0x00, 0xFF, 0x00},
			},
		},
		{
			name: "extended_echo",
			req: Request{
				Command:  CmdExtended,
				TNS:      0x0001,
				Function: FncEcho,
				Data:     []byte{0xDE, 0xAD, 0xBE, 0xEF},
			},
		},
		{
			name: "protected_read_no_fnc",
			req: Request{
				Command: CmdProtectedRead,
				TNS:     0x5678,
				Data:    []byte{0x01, 0x02},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeRequest(tc.req)
			decoded, err := DecodeRequest(encoded)
			if err != nil {
				t.Fatalf("DecodeRequest failed: %v", err)
			}

			if decoded.Command != tc.req.Command {
				t.Errorf("Command: got 0x%02X, want 0x%02X", decoded.Command, tc.req.Command)
			}
			if decoded.TNS != tc.req.TNS {
				t.Errorf("TNS: got 0x%04X, want 0x%04X", decoded.TNS, tc.req.TNS)
			}
			if decoded.Function != tc.req.Function {
				t.Errorf("Function: got 0x%02X, want 0x%02X", decoded.Function, tc.req.Function)
			}
			if !bytes.Equal(decoded.Data, tc.req.Data) {
				t.Errorf("Data: got % X, want % X", decoded.Data, tc.req.Data)
			}
		})
	}
}

func TestDecodeRequestTooShort(t *testing.T) {
	if _, err := DecodeRequest([]byte{0x0F, 0x00, 0x01}); err == nil {
		t.Error("expected error for short request")
	}
	if _, err := DecodeRequest([]byte{0x0F, 0x00, 0x01, 0x00}); err == nil {
		t.Error("expected error for extended request without FNC")
	}
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte{0x4F, 0x00, 0x34, 0x12, 0x2A, 0x00})
	if err != nil {
		t.Fatalf("DecodeResponse: %v", err)
	}
	if resp.Command != 0x4F || resp.Status != 0 || resp.TNS != 0x1234 {
		t.Fatalf("header = %+v", resp)
	}
	if !bytes.Equal(resp.Data, []byte{0x2A, 0x00}) {
		t.Fatalf("Data = % X", resp.Data)
	}

	resp, err = DecodeResponse([]byte{0x4F, 0xF0, 0x01, 0x00, 0x06})
	if err != nil {
		t.Fatalf("DecodeResponse ext: %v", err)
	}
	if resp.ExtSTS != 0x06 || len(resp.Data) != 0 {
		t.Fatalf("extended reply = %+v", resp)
	}

	if _, err := DecodeResponse([]byte{0x4F, 0xF0, 0x01, 0x00}); err == nil {
		t.Error("expected error for missing EXT STS")
	}
}

func TestCheckResponse(t *testing.T) {
	ok := Response{Command: CmdExtended | replyBit, TNS: 7}
	if err := CheckResponse(ok, 7); err != nil {
		t.Fatalf("CheckResponse: %v", err)
	}

	var mismatch errors.SequenceMismatchError
	if err := CheckResponse(ok, 8); !stderrors.As(err, &mismatch) {
		t.Fatalf("TNS mismatch = %v, want SequenceMismatchError", err)
	}

	var status StatusError
	failed := Response{Command: CmdExtended | replyBit, TNS: 7, Status: StatusExtended, ExtSTS: 0x06}
	if err := CheckResponse(failed, 7); !stderrors.As(err, &status) || status.ExtSTS != 0x06 {
		t.Fatalf("status error = %v", err)
	}

	if err := CheckResponse(Response{Command: CmdExtended, TNS: 7}, 7); err == nil {
		t.Error("request command accepted as reply")
	}
}

func TestBuildTypedReadRequest(t *testing.T) {
	tests := []struct {
		address string
		count   int
		want    []byte
	}{
		// byte count, file, type, element, sub-element
		{"N7:0", 1, []byte{0x02, 0x07, 0x89, 0x00, 0x00}},
		{"N7:10", 5, []byte{0x0A, 0x07, 0x89, 0x0A, 0x00}},
		{"F8:2", 2, []byte{0x08, 0x08, 0x8A, 0x02, 0x00}},
		{"T4:1", 1, []byte{0x06, 0x04, 0x86, 0x01, 0x00}},
		{"T4:0.ACC", 1, []byte{0x02, 0x04, 0x86, 0x00, 0x02}},
		{"C5:3.DN", 1, []byte{0x02, 0x05, 0x87, 0x03, 0x00}},
		{"B3/20", 1, []byte{0x02, 0x03, 0x85, 0x01, 0x00}},
		{"I:1.3", 1, []byte{0x02, 0x01, 0x8C, 0x01, 0x03}},
		{"O:0/4", 1, []byte{0x02, 0x00, 0x8B, 0x00, 0x00}},
		{"N7:300", 1, []byte{0x02, 0x07, 0x89, 0xFF, 0x2C, 0x01, 0x00}},
		{"N300:0", 1, []byte{0x02, 0xFF, 0x2C, 0x01, 0x89, 0x00, 0x00}},
	}

	for _, tc := range tests {
		t.Run(tc.address, func(t *testing.T) {
			addr, err := ParseAddress(tc.address)
			if err != nil {
				t.Fatalf("ParseAddress: %v", err)
			}
			req, err := BuildTypedReadRequest(0x0102, addr, tc.count)
			if err != nil {
				t.Fatalf("BuildTypedReadRequest: %v", err)
			}
			if req.Command != CmdExtended || req.Function != FncTypedRead3Addr {
				t.Fatalf("CMD/FNC = 0x%02X/0x%02X", req.Command, req.Function)
			}
			if !bytes.Equal(req.Data, tc.want) {
				t.Errorf("Data = % X, want % X", req.Data, tc.want)
			}
			encoded := EncodeRequest(req)
			if !bytes.Equal(encoded[:5], []byte{0x0F, 0x00, 0x02, 0x01, 0xA2}) {
				t.Errorf("header = % X", encoded[:5])
			}
		})
	}
}

func TestBuildTypedReadRequestLimits(t *testing.T) {
	addr, _ := ParseAddress("F8:0")
	if _, err := BuildTypedReadRequest(1, addr, 0); err == nil {
		t.Error("zero count accepted")
	}
	if _, err := BuildTypedReadRequest(1, addr, 64); err == nil {
		t.Error("256-byte read accepted")
	}
}

func TestBuildTypedWriteRequest(t *testing.T) {
	addr, _ := ParseAddress("N7:0")
	req, err := BuildTypedWriteRequest(0x0003, addr, []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00})
	if err != nil {
		t.Fatalf("BuildTypedWriteRequest: %v", err)
	}
	want := []byte{0x0F, 0x00, 0x03, 0x00, 0xAA, 0x06, 0x07, 0x89, 0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	if got := EncodeRequest(req); !bytes.Equal(got, want) {
		t.Errorf("encoded = % X, want % X", got, want)
	}
	if _, err := BuildTypedWriteRequest(1, addr, nil); err == nil {
		t.Error("empty write accepted")
	}
}

func TestBuildMaskedWriteRequest(t *testing.T) {
	addr, _ := ParseAddress("B3:2/5")
	mask, word, err := BitMask(addr, true)
	if err != nil {
		t.Fatalf("BitMask: %v", err)
	}
	req := BuildMaskedWriteRequest(9, addr, mask, word)
	want := []byte{0x02, 0x03, 0x85, 0x02, 0x00, 0x20, 0x00, 0x20, 0x00}
	if req.Function != FncMaskedWrite3Addr || !bytes.Equal(req.Data, want) {
		t.Errorf("masked write = 0x%02X % X, want 0xAB % X", req.Function, req.Data, want)
	}
}

func TestWrapExecutePCCC(t *testing.T) {
	inner := []byte{0x0F, 0x00, 0x01, 0x00, 0xA2, 0x02, 0x07, 0x89, 0x00, 0x00}
	req := WrapExecutePCCC(inner, 0x1337, 0xDEADBEEF)
	encoded, err := protocol.EncodeCIPRequest(req)
	if err != nil {
		t.Fatalf("EncodeCIPRequest: %v", err)
	}
	head := []byte{0x4B, 0x02, 0x20, 0x67, 0x24, 0x01, 0x07, 0x37, 0x13, 0xEF, 0xBE, 0xAD, 0xDE}
	if !bytes.Equal(encoded[:len(head)], head) {
		t.Fatalf("head = % X, want % X", encoded[:len(head)], head)
	}
	if !bytes.Equal(encoded[len(head):], inner) {
		t.Fatalf("inner = % X", encoded[len(head):])
	}

	got, err := UnwrapExecutePCCC(req.Payload)
	if err != nil || !bytes.Equal(got, inner) {
		t.Fatalf("UnwrapExecutePCCC = % X, %v", got, err)
	}
	if _, err := UnwrapExecutePCCC([]byte{0x07, 0x01}); err == nil {
		t.Error("truncated requester ID accepted")
	}
}

func TestDecodeValues(t *testing.T) {
	parse := func(s string) Address {
		addr, err := ParseAddress(s)
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", s, err)
		}
		return addr
	}

	values, err := DecodeValues(parse("N7:0"), []byte{0xFF, 0xFF, 0x2A, 0x00}, 2)
	if err != nil || len(values) != 2 || values[0] != int16(-1) || values[1] != int16(42) {
		t.Fatalf("N values = %v, %v", values, err)
	}

	f := math.Float32bits(1.5)
	values, err = DecodeValues(parse("F8:0"), []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}, 1)
	if err != nil || values[0] != float32(1.5) {
		t.Fatalf("F values = %v, %v", values, err)
	}

	values, err = DecodeValues(parse("T4:0"), []byte{0x00, 0x20, 0xE8, 0x03, 0xF4, 0x01}, 1)
	if err != nil || len(values) != 3 || values[1] != int16(1000) || values[2] != int16(500) {
		t.Fatalf("T values = %v, %v", values, err)
	}

	values, err = DecodeValues(parse("T4:0.DN"), []byte{0x00, 0x20}, 1)
	if err != nil || values[0] != true {
		t.Fatalf("T DN = %v, %v", values, err)
	}

	values, err = DecodeValues(parse("B3/4"), []byte{0x00, 0x00}, 1)
	if err != nil || values[0] != false {
		t.Fatalf("B bit = %v, %v", values, err)
	}

	if _, err := DecodeValues(parse("N7:0"), []byte{0x01}, 1); err == nil {
		t.Error("short data accepted")
	}
}

func TestEncodeValues(t *testing.T) {
	addr, _ := ParseAddress("N7:0")
	got, err := EncodeValues(addr, []any{1, -2, "3"})
	if err != nil || !bytes.Equal(got, []byte{0x01, 0x00, 0xFE, 0xFF, 0x03, 0x00}) {
		t.Fatalf("EncodeValues = % X, %v", got, err)
	}
	if _, err := EncodeValues(addr, []any{40000}); err == nil {
		t.Error("out-of-range INT accepted")
	}

	timer, _ := ParseAddress("T4:0")
	if _, err := EncodeValues(timer, []any{1, 2}); err == nil {
		t.Error("partial timer element accepted")
	}

	bit, _ := ParseAddress("B3/4")
	if _, err := EncodeValues(bit, []any{true}); err == nil {
		t.Error("bit address accepted for typed write")
	}
}

func TestIsPCCCPayload(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"typed read", []byte{0x0F, 0x00, 0x01, 0x00, 0xA2, 0x02}, true},
		{"reply", []byte{0x4F, 0x00, 0x01, 0x00, 0x2A, 0x00}, true},
		{"ext status reply", []byte{0x4F, 0xF0, 0x01, 0x00, 0x06}, true},
		{"unknown function", []byte{0x0F, 0x00, 0x01, 0x00, 0x99}, false},
		{"unknown command", []byte{0x33, 0x00, 0x01, 0x00}, false},
		{"short", []byte{0x0F, 0x00}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPCCCPayload(tc.data); got != tc.want {
				t.Errorf("IsPCCCPayload(% X) = %v, want %v", tc.data, got, tc.want)
			}
		})
	}
}

func TestDecodeAddressData(t *testing.T) {
	count, addr, rest, err := DecodeAddressData([]byte{0x02, 0xFF, 0x2C, 0x01, 0x89, 0x05, 0x00, 0xAA, 0xBB})
	if err != nil {
		t.Fatalf("DecodeAddressData: %v", err)
	}
	if count != 2 || addr.FileNumber != 300 || addr.FileType != FileTypeInteger || addr.Element != 5 || addr.HasSub {
		t.Errorf("decoded = %d %+v", count, addr)
	}
	if !bytes.Equal(rest, []byte{0xAA, 0xBB}) {
		t.Errorf("remaining = % X", rest)
	}
	if _, _, _, err := DecodeAddressData([]byte{0x02, 0xFF, 0x2C}); err == nil {
		t.Error("truncated extended field accepted")
	}
}
