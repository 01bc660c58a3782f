package protocol

import (
	"bytes"
	"testing"
	"time"

	"github.com/tturner/cipmsg/internal/cip/codec"
)

func testConnectionParams() ConnectionParams {
	return ConnectionParams{
		TToOConnectionID:  0x71190427,
		ConnectionSerial:  0x0427,
		VendorID:          0x1009,
		OriginatorSerial:  0x71191009,
		TimeoutMultiplier: 1,
		RPI:               5 * time.Second,
		PacketSize:        504,
		RoutePath:         []byte{0x01, 0x00},
	}
}

func TestNetworkParameters(t *testing.T) {
	p := testConnectionParams()
	word, err := p.NetworkParameters()
	if err != nil || word != 0x43F8 {
		t.Fatalf("NetworkParameters = 0x%04X, %v; want 0x43F8", word, err)
	}

	p.FixedSize, p.Priority = true, "high"
	if word, _ := p.NetworkParameters(); word != 0x45F8 {
		t.Errorf("fixed high = 0x%04X, want 0x45F8", word)
	}

	p.PacketSize = 600
	if _, err := p.NetworkParameters(); err == nil {
		t.Error("oversized packet accepted")
	}
	p.PacketSize, p.Priority = 100, "bogus"
	if _, err := p.NetworkParameters(); err == nil {
		t.Error("unknown priority accepted")
	}
}

func TestBuildForwardOpen(t *testing.T) {
	req, err := BuildForwardOpen(testConnectionParams())
	if err != nil {
		t.Fatalf("BuildForwardOpen: %v", err)
	}
	if req.Service != 0x54 || req.Path.Class != 0x06 || req.Path.Instance != 0x01 {
		t.Fatalf("request = %+v", req)
	}

	var want []byte
	want = append(want, 0x0A, 0x05)
	want = codec.AppendUint32(want, 0)
	want = codec.AppendUint32(want, 0x71190427)
	want = codec.AppendUint16(want, 0x0427)
	want = codec.AppendUint16(want, 0x1009)
	want = codec.AppendUint32(want, 0x71191009)
	want = append(want, 0x01, 0x00, 0x00, 0x00)
	want = codec.AppendUint32(want, 5000000)
	want = codec.AppendUint16(want, 0x43F8)
	want = codec.AppendUint32(want, 5000000)
	want = codec.AppendUint16(want, 0x43F8)
	want = append(want, 0xA3, 0x03, 0x01, 0x00, 0x20, 0x02, 0x24, 0x01)

	if !bytes.Equal(req.Payload, want) {
		t.Fatalf("payload\n got % X\nwant % X", req.Payload, want)
	}
}

func TestBuildForwardOpenErrors(t *testing.T) {
	p := testConnectionParams()
	p.RPI = 0
	if _, err := BuildForwardOpen(p); err == nil {
		t.Error("zero RPI accepted")
	}
}

func TestParseForwardOpenReply(t *testing.T) {
	var data []byte
	data = codec.AppendUint32(data, 0xAABBCCDD)
	data = codec.AppendUint32(data, 0x71190427)
	data = codec.AppendUint16(data, 0x0427)
	data = codec.AppendUint16(data, 0x1009)
	data = codec.AppendUint32(data, 0x71191009)
	data = codec.AppendUint32(data, 5000000)
	data = codec.AppendUint32(data, 2500000)
	data = append(data, 0x00, 0x00)

	r, err := ParseForwardOpenReply(data)
	if err != nil {
		t.Fatalf("ParseForwardOpenReply: %v", err)
	}
	if r.OToTConnectionID != 0xAABBCCDD || r.TToOConnectionID != 0x71190427 {
		t.Errorf("CIDs = 0x%08X 0x%08X", r.OToTConnectionID, r.TToOConnectionID)
	}
	if r.OToTAPI != 5*time.Second || r.TToOAPI != 2500*time.Millisecond {
		t.Errorf("APIs = %s %s", r.OToTAPI, r.TToOAPI)
	}
	if _, err := ParseForwardOpenReply(data[:20]); err == nil {
		t.Error("short reply accepted")
	}
}

func TestBuildForwardClose(t *testing.T) {
	req, err := BuildForwardClose(testConnectionParams())
	if err != nil {
		t.Fatalf("BuildForwardClose: %v", err)
	}
	want := []byte{0x0A, 0x05, 0x27, 0x04, 0x09, 0x10, 0x09, 0x10, 0x19, 0x71, 0x03, 0x00, 0x01, 0x00, 0x20, 0x02, 0x24, 0x01}
	if req.Service != 0x4E || !bytes.Equal(req.Payload, want) {
		t.Fatalf("forward close = 0x%02X % X", req.Service, req.Payload)
	}
}
