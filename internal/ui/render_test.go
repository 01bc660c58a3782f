package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tturner/cipmsg/internal/capture"
	"github.com/tturner/cipmsg/internal/cip/catalog"
	"github.com/tturner/cipmsg/internal/cip/client"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/enip"
	"github.com/tturner/cipmsg/internal/pccc"
	"github.com/tturner/cipmsg/internal/reply"
)

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestRenderSession(t *testing.T) {
	sess := client.Session{Handle: 0x12345678, Sequence: 3}
	conn := client.Connection{OToTConnectionID: 0xAABB0001, TToOConnectionID: 0x01020304, ConnectionSerial: 0x55AA}

	out := RenderSession("10.0.0.5:44818", sess, conn, true)
	assertContains(t, out, "10.0.0.5:44818", "0x12345678", "sequence 3", "0xAABB0001", "0x55AA")

	out = RenderSession("plc", sess, conn, false)
	if strings.Contains(out, "Connection:") {
		t.Errorf("unconnected session rendered a connection:\n%s", out)
	}
}

func TestRenderValues(t *testing.T) {
	assertContains(t, RenderValues("b3/20", []any{true}), "B3:1/4", "[0] 1")
	assertContains(t, RenderValues("N7:0", []any{int16(-1), int16(2)}), "N7:0", "-1 (0xFFFF)", "[1] 2")
	assertContains(t, RenderValues("N7:0", nil), "(no values)")
	assertContains(t, RenderValues("Z9:0", nil), "Error:")
}

func TestRenderAddress(t *testing.T) {
	addr, err := pccc.ParseAddress("T4:2.ACC")
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, RenderAddress(addr), "File number: 4", "Element:     2", "Sub-element: 2", "Item size:   2 bytes")
}

func TestRenderTagValue(t *testing.T) {
	out := RenderTagValue("Counts", reply.TagValue{Type: protocol.CIPTypeDINT, Data: []byte{1, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF}})
	assertContains(t, out, "Counts : DINT", "[0] 1", "[1] -1")

	out = RenderTagValue("Recipe", reply.TagValue{Type: 0x02A0, StructHandle: 0x1234, Data: []byte{1, 2, 3}})
	assertContains(t, out, "0x1234", "01 02 03")
}

func TestRenderTagList(t *testing.T) {
	out := RenderTagList([]reply.TagInfo{
		{Instance: 1, Name: "Speed", Type: 0x00CA},
		{Instance: 2, Name: "Recipe", Type: 0x8F01},
	})
	assertContains(t, out, "2 tags", "Speed", "REAL", "struct 0xF01")
}

func TestRenderGenericReply(t *testing.T) {
	out := RenderGenericReply(client.GenericReply{
		Service: 0x8E,
		Raw:     []byte{0x2A, 0x00},
		Values:  []protocol.FieldValue{{Name: "vendor", Type: protocol.CIPTypeUINT, Value: uint16(42)}},
	})
	assertContains(t, out, "Reply 0x8E", "2A 00", "vendor=42", "UINT")
}

func TestRenderCatalog(t *testing.T) {
	c, err := catalog.Core()
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, RenderCatalog(c), "identity.vendor_id", "Get_Attribute_Single 0x0E on Identity 0x01", "pccc.echo")
}

func TestRenderError(t *testing.T) {
	if RenderError(nil) != "" {
		t.Error("nil error should render empty")
	}
	err := fmt.Errorf("N7:300: %w", pccc.StatusError{Status: 0xF0, ExtSTS: 0x0A})
	assertContains(t, RenderError(err), "PCCC error:", "N7:300")
	assertContains(t, RenderError(errors.New("boom")), "Error:", "boom")
}

func TestDescribeFrame(t *testing.T) {
	addr, _ := pccc.ParseAddress("N7:0")
	req, err := pccc.BuildTypedReadRequest(5, addr, 2)
	if err != nil {
		t.Fatal(err)
	}
	cipReq, err := protocol.EncodeCIPRequest(pccc.WrapExecutePCCC(pccc.EncodeRequest(req), 0x1337, 1))
	if err != nil {
		t.Fatal(err)
	}
	out := DescribeFrame(decode(t, enip.BuildSendUnitData(0x10, [8]byte{}, 0xAABB0001, 5, cipReq)), true)
	assertContains(t, out, "send_unit_data", "conn=0xAABB0001 seq=5", "Execute_PCCC", "Typed_Read_3Addr N7:0 tns=5")

	// An Execute PCCC payload that is not a PCCC frame is left undecoded.
	bogus := pccc.WrapExecutePCCC([]byte{0x0F, 0x00, 0x05, 0x00, 0x99}, 0x1337, 1)
	cipReq, err = protocol.EncodeCIPRequest(bogus)
	if err != nil {
		t.Fatal(err)
	}
	out = DescribeFrame(decode(t, enip.BuildSendUnitData(0x10, [8]byte{}, 0xAABB0001, 6, cipReq)), true)
	if strings.Contains(out, "[PCCC") {
		t.Fatalf("non-PCCC payload decoded as PCCC: %q", out)
	}

	pcccReply := pccc.EncodeResponse(pccc.Response{Command: req.Command | 0x40, TNS: 5, Data: []byte{1, 0, 2, 0}})
	cipResp := protocol.EncodeCIPResponse(protocol.CIPResponse{
		Service: 0xCB,
		Payload: append([]byte{0x07, 0x37, 0x13, 1, 0, 0, 0}, pcccReply...),
	})
	out = DescribeFrame(decode(t, enip.BuildSendUnitData(0x10, [8]byte{}, 0x01020304, 5, cipResp)), false)
	assertContains(t, out, "Execute_PCCC_Response status=0x00", "PCCC sts=0x00 tns=5 4 bytes")

	errResp := protocol.EncodeCIPResponse(protocol.CIPResponse{Service: 0x8E, Status: 0x08})
	out = DescribeFrame(decode(t, enip.BuildSendRRData(0x10, [8]byte{}, 0, errResp)), false)
	assertContains(t, out, "send_rr_data", "status=0x08", "Service not supported")

	out = DescribeFrame(decode(t, enip.BuildRegisterSession([8]byte{})), true)
	assertContains(t, out, "register_session")
}

func TestRenderFrames(t *testing.T) {
	start := time.Unix(1700000000, 0)
	frames := []capture.Frame{
		{Timestamp: start, Outbound: true, Encap: decode(t, enip.BuildRegisterSession([8]byte{}))},
		{Timestamp: start.Add(1500 * time.Microsecond), Encap: decode(t, enip.BuildRegisterSession([8]byte{}))},
	}
	out := RenderFrames(frames)
	assertContains(t, out, "2 frames", "0.000000 ->", "0.001500")
	assertContains(t, RenderFrames(nil), "0 frames")
}

func decode(t *testing.T, raw []byte) enip.ENIPEncapsulation {
	t.Helper()
	frame, err := enip.DecodeENIP(raw)
	if err != nil {
		t.Fatalf("DecodeENIP: %v", err)
	}
	return frame
}

func TestRenderPollLine(t *testing.T) {
	assertContains(t, RenderPollLine(2, "N7:0", []any{int16(5), int16(-1)}, nil), "#2", "N7:0 = 5 (0x0005) -1 (0xFFFF)")
	assertContains(t, RenderPollLine(3, "N7:9", nil, errors.New("timed out")), "N7:9", "timed out")
}
