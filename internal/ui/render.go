// Package ui renders client results for the terminal.
package ui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/cipmsg/internal/cip/catalog"
	"github.com/tturner/cipmsg/internal/cip/client"
	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/pccc"
	"github.com/tturner/cipmsg/internal/reply"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 1)
)

// RenderSession summarizes the client's session and connection.
func RenderSession(target string, sess client.Session, conn client.Connection, connected bool) string {
	lines := []string{
		titleStyle.Render("Target: " + target),
		fmt.Sprintf("Session: 0x%08X (sequence %d)", sess.Handle, sess.Sequence),
	}
	if connected {
		lines = append(lines,
			fmt.Sprintf("Connection: O->T 0x%08X  T->O 0x%08X  serial 0x%04X", conn.OToTConnectionID, conn.TToOConnectionID, conn.ConnectionSerial),
			dimStyle.Render(fmt.Sprintf("API: O->T %s  T->O %s", conn.OToTAPI, conn.TToOAPI)),
		)
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

// RenderValues lists the values read at a data-table address.
func RenderValues(address string, values []any) string {
	addr, err := pccc.ParseAddress(address)
	if err != nil {
		return RenderError(err)
	}
	lines := []string{headerStyle.Render(fmt.Sprintf("%s (%s file %d)", addr, addr.FileType, addr.FileNumber))}
	for i, v := range values {
		lines = append(lines, fmt.Sprintf("  [%d] %s", i, formatValue(v)))
	}
	if len(values) == 0 {
		lines = append(lines, dimStyle.Render("  (no values)"))
	}
	return strings.Join(lines, "\n")
}

func formatValue(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return successStyle.Render("1")
		}
		return dimStyle.Render("0")
	case uint16:
		return fmt.Sprintf("%d (0x%04X)", x, x)
	case int16:
		return fmt.Sprintf("%d (0x%04X)", x, uint16(x))
	default:
		return fmt.Sprintf("%v", x)
	}
}

// RenderGenericReply shows the reply service, raw data and decoded fields.
func RenderGenericReply(resp client.GenericReply) string {
	lines := []string{
		headerStyle.Render(fmt.Sprintf("Reply 0x%02X", uint8(resp.Service))),
		fmt.Sprintf("  Data (%d bytes): % X", len(resp.Raw), resp.Raw),
	}
	for _, v := range resp.Values {
		lines = append(lines, fmt.Sprintf("  %s %s", v.String(), dimStyle.Render(protocol.CIPTypeName(v.Type))))
	}
	return strings.Join(lines, "\n")
}

// RenderTagValue shows a Logix tag read with Read Tag Fragmented.
func RenderTagValue(name string, value reply.TagValue) string {
	lines := []string{headerStyle.Render(fmt.Sprintf("%s : %s", name, protocol.CIPTypeName(value.Type)))}
	if value.StructHandle != 0 {
		lines = append(lines, fmt.Sprintf("  Structure handle: 0x%04X", value.StructHandle))
	}
	size := value.Type.Size()
	if size == 0 || value.StructHandle != 0 || len(value.Data)%size != 0 {
		lines = append(lines, fmt.Sprintf("  Data (%d bytes): % X", len(value.Data), value.Data))
		return strings.Join(lines, "\n")
	}
	for i := 0; i < len(value.Data); i += size {
		v, _, err := protocol.DecodeValue(value.Type, value.Data[i:])
		if err != nil {
			lines = append(lines, errorStyle.Render(fmt.Sprintf("  [%d] %v", i/size, err)))
			break
		}
		lines = append(lines, fmt.Sprintf("  [%d] %v", i/size, v))
	}
	return strings.Join(lines, "\n")
}

// RenderTagList lists controller symbols; system tags are dimmed.
func RenderTagList(tags []reply.TagInfo) string {
	lines := []string{headerStyle.Render(fmt.Sprintf("%d tags", len(tags)))}
	for _, tag := range tags {
		kind := protocol.CIPTypeName(protocol.CIPDataType(tag.Type & 0x0FFF))
		if tag.IsStructure() {
			kind = fmt.Sprintf("struct 0x%03X", tag.Type&0x0FFF)
		}
		line := fmt.Sprintf("  %-6d %-32s %s", tag.Instance, tag.Name, kind)
		if strings.HasPrefix(tag.Name, "__") {
			line = dimStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// RenderAddress explains a parsed data-table address.
func RenderAddress(addr pccc.Address) string {
	lines := []string{
		headerStyle.Render(addr.String()),
		fmt.Sprintf("  File type:   %s (0x%02X)", addr.FileType, uint8(addr.FileType)),
		fmt.Sprintf("  File number: %d", addr.FileNumber),
		fmt.Sprintf("  Element:     %d", addr.Element),
	}
	if addr.HasSub {
		lines = append(lines, fmt.Sprintf("  Sub-element: %d", addr.SubElement))
	}
	if addr.HasBit {
		lines = append(lines, fmt.Sprintf("  Bit:         %d", addr.BitNumber))
	}
	lines = append(lines, fmt.Sprintf("  Item size:   %d bytes", addr.ElementSize()))
	return strings.Join(lines, "\n")
}

// RenderCatalog lists catalog entries grouped by service and class.
func RenderCatalog(c *catalog.Catalog) string {
	var lines []string
	for _, g := range c.Groups() {
		lines = append(lines, headerStyle.Render(fmt.Sprintf("%s 0x%02X on %s 0x%02X", g.ServiceName, g.ServiceCode, g.ObjectName, g.ObjectClass)))
		entries := append([]*catalog.Entry(nil), g.Entries...)
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		for _, e := range entries {
			line := fmt.Sprintf("  %-28s %s", e.Key, e.Name)
			if e.Format != "" {
				line += dimStyle.Render("  " + e.Format)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// RenderError renders err, adding the numeric status of protocol errors.
func RenderError(err error) string {
	if err == nil {
		return ""
	}
	var stsErr pccc.StatusError
	if errors.As(err, &stsErr) {
		return errorStyle.Render("PCCC error: ") + err.Error()
	}
	return errorStyle.Render("Error: ") + err.Error()
}

// RenderOK renders a success line.
func RenderOK(msg string) string {
	return successStyle.Render("OK ") + msg
}

// RenderWarning renders a warning line.
func RenderWarning(msg string) string {
	return warningStyle.Render("Warning: ") + msg
}

// RenderPollLine renders one read of a polling loop on a single line.
func RenderPollLine(loop int, address string, values []any, err error) string {
	prefix := dimStyle.Render(fmt.Sprintf("#%-4d", loop)) + " " + address
	if err != nil {
		return prefix + " " + errorStyle.Render(err.Error())
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	return prefix + " = " + strings.Join(parts, " ")
}
