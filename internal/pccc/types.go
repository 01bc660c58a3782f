package pccc

// PCCC (Programmable Controller Communication Commands) protocol types.
// PCCC frames are tunneled through CIP Execute PCCC (service 0x4B) to the
// PCCC Object (class 0x67, instance 1).

import (
	"fmt"
	"strings"
)

// Command represents a PCCC command code (CMD byte).
type Command uint8

// Only CmdExtended is followed by a function code.
const (
	CmdProtectedWrite   Command = 0x01
	CmdUnprotectedRead  Command = 0x02
	CmdProtectedRead    Command = 0x05
	CmdUnprotectedWrite Command = 0x08
	CmdExtended         Command = 0x0F
)

// replyBit is set in the CMD byte of every reply.
const replyBit = 0x40

// FunctionCode represents a PCCC function code (FNC byte) used with CmdExtended.
type FunctionCode uint8

// FileType represents a PCCC data file type code.
type FileType uint8

const (
	FileTypeStatus  FileType = 0x84 // S - Status
	FileTypeBit     FileType = 0x85 // B - Bit/Binary
	FileTypeTimer   FileType = 0x86 // T - Timer
	FileTypeCounter FileType = 0x87 // C - Counter
	FileTypeControl FileType = 0x88 // R - Control
	FileTypeInteger FileType = 0x89 // N - Integer (16-bit)
	FileTypeFloat   FileType = 0x8A // F - Float (32-bit)
	FileTypeOutput  FileType = 0x8B // O - Output
	FileTypeInput   FileType = 0x8C // I - Input
	FileTypeASCII   FileType = 0x8E // A - ASCII
)

// fileTypeInfo holds the per-file-type facts the codec needs: the address
// letter, the conventional file number and the element width in words.
var fileTypeInfo = map[FileType]struct {
	letter      byte
	defaultFile uint16
	words       int
}{
	FileTypeOutput:  {'O', 0, 1},
	FileTypeInput:   {'I', 1, 1},
	FileTypeStatus:  {'S', 2, 1},
	FileTypeBit:     {'B', 3, 1},
	FileTypeTimer:   {'T', 4, 3},
	FileTypeCounter: {'C', 5, 3},
	FileTypeControl: {'R', 6, 3},
	FileTypeInteger: {'N', 7, 1},
	FileTypeFloat:   {'F', 8, 2},
	FileTypeASCII:   {'A', 0, 1},
}

// fileTypeByLetter maps the address letter to its file type code.
var fileTypeByLetter = func() map[byte]FileType {
	m := make(map[byte]FileType, len(fileTypeInfo))
	for ft, info := range fileTypeInfo {
		m[info.letter] = ft
	}
	return m
}()

// SubElement represents a named word offset within a structured element.
type SubElement uint8

const (
	// Timer/counter sub-elements (T and C files)
	SubControl SubElement = 0 // Control word (status bits)
	SubPRE     SubElement = 1 // Preset value
	SubACC     SubElement = 2 // Accumulated value
)

// Request represents a PCCC request message.
type Request struct {
	Command  Command
	Status   uint8 // Always 0 for requests
	TNS      uint16
	Function FunctionCode // Only present when Command == CmdExtended
	Data     []byte
}

// Response represents a PCCC reply. Replies carry no function code; ExtSTS is
// only present when Status is StatusExtended.
type Response struct {
	Command Command
	Status  uint8
	TNS     uint16
	ExtSTS  uint8
	Data    []byte
}

// Address is a parsed legacy data table address.
type Address struct {
	FileType      FileType
	Letter        string
	FileNumber    uint16
	HasFileNumber bool // false for the I:/O:/S: forms, which use the default file
	Element       uint16
	HasElement    bool
	SubElement    uint8
	HasSub        bool
	BitNumber     uint8
	HasBit        bool
	// AddressField is the number of binary address components (2 or 3)
	// implied by the grammar that matched.
	AddressField int
	RawAddress   string
}

// ByteSize returns the element size in bytes for this file type. Unknown
// types are treated as one word.
func (ft FileType) ByteSize() int {
	if info, ok := fileTypeInfo[ft]; ok {
		return 2 * info.words
	}
	return 2
}

// String returns the file type letter prefix.
func (ft FileType) String() string {
	if info, ok := fileTypeInfo[ft]; ok {
		return string(info.letter)
	}
	return fmt.Sprintf("?(0x%02X)", uint8(ft))
}

// IsStructured reports whether elements of this file type span several words.
func (ft FileType) IsStructured() bool {
	return fileTypeInfo[ft].words > 1
}

// DefaultFileNumber returns the conventional file number for a file type, 0
// for types without one.
func DefaultFileNumber(ft FileType) uint16 {
	return fileTypeInfo[ft].defaultFile
}

// ElementSize returns the number of bytes one addressed item occupies on
// the wire. A sub-element or bit address selects a single word.
func (a Address) ElementSize() int {
	if a.HasSub || a.HasBit {
		return 2
	}
	return a.FileType.ByteSize()
}

// String renders the address in canonical form.
func (a Address) String() string {
	var b strings.Builder
	b.WriteString(a.Letter)
	if a.HasFileNumber {
		fmt.Fprintf(&b, "%d", a.FileNumber)
	}
	fmt.Fprintf(&b, ":%d", a.Element)
	if a.HasSub {
		fmt.Fprintf(&b, ".%d", a.SubElement)
	}
	if a.HasBit {
		fmt.Fprintf(&b, "/%d", a.BitNumber)
	}
	return b.String()
}

var commandNames = map[Command]string{
	CmdProtectedWrite:   "Protected_Write",
	CmdUnprotectedRead:  "Unprotected_Read",
	CmdProtectedRead:    "Protected_Read",
	CmdUnprotectedWrite: "Unprotected_Write",
	CmdExtended:         "Extended",
}

// String names the command, ignoring the reply bit.
func (c Command) String() string {
	if name, ok := commandNames[c&^replyBit]; ok {
		return name
	}
	return "Unknown"
}

// IsReply reports whether the reply bit is set.
func (c Command) IsReply() bool {
	return c&replyBit != 0
}

// HasFunctionCode reports whether requests with this command carry an FNC byte.
func (c Command) HasFunctionCode() bool {
	return c == CmdExtended
}
