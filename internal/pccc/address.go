package pccc

// Legacy data table address parsing.
//
// Grammars, tried in order; the first full, case-insensitive match wins:
//   N7:0, F8:10, B3:1/5    <file><number>:<element>[/<bit>]
//   B3/20, N7/3            <B|N><number>/<bit>      (element = bit/16)
//   T4:2.ACC, C5:0.DN      <T|C><number>:<element>.<mnemonic>
//   I:1/0, O:0/15, S:1/5   <I|O|S>:<element>/<bit>
//   I:1.3                  <I|O|S>:<element>.<word 0-7>

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tturner/cipmsg/internal/errors"
)

var (
	fileElementPattern = regexp.MustCompile(`(?i)^([SBCTRNFAIO])(\d{1,3}):(\d{1,3})(?:/(\d{1,4}))?$`)
	bitFilePattern     = regexp.MustCompile(`(?i)^([BN])(\d{1,3})/(\d{1,4})$`)
	mnemonicPattern    = regexp.MustCompile(`(?i)^([CT])(\d{1,3}):(\d{1,3})\.(ACC|PRE|EN|DN|TT|CU|CD|OV|UN|UA)$`)
	ioBitPattern       = regexp.MustCompile(`(?i)^([IOS]):(\d{1,3})/(\d{1,4})$`)
	ioWordPattern      = regexp.MustCompile(`(?i)^([IOS]):(\d{1,3})\.([0-7])$`)
)

// mnemonicTarget is the word (and optionally bit) a timer/counter mnemonic selects.
type mnemonicTarget struct {
	sub    SubElement
	bit    uint8
	hasBit bool
}

var timerMnemonics = map[string]mnemonicTarget{
	"EN":  {sub: SubControl, bit: 15, hasBit: true},
	"TT":  {sub: SubControl, bit: 14, hasBit: true},
	"DN":  {sub: SubControl, bit: 13, hasBit: true},
	"PRE": {sub: SubPRE},
	"ACC": {sub: SubACC},
}

var counterMnemonics = map[string]mnemonicTarget{
	"CU":  {sub: SubControl, bit: 15, hasBit: true},
	"CD":  {sub: SubControl, bit: 14, hasBit: true},
	"DN":  {sub: SubControl, bit: 13, hasBit: true},
	"OV":  {sub: SubControl, bit: 12, hasBit: true},
	"UN":  {sub: SubControl, bit: 11, hasBit: true},
	"UA":  {sub: SubControl, bit: 10, hasBit: true},
	"PRE": {sub: SubPRE},
	"ACC": {sub: SubACC},
}

// ParseAddress parses a legacy data table address. Anything outside the
// grammars yields errors.NotRecognizedError carrying the input.
//
// A bit-file address without an element, such as "B3/4", names a bit
// counted from the start of the file: it yields Element 0 and BitNumber 4,
// not a sub-element. "B3/20" is Element 1, BitNumber 4. Typed reads and
// writes then address the containing word and the bit is applied locally.
func ParseAddress(addr string) (Address, error) {
	s := strings.TrimSpace(addr)
	notRecognized := errors.NotRecognizedError{Address: addr}

	if m := fileElementPattern.FindStringSubmatch(s); m != nil {
		result := newAddress(m[1], s)
		result.FileNumber, result.HasFileNumber = atou16(m[2]), true
		result.Element, result.HasElement = atou16(m[3]), true
		result.AddressField = 2
		if m[4] != "" {
			if result.FileType == FileTypeFloat {
				return Address{}, notRecognized
			}
			result.AddressField = 3
			if !setBit(&result, atou16(m[4])) {
				return Address{}, notRecognized
			}
		}
		return result, nil
	}

	if m := bitFilePattern.FindStringSubmatch(s); m != nil {
		result := newAddress(m[1], s)
		result.FileNumber, result.HasFileNumber = atou16(m[2]), true
		bit := atou16(m[3])
		result.Element, result.HasElement = bit/16, true
		result.BitNumber, result.HasBit = uint8(bit%16), true
		result.AddressField = 2
		return result, nil
	}

	if m := mnemonicPattern.FindStringSubmatch(s); m != nil {
		result := newAddress(m[1], s)
		result.FileNumber, result.HasFileNumber = atou16(m[2]), true
		result.Element, result.HasElement = atou16(m[3]), true
		result.AddressField = 3

		table := timerMnemonics
		if result.FileType == FileTypeCounter {
			table = counterMnemonics
		}
		target, ok := table[strings.ToUpper(m[4])]
		if !ok {
			return Address{}, notRecognized
		}
		result.SubElement, result.HasSub = uint8(target.sub), true
		result.BitNumber, result.HasBit = target.bit, target.hasBit
		return result, nil
	}

	if m := ioBitPattern.FindStringSubmatch(s); m != nil {
		result := newAddress(m[1], s)
		result.FileNumber = DefaultFileNumber(result.FileType)
		result.Element, result.HasElement = atou16(m[2]), true
		result.AddressField = 2
		if !setBit(&result, atou16(m[3])) {
			return Address{}, notRecognized
		}
		return result, nil
	}

	if m := ioWordPattern.FindStringSubmatch(s); m != nil {
		result := newAddress(m[1], s)
		result.FileNumber = DefaultFileNumber(result.FileType)
		result.Element, result.HasElement = atou16(m[2]), true
		sub, _ := strconv.Atoi(m[3])
		result.SubElement, result.HasSub = uint8(sub), true
		result.AddressField = 2
		return result, nil
	}

	return Address{}, notRecognized
}

func newAddress(letter, raw string) Address {
	letter = strings.ToUpper(letter)
	return Address{
		FileType:   fileTypeByLetter[letter[0]],
		Letter:     letter,
		RawAddress: raw,
	}
}

// setBit records a slash bit number. Bits past 15 continue into the next
// word: the next sub-element for I/O and structured files, the next element
// for plain word files. It reports false when the word does not fit.
func setBit(a *Address, bit uint16) bool {
	a.BitNumber, a.HasBit = uint8(bit%16), true
	word := bit / 16
	if word == 0 {
		return true
	}
	switch a.FileType {
	case FileTypeInput, FileTypeOutput, FileTypeTimer, FileTypeCounter, FileTypeControl:
		if word > 0xFF {
			return false
		}
		a.SubElement, a.HasSub = uint8(word), true
	default:
		a.Element += word
	}
	return true
}

// atou16 converts a digit string already bounded to four digits by the grammar.
func atou16(s string) uint16 {
	n, _ := strconv.ParseUint(s, 10, 16)
	return uint16(n)
}
