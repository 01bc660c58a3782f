package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tturner/cipmsg/internal/cip/codec"
)

// CIPDataType is an elementary CIP data type code.
type CIPDataType uint16

// Elementary data type codes.
const (
	CIPTypeBOOL     CIPDataType = 0xC1
	CIPTypeSINT     CIPDataType = 0xC2
	CIPTypeINT      CIPDataType = 0xC3
	CIPTypeDINT     CIPDataType = 0xC4
	CIPTypeLINT     CIPDataType = 0xC5
	CIPTypeUSINT    CIPDataType = 0xC6
	CIPTypeUINT     CIPDataType = 0xC7
	CIPTypeUDINT    CIPDataType = 0xC8
	CIPTypeULINT    CIPDataType = 0xC9
	CIPTypeREAL     CIPDataType = 0xCA
	CIPTypeLREAL    CIPDataType = 0xCB
	CIPTypeSTR      CIPDataType = 0xD0
	CIPTypeBYTE     CIPDataType = 0xD1
	CIPTypeWORD     CIPDataType = 0xD2
	CIPTypeDWORD    CIPDataType = 0xD3
	CIPTypeSHORTSTR CIPDataType = 0xDA
)

var cipTypeNames = map[CIPDataType]string{
	CIPTypeBOOL:     "BOOL",
	CIPTypeSINT:     "SINT",
	CIPTypeINT:      "INT",
	CIPTypeDINT:     "DINT",
	CIPTypeLINT:     "LINT",
	CIPTypeUSINT:    "USINT",
	CIPTypeUINT:     "UINT",
	CIPTypeUDINT:    "UDINT",
	CIPTypeULINT:    "ULINT",
	CIPTypeREAL:     "REAL",
	CIPTypeLREAL:    "LREAL",
	CIPTypeSTR:      "STRING",
	CIPTypeBYTE:     "BYTE",
	CIPTypeWORD:     "WORD",
	CIPTypeDWORD:    "DWORD",
	CIPTypeSHORTSTR: "SHORT_STRING",
}

// CIPTypeName returns the mnemonic for a data type code.
func CIPTypeName(code CIPDataType) string {
	if name, ok := cipTypeNames[code]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%04X)", uint16(code))
}

// CIPTypeCode returns the code for a mnemonic, defaulting to DINT.
func CIPTypeCode(name string) CIPDataType {
	if code, ok := LookupCIPType(name); ok {
		return code
	}
	return CIPTypeDINT
}

// LookupCIPType resolves a mnemonic case-insensitively.
func LookupCIPType(name string) (CIPDataType, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for code, n := range cipTypeNames {
		if n == name {
			return code, true
		}
	}
	return 0, false
}

func (t CIPDataType) String() string {
	return CIPTypeName(t)
}

// Size returns the encoded width of fixed-size types, or 0 for strings.
func (t CIPDataType) Size() int {
	switch t {
	case CIPTypeBOOL, CIPTypeSINT, CIPTypeUSINT, CIPTypeBYTE:
		return 1
	case CIPTypeINT, CIPTypeUINT, CIPTypeWORD:
		return 2
	case CIPTypeDINT, CIPTypeUDINT, CIPTypeREAL, CIPTypeDWORD:
		return 4
	case CIPTypeLINT, CIPTypeULINT, CIPTypeLREAL:
		return 8
	}
	return 0
}

// Field names one value in a reply layout.
type Field struct {
	Name string
	Type CIPDataType
}

// FieldValue is a decoded field. Value holds the Go type matching Type:
// bool, int8/16/32/64, uint8/16/32/64, float32/64 or string.
type FieldValue struct {
	Name  string
	Type  CIPDataType
	Value any
}

func (v FieldValue) String() string {
	if v.Name == "" {
		return fmt.Sprintf("%v", v.Value)
	}
	return fmt.Sprintf("%s=%v", v.Name, v.Value)
}

// ParseFormat parses "name:TYPE,name:TYPE" (or bare "TYPE") into a field layout.
func ParseFormat(spec string) ([]Field, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}
	var fields []Field
	for i, item := range strings.Split(spec, ",") {
		name, typeName, found := strings.Cut(strings.TrimSpace(item), ":")
		if !found {
			typeName = name
			name = "field" + strconv.Itoa(i)
		}
		code, ok := LookupCIPType(typeName)
		if !ok {
			return nil, fmt.Errorf("unknown data type %q", typeName)
		}
		fields = append(fields, Field{Name: strings.TrimSpace(name), Type: code})
	}
	return fields, nil
}

// DecodeFields decodes data according to fields, in order. Trailing bytes are ignored.
func DecodeFields(data []byte, fields []Field) ([]FieldValue, error) {
	values := make([]FieldValue, 0, len(fields))
	offset := 0
	for _, field := range fields {
		value, n, err := DecodeValue(field.Type, data[offset:])
		if err != nil {
			return values, fmt.Errorf("field %s at offset %d: %w", field.Name, offset, err)
		}
		values = append(values, FieldValue{Name: field.Name, Type: field.Type, Value: value})
		offset += n
	}
	return values, nil
}

// DecodeValue decodes one value of type t from the front of data and returns
// the number of bytes consumed.
func DecodeValue(t CIPDataType, data []byte) (any, int, error) {
	switch t {
	case CIPTypeSTR:
		n, err := codec.Uint16(data, 0)
		if err != nil {
			return nil, 0, err
		}
		if len(data) < 2+int(n) {
			return nil, 0, fmt.Errorf("STRING length %d exceeds %d bytes", n, len(data)-2)
		}
		return string(data[2 : 2+int(n)]), 2 + int(n), nil
	case CIPTypeSHORTSTR:
		if len(data) < 1 || len(data) < 1+int(data[0]) {
			return nil, 0, fmt.Errorf("SHORT_STRING truncated")
		}
		return string(data[1 : 1+int(data[0])]), 1 + int(data[0]), nil
	}

	size := t.Size()
	if size == 0 {
		return nil, 0, fmt.Errorf("unsupported data type %s", t)
	}
	if len(data) < size {
		return nil, 0, fmt.Errorf("%s needs %d bytes, have %d", t, size, len(data))
	}
	le := binary.LittleEndian
	switch t {
	case CIPTypeBOOL:
		return data[0] != 0, 1, nil
	case CIPTypeSINT:
		return int8(data[0]), 1, nil
	case CIPTypeUSINT, CIPTypeBYTE:
		return data[0], 1, nil
	case CIPTypeINT:
		return int16(le.Uint16(data)), 2, nil
	case CIPTypeUINT, CIPTypeWORD:
		return le.Uint16(data), 2, nil
	case CIPTypeDINT:
		return int32(le.Uint32(data)), 4, nil
	case CIPTypeUDINT, CIPTypeDWORD:
		return le.Uint32(data), 4, nil
	case CIPTypeREAL:
		return math.Float32frombits(le.Uint32(data)), 4, nil
	case CIPTypeLINT:
		return int64(le.Uint64(data)), 8, nil
	case CIPTypeULINT:
		return le.Uint64(data), 8, nil
	case CIPTypeLREAL:
		return math.Float64frombits(le.Uint64(data)), 8, nil
	}
	return nil, 0, fmt.Errorf("unsupported data type %s", t)
}

// EncodeValue encodes value as type t. Integer types accept any Go integer or a
// decimal string; float types accept floats, integers or strings.
func EncodeValue(t CIPDataType, value any) ([]byte, error) {
	switch t {
	case CIPTypeSTR, CIPTypeSHORTSTR:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%s needs a string, got %T", t, value)
		}
		if t == CIPTypeSHORTSTR {
			if len(s) > 0xFF {
				return nil, fmt.Errorf("SHORT_STRING too long: %d bytes", len(s))
			}
			return append([]byte{uint8(len(s))}, s...), nil
		}
		if len(s) > 0xFFFF {
			return nil, fmt.Errorf("STRING too long: %d bytes", len(s))
		}
		return append(codec.AppendUint16(nil, uint16(len(s))), s...), nil
	case CIPTypeREAL:
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		return codec.AppendFloat32(nil, float32(f)), nil
	case CIPTypeLREAL:
		f, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		return codec.AppendUint64(nil, math.Float64bits(f)), nil
	case CIPTypeBOOL:
		if b, ok := value.(bool); ok {
			if b {
				return []byte{0x01}, nil
			}
			return []byte{0x00}, nil
		}
	}

	size := t.Size()
	if size == 0 {
		return nil, fmt.Errorf("unsupported data type %s", t)
	}
	n, err := toInt(value)
	if err != nil {
		return nil, err
	}
	if err := checkRange(t, n); err != nil {
		return nil, err
	}
	switch size {
	case 1:
		return []byte{uint8(n)}, nil
	case 2:
		return codec.AppendUint16(nil, uint16(n)), nil
	case 4:
		return codec.AppendUint32(nil, uint32(n)), nil
	default:
		return codec.AppendUint64(nil, uint64(n)), nil
	}
}

func checkRange(t CIPDataType, n int64) error {
	var lo, hi int64
	switch t {
	case CIPTypeBOOL:
		lo, hi = 0, 1
	case CIPTypeSINT:
		lo, hi = math.MinInt8, math.MaxInt8
	case CIPTypeUSINT, CIPTypeBYTE:
		lo, hi = 0, math.MaxUint8
	case CIPTypeINT:
		lo, hi = math.MinInt16, math.MaxInt16
	case CIPTypeUINT, CIPTypeWORD:
		lo, hi = 0, math.MaxUint16
	case CIPTypeDINT:
		lo, hi = math.MinInt32, math.MaxInt32
	case CIPTypeUDINT, CIPTypeDWORD:
		lo, hi = 0, math.MaxUint32
	default:
		return nil
	}
	if n < lo || n > hi {
		return fmt.Errorf("value %d out of range for %s", n, t)
	}
	return nil
}

func toInt(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cannot encode %T as integer", value)
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", v)
		}
		return f, nil
	}
	n, err := toInt(value)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}
