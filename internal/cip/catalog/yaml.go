package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// entryYAML is the YAML representation with string hex values.
type entryYAML struct {
	Key         string    `yaml:"key"`
	Name        string    `yaml:"name"`
	ServiceCode string    `yaml:"service_code"`
	ServiceName string    `yaml:"service_name"`
	ObjectName  string    `yaml:"object_name"`
	ObjectClass string    `yaml:"object_class"`
	EPATH       epathYAML `yaml:"epath"`
	Category    Category  `yaml:"category"`
	Domain      Domain    `yaml:"domain"`
	RequestHex  string    `yaml:"request_hex,omitempty"`
	Format      string    `yaml:"format,omitempty"`
	Connected   bool      `yaml:"connected,omitempty"`
	Description string    `yaml:"description,omitempty"`
}

type epathYAML struct {
	Kind      EPATHKind `yaml:"kind"`
	Class     string    `yaml:"class,omitempty"`
	Instance  string    `yaml:"instance,omitempty"`
	Attribute string    `yaml:"attribute,omitempty"`
}

// UnmarshalYAML implements yaml.Unmarshaler for Entry.
func (e *Entry) UnmarshalYAML(value *yaml.Node) error {
	var raw entryYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	serviceCode, err := parseHex(raw.ServiceCode, 8)
	if err != nil {
		return fmt.Errorf("service_code: %w", err)
	}
	objectClass, err := parseHex(raw.ObjectClass, 16)
	if err != nil {
		return fmt.Errorf("object_class: %w", err)
	}
	epath, err := parseEPATHYAML(raw.EPATH)
	if err != nil {
		return fmt.Errorf("epath: %w", err)
	}
	if epath.Class == 0 {
		epath.Class = uint16(objectClass)
	}

	*e = Entry{
		Key:         raw.Key,
		Name:        raw.Name,
		ServiceCode: uint8(serviceCode),
		ServiceName: raw.ServiceName,
		ObjectName:  raw.ObjectName,
		ObjectClass: uint16(objectClass),
		EPATH:       epath,
		Category:    raw.Category,
		Domain:      raw.Domain,
		RequestHex:  raw.RequestHex,
		Format:      raw.Format,
		Connected:   raw.Connected,
		Description: raw.Description,
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler for Entry.
func (e Entry) MarshalYAML() (interface{}, error) {
	return entryYAML{
		Key:         e.Key,
		Name:        e.Name,
		ServiceCode: fmt.Sprintf("0x%02X", e.ServiceCode),
		ServiceName: e.ServiceName,
		ObjectName:  e.ObjectName,
		ObjectClass: fmt.Sprintf("0x%02X", e.ObjectClass),
		EPATH:       marshalEPATHYAML(e.EPATH),
		Category:    e.Category,
		Domain:      e.Domain,
		RequestHex:  e.RequestHex,
		Format:      e.Format,
		Connected:   e.Connected,
		Description: e.Description,
	}, nil
}

func parseEPATHYAML(raw epathYAML) (EPATH, error) {
	epath := EPATH{Kind: raw.Kind}

	class, err := parseHex(raw.Class, 16)
	if err != nil {
		return epath, fmt.Errorf("class: %w", err)
	}
	epath.Class = uint16(class)

	if raw.Instance != "" {
		v, err := parseHex(raw.Instance, 32)
		if err != nil {
			return epath, fmt.Errorf("instance: %w", err)
		}
		epath.Instance = uint32(v)
	} else {
		// Default instance to 1 for logical paths
		epath.Instance = 1
	}

	attr, err := parseHex(raw.Attribute, 16)
	if err != nil {
		return epath, fmt.Errorf("attribute: %w", err)
	}
	epath.Attribute = uint16(attr)
	return epath, nil
}

func marshalEPATHYAML(e EPATH) epathYAML {
	y := epathYAML{Kind: e.Kind}
	if e.Class != 0 {
		y.Class = fmt.Sprintf("0x%02X", e.Class)
	}
	if e.Instance != 1 {
		y.Instance = fmt.Sprintf("0x%02X", e.Instance)
	}
	if e.Attribute != 0 {
		y.Attribute = fmt.Sprintf("0x%02X", e.Attribute)
	}
	return y
}

// parseHex parses a "0x"-prefixed hex or plain decimal value; empty is 0.
func parseHex(s string, bits int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}

	v, err := strconv.ParseUint(s, base, bits)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return v, nil
}
