// Package catalog provides named explicit-message requests loaded from YAML.
package catalog

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/tturner/cipmsg/internal/cip/client"
	"github.com/tturner/cipmsg/internal/cip/protocol"
)

// EPATHKind identifies how the request is addressed.
type EPATHKind string

const (
	EPATHLogical  EPATHKind = "logical"   // Class/Instance[/Attribute]
	EPATHUCMMWrap EPATHKind = "ucmm_wrap" // logical, carried in Unconnected Send
)

// Domain classifies the service origin.
type Domain string

const (
	DomainCore   Domain = "core"   // ODVA standard services
	DomainLogix  Domain = "logix"  // Rockwell Logix services
	DomainLegacy Domain = "legacy" // PCCC and other legacy services
)

// Category groups entries for listing.
type Category string

const (
	CategoryDiscovery     Category = "discovery"
	CategoryConfiguration Category = "configuration"
	CategoryConnection    Category = "connection"
	CategoryDataAccess    Category = "data_access"
	CategoryLegacy        Category = "legacy"
)

// EPATH defines the request path of a catalog entry.
type EPATH struct {
	Kind      EPATHKind
	Class     uint16
	Instance  uint32
	Attribute uint16 // 0 means no attribute segment
}

// ToCIPPath converts an EPATH to a protocol.CIPPath.
func (e EPATH) ToCIPPath() protocol.CIPPath {
	return protocol.CIPPath{
		Class:        e.Class,
		Instance:     e.Instance,
		Attribute:    e.Attribute,
		HasAttribute: e.Attribute != 0,
	}
}

// Entry is one named request.
type Entry struct {
	Key         string
	Name        string
	ServiceCode uint8
	ServiceName string
	ObjectName  string
	ObjectClass uint16
	EPATH       EPATH
	Category    Category
	Domain      Domain
	RequestHex  string // request data, hex
	Format      string // reply layout, "name:TYPE,..."
	Connected   bool   // send over the Class-3 connection
	Description string
}

// Fields parses the entry's reply format.
func (e *Entry) Fields() ([]protocol.Field, error) {
	return protocol.ParseFormat(e.Format)
}

// RequestData decodes the entry's request data.
func (e *Entry) RequestData() ([]byte, error) {
	s := strings.Join(strings.Fields(e.RequestHex), "")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// ToGenericRequest builds the client request for the entry. An entry
// instance of 0 is replaced by instance, when given.
func (e *Entry) ToGenericRequest(instance uint32) (client.GenericRequest, error) {
	fields, err := e.Fields()
	if err != nil {
		return client.GenericRequest{}, fmt.Errorf("%s: format: %w", e.Key, err)
	}
	data, err := e.RequestData()
	if err != nil {
		return client.GenericRequest{}, fmt.Errorf("%s: request_hex: %w", e.Key, err)
	}
	path := e.EPATH.ToCIPPath()
	if instance != 0 {
		path.Instance = instance
	}
	return client.GenericRequest{
		Service:         protocol.CIPServiceCode(e.ServiceCode),
		Class:           path.Class,
		Instance:        path.Instance,
		Attribute:       path.Attribute,
		HasAttribute:    path.HasAttribute,
		RequestData:     data,
		Connected:       e.Connected,
		UnconnectedSend: e.EPATH.Kind == EPATHUCMMWrap,
		Format:          fields,
	}, nil
}

// ServiceGroup represents a group of entries sharing service+object.
type ServiceGroup struct {
	ServiceCode uint8
	ServiceName string
	ObjectClass uint16
	ObjectName  string
	Domain      Domain
	Entries     []*Entry
}

// TargetPreview returns a comma-separated preview of entry names.
func (g *ServiceGroup) TargetPreview(max int) string {
	if len(g.Entries) == 0 {
		return "-"
	}
	names := make([]string, 0, max)
	for i, e := range g.Entries {
		if i >= max {
			break
		}
		names = append(names, e.Name)
	}
	preview := strings.Join(names, ", ")
	if remaining := len(g.Entries) - max; remaining > 0 {
		preview += fmt.Sprintf(", ...(+%d)", remaining)
	}
	return preview
}

// File represents a catalog YAML file.
type File struct {
	Version int      `yaml:"version"`
	Name    string   `yaml:"name"`
	Entries []*Entry `yaml:"entries"`
}

// Validate checks the catalog file for consistency.
func (f *File) Validate() error {
	if f.Version != 1 {
		return fmt.Errorf("unsupported catalog version: %d", f.Version)
	}

	keys := make(map[string]bool)
	for i, e := range f.Entries {
		if e.Key == "" {
			return fmt.Errorf("entry %d: missing key", i)
		}
		if keys[e.Key] {
			return fmt.Errorf("entry %d: duplicate key %q", i, e.Key)
		}
		keys[e.Key] = true

		if e.ServiceCode == 0 {
			return fmt.Errorf("entry %q: missing service_code", e.Key)
		}
		if e.ObjectClass == 0 {
			return fmt.Errorf("entry %q: missing object_class", e.Key)
		}
		switch e.EPATH.Kind {
		case EPATHLogical, EPATHUCMMWrap:
		case "":
			return fmt.Errorf("entry %q: missing epath.kind", e.Key)
		default:
			return fmt.Errorf("entry %q: unknown epath.kind %q", e.Key, e.EPATH.Kind)
		}
		if e.Domain == "" {
			return fmt.Errorf("entry %q: missing domain", e.Key)
		}
	}

	return nil
}
