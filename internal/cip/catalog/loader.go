package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed core.yaml
var coreYAML []byte

// Core returns the built-in catalog of standard object requests.
func Core() (*Catalog, error) {
	file, err := Parse(coreYAML)
	if err != nil {
		return nil, fmt.Errorf("core catalog: %w", err)
	}
	return NewCatalog(file), nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return &file, nil
}

// Load reads and validates a catalog from a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Save writes a catalog to a YAML file.
func Save(path string, file *File) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write catalog file: %w", err)
	}
	return nil
}

// Catalog is a File indexed by key and by (service, object class).
type Catalog struct {
	file   *File
	byKey  map[string]*Entry
	groups []*ServiceGroup
}

type groupKey struct {
	service uint8
	class   uint16
}

// NewCatalog indexes file. Groups are ordered by object class, then service.
func NewCatalog(file *File) *Catalog {
	c := &Catalog{file: file, byKey: make(map[string]*Entry, len(file.Entries))}
	index := map[groupKey]*ServiceGroup{}
	for _, e := range file.Entries {
		c.byKey[e.Key] = e
		k := groupKey{e.ServiceCode, e.ObjectClass}
		g := index[k]
		if g == nil {
			g = &ServiceGroup{
				ServiceCode: e.ServiceCode,
				ServiceName: e.ServiceName,
				ObjectClass: e.ObjectClass,
				ObjectName:  e.ObjectName,
				Domain:      e.Domain,
			}
			index[k] = g
			c.groups = append(c.groups, g)
		}
		g.Entries = append(g.Entries, e)
	}
	sort.SliceStable(c.groups, func(i, j int) bool {
		a, b := c.groups[i], c.groups[j]
		if a.ObjectClass == b.ObjectClass {
			return a.ServiceCode < b.ServiceCode
		}
		return a.ObjectClass < b.ObjectClass
	})
	return c
}

// Merge returns a catalog holding c's entries overlaid with file's. An entry
// in file replaces the one in c with the same key.
func (c *Catalog) Merge(file *File) *Catalog {
	override := make(map[string]bool, len(file.Entries))
	for _, e := range file.Entries {
		override[e.Key] = true
	}
	merged := &File{Version: c.file.Version, Name: c.file.Name}
	for _, e := range c.file.Entries {
		if !override[e.Key] {
			merged.Entries = append(merged.Entries, e)
		}
	}
	merged.Entries = append(merged.Entries, file.Entries...)
	return NewCatalog(merged)
}

// Lookup returns the entry named key.
func (c *Catalog) Lookup(key string) (*Entry, bool) {
	e, ok := c.byKey[key]
	return e, ok
}

// ListAll returns the entries in file order.
func (c *Catalog) ListAll() []*Entry { return c.file.Entries }

// Groups returns the (service, object class) groups.
func (c *Catalog) Groups() []*ServiceGroup { return c.groups }

// File returns the underlying catalog file.
func (c *Catalog) File() *File { return c.file }

// Search returns entries whose key, name, description, service name or
// object name contains query, case-insensitively. An empty query matches all.
func (c *Catalog) Search(query string) []*Entry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.file.Entries
	}
	var matches []*Entry
	for _, e := range c.file.Entries {
		haystack := strings.ToLower(strings.Join([]string{e.Key, e.Name, e.Description, e.ServiceName, e.ObjectName}, "\x00"))
		if strings.Contains(haystack, query) {
			matches = append(matches, e)
		}
	}
	return matches
}
