package catalog

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tturner/cipmsg/internal/cip/protocol"
)

func loadCore(t *testing.T) *Catalog {
	t.Helper()
	c, err := Core()
	if err != nil {
		t.Fatalf("Core failed: %v", err)
	}
	return c
}

func TestCoreCatalog(t *testing.T) {
	c := loadCore(t)

	if c.File().Name != "core" {
		t.Errorf("expected name 'core', got %q", c.File().Name)
	}
	entries := c.ListAll()
	if len(entries) == 0 {
		t.Fatal("expected entries, got none")
	}

	e := entries[0]
	if e.Key != "identity.vendor_id" {
		t.Errorf("expected first key 'identity.vendor_id', got %q", e.Key)
	}
	if e.ServiceCode != 0x0E || e.ObjectClass != 0x01 {
		t.Errorf("expected 0x0E on class 0x01, got 0x%02X on 0x%02X", e.ServiceCode, e.ObjectClass)
	}
	if e.EPATH.Kind != EPATHLogical || e.EPATH.Instance != 1 || e.EPATH.Attribute != 0x01 {
		t.Errorf("unexpected epath %+v", e.EPATH)
	}
}

func TestCatalogLookup(t *testing.T) {
	c := loadCore(t)

	entry, ok := c.Lookup("identity.vendor_id")
	if !ok {
		t.Fatal("lookup identity.vendor_id failed")
	}
	if entry.ServiceCode != 0x0E {
		t.Errorf("expected service 0x0E, got 0x%02X", entry.ServiceCode)
	}
	if _, ok := c.Lookup("nonexistent.key"); ok {
		t.Error("expected lookup of nonexistent key to return false")
	}
}

func TestCatalogGroups(t *testing.T) {
	c := loadCore(t)

	groups := c.Groups()
	if len(groups) == 0 {
		t.Fatal("expected service groups")
	}
	for i := 1; i < len(groups); i++ {
		if groups[i].ObjectClass < groups[i-1].ObjectClass {
			t.Fatalf("groups not ordered by class: 0x%02X after 0x%02X", groups[i].ObjectClass, groups[i-1].ObjectClass)
		}
	}

	var identityGroup *ServiceGroup
	for _, g := range groups {
		if g.ServiceCode == 0x0E && g.ObjectClass == 0x01 {
			identityGroup = g
			break
		}
	}
	if identityGroup == nil {
		t.Fatal("expected identity attribute group (0x0E, 0x01)")
	}
	if len(identityGroup.Entries) < 7 {
		t.Errorf("expected at least 7 identity attributes, got %d", len(identityGroup.Entries))
	}

	preview := identityGroup.TargetPreview(3)
	if !strings.HasSuffix(preview, ")") || !strings.HasPrefix(preview, "Vendor ID") {
		t.Errorf("unexpected target preview %q", preview)
	}
}

func TestCatalogSearch(t *testing.T) {
	c := loadCore(t)

	if results := c.Search("vendor"); len(results) < 2 {
		t.Errorf("expected at least 2 results for 'vendor', got %d", len(results))
	}
	results := c.Search("execute_pccc")
	if len(results) != 1 || results[0].Key != "pccc.echo" {
		t.Errorf("expected pccc.echo for 'execute_pccc', got %v", results)
	}
	if len(c.Search("")) != len(c.ListAll()) {
		t.Error("empty query should return every entry")
	}
}

func TestValidateEntries(t *testing.T) {
	c := loadCore(t)
	result := ValidateEntries(c)
	for _, w := range result.Warnings {
		t.Errorf("warning: %v", w)
	}
	for _, e := range result.Errors {
		t.Errorf("validation error: %v", e)
	}

	bad := NewCatalog(&File{Version: 1, Entries: []*Entry{{
		Key:         "bad",
		ServiceCode: 0x0E,
		ServiceName: "Get_Attribute_Single",
		ObjectClass: 0x01,
		EPATH:       EPATH{Kind: EPATHUCMMWrap, Class: 0x02, Instance: 1},
		Domain:      DomainCore,
		Format:      "x:NOPE",
		RequestHex:  "zz",
		Connected:   true,
	}}})
	result = ValidateEntries(bad)
	if result.IsValid() {
		t.Fatal("expected validation errors")
	}
	fields := map[string]bool{}
	for _, e := range result.Errors {
		fields[e.Field] = true
	}
	for _, f := range []string{"epath.class", "connected", "format", "request_hex"} {
		if !fields[f] {
			t.Errorf("expected an error on %s, got %v", f, result.Errors)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"version", "version: 2\nentries: []\n"},
		{"missing key", "version: 1\nentries:\n  - service_code: \"0x0E\"\n    object_class: \"0x01\"\n    epath: {kind: logical}\n    domain: core\n"},
		{"bad hex", "version: 1\nentries:\n  - key: a\n    service_code: \"0xZZ\"\n"},
		{"bad kind", "version: 1\nentries:\n  - key: a\n    service_code: \"0x0E\"\n    object_class: \"0x01\"\n    epath: {kind: symbolic}\n    domain: core\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEntryToGenericRequest(t *testing.T) {
	c := loadCore(t)

	entry, _ := c.Lookup("identity.revision")
	req, err := entry.ToGenericRequest(0)
	if err != nil {
		t.Fatalf("ToGenericRequest failed: %v", err)
	}
	if req.Service != 0x0E || req.Class != 0x01 || req.Instance != 1 || req.Attribute != 0x04 || !req.HasAttribute {
		t.Errorf("unexpected request %+v", req)
	}
	if len(req.Format) != 2 || req.Format[0].Type != protocol.CIPTypeUSINT {
		t.Errorf("unexpected format %+v", req.Format)
	}

	entry, _ = c.Lookup("symbol.instance_name")
	req, _ = entry.ToGenericRequest(0x22)
	if req.Instance != 0x22 {
		t.Errorf("instance override = 0x%02X, want 0x22", req.Instance)
	}

	entry, _ = c.Lookup("identity.routed_vendor_id")
	req, _ = entry.ToGenericRequest(0)
	if !req.UnconnectedSend || req.Connected {
		t.Errorf("routed entry: UnconnectedSend=%v Connected=%v", req.UnconnectedSend, req.Connected)
	}

	entry, _ = c.Lookup("pccc.echo")
	req, err = entry.ToGenericRequest(0)
	if err != nil {
		t.Fatalf("pccc.echo: %v", err)
	}
	if !req.Connected || req.HasAttribute || !bytes.HasPrefix(req.RequestData, []byte{0x07, 0x37, 0x13}) {
		t.Errorf("pccc.echo request %+v", req)
	}
}

func TestSaveLoadMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	site := &File{Version: 1, Name: "site", Entries: []*Entry{
		{
			Key:         "identity.vendor_id",
			Name:        "Vendor (site)",
			ServiceCode: 0x0E,
			ServiceName: "Get_Attribute_Single",
			ObjectClass: 0x01,
			EPATH:       EPATH{Kind: EPATHLogical, Class: 0x01, Instance: 1, Attribute: 0x01},
			Domain:      DomainCore,
			Format:      "UINT",
		},
		{
			Key:         "assembly.input",
			Name:        "Input Assembly",
			ServiceCode: 0x0E,
			ServiceName: "Get_Attribute_Single",
			ObjectClass: 0x04,
			EPATH:       EPATH{Kind: EPATHLogical, Class: 0x04, Instance: 0x65, Attribute: 0x03},
			Domain:      DomainCore,
		},
	}}
	if err := Save(path, site); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := loaded.Entries[1].EPATH; got.Instance != 0x65 || got.Attribute != 0x03 {
		t.Errorf("round-tripped epath %+v", got)
	}

	core := loadCore(t)
	merged := core.Merge(loaded)
	if len(merged.ListAll()) != len(core.ListAll())+1 {
		t.Errorf("merged %d entries, want %d", len(merged.ListAll()), len(core.ListAll())+1)
	}
	if e, _ := merged.Lookup("identity.vendor_id"); e.Name != "Vendor (site)" {
		t.Errorf("override not applied: %q", e.Name)
	}
}
