package catalog

import (
	"fmt"
	"strings"

	"github.com/tturner/cipmsg/internal/cip/protocol"
	"github.com/tturner/cipmsg/internal/cip/spec"
)

// ValidationError is one finding against a catalog entry field.
type ValidationError struct {
	Key     string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Key, e.Field, e.Message)
}

// ValidationResult splits findings into errors, which make an entry
// unusable, and warnings about names and codes the tables do not know.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid reports whether no errors were found.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) warn(e *Entry, field, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationError{e.Key, field, fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) fail(e *Entry, field, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{e.Key, field, fmt.Sprintf(format, args...)})
}

// ValidateEntries checks entries against the service and class name tables
// and checks that request data and reply formats parse.
func ValidateEntries(c *Catalog) *ValidationResult {
	result := &ValidationResult{}
	for _, e := range c.ListAll() {
		result.check(e)
	}
	return result
}

func (r *ValidationResult) check(e *Entry) {
	code := protocol.CIPServiceCode(e.ServiceCode)
	switch known := spec.ServiceName(code); {
	case !spec.IsKnownService(code):
		r.warn(e, "service_code", "unknown service code 0x%02X", e.ServiceCode)
	case foldName(known) != foldName(e.ServiceName):
		r.warn(e, "service_name", "service name %q does not match %q", e.ServiceName, known)
	}
	if spec.ClassName(e.ObjectClass) == "" {
		r.warn(e, "object_class", "unknown class code 0x%02X", e.ObjectClass)
	}

	if e.EPATH.Class != e.ObjectClass {
		r.fail(e, "epath.class", "epath.class 0x%02X does not match object_class 0x%02X", e.EPATH.Class, e.ObjectClass)
	}
	if e.Connected && e.EPATH.Kind == EPATHUCMMWrap {
		r.fail(e, "connected", "connected requests cannot be carried in Unconnected Send")
	}
	if e.Domain != DomainCore && e.Domain != DomainLogix && e.Domain != DomainLegacy {
		r.fail(e, "domain", "unknown domain %q", e.Domain)
	}
	if _, err := e.Fields(); err != nil {
		r.fail(e, "format", "%v", err)
	}
	if _, err := e.RequestData(); err != nil {
		r.fail(e, "request_hex", "%v", err)
	}
}

// foldName compares service names ignoring case and separators.
func foldName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', ' ', '-':
			return -1
		}
		return r
	}, strings.ToLower(name))
}
