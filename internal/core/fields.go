package core

// fields.go defines the Field Registry: the static, ordered catalog of lead
// fields an import can target.
//
// Field keys double as routing instructions. The prefix of a key decides
// which nested object of a DomainRecord the value lands in:
//
//	company_address_*  -> record.company.address
//	company_*          -> record.company
//	address_*          -> record.address
//	social_*           -> record.social_networks
//	anything else      -> top level
//
// The bare key "company" is the company name.

import (
	"fmt"
	"strings"
)

// FieldType represents the validation type of a lead field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldEmail  FieldType = "email"
	FieldEnum   FieldType = "enum"
)

// FieldDescriptor describes a single importable lead field.
type FieldDescriptor struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Required bool      `json:"required"`
	Type     FieldType `json:"type"`
	Options  []string  `json:"options,omitempty"` // Allowed values for FieldEnum, in display order
}

// Group identifies which part of a DomainRecord a field belongs to.
type Group int

const (
	GroupTopLevel Group = iota
	GroupAddress
	GroupCompany
	GroupCompanyAddress
	GroupSocial
)

func (g Group) String() string {
	switch g {
	case GroupAddress:
		return "address"
	case GroupCompany:
		return "company"
	case GroupCompanyAddress:
		return "company.address"
	case GroupSocial:
		return "social_networks"
	default:
		return "top-level"
	}
}

// Field keys referenced directly by the pipeline.
const (
	FieldKeyName    = "name"
	FieldKeyEmail   = "email"
	FieldKeyPhone   = "phone"
	FieldKeyStatus  = "status"
	FieldKeyCompany = "company"
)

// DefaultStatus is applied when a row carries no status value.
const DefaultStatus = "new"

// LeadStatuses are the allowed values of the status field.
var LeadStatuses = []string{"new", "contacted", "qualified", "unqualified", "converted", "lost"}

// groupPrefixes is checked in order; company_address_ must win over company_.
var groupPrefixes = []struct {
	prefix string
	group  Group
}{
	{"company_address_", GroupCompanyAddress},
	{"company_", GroupCompany},
	{"address_", GroupAddress},
	{"social_", GroupSocial},
}

// GroupOf returns the record group a field key routes to and the key suffix
// to use inside that group. The bare "company" key routes to the company
// group with suffix "name".
func GroupOf(fieldKey string) (Group, string) {
	if fieldKey == FieldKeyCompany {
		return GroupCompany, "name"
	}
	for _, gp := range groupPrefixes {
		if suffix, ok := strings.CutPrefix(fieldKey, gp.prefix); ok && suffix != "" {
			return gp.group, suffix
		}
	}
	return GroupTopLevel, fieldKey
}

// Registry is an immutable, ordered set of field descriptors.
type Registry struct {
	fields []FieldDescriptor
	byKey  map[string]int
}

// NewRegistry builds a registry from descriptors, preserving their order.
// Panics on a duplicate key or an enum field without options, since both are
// programmer errors in a static catalog.
func NewRegistry(fields []FieldDescriptor) *Registry {
	r := &Registry{
		fields: make([]FieldDescriptor, len(fields)),
		byKey:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if _, exists := r.byKey[f.Key]; exists {
			panic(fmt.Sprintf("field already registered: %s", f.Key))
		}
		if f.Type == FieldEnum && len(f.Options) == 0 {
			panic(fmt.Sprintf("enum field %s has no options", f.Key))
		}
		f.Options = append([]string(nil), f.Options...)
		r.fields[i] = f
		r.byKey[f.Key] = i
	}
	return r
}

// Describe returns the descriptor for a field key.
// Returns false if the key is not registered.
func (r *Registry) Describe(key string) (FieldDescriptor, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return FieldDescriptor{}, false
	}
	return r.fields[i], true
}

// All returns every descriptor in registry order.
func (r *Registry) All() []FieldDescriptor {
	out := make([]FieldDescriptor, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of registered fields.
func (r *Registry) Len() int {
	return len(r.fields)
}

// addressFields expands a prefix into the standard address sub-fields.
func addressFields(prefix, labelPrefix string) []FieldDescriptor {
	parts := []struct{ key, label string }{
		{"street", "Street"},
		{"external_number", "External Number"},
		{"internal_number", "Internal Number"},
		{"neighborhood", "Neighborhood"},
		{"city", "City"},
		{"state", "State"},
		{"country", "Country"},
		{"zip_code", "Zip Code"},
		{"full_address", "Full Address"},
	}
	out := make([]FieldDescriptor, len(parts))
	for i, p := range parts {
		out[i] = FieldDescriptor{
			Key:   prefix + p.key,
			Label: labelPrefix + p.label,
			Type:  FieldString,
		}
	}
	return out
}

func leadFields() []FieldDescriptor {
	fields := []FieldDescriptor{
		{Key: FieldKeyName, Label: "Name", Type: FieldString},
		{Key: FieldKeyEmail, Label: "Email", Type: FieldEmail},
		{Key: FieldKeyPhone, Label: "Phone", Type: FieldString},
		{Key: FieldKeyStatus, Label: "Status", Type: FieldEnum, Options: LeadStatuses},
		{Key: "source", Label: "Source", Type: FieldString},
		{Key: "job_title", Label: "Job Title", Type: FieldString},
		{Key: "notes", Label: "Notes", Type: FieldString},
	}
	fields = append(fields, addressFields("address_", "Address - ")...)
	fields = append(fields,
		FieldDescriptor{Key: FieldKeyCompany, Label: "Company Name", Type: FieldString},
		FieldDescriptor{Key: "company_website", Label: "Company - Website", Type: FieldString},
		FieldDescriptor{Key: "company_industry", Label: "Company - Industry", Type: FieldString},
		FieldDescriptor{Key: "company_size", Label: "Company - Size", Type: FieldString},
		FieldDescriptor{Key: "company_description", Label: "Company - Description", Type: FieldString},
	)
	fields = append(fields, addressFields("company_address_", "Company Address - ")...)
	fields = append(fields,
		FieldDescriptor{Key: "social_website", Label: "Website", Type: FieldString},
		FieldDescriptor{Key: "social_github", Label: "GitHub", Type: FieldString},
		FieldDescriptor{Key: "social_linkedin", Label: "LinkedIn", Type: FieldString},
		FieldDescriptor{Key: "social_twitter", Label: "Twitter", Type: FieldString},
		FieldDescriptor{Key: "social_facebook", Label: "Facebook", Type: FieldString},
		FieldDescriptor{Key: "social_instagram", Label: "Instagram", Type: FieldString},
	)
	return fields
}

var defaultRegistry = NewRegistry(leadFields())

// DefaultRegistry returns the lead field catalog.
func DefaultRegistry() *Registry {
	return defaultRegistry
}
