package core

// transform.go turns validated rows into nested lead records ready for the
// bulk-create collaborator.
//
// Each mapped, non-empty cell is routed by GroupOf into the top level or one
// of the nested objects. Nested objects only exist on a record when at least
// one of their sub-fields was populated. A name is rebuilt from first/last
// name columns even when those columns are skipped, and status defaults to
// DefaultStatus.
//
// The transformer has no error channel. Values that cannot be placed (unknown
// target, malformed email, enum value outside its options) are dropped.

import (
	"encoding/json"
	"sort"
	"strings"
)

// CompanyRecord is the nested company object of a lead.
type CompanyRecord struct {
	Fields  map[string]string // name, website, industry, size, description
	Address map[string]string // Present only when populated
}

// MarshalJSON flattens Fields next to the optional "address" object.
func (c CompanyRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		out[k] = v
	}
	if len(c.Address) > 0 {
		out["address"] = c.Address
	}
	return json.Marshal(out)
}

// DomainRecord is one transformed lead.
type DomainRecord struct {
	Fields         map[string]string // Top-level scalar fields
	Address        map[string]string // nil unless populated
	Company        *CompanyRecord    // nil unless populated
	SocialNetworks map[string]string // nil unless populated
}

// Get returns a top-level field value.
func (r DomainRecord) Get(key string) string {
	return r.Fields[key]
}

// MarshalJSON renders the record as a single object: top-level fields plus
// "address", "company" and "social_networks" when present.
func (r DomainRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		out[k] = v
	}
	if len(r.Address) > 0 {
		out["address"] = r.Address
	}
	if r.Company != nil {
		out["company"] = r.Company
	}
	if len(r.SocialNetworks) > 0 {
		out["social_networks"] = r.SocialNetworks
	}
	return json.Marshal(out)
}

// Transformer builds DomainRecords from rows and a mapping.
type Transformer struct {
	registry *Registry
}

// NewTransformer creates a transformer over the given registry.
func NewTransformer(registry *Registry) *Transformer {
	return &Transformer{registry: registry}
}

// Transform converts every row, preserving order. No row is dropped.
func (t *Transformer) Transform(rows []RawRow, mappings []ColumnMapping) []DomainRecord {
	records := make([]DomainRecord, len(rows))
	for i, row := range rows {
		records[i] = t.TransformRow(row, mappings)
	}
	return records
}

// recordBuilder accumulates one record's values before empty groups are
// discarded.
type recordBuilder struct {
	fields         map[string]string
	address        map[string]string
	company        map[string]string
	companyAddress map[string]string
	social         map[string]string
}

func newRecordBuilder() *recordBuilder {
	return &recordBuilder{
		fields:         make(map[string]string),
		address:        make(map[string]string),
		company:        make(map[string]string),
		companyAddress: make(map[string]string),
		social:         make(map[string]string),
	}
}

func (b *recordBuilder) set(fieldKey, value string) {
	group, suffix := GroupOf(fieldKey)
	switch group {
	case GroupAddress:
		b.address[suffix] = value
	case GroupCompany:
		b.company[suffix] = value
	case GroupCompanyAddress:
		b.companyAddress[suffix] = value
	case GroupSocial:
		b.social[suffix] = value
	default:
		b.fields[suffix] = value
	}
}

func (b *recordBuilder) build() DomainRecord {
	rec := DomainRecord{Fields: b.fields}
	if len(b.address) > 0 {
		rec.Address = b.address
	}
	if len(b.company) > 0 || len(b.companyAddress) > 0 {
		rec.Company = &CompanyRecord{Fields: b.company}
		if len(b.companyAddress) > 0 {
			rec.Company.Address = b.companyAddress
		}
	}
	if len(b.social) > 0 {
		rec.SocialNetworks = b.social
	}
	return rec
}

// TransformRow converts a single row.
func (t *Transformer) TransformRow(row RawRow, mappings []ColumnMapping) DomainRecord {
	b := newRecordBuilder()
	placed := make(map[string]bool, len(mappings))

	// When several columns map to one field, the first usable value wins.
	for _, m := range mappings {
		if m.Skipped() {
			continue
		}
		f, ok := t.registry.Describe(m.TargetField)
		if !ok || placed[f.Key] {
			continue
		}
		value := CellString(row[m.SourceColumn])
		if value == "" || ValidateValue(value, f) != nil {
			continue
		}
		b.set(f.Key, value)
		placed[f.Key] = true
	}

	first, last := nameParts(row, mappings)
	if name := b.fields[FieldKeyName]; name == "" {
		if full := joinNonBlank(first, last); full != "" {
			b.fields[FieldKeyName] = full
		}
	} else if last != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(last)) {
		b.fields[FieldKeyName] = name + " " + last
	}

	if b.fields[FieldKeyStatus] == "" {
		b.fields[FieldKeyStatus] = DefaultStatus
	}

	return b.build()
}

// Name columns are recognized with the same patterns the mapper uses to skip
// them.
var (
	firstNameGroup = mustSynonymGroup("first-name")
	lastNameGroup  = mustSynonymGroup("last-name")
)

func mustSynonymGroup(name string) synonymGroup {
	for _, g := range synonymGroups {
		if g.name == name {
			return g
		}
	}
	panic("unknown synonym group: " + name)
}

// nameParts finds first- and last-name values among the row's headers,
// whatever they are mapped to. Headers are visited in mapping order, then any
// remaining row keys in sorted order; the first non-blank value wins.
func nameParts(row RawRow, mappings []ColumnMapping) (first, last string) {
	for _, h := range rowHeaders(row, mappings) {
		norm := NormalizeHeader(h)
		switch {
		case first == "" && firstNameGroup.matches(norm):
			first = CellString(row[h])
		case last == "" && lastNameGroup.matches(norm):
			last = CellString(row[h])
		}
		if first != "" && last != "" {
			break
		}
	}
	return first, last
}

func rowHeaders(row RawRow, mappings []ColumnMapping) []string {
	headers := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, m := range mappings {
		if _, ok := row[m.SourceColumn]; ok && !seen[m.SourceColumn] {
			headers = append(headers, m.SourceColumn)
			seen[m.SourceColumn] = true
		}
	}
	var rest []string
	for h := range row {
		if !seen[h] {
			rest = append(rest, h)
		}
	}
	sort.Strings(rest)
	return append(headers, rest...)
}

func joinNonBlank(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
