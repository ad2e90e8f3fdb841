package core

// mapper.go proposes an initial ColumnMapping for every header of an uploaded
// file, so most imports need no manual configuration.
//
// Inference runs in three steps per header:
//  1. Normalize (lowercase, trim)
//  2. Test the ordered synonymGroups table; the first matching group wins
//  3. Fall back to scanning the registry for a key contained in the header
//     (or a key containing the header)
//
// Anything left unmatched is mapped to SkipField. Inference never fails.

import "strings"

// SkipField is the mapping target for columns that are not imported.
const SkipField = "skip"

// ColumnMapping associates one source column with a target field.
type ColumnMapping struct {
	SourceColumn string `json:"sourceColumn"`
	TargetField  string `json:"targetField"` // Registry key or SkipField
	Required     bool   `json:"required"`
}

// Skipped reports whether the column is excluded from the import.
func (m ColumnMapping) Skipped() bool {
	return m.TargetField == SkipField || m.TargetField == ""
}

// synonymGroup maps a set of header patterns to a single outcome.
type synonymGroup struct {
	name     string
	patterns []string // Matched with strings.Contains
	exact    []string // Matched with ==
	excludes []string // Header must not contain any of these
	target   string   // Registry key or SkipField
}

func (g synonymGroup) matches(header string) bool {
	for _, ex := range g.excludes {
		if strings.Contains(header, ex) {
			return false
		}
	}
	for _, e := range g.exact {
		if header == e {
			return true
		}
	}
	for _, p := range g.patterns {
		if strings.Contains(header, p) {
			return true
		}
	}
	return false
}

// companyVariants spells a company sub-field the ways exports usually do:
// "company city", "company - city", "company address - city", "company_city"...
func companyVariants(terms ...string) []string {
	var out []string
	for _, t := range terms {
		snake := strings.ReplaceAll(t, " ", "_")
		out = append(out,
			"company "+t,
			"company - "+t,
			"company_"+snake,
			"company address "+t,
			"company address - "+t,
			"company_address_"+snake,
		)
	}
	return out
}

// notCompany keeps personal address groups away from company columns.
var notCompany = []string{"company"}

// synonymGroups is evaluated in order; the first group whose patterns match a
// normalized header decides its mapping. More specific groups come first.
var synonymGroups = []synonymGroup{
	{
		name:     "email",
		patterns: []string{"email", "e-mail", "correo", "mail address"},
		target:   FieldKeyEmail,
	},
	{
		name:     "full-name",
		patterns: []string{"full name", "full_name", "fullname", "complete name", "contact name", "lead name", "nombre completo"},
		target:   FieldKeyName,
	},
	{
		name:     "first-name",
		patterns: []string{"first name", "first_name", "firstname", "given name", "forename"},
		target:   SkipField,
	},
	{
		name:     "display-name",
		patterns: []string{"display name", "display_name", "displayname", "nickname", "preferred name"},
		target:   SkipField,
	},
	{
		name:     "last-name",
		patterns: []string{"last name", "last_name", "lastname", "surname", "family name", "apellido"},
		target:   SkipField,
	},
	{
		name:     "postal-code",
		patterns: []string{"zip", "postal", "postcode", "codigo postal"},
		excludes: notCompany,
		target:   "address_zip_code",
	},
	{
		name:     "street-line-2",
		patterns: []string{"address 2", "address2", "address line 2", "address_line_2", "street 2", "street2", "line 2"},
		target:   SkipField,
	},
	{
		name:     "external-number",
		patterns: []string{"external number", "external_number", "exterior number", "ext number", "ext. number", "numero exterior", "num ext", "no. ext"},
		excludes: notCompany,
		target:   "address_external_number",
	},
	{
		name:     "internal-number",
		patterns: []string{"internal number", "internal_number", "interior number", "int number", "int. number", "numero interior", "num int", "no. int", "apartment"},
		excludes: notCompany,
		target:   "address_internal_number",
	},
	{
		name:     "billing-shipping",
		patterns: []string{"billing", "shipping"},
		target:   SkipField,
	},
	{
		name:     "full-address",
		patterns: []string{"full address", "full_address", "complete address", "direccion completa"},
		excludes: notCompany,
		target:   "address_full_address",
	},
	{
		name:     "street",
		patterns: []string{"street", "address line 1", "address_line_1", "address 1", "address1", "calle"},
		exact:    []string{"address", "direccion"},
		excludes: notCompany,
		target:   "address_street",
	},
	{
		name:     "company-name",
		patterns: []string{"company name", "company - name", "company_name", "organization", "organisation", "business name", "account name"},
		target:   FieldKeyCompany,
	},
	{
		name:     "company-website",
		patterns: append(companyVariants("website", "url", "site"), "company web"),
		target:   "company_website",
	},
	{
		name:     "company-industry",
		patterns: []string{"industry", "sector", "vertical"},
		target:   "company_industry",
	},
	{
		name:     "company-size",
		patterns: append(companyVariants("size"), "employee count", "employees", "headcount"),
		target:   "company_size",
	},
	{
		name:     "company-description",
		patterns: append(companyVariants("description"), "about company"),
		target:   "company_description",
	},
	{
		name:     "company-full-address",
		patterns: companyVariants("full address"),
		target:   "company_address_full_address",
	},
	{
		name:     "company-street",
		patterns: companyVariants("street", "address line 1"),
		target:   "company_address_street",
	},
	{
		name:     "company-zip",
		patterns: companyVariants("zip", "zip code", "postal code"),
		target:   "company_address_zip_code",
	},
	{
		name:     "company-external-number",
		patterns: companyVariants("external number", "exterior number", "ext number"),
		target:   "company_address_external_number",
	},
	{
		name:     "company-internal-number",
		patterns: companyVariants("internal number", "interior number", "int number"),
		target:   "company_address_internal_number",
	},
	{
		name:     "company-city",
		patterns: companyVariants("city"),
		target:   "company_address_city",
	},
	{
		name:     "company-state",
		patterns: companyVariants("state", "province", "region"),
		target:   "company_address_state",
	},
	{
		name:     "company-country",
		patterns: companyVariants("country"),
		target:   "company_address_country",
	},
	{
		name:     "github",
		patterns: []string{"github"},
		target:   "social_github",
	},
	{
		name:     "website",
		patterns: []string{"website", "web site", "homepage", "home page"},
		exact:    []string{"web", "url", "site"},
		target:   "social_website",
	},
}

// NormalizeHeader lowercases and trims a header for matching.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Mapper infers column mappings from headers.
type Mapper struct {
	registry *Registry
}

// NewMapper creates a mapper over the given registry.
func NewMapper(registry *Registry) *Mapper {
	return &Mapper{registry: registry}
}

// Infer proposes one ColumnMapping per header, in header order.
// It is a pure function of the headers and the registry.
func (m *Mapper) Infer(headers []string) []ColumnMapping {
	out := make([]ColumnMapping, len(headers))
	for i, h := range headers {
		out[i] = m.mappingFor(h, m.InferColumn(h))
	}
	return out
}

// InferColumn returns the proposed target for a single header: the first
// matching synonym group, then the first registry field whose key overlaps
// the header, then SkipField.
func (m *Mapper) InferColumn(header string) string {
	h := NormalizeHeader(header)
	if h == "" {
		return SkipField
	}

	for _, g := range synonymGroups {
		if g.matches(h) {
			return g.target
		}
	}

	for _, f := range m.registry.fields {
		if strings.Contains(h, f.Key) || strings.Contains(f.Key, h) {
			return f.Key
		}
	}

	return SkipField
}

// mappingFor builds a mapping with Required derived from the target field.
func (m *Mapper) mappingFor(column, target string) ColumnMapping {
	cm := ColumnMapping{SourceColumn: column, TargetField: target}
	if target != SkipField {
		if f, ok := m.registry.Describe(target); ok {
			cm.Required = f.Required
		}
	}
	return cm
}

// Remap returns a copy of mappings with column retargeted to target, and its
// Required flag recomputed from the new field's descriptor.
func (m *Mapper) Remap(mappings []ColumnMapping, column, target string) ([]ColumnMapping, error) {
	if target == "" {
		target = SkipField
	}
	if target != SkipField {
		if _, ok := m.registry.Describe(target); !ok {
			return nil, &MappingError{Column: column, Target: target, Err: ErrUnknownField}
		}
	}

	out := make([]ColumnMapping, len(mappings))
	copy(out, mappings)
	for i := range out {
		if out[i].SourceColumn == column {
			out[i] = m.mappingFor(column, target)
			return out, nil
		}
	}
	return nil, &MappingError{Column: column, Target: target, Err: ErrUnknownColumn}
}
