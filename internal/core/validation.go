package core

// validation.go checks parsed rows against a column mapping before import.
//
// Validation happens at two levels:
//  1. Cell rules: each mapped cell is checked against its field descriptor
//     (required, email format, enum membership)
//  2. Row rules: every row needs an email or a phone, and a present email
//     must be well formed regardless of how the columns are mapped
//
// All errors for all rows are collected in one pass so a user can fix the
// mapping or the source file at once instead of error by error.

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// emailRegex requires a local part, an @, and a dotted domain, no whitespace.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// emailOrPhoneColumn is reported when neither email nor phone is mapped.
const emailOrPhoneColumn = "email/phone"

// Validation messages.
const (
	msgInvalidEmail = "Invalid email format"
	msgEmailOrPhone = "Either email or phone is required"
)

// RawRow is one decoded record: header -> scalar cell value.
type RawRow map[string]any

// ImportError is a single row-addressable validation failure.
type ImportError struct {
	RowIndex     int    `json:"rowIndex"` // 1-based
	SourceColumn string `json:"sourceColumn"`
	RawValue     any    `json:"rawValue,omitempty"`
	Message      string `json:"message"`
}

func (e ImportError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.RowIndex, e.SourceColumn, e.Message)
}

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailRegex.MatchString(s)
}

// ValidateValue validates a single non-empty cell against a field descriptor.
// Returns nil if valid, or an error describing the problem.
func ValidateValue(value string, f FieldDescriptor) error {
	if value == "" {
		return nil
	}

	switch f.Type {
	case FieldEmail:
		if !IsValidEmail(value) {
			return errors.New(msgInvalidEmail)
		}
	case FieldEnum:
		if !slices.Contains(f.Options, value) {
			return fmt.Errorf("Invalid %s. Allowed values: %s", strings.ToLower(f.Label), strings.Join(f.Options, ", "))
		}
	}
	return nil
}

// Validator checks rows against a mapping using a field registry.
type Validator struct {
	registry *Registry
}

// NewValidator creates a validator over the given registry.
func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// boundMapping is a mapping resolved against the registry.
type boundMapping struct {
	column string
	field  FieldDescriptor
}

// bind resolves the non-skipped mappings. Mappings naming an unregistered
// field are ignored.
func (v *Validator) bind(mappings []ColumnMapping) []boundMapping {
	bound := make([]boundMapping, 0, len(mappings))
	for _, m := range mappings {
		if m.Skipped() {
			continue
		}
		f, ok := v.registry.Describe(m.TargetField)
		if !ok {
			continue
		}
		bound = append(bound, boundMapping{column: m.SourceColumn, field: f})
	}
	return bound
}

// contactColumns returns the columns mapped to email and phone, in mapping
// order.
func contactColumns(bound []boundMapping) (emailCols, phoneCols []string) {
	for _, b := range bound {
		switch b.field.Key {
		case FieldKeyEmail:
			emailCols = append(emailCols, b.column)
		case FieldKeyPhone:
			phoneCols = append(phoneCols, b.column)
		}
	}
	return emailCols, phoneCols
}

// contactValue resolves one contact field for a row: the first column with a
// non-blank value, or the first column when all are blank. The transformer
// keeps the same value.
func contactValue(row RawRow, cols []string) (col string, raw any, value string) {
	for _, c := range cols {
		if s := CellString(row[c]); s != "" {
			return c, row[c], s
		}
	}
	if len(cols) > 0 {
		return cols[0], row[cols[0]], ""
	}
	return "", nil, ""
}

// Validate returns every violation for every row. It never mutates its
// arguments. An empty result means the rows are importable under mappings.
func (v *Validator) Validate(rows []RawRow, mappings []ColumnMapping) []ImportError {
	bound := v.bind(mappings)
	emailCols, phoneCols := contactColumns(bound)

	var errs []ImportError
	for i, row := range rows {
		errs = append(errs, v.validateRow(i+1, row, bound, emailCols, phoneCols)...)
	}
	return errs
}

func (v *Validator) validateRow(rowIndex int, row RawRow, bound []boundMapping, emailCols, phoneCols []string) []ImportError {
	var errs []ImportError

	for _, b := range bound {
		raw := row[b.column]
		value := CellString(raw)

		if value == "" {
			if b.field.Required {
				errs = append(errs, ImportError{
					RowIndex:     rowIndex,
					SourceColumn: b.column,
					RawValue:     raw,
					Message:      fmt.Sprintf("%s is required", b.field.Label),
				})
			}
			continue
		}

		if err := ValidateValue(value, b.field); err != nil {
			errs = append(errs, ImportError{
				RowIndex:     rowIndex,
				SourceColumn: b.column,
				RawValue:     raw,
				Message:      err.Error(),
			})
		}
	}

	emailCol, emailRaw, emailVal := contactValue(row, emailCols)
	phoneCol, _, phoneVal := contactValue(row, phoneCols)

	if emailVal == "" && phoneVal == "" {
		column := emailOrPhoneColumn
		switch {
		case emailCol != "":
			column = emailCol
		case phoneCol != "":
			column = phoneCol
		}
		errs = append(errs, ImportError{
			RowIndex:     rowIndex,
			SourceColumn: column,
			RawValue:     emailRaw,
			Message:      msgEmailOrPhone,
		})
	}

	// Re-checked even when the cell rule already reported the same column.
	if emailVal != "" && !IsValidEmail(emailVal) {
		errs = append(errs, ImportError{
			RowIndex:     rowIndex,
			SourceColumn: emailCol,
			RawValue:     emailRaw,
			Message:      msgInvalidEmail,
		})
	}

	return errs
}
