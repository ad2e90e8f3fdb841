package core

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

// ----------------------------------------------------------------------------
// CellString Tests
// ----------------------------------------------------------------------------

func TestCellString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "nil", input: nil, want: ""},
		{name: "plain string", input: "Jane", want: "Jane"},
		{name: "string is trimmed", input: "  Jane  ", want: "Jane"},
		{name: "whitespace only", input: "   ", want: ""},
		{name: "excel formula text", input: `="5512345678"`, want: "5512345678"},
		{name: "json integer", input: json.Number("5512345678"), want: "5512345678"},
		{name: "json long integer kept verbatim", input: json.Number("525512345678901"), want: "525512345678901"},
		{name: "json float", input: json.Number("12.50"), want: "12.5"},
		{name: "json exponent", input: json.Number("1e3"), want: "1000"},
		{name: "float64 whole", input: float64(5), want: "5"},
		{name: "float64 large", input: float64(1234567), want: "1234567"},
		{name: "int", input: 42, want: "42"},
		{name: "int64", input: int64(42), want: "42"},
		{name: "bool", input: true, want: "true"},
		{name: "unsupported type", input: []string{"x"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CellString(tt.input)
			if got != tt.want {
				t.Errorf("CellString(%#v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(nil) {
		t.Error("IsBlank(nil) = false, want true")
	}
	if !IsBlank("  ") {
		t.Error("IsBlank(spaces) = false, want true")
	}
	if !IsBlank(`""`) {
		t.Error(`IsBlank("\"\"") = false, want true`)
	}
	if IsBlank(json.Number("0")) {
		t.Error("IsBlank(0) = true, want false")
	}
}

// ----------------------------------------------------------------------------
// CleanCell Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple string unchanged", input: "hello", want: "hello"},
		{name: "empty string", input: "", want: ""},
		{name: "surrounded by whitespace", input: "  hello  ", want: "hello"},
		{name: "Excel formula with quotes", input: `="hello"`, want: "hello"},
		{name: "bare equals sign", input: "=SUM(A1)", want: "SUM(A1)"},
		{name: "double quotes removed", input: `"hello"`, want: "hello"},
		{name: "single quotes removed", input: "'hello'", want: "hello"},
		{name: "leading single quote (Excel text prefix)", input: "'12345", want: "12345"},
		{name: "excel formula with whitespace", input: `  ="test"  `, want: "test"},
		{name: "only quotes", input: `""`, want: ""},
		{name: "equals with empty quotes", input: `=""`, want: ""},
		{name: "equals and single quote", input: `="`, want: ""},
		{name: "quoted whitespace", input: `" x "`, want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanCell(tt.input)
			if got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// pgtype helpers
// ----------------------------------------------------------------------------

func TestToPgText(t *testing.T) {
	if got := ToPgText("  "); got.Valid {
		t.Errorf("ToPgText(blank).Valid = true, want false")
	}
	got := ToPgText(" Jane ")
	if !got.Valid || got.String != "Jane" {
		t.Errorf("ToPgText(\" Jane \") = %+v, want {Jane true}", got)
	}
}

func TestToPgUUID_RoundTrip(t *testing.T) {
	if got := ToPgUUID(uuid.Nil); got.Valid {
		t.Error("ToPgUUID(Nil).Valid = true, want false")
	}
	id := uuid.New()
	if got := PgUUIDToString(ToPgUUID(id)); got != id.String() {
		t.Errorf("PgUUIDToString(ToPgUUID(%s)) = %q", id, got)
	}
}
