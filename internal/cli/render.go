package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/JonMunkholm/leadimport/internal/core"
)

var (
	accent  = lipgloss.Color("#2563EB")
	dim     = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	skipStyle   = cellStyle.Foreground(dim)
	errorStyle  = cellStyle.Foreground(danger)
	passStyle   = lipgloss.NewStyle().Bold(true).Foreground(success)
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(danger)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(dim)).
		Headers(headers...)
}

// renderFields lists the registry.
func renderFields(fields []core.FieldDescriptor) string {
	t := newTable("Key", "Label", "Type", "Required", "Options").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, f := range fields {
		t.Row(f.Key, f.Label, string(f.Type), yesNo(f.Required), strings.Join(f.Options, ", "))
	}
	return t.String() + "\n"
}

// renderMappings shows one line per source column; skipped columns are dimmed.
func renderMappings(fileName string, mappings []core.ColumnMapping) string {
	t := newTable("Column", "Field", "Required").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case mappings[row].Skipped():
				return skipStyle
			default:
				return cellStyle
			}
		})
	for _, m := range mappings {
		t.Row(m.SourceColumn, m.TargetField, yesNo(m.Required))
	}
	return titleStyle.Render(fileName) + "\n" + t.String() + "\n"
}

// renderErrors shows every validation error, or a pass line.
func renderErrors(rows int, errs []core.ImportError) string {
	if len(errs) == 0 {
		return passStyle.Render(fmt.Sprintf("✓ %d rows valid", rows)) + "\n"
	}

	t := newTable("Row", "Column", "Value", "Message").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3:
				return errorStyle
			default:
				return cellStyle
			}
		})
	for _, e := range errs {
		t.Row(strconv.Itoa(e.RowIndex), e.SourceColumn, core.CellString(e.RawValue), e.Message)
	}
	summary := failStyle.Render(fmt.Sprintf("✗ %d errors in %d rows", len(errs), rows))
	return t.String() + "\n" + summary + "\n"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
