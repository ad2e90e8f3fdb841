package core

// decode.go turns uploaded files into a Table of RawRows.
//
// Supported formats:
//   - csv:  BOM-aware (UTF-8, UTF-16), Windows-1252 fallback for files that are
//     not valid UTF-8, lazy quotes, ragged rows
//   - json: a top-level array of flat objects; key order is preserved
//   - xlsx: the first worksheet
//
// For csv and xlsx the first non-empty record is the header row and fully
// blank records are skipped. Headers are trimmed, blanks are named
// "Column N" and duplicates get a " (2)", " (3)"... suffix so every column
// name in a Table is unique.

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Format identifies an input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a format tag such as "csv" or ".CSV".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", &ParseError{Reason: fmt.Sprintf("format %q", s), Err: ErrUnsupportedFormat}
	}
}

// DetectFormat derives the format from a file name's extension.
func DetectFormat(fileName string) (Format, error) {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "", &ParseError{Reason: fmt.Sprintf("file %q has no extension", fileName), Err: ErrUnsupportedFormat}
	}
	return ParseFormat(ext)
}

// Table is a decoded file: ordered, unique headers and one RawRow per record.
type Table struct {
	Headers []string
	Rows    []RawRow
}

// Decode reads a whole file in the given format.
func Decode(r io.Reader, format Format) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: format, Reason: "read file", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Format: format, Err: ErrEmptyFile}
	}

	var table *Table
	switch format {
	case FormatCSV:
		table, err = decodeCSV(data)
	case FormatJSON:
		table, err = decodeJSON(data)
	case FormatXLSX:
		table, err = decodeXLSX(data)
	default:
		return nil, &ParseError{Format: format, Err: ErrUnsupportedFormat}
	}
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Format = format
			return nil, pe
		}
		return nil, &ParseError{Format: format, Err: err}
	}
	if len(table.Rows) == 0 {
		return nil, &ParseError{Format: format, Err: ErrEmptyFile}
	}
	return table, nil
}

// toUTF8 honours a UTF-8 or UTF-16 byte order mark and reinterprets input
// without one that is not valid UTF-8 as Windows-1252.
func toUTF8(data []byte) ([]byte, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), data)
	if err != nil {
		return nil, fmt.Errorf("decode text: %w", err)
	}
	if utf8.Valid(decoded) {
		return decoded, nil
	}
	decoded, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("decode windows-1252: %w", err)
	}
	return decoded, nil
}

func decodeCSV(data []byte) (*Table, error) {
	text, err := toUTF8(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, &ParseError{Reason: "malformed csv", Err: err}
	}
	return tableFromRecords(records), nil
}

func decodeXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Reason: "open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("read sheet %q", sheets[0]), Err: err}
	}
	return tableFromRecords(records), nil
}

// tableFromRecords builds a Table from string records with a header row.
func tableFromRecords(records [][]string) *Table {
	start := 0
	for start < len(records) && isEmptyRecord(records[start]) {
		start++
	}
	if start == len(records) {
		return &Table{}
	}

	headers := uniqueHeaders(records[start])
	table := &Table{Headers: headers}

	for _, rec := range records[start+1:] {
		if isEmptyRecord(rec) {
			continue
		}
		row := make(RawRow, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = nil
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// decodeJSON reads an array of flat objects, keeping first-seen key order.
func decodeJSON(data []byte) (*Table, error) {
	text, err := toUTF8(data)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	table := &Table{}
	seen := make(map[string]bool)
	index := 0

	for dec.More() {
		index++
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("record %d: %w", index, err)
		}
		row := make(RawRow)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("record %d", index), Err: err}
			}
			key := strings.TrimSpace(tok.(string))

			var val any
			if err := dec.Decode(&val); err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("record %d field %q", index, key), Err: err}
			}
			switch val.(type) {
			case map[string]any, []any:
				return nil, &ParseError{Reason: fmt.Sprintf("record %d field %q: nested values are not supported", index, key)}
			}

			row[key] = val
			if !seen[key] {
				seen[key] = true
				table.Headers = append(table.Headers, key)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, fmt.Errorf("record %d: %w", index, err)
		}
		if !isEmptyRow(row) {
			table.Rows = append(table.Rows, row)
		}
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return table, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ParseError{Reason: fmt.Sprintf("unexpected end of input, want %q", want)}
		}
		return &ParseError{Reason: "malformed json", Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return &ParseError{Reason: fmt.Sprintf("malformed json: got %v, want %q", tok, want)}
	}
	return nil
}

// uniqueHeaders cleans a header row and disambiguates blanks and duplicates.
// The first occurrence of a header keeps its name; later ones get the lowest
// free " (n)" suffix, compared case-insensitively against every final name.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		out[i] = h
	}

	// Reserve every original name first so a generated name never takes a
	// header that appears later in the row.
	used := make(map[string]bool, len(out))
	first := make([]bool, len(out))
	for i, h := range out {
		key := strings.ToLower(h)
		if !used[key] {
			used[key] = true
			first[i] = true
		}
	}

	for i, base := range out {
		if first[i] {
			continue
		}
		for n := 2; ; n++ {
			name := fmt.Sprintf("%s (%d)", base, n)
			if key := strings.ToLower(name); !used[key] {
				used[key] = true
				out[i] = name
				break
			}
		}
	}
	return out
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isEmptyRow(row RawRow) bool {
	for _, v := range row {
		if !IsBlank(v) {
			return false
		}
	}
	return true
}
