package core

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrEmptyFile is returned when an import file holds no data rows.
	ErrEmptyFile = errors.New("import file contains no rows")

	// ErrMalformedFile is returned when a file cannot be decoded as CSV or JSON.
	ErrMalformedFile = errors.New("malformed import file")

	// ErrMissingTitleColumn is returned when a CSV header has no title column.
	ErrMissingTitleColumn = errors.New("missing title column")
)

// HeaderIndex maps each recognized field to its column position.
type HeaderIndex map[Field]int

// ReadRows decodes an import file into raw rows.
//
// JSON input is either an array of rows or an object whose "entries" (an
// export envelope) or "rows" member holds that array. Anything else is read
// as CSV with a header row mapped through the source's column aliases.
// Cell values that cannot be decoded (a non-numeric year, say) are carried
// on the row and reported when it is validated.
func ReadRows(r io.Reader, source SourceDefinition) ([]RawRow, error) {
	br := bufio.NewReader(NewCleanReader(r))

	first, err := firstNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, err
	}

	var rows []RawRow
	if first == '[' || first == '{' {
		rows, err = readJSONRows(br, first)
	} else {
		rows, err = readCSVRows(br, source)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			continue
		}
		return b, br.UnreadByte()
	}
}

// ----------------------------------------------------------------------------
// JSON
// ----------------------------------------------------------------------------

func readJSONRows(r io.Reader, first byte) ([]RawRow, error) {
	dec := json.NewDecoder(r)

	var rows []RawRow
	if first == '[' {
		if err := dec.Decode(&rows); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
		}
	} else {
		var envelope struct {
			Entries []RawRow `json:"entries"`
			Rows    []RawRow `json:"rows"`
		}
		if err := dec.Decode(&envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
		}
		rows = envelope.Entries
		if len(rows) == 0 {
			rows = envelope.Rows
		}
	}

	for i := range rows {
		rows[i].LineNumber = i + 1
	}
	return rows, nil
}

// ----------------------------------------------------------------------------
// CSV
// ----------------------------------------------------------------------------

func readCSVRows(r io.Reader, source SourceDefinition) ([]RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedFile, err)
	}

	idx := MapHeader(header, source)
	if _, ok := idx[FieldTitle]; !ok {
		return nil, fmt.Errorf("%w (expected one of: %s)",
			ErrMissingTitleColumn, strings.Join(source.Columns[FieldTitle], ", "))
	}

	var rows []RawRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
		}
		if blankRecord(record) {
			continue
		}

		line, _ := cr.FieldPos(0)
		rows = append(rows, buildRow(record, idx, source, line))
	}

	return rows, nil
}

// MapHeader resolves header cells to fields using the source's aliases.
// The first matching column wins.
func MapHeader(header []string, source SourceDefinition) HeaderIndex {
	lookup := make(map[string]Field)
	for field, aliases := range source.Columns {
		for _, alias := range aliases {
			lookup[headerKey(alias)] = field
		}
	}

	idx := make(HeaderIndex)
	for i, h := range header {
		field, ok := lookup[headerKey(h)]
		if !ok {
			continue
		}
		if _, taken := idx[field]; !taken {
			idx[field] = i
		}
	}
	return idx
}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(record []string, idx HeaderIndex, f Field) string {
	i, ok := idx[f]
	if !ok || i >= len(record) {
		return ""
	}
	return CleanCell(record[i])
}

// CleanCell removes spreadsheet artifacts from a cell value:
//   - Trims whitespace
//   - Unwraps Excel text formulas (="1995")
//   - Removes a leading '=' left by formula exports
//
// Quotes inside a title are kept.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		return strings.TrimSpace(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "=") {
		return strings.TrimSpace(s[1:])
	}
	return s
}

func buildRow(record []string, idx HeaderIndex, source SourceDefinition, line int) RawRow {
	row := RawRow{
		Title:              cell(record, idx, FieldTitle),
		Status:             cell(record, idx, FieldStatus),
		Notes:              cell(record, idx, FieldNotes),
		DateAdded:          DateValue(cell(record, idx, FieldDateAdded)),
		StreamingProviders: ProvidersText(cell(record, idx, FieldProviders)),
		LineNumber:         line,
	}

	if v := cell(record, idx, FieldYear); v != "" {
		if year, err := strconv.Atoi(v); err == nil {
			row.Year = &year
		} else {
			row.problems = append(row.problems, ValidationError{Field: "year", Value: v, Message: "invalid number"})
		}
	}

	if v := cell(record, idx, FieldRating); v != "" {
		if rating, err := strconv.ParseFloat(v, 64); err == nil {
			row.Rating = &rating
		} else {
			row.problems = append(row.problems, ValidationError{Field: "rating", Value: v, Message: "invalid number"})
		}
	}

	row.MediaKind = sourceMediaKind(cell(record, idx, FieldMediaKind), source)

	watched := cell(record, idx, FieldDateWatched)
	if row.Status == "" {
		row.Status = string(source.DefaultStatus)
		if source.WatchedStatus != "" && (row.Rating != nil || watched != "") {
			row.Status = string(source.WatchedStatus)
		}
	}
	if row.DateAdded == "" && watched != "" {
		row.DateAdded = DateValue(watched)
	}

	return row
}

// sourceMediaKind maps a source's kind value to a media kind. Unknown
// values are dropped rather than rejected.
func sourceMediaKind(v string, source SourceDefinition) MediaKind {
	key := strings.ToLower(v)
	if kind, ok := source.MediaKinds[key]; ok {
		return kind
	}
	if kind := MediaKind(key); kind.Valid() {
		return kind
	}
	return ""
}

