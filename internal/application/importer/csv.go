package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMissingColumn indicates a spreadsheet header without a required column.
var ErrMissingColumn = errors.New("missing required column")

// Row is one task line of a compliance spreadsheet.
type Row struct {
	Line     int // 1-based line in the source file
	Category string
	Title    string
	When     string
	Notes    string
}

// Header aliases, matched case-insensitively.
var (
	categoryColumns = []string{"category", "area", "group"}
	titleColumns    = []string{"task", "title", "name"}
	whenColumns     = []string{"when", "schedule", "frequency", "due"}
	notesColumns    = []string{"notes", "note", "comments"}
)

// ReadCSV reads spreadsheet rows from r. The first record is the header; it
// must name a task/title column and a when column. Blank rows are skipped.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := indexHeader(header)
	title, ok := findColumn(columns, titleColumns)
	if !ok {
		return nil, fmt.Errorf("%w: task", ErrMissingColumn)
	}
	when, ok := findColumn(columns, whenColumns)
	if !ok {
		return nil, fmt.Errorf("%w: when", ErrMissingColumn)
	}
	category, hasCategory := findColumn(columns, categoryColumns)
	notes, hasNotes := findColumn(columns, notesColumns)

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if isBlank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		row := Row{
			Line:  line,
			Title: field(record, title),
			When:  field(record, when),
		}
		if hasCategory {
			row.Category = field(record, category)
		}
		if hasNotes {
			row.Notes = field(record, notes)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func indexHeader(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := columns[name]; !seen {
			columns[name] = i
		}
	}
	return columns
}

func findColumn(columns map[string]int, aliases []string) (int, bool) {
	for _, alias := range aliases {
		if i, ok := columns[alias]; ok {
			return i, true
		}
	}
	return 0, false
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
