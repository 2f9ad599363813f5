package reconcile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"audit-automate/analysis"
	"audit-automate/internal/types"
)

const bom = "\ufeff"

// Table is the consolidated audit table held in memory, with a Link index over its rows
type Table struct {
	rows  [][]string
	index map[string]int
}

// NewTable returns an empty table
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// LoadTable reads the table at path. A missing file yields an empty table; an unreadable
// one is logged and treated as empty. Columns are matched to the schema by header name and
// absent columns stay empty.
func LoadTable(path string, logger types.Logger) *Table {
	t := NewTable()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Errorf("Error reading existing CSV file %s: %v. Starting fresh.", path, err)
		} else {
			logger.Infof("No existing table at %s, starting fresh", path)
		}
		return t
	}

	records, err := parseCSV(data)
	if err != nil {
		logger.Errorf("Error reading existing CSV file %s: %v. Starting fresh.", path, err)
		return t
	}
	if len(records) == 0 {
		return t
	}

	columns := make([]int, len(records[0]))
	for i, name := range records[0] {
		columns[i] = -1
		if pos, ok := analysis.FieldPosition(name); ok {
			columns[i] = pos
		}
	}

	for _, rec := range records[1:] {
		row := make([]string, analysis.FieldCount)
		for i, v := range rec {
			if i < len(columns) && columns[i] >= 0 {
				row[columns[i]] = v
			}
		}
		t.add(row)
	}

	logger.Infof("Loaded %d rows from existing CSV: %s", t.Len(), path)
	return t
}

func parseCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte(bom))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func (t *Table) add(row []string) {
	if link := strings.TrimSpace(row[0]); link != "" {
		if _, dup := t.index[link]; !dup {
			t.index[link] = len(t.rows)
		}
	}
	t.rows = append(t.rows, row)
}

// Upsert overwrites every field of the row whose Link matches the record, or appends a new
// row. Records without a Link always append. It reports whether an existing row was updated.
func (t *Table) Upsert(r *analysis.Record) bool {
	values := r.Values()
	link := r.Link()
	if link != "" {
		values[0] = link
		if i, ok := t.index[link]; ok {
			t.rows[i] = values
			return true
		}
	}
	t.add(values)
	return false
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns a copy of the row for link
func (t *Table) Row(link string) (*analysis.Record, bool) {
	i, ok := t.index[link]
	if !ok {
		return nil, false
	}
	return analysis.RecordFromValues(t.rows[i]), true
}

// Rows returns copies of all rows in table order
func (t *Table) Rows() []*analysis.Record {
	out := make([]*analysis.Record, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, analysis.RecordFromValues(row))
	}
	return out
}

// Encode renders the table as UTF-8 CSV with a byte-order mark and the schema header
func (t *Table) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(bom)

	w := csv.NewWriter(&buf)
	if err := w.Write(analysis.Fields); err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}
	if err := w.WriteAll(t.rows); err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}
	return buf.Bytes(), nil
}
