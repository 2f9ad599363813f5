package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// Record is an ordered field set following the schema
type Record struct {
	values []string
}

// NewRecord returns a record with every field empty
func NewRecord() *Record {
	return &Record{values: make([]string, FieldCount)}
}

// RecordFromValues builds a record from values in schema order; missing trailing values are empty
func RecordFromValues(values []string) *Record {
	r := NewRecord()
	copy(r.values, values)
	return r
}

// Get returns the value of a schema field (case-insensitive name)
func (r *Record) Get(field string) string {
	if i, ok := FieldPosition(field); ok {
		return r.values[i]
	}
	return ""
}

// Set assigns a schema field. Unknown fields are ignored and reported as false.
func (r *Record) Set(field, value string) bool {
	i, ok := FieldPosition(field)
	if ok {
		r.values[i] = value
	}
	return ok
}

// Values returns a copy of the values in schema order
func (r *Record) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// Link returns the identity of the record
func (r *Record) Link() string {
	return strings.TrimSpace(r.Get(FieldLink))
}

// String renders one "**Field:** value" line per schema field, in schema order.
// Line breaks inside values are folded to spaces so the line count stays fixed.
func (r *Record) String() string {
	var sb strings.Builder
	for i, f := range Fields {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "**%s:** %s", f, singleLine(r.values[i]))
	}
	return sb.String()
}

func singleLine(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return strings.TrimSpace(v)
	}
	return strings.Join(strings.Fields(v), " ")
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// markerPattern finds "**Name:**" markers. A value runs from the end of its marker to
// the start of the next marker (or the end of the text).
var markerPattern = regexp.MustCompile(`\*\*([a-zA-Z0-9\s+?#()]+?):\*\*`)

// Pair is one parsed marker and its value
type Pair struct {
	Name  string
	Value string
}

// ParsePairs scans text for marker pairs in the order they appear
func ParsePairs(text string) []Pair {
	locs := markerPattern.FindAllStringSubmatchIndex(text, -1)
	pairs := make([]Pair, 0, len(locs))
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		pairs = append(pairs, Pair{
			Name:  strings.Join(strings.Fields(text[loc[2]:loc[3]]), " "),
			Value: strings.TrimSpace(text[loc[1]:end]),
		})
	}
	return pairs
}

// ParseRecord maps marker pairs onto the schema. Order does not matter; unknown
// markers are dropped and absent fields stay empty. When a field repeats, the
// last occurrence wins.
func ParseRecord(text string) *Record {
	r := NewRecord()
	for _, p := range ParsePairs(text) {
		if i, ok := FieldPosition(p.Name); ok {
			r.values[i] = p.Value
		}
	}
	return r
}
