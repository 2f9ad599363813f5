package analysis

import (
	"errors"
	"fmt"
	"strings"

	"audit-automate/internal/types"
)

// ErrNoSchemaFields is returned for replies that carry no recognised field marker
var ErrNoSchemaFields = errors.New("malformed response: no schema fields found")

// Identity is the authoritative identity of a product, taken from the links list and
// the artifact name rather than from model output
type Identity struct {
	Link     string
	Retailer types.Retailer
}

// IdentityFor builds the identity of a target
func IdentityFor(t types.ProductTarget) Identity {
	return Identity{Link: t.URL, Retailer: t.Retailer}
}

func (id Identity) apply(r *Record) *Record {
	r.Set(FieldLink, id.Link)
	r.Set(FieldRetailer, id.Retailer.DisplayName())
	return r
}

// HasSchemaFields reports whether raw carries at least one schema field marker
func HasSchemaFields(raw string) bool {
	for _, p := range ParsePairs(raw) {
		if _, ok := FieldPosition(p.Name); ok {
			return true
		}
	}
	return false
}

// Format maps a free-text reply onto the schema, in schema order, with Link and
// Retailer always taken from id
func Format(raw string, id Identity) string {
	return id.apply(ParseRecord(raw)).String()
}

// Fallback produces a schema-complete record for a failed analysis. Only the identity
// and the error marker in Description Actual are filled.
func Fallback(id Identity, message string) string {
	r := id.apply(NewRecord())
	r.Set(FieldDescriptionActual, "ERROR PROCESSING: "+message)
	return r.String()
}

// IsFallback reports whether a formatted record carries the fallback error marker
func IsFallback(r *Record) bool {
	return strings.HasPrefix(r.Get(FieldDescriptionActual), "ERROR PROCESSING:")
}

// Verify checks that formatted has exactly one line per schema field, each carrying
// the expected field marker
func Verify(formatted string) error {
	lines := strings.Split(formatted, "\n")
	if len(lines) != FieldCount {
		return fmt.Errorf("line count mismatch: got %d, expected %d", len(lines), FieldCount)
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "**"+Fields[i]+":**") {
			return fmt.Errorf("line %d does not carry field %q", i+1, Fields[i])
		}
	}
	return nil
}
