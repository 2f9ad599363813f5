package analysis

import "fmt"

const (
	FieldLink                = "Link"
	FieldRetailer            = "Retailer"
	FieldDescriptionActual   = "Description Actual"
	FieldDescriptionAccuracy = "Description Accuracy?"
)

// Fields is the fixed, ordered schema every analysis record and table row carries
var Fields = buildFields()

// FieldCount is the number of schema fields
var FieldCount = len(Fields)

func buildFields() []string {
	fields := []string{
		FieldLink, "Category", "SKU", FieldRetailer,
		"Images Count", "Images Visible Issues?",
		"Video Count", "Video Visible Issues?",
		"A+ Content Type", "A+ Content Accuracy?",
		"Title Actual", "Title Accuracy?",
	}
	for i := 1; i <= 9; i++ {
		fields = append(fields,
			fmt.Sprintf("Bullet Point %d Actual", i),
			fmt.Sprintf("Bullet Point %d Accuracy?", i),
		)
	}
	return append(fields, FieldDescriptionActual, FieldDescriptionAccuracy)
}

var fieldIndex = func() map[string]int {
	m := make(map[string]int, len(Fields))
	for i, f := range Fields {
		m[normalizeName(f)] = i
	}
	return m
}()

// FieldPosition returns the schema position of name, matched case-insensitively
// with whitespace collapsed
func FieldPosition(name string) (int, bool) {
	i, ok := fieldIndex[normalizeName(name)]
	return i, ok
}
