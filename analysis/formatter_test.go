package analysis

import (
	"strings"
	"testing"

	"audit-automate/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var homeDepot = Identity{Link: "https://www.homedepot.com/p/X", Retailer: types.RetailerHomeDepot}

func TestFields(t *testing.T) {
	assert.Equal(t, 32, FieldCount)
	assert.Equal(t, "Link", Fields[0])
	assert.Equal(t, "Bullet Point 1 Actual", Fields[12])
	assert.Equal(t, "Bullet Point 9 Accuracy?", Fields[29])
	assert.Equal(t, "Description Accuracy?", Fields[31])
}

func TestParsePairs(t *testing.T) {
	pairs := ParsePairs("preamble\n**Title Actual:** Cordless Drill\nwith case\n**SKU:**   1001  ")

	require.Len(t, pairs, 2)
	assert.Equal(t, Pair{Name: "Title Actual", Value: "Cordless Drill\nwith case"}, pairs[0])
	assert.Equal(t, Pair{Name: "SKU", Value: "1001"}, pairs[1])
}

func TestFormat_SchemaOrderAndDefaults(t *testing.T) {
	raw := "**sku:** 1001\n**TITLE   ACTUAL:** Drill\n**Made Up Field:** ignored\n**Category:** Tools"

	out := Format(raw, homeDepot)
	lines := strings.Split(out, "\n")

	require.Len(t, lines, FieldCount)
	for i, line := range lines {
		assert.True(t, strings.HasPrefix(line, "**"+Fields[i]+":**"), "line %d: %s", i, line)
	}
	assert.Equal(t, "**Category:** Tools", lines[1])
	assert.Equal(t, "**SKU:** 1001", lines[2])
	assert.Equal(t, "**Title Actual:** Drill", lines[10])
	assert.Equal(t, "**Images Count:** ", lines[4])
	assert.NotContains(t, out, "ignored")
	assert.NoError(t, Verify(out))
}

func TestFormat_IdentityIsAuthoritative(t *testing.T) {
	raw := "**Link:** https://evil.example.com/\n**Retailer:** Some Shop\n**Title Actual:** Drill"

	r := ParseRecord(Format(raw, homeDepot))

	assert.Equal(t, "https://www.homedepot.com/p/X", r.Get("Link"))
	assert.Equal(t, "Home Depot", r.Get("Retailer"))
}

func TestFormat_MultilineValuesKeepLineCount(t *testing.T) {
	raw := "**Description Actual:** line one\nline two\n\n**Description Accuracy?:** Yes"

	out := Format(raw, homeDepot)

	assert.NoError(t, Verify(out))
	assert.Contains(t, out, "**Description Actual:** line one line two\n")
}

func TestFallback(t *testing.T) {
	out := Fallback(Identity{Link: "https://www.lowes.com/pd/Y", Retailer: types.RetailerLowes}, "API error")

	require.NoError(t, Verify(out))
	r := ParseRecord(out)
	assert.Equal(t, "https://www.lowes.com/pd/Y", r.Get("Link"))
	assert.Equal(t, "Lowes", r.Get("Retailer"))
	assert.Equal(t, "ERROR PROCESSING: API error", r.Get(FieldDescriptionActual))
	assert.True(t, IsFallback(r))
	for _, f := range Fields {
		switch f {
		case FieldLink, FieldRetailer, FieldDescriptionActual:
			continue
		}
		assert.Empty(t, r.Get(f), f)
	}
}

func TestVerify_Mismatch(t *testing.T) {
	assert.Error(t, Verify("**Link:** x"))

	lines := strings.Split(Format("", homeDepot), "\n")
	lines[3], lines[4] = lines[4], lines[3]
	assert.Error(t, Verify(strings.Join(lines, "\n")))
}

func TestRecord_SetGet(t *testing.T) {
	r := NewRecord()

	assert.True(t, r.Set("title actual", "Drill"))
	assert.False(t, r.Set("Nope", "x"))
	assert.Equal(t, "Drill", r.Get("Title Actual"))
	assert.Len(t, r.Values(), FieldCount)

	r2 := RecordFromValues([]string{"https://x", "Tools"})
	assert.Equal(t, "https://x", r2.Link())
	assert.Equal(t, "", r2.Get("SKU"))
}

func TestParseRecord_LastOccurrenceWins(t *testing.T) {
	r := ParseRecord("**SKU:** 1\n**SKU:** 2")
	assert.Equal(t, "2", r.Get("SKU"))
}

func TestHasSchemaFields(t *testing.T) {
	assert.True(t, HasSchemaFields("**Title Actual:** Drill"))
	assert.True(t, HasSchemaFields("intro\n**sku:** 42"))
	assert.False(t, HasSchemaFields("I'm sorry, I can't help with that."))
	assert.False(t, HasSchemaFields("**Rating:** 5 stars"))
	assert.False(t, HasSchemaFields(""))
}
