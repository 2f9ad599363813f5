package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRetailer(t *testing.T) {
	tests := []struct {
		url      string
		expected Retailer
		wantErr  bool
	}{
		{"https://www.homedepot.com/p/X", RetailerHomeDepot, false},
		{"https://homedepot.com/p/X", RetailerHomeDepot, false},
		{"https://www.lowes.com/pd/Y", RetailerLowes, false},
		{"https://www.amazon.com/dp/Z", RetailerUnknown, true},
		{"https://nothomedepot.com/p/X", RetailerUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			retailer, err := ResolveRetailer(tt.url)
			assert.Equal(t, tt.expected, retailer)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownRetailer)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetailerDisplayName(t *testing.T) {
	assert.Equal(t, "Home Depot", RetailerHomeDepot.DisplayName())
	assert.Equal(t, "Lowes", RetailerLowes.DisplayName())
	assert.Equal(t, "Unknown", RetailerUnknown.DisplayName())
	assert.Equal(t, "Unknown", Retailer("").DisplayName())
}

func TestParseTargets_SkipsBlankLines(t *testing.T) {
	content := "https://www.homedepot.com/p/X\n\n   \nhttps://www.lowes.com/pd/Y\r\nhttps://example.com/z\n"

	targets := ParseTargets(content)

	require.Len(t, targets, 3)
	assert.Equal(t, ProductTarget{Index: 1, URL: "https://www.homedepot.com/p/X", Retailer: RetailerHomeDepot}, targets[0])
	assert.Equal(t, ProductTarget{Index: 2, URL: "https://www.lowes.com/pd/Y", Retailer: RetailerLowes}, targets[1])
	assert.Equal(t, RetailerUnknown, targets[2].Retailer)
	assert.Equal(t, "2_lowes", targets[1].BaseName())
}

func TestLoadTargets_MissingFile(t *testing.T) {
	_, err := LoadTargets(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://www.lowes.com/pd/Y\n"), 0644))

	targets, err := LoadTargets(path)

	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "1_lowes", targets[0].BaseName())
}

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection("3, 1,5")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, sel.Indices())
	assert.Equal(t, "_selection_1_3_5", sel.Tag())
	assert.True(t, sel.Contains(3))
	assert.False(t, sel.Contains(2))

	empty, err := ParseSelection("")
	require.NoError(t, err)
	assert.True(t, empty.Contains(42))
	assert.Equal(t, "", empty.Tag())

	_, err = ParseSelection("1,x")
	assert.Error(t, err)
	_, err = ParseSelection("0")
	assert.Error(t, err)
	_, err = ParseSelection(" , ")
	assert.Error(t, err)
}

func TestSelectionFilter(t *testing.T) {
	targets := ParseTargets("https://www.homedepot.com/p/A\nhttps://www.lowes.com/pd/B\nhttps://www.lowes.com/pd/C\n")

	filtered := Selection{1: true, 3: true}.Filter(targets)

	require.Len(t, filtered, 2)
	assert.Equal(t, 1, filtered[0].Index)
	assert.Equal(t, 3, filtered[1].Index)
	assert.Len(t, Selection(nil).Filter(targets), 3)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 20, config.LocatorAttempts)
	assert.Equal(t, 300, config.LocatorScrollIncrement)
	assert.Equal(t, 100, config.StitchOverlap)
	assert.InDelta(t, 1.0/3.0, config.CropFraction, 1e-9)
	assert.Equal(t, "audit_results.csv", config.CSVFile)
}
