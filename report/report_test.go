package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestReport() (*RunReport, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)}
	return newWithClock(logrus.New(), clock.now), clock
}

func TestRunReport_PassAndFail(t *testing.T) {
	r, clock := newTestReport()

	r.Start("1_homedepot")
	clock.advance(3 * time.Second)
	r.Pass("1_homedepot", "")
	r.Start("2_lowes")
	clock.advance(time.Second)
	r.Pass("2_lowes", "missing product details")
	r.Fail("3_unknown", "unknown retailer")

	e, ok := r.Entry("1_homedepot")
	require.True(t, ok)
	assert.Equal(t, StatusPassed, e.Status)
	assert.Equal(t, 3*time.Second, e.Duration)

	e, _ = r.Entry("2_lowes")
	assert.Equal(t, "missing product details", e.Qualifier)

	e, _ = r.Entry("3_unknown")
	assert.Equal(t, StatusFailed, e.Status)
	assert.Equal(t, time.Duration(0), e.Duration)

	total, passed, failed := r.Counts()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, failed)
	assert.NotEmpty(t, r.ID)
}

func TestRunReport_RetryOverwritesOutcome(t *testing.T) {
	r, _ := newTestReport()

	r.Fail("1_homedepot", "first")
	r.Pass("1_homedepot", "")

	e, _ := r.Entry("1_homedepot")
	assert.Equal(t, StatusPassed, e.Status)
	assert.Empty(t, e.Error)
}

func TestRunReport_EntriesSortedNumerically(t *testing.T) {
	r, _ := newTestReport()

	r.Pass("10_lowes", "")
	r.Pass("2_lowes", "")
	r.Pass("1_homedepot", "")

	var ids []string
	for _, e := range r.Entries() {
		ids = append(ids, e.ProductID)
	}
	assert.Equal(t, []string{"1_homedepot", "2_lowes", "10_lowes"}, ids)
}

func TestRunReport_PrintSummary(t *testing.T) {
	r, clock := newTestReport()
	r.Pass("1_homedepot", "")
	r.Fail("2_lowes", "All 3 attempts failed. Last error: timeout")
	clock.advance(75 * time.Second)

	var buf bytes.Buffer
	r.PrintSummary(&buf)
	out := buf.String()

	assert.Contains(t, out, "Total Products: 2")
	assert.Contains(t, out, "Passed: 1 (50.0%)")
	assert.Contains(t, out, "Total Time: 0:01:15")
	assert.Contains(t, out, "Product 1_homedepot: Passed\n")
	assert.Contains(t, out, "Product 2_lowes: Failed - All 3 attempts failed. Last error: timeout")
}

func TestRunReport_PrintSummaryEmpty(t *testing.T) {
	r, _ := newTestReport()

	var buf bytes.Buffer
	r.PrintSummary(&buf)

	assert.Equal(t, "No products were processed.\n", buf.String())
}

func TestRunReport_Save(t *testing.T) {
	r, _ := newTestReport()
	r.Pass("1_homedepot", "missing product details")
	dir := filepath.Join(t.TempDir(), "audit_report")

	path, err := r.Save(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audit_report_20260314_092653.txt"), path)
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Product 1_homedepot: Passed w/ missing product details")
	assert.Contains(t, string(text), "End of Report")

	data, err := os.ReadFile(filepath.Join(dir, "audit_report_20260314_092653.yaml"))
	require.NoError(t, err)
	var parsed yamlReport
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Equal(t, r.ID, parsed.RunID)
	assert.Equal(t, 1, parsed.Passed)
	require.Len(t, parsed.Entries, 1)
	assert.Equal(t, StatusPassed, parsed.Entries[0].Status)
}
