// Package report accumulates per-product outcomes for one run and renders the
// end-of-run summary.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"audit-automate/internal/types"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Status of a product in the run
type Status string

const (
	StatusRunning Status = "Running"
	StatusPassed  Status = "Passed"
	StatusFailed  Status = "Failed"
)

// Entry is the outcome for one product
type Entry struct {
	ProductID string        `yaml:"product_id"`
	Status    Status        `yaml:"status"`
	Qualifier string        `yaml:"qualifier,omitempty"`
	Error     string        `yaml:"error,omitempty"`
	Start     time.Time     `yaml:"start"`
	End       time.Time     `yaml:"end,omitempty"`
	Duration  time.Duration `yaml:"duration"`
}

// RunReport is owned by whoever drives the run and handed to the summarizer at the end.
// It is safe for use from multiple goroutines.
type RunReport struct {
	ID      string
	Started time.Time

	mu      sync.Mutex
	entries map[string]*Entry
	logger  types.Logger
	now     func() time.Time
}

// New creates an empty report stamped with a fresh run ID
func New(logger types.Logger) *RunReport {
	return newWithClock(logger, time.Now)
}

func newWithClock(logger types.Logger, now func() time.Time) *RunReport {
	return &RunReport{
		ID:      uuid.NewString(),
		Started: now(),
		entries: make(map[string]*Entry),
		logger:  logger,
		now:     now,
	}
}

// Start marks the beginning of processing for a product
func (r *RunReport) Start(productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[productID] = &Entry{ProductID: productID, Status: StatusRunning, Start: r.now()}
	r.logger.Infof("STARTED PROCESSING: %s", productID)
}

// Pass records a successful product, optionally qualified (e.g. "missing product details")
func (r *RunReport) Pass(productID, qualifier string) {
	e := r.finish(productID, StatusPassed, qualifier, "")
	if qualifier != "" {
		r.logger.Infof("PRODUCT %s: PASSED w/ %s (Duration: %s)", productID, qualifier, e.Duration.Round(10*time.Millisecond))
	} else {
		r.logger.Infof("PRODUCT %s: PASSED (Duration: %s)", productID, e.Duration.Round(10*time.Millisecond))
	}
}

// Fail records a failed product with its error message
func (r *RunReport) Fail(productID, message string) {
	e := r.finish(productID, StatusFailed, "", message)
	r.logger.Errorf("PRODUCT %s: FAILED (Duration: %s): %s", productID, e.Duration.Round(10*time.Millisecond), message)
}

func (r *RunReport) finish(productID string, status Status, qualifier, message string) Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e, ok := r.entries[productID]
	if !ok {
		e = &Entry{ProductID: productID, Start: now}
		r.entries[productID] = e
	}
	e.Status = status
	e.Qualifier = qualifier
	e.Error = message
	e.End = now
	e.Duration = now.Sub(e.Start)
	return *e
}

// Entry returns a copy of the entry for productID
func (r *RunReport) Entry(productID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[productID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

var leadingNumber = regexp.MustCompile(`\d+`)

func sortKey(id string) int {
	if m := leadingNumber.FindString(id); m != "" {
		n, _ := strconv.Atoi(m)
		return n
	}
	return 0
}

// Entries returns every entry sorted numerically by product ID
func (r *RunReport) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ki, kj := sortKey(out[i].ProductID), sortKey(out[j].ProductID)
		if ki != kj {
			return ki < kj
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// Counts returns total, passed and failed entry counts
func (r *RunReport) Counts() (total, passed, failed int) {
	for _, e := range r.Entries() {
		total++
		switch e.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		}
	}
	return
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// PrintSummary writes the human readable summary
func (r *RunReport) PrintSummary(w io.Writer) {
	total, passed, failed := r.Counts()
	if total == 0 {
		fmt.Fprintln(w, "No products were processed.")
		return
	}

	bar := strings.Repeat("#", 80)
	fmt.Fprintf(w, "\n%s\nAUDIT REPORT SUMMARY\n%s\n", bar, bar)
	fmt.Fprintf(w, "Total Products: %d\n", total)
	fmt.Fprintf(w, "Passed: %d (%.1f%%)\n", passed, percent(passed, total))
	fmt.Fprintf(w, "Failed: %d (%.1f%%)\n", failed, percent(failed, total))
	fmt.Fprintf(w, "Total Time: %s (started %s)\n", formatElapsed(r.now().Sub(r.Started)), humanize.Time(r.Started))
	fmt.Fprintf(w, "%s\n\nDETAILED RESULTS:\n", bar)
	for _, e := range r.Entries() {
		fmt.Fprintln(w, e.line())
	}
	fmt.Fprintf(w, "%s\n\n", bar)
}

func (e Entry) line() string {
	switch e.Status {
	case StatusFailed:
		msg := e.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return fmt.Sprintf("Product %s: %s - %s", e.ProductID, e.Status, msg)
	case StatusPassed:
		if e.Qualifier != "" {
			return fmt.Sprintf("Product %s: %s w/ %s", e.ProductID, e.Status, e.Qualifier)
		}
	}
	return fmt.Sprintf("Product %s: %s", e.ProductID, e.Status)
}

type yamlReport struct {
	RunID    string  `yaml:"run_id"`
	Started  string  `yaml:"started"`
	Finished string  `yaml:"finished"`
	Total    int     `yaml:"total"`
	Passed   int     `yaml:"passed"`
	Failed   int     `yaml:"failed"`
	Entries  []Entry `yaml:"entries"`
}

// Save writes audit_report_<timestamp>.txt and a .yaml sibling into dir and
// returns the text report path
func (r *RunReport) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report folder: %w", err)
	}

	now := r.now()
	base := filepath.Join(dir, "audit_report_"+now.Format("20060102_150405"))
	total, passed, failed := r.Counts()

	var sb strings.Builder
	fmt.Fprintf(&sb, "AUDIT REPORT - %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Run ID: %s\n", r.ID)
	fmt.Fprintf(&sb, "%s\n\n", strings.Repeat("=", 80))
	if total == 0 {
		sb.WriteString("No products were processed.\n")
	} else {
		sb.WriteString("SUMMARY:\n")
		fmt.Fprintf(&sb, "Total Products: %d\n", total)
		fmt.Fprintf(&sb, "Passed: %d (%.1f%%)\n", passed, percent(passed, total))
		fmt.Fprintf(&sb, "Failed: %d (%.1f%%)\n", failed, percent(failed, total))
		fmt.Fprintf(&sb, "Total Time: %s\n\n", formatElapsed(now.Sub(r.Started)))
		fmt.Fprintf(&sb, "DETAILED RESULTS:\n%s\n", strings.Repeat("-", 80))
		for _, e := range r.Entries() {
			if e.Status == StatusFailed {
				fmt.Fprintf(&sb, "Product %s: %s\nError: %s\n\n", e.ProductID, e.Status, e.Error)
			} else {
				sb.WriteString(e.line() + "\n\n")
			}
		}
		fmt.Fprintf(&sb, "%s\nEnd of Report\n", strings.Repeat("=", 80))
	}

	txtPath := base + ".txt"
	if err := os.WriteFile(txtPath, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	data, err := yaml.Marshal(yamlReport{
		RunID:    r.ID,
		Started:  r.Started.Format(time.RFC3339),
		Finished: now.Format(time.RFC3339),
		Total:    total,
		Passed:   passed,
		Failed:   failed,
		Entries:  r.Entries(),
	})
	if err != nil {
		return txtPath, fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(base+".yaml", data, 0644); err != nil {
		return txtPath, fmt.Errorf("failed to write report: %w", err)
	}

	r.logger.Infof("Report saved to: %s", txtPath)
	return txtPath, nil
}
