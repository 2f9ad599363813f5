// Package reconcile merges analysis records into the consolidated audit table, keyed by
// product URL.
package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"audit-automate/analysis"
	"audit-automate/internal/types"
	"audit-automate/metrics"
)

// ErrRestoreFailed means the table write failed and the backup could not be put back.
// The canonical table may be lost or corrupt.
var ErrRestoreFailed = errors.New("failed to restore table from backup")

// Reconciler upserts records into the canonical table and archives a snapshot of every write
type Reconciler struct {
	config  *types.Config
	logger  types.Logger
	metrics *metrics.Recorder

	now       func() time.Time
	writeFile func(name string, data []byte, perm fs.FileMode) error
	copyFile  func(src, dst string) error
}

// NewReconciler creates a reconciler. rec may be nil.
func NewReconciler(config *types.Config, logger types.Logger, rec *metrics.Recorder) *Reconciler {
	return &Reconciler{
		config:    config,
		logger:    logger,
		metrics:   rec,
		now:       time.Now,
		writeFile: os.WriteFile,
		copyFile:  copyFile,
	}
}

// Reconcile merges records into <outputDir>/<csv file>, backing up the previous table to a
// .bak sibling first, then archives a timestamped snapshot tagged with the selection.
// It reports whether the canonical table was written.
func (r *Reconciler) Reconcile(outputDir string, records []*analysis.Record, selection types.Selection) (bool, error) {
	path := r.config.TablePath(outputDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create table folder: %w", err)
	}

	table := LoadTable(path, r.logger)
	updated, added := 0, 0
	for _, rec := range records {
		if rec.Link() == "" {
			r.logger.Warnf("Record without Link appended; duplicates are possible")
		} else if analysis.IsFallback(rec) {
			if prev, ok := table.Row(rec.Link()); ok && !analysis.IsFallback(prev) {
				r.logger.Warnf("Failed analysis replaces the existing row for %s", rec.Link())
			}
		}
		if table.Upsert(rec) {
			updated++
		} else {
			added++
		}
	}
	r.logger.Infof("Reconciled %d records: %d updated, %d added, %d rows total", len(records), updated, added, table.Len())

	data, err := table.Encode()
	if err != nil {
		return false, err
	}
	if err := r.writeCanonical(path, data); err != nil {
		return false, err
	}
	r.logger.Infof("Table saved to: %s", path)
	if r.metrics != nil {
		r.metrics.TableRows.Set(float64(table.Len()))
	}

	snapshot, err := r.snapshot(outputDir, path, data, selection)
	if err != nil {
		r.logger.Warnf("Failed to write table snapshot: %v", err)
	} else {
		r.logger.Infof("Snapshot saved to: %s", snapshot)
	}
	return true, nil
}

func (r *Reconciler) writeCanonical(path string, data []byte) error {
	backup := path + ".bak"
	backedUp := false
	if _, err := os.Stat(path); err == nil {
		if err := r.copyFile(path, backup); err != nil {
			return fmt.Errorf("failed to back up table: %w", err)
		}
		backedUp = true
		r.logger.Debugf("Backed up previous table to: %s", backup)
	}

	werr := r.writeFile(path, data, 0644)
	if werr == nil {
		return nil
	}

	r.logger.Errorf("Error writing table %s: %v", path, werr)
	if !backedUp {
		return fmt.Errorf("failed to write table: %w", werr)
	}
	if rerr := r.copyFile(backup, path); rerr != nil {
		r.logger.Errorf("FATAL: could not restore %s from %s: %v. Previous data is only in the backup.", path, backup, rerr)
		return fmt.Errorf("%w: %v (write error: %v)", ErrRestoreFailed, rerr, werr)
	}
	r.logger.Warnf("Restored previous table from: %s", backup)
	return fmt.Errorf("failed to write table: %w", werr)
}

// snapshot writes a never-overwritten archival copy of the table
func (r *Reconciler) snapshot(outputDir, tablePath string, data []byte, selection types.Selection) (string, error) {
	dir := r.config.ReportDir(outputDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot folder: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(tablePath), filepath.Ext(tablePath))
	stem := fmt.Sprintf("%s%s_%s", base, selection.Tag(), r.now().Format("20060102_150405"))

	for n := 0; ; n++ {
		name := stem + ".csv"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.csv", stem, n)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		return path, werr
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

var analysisFile = regexp.MustCompile(`^(\d+)_([a-z0-9]+)_analysis\.txt$`)

// LoadRecords reads the analysis files in outputDir in sequence order. Files of targets
// from the links list get their Link and Retailer from it; with a selection, only
// selected indices are read.
func LoadRecords(logger types.Logger, outputDir string, targets []types.ProductTarget, selection types.Selection) ([]*analysis.Record, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output folder: %w", err)
	}

	byBase := make(map[string]types.ProductTarget, len(targets))
	for _, t := range targets {
		byBase[t.BaseName()] = t
	}

	type file struct {
		index int
		base  string
		name  string
	}
	var files []file
	for _, e := range entries {
		m := analysisFile.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		index, _ := strconv.Atoi(m[1])
		if !selection.Contains(index) {
			continue
		}
		files = append(files, file{index: index, base: m[1] + "_" + m[2], name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].index != files[j].index {
			return files[i].index < files[j].index
		}
		return files[i].name < files[j].name
	})

	records := make([]*analysis.Record, 0, len(files))
	for _, f := range files {
		var id *analysis.Identity
		if t, ok := byBase[f.base]; ok {
			identity := analysis.IdentityFor(t)
			id = &identity
		} else {
			logger.Warnf("%s has no entry in the links list; keeping its own Link", f.name)
		}
		rec, err := analysis.ReadRecord(filepath.Join(outputDir, f.name), id)
		if err != nil {
			logger.Warnf("Skipping %s: %v", f.name, err)
			continue
		}
		records = append(records, rec)
	}

	logger.Infof("Found %d analysis files in %s", len(records), outputDir)
	return records, nil
}
