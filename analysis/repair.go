package analysis

import (
	"errors"
	"fmt"
	"os"

	"audit-automate/internal/types"
)

// ReadRecord parses an analysis file. When id is non-nil its Link and Retailer replace
// whatever the file carried.
func ReadRecord(path string, id *Identity) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis file: %w", err)
	}
	r := ParseRecord(string(data))
	if id != nil {
		id.apply(r)
	}
	return r, nil
}

// Repair re-emits existing analysis files of the selected targets in schema order with the
// authoritative identity. Targets without an analysis file are skipped.
func Repair(logger types.Logger, outputDir string, targets []types.ProductTarget, selection types.Selection) (repaired int, err error) {
	var errs []error
	for _, t := range selection.Filter(targets) {
		path := AnalysisPath(outputDir, t)
		identity := IdentityFor(t)
		r, rerr := ReadRecord(path, &identity)
		if rerr != nil {
			if errors.Is(rerr, os.ErrNotExist) {
				logger.Debugf("No analysis file for %s, skipping", t.BaseName())
				continue
			}
			logger.Warnf("Error processing %s: %v. Skipping this file.", path, rerr)
			errs = append(errs, rerr)
			continue
		}
		if werr := os.WriteFile(path, []byte(r.String()), 0644); werr != nil {
			logger.Warnf("Failed to rewrite %s: %v", path, werr)
			errs = append(errs, werr)
			continue
		}
		repaired++
		logger.Infof("Repaired %s", path)
	}
	return repaired, errors.Join(errs...)
}
