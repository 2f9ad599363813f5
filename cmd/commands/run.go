package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"audit-automate/internal/types"
	"audit-automate/metrics"
	"audit-automate/reconcile"
	"audit-automate/report"

	"github.com/spf13/cobra"
)

// run bundles the per-invocation collaborators shared by every phase
type run struct {
	app
	outputDir string
	targets   []types.ProductTarget
	report    *report.RunReport
	metrics   *metrics.Recorder
}

// newRun loads the links list. A missing list is a setup error that aborts the command.
func newRun(cmd *cobra.Command) (*run, error) {
	inputFile, _ := cmd.Flags().GetString("input-file")
	outputDir, _ := cmd.Flags().GetString("output-folder")

	targets, err := types.LoadTargets(inputFile)
	if err != nil {
		return nil, err
	}
	current.logger.Infof("Found %d links in %s", len(targets), inputFile)
	for _, t := range targets {
		if t.Retailer == types.RetailerUnknown {
			current.logger.Warnf("Link #%d has no supported retailer: %s", t.Index, t.URL)
		}
	}

	rep := report.New(current.logger)
	current.logger.Debugf("Run ID: %s", rep.ID)
	return &run{
		app:       current,
		outputDir: outputDir,
		targets:   targets,
		report:    rep,
		metrics:   metrics.NewRecorder(),
	}, nil
}

// table reconciles the analysis files of the selected targets into the consolidated table
func (r *run) table() error {
	records, err := reconcile.LoadRecords(r.logger, r.outputDir, r.targets, r.selection)
	if err != nil {
		r.logger.Errorf("Failed to read analysis files: %v", err)
		return err
	}
	if len(records) == 0 {
		r.logger.Warnf("No analysis files found in %s; table not updated", r.outputDir)
		return nil
	}

	reconciler := reconcile.NewReconciler(r.config, r.logger, r.metrics)
	if _, err := reconciler.Reconcile(r.outputDir, records, r.selection); err != nil {
		r.logger.Errorf("Failed to update table: %v", err)
		return fmt.Errorf("failed to update table: %w", err)
	}
	return nil
}

// finish prints the summary and persists the report and metrics
func (r *run) finish() {
	r.report.PrintSummary(os.Stdout)

	dir := r.config.ReportDir(r.outputDir)
	if _, err := r.report.Save(dir); err != nil {
		r.logger.Errorf("Error saving report: %v", err)
	}
	if err := r.metrics.WriteTextfile(filepath.Join(dir, "metrics.prom")); err != nil {
		r.logger.Warnf("Error saving metrics: %v", err)
	}
}
