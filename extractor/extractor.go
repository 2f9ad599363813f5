package extractor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"audit-automate/adapters"
	"audit-automate/internal/types"
	"audit-automate/metrics"
	"audit-automate/report"
	"audit-automate/utils"
)

const (
	// QualifierMissingDetails annotates a pass where the details section was not expanded
	QualifierMissingDetails = "missing product details"
	// QualifierMissingText annotates a pass where no page text could be extracted
	QualifierMissingText = "missing page text"
)

// Auditors resolves the auditor for a retailer
type Auditors interface {
	Get(retailer types.Retailer) (types.RetailerAuditor, error)
}

// Extractor drives the capture phase over the links list, one product at a time
type Extractor struct {
	config   *types.Config
	logger   types.Logger
	auditors Auditors
	pacer    utils.Pacer
	report   *report.RunReport
	metrics  *metrics.Recorder
}

// NewExtractor creates a new extractor. rec may be nil.
func NewExtractor(config *types.Config, logger types.Logger, auditors Auditors, pacer utils.Pacer, rep *report.RunReport, rec *metrics.Recorder) *Extractor {
	return &Extractor{
		config:   config,
		logger:   logger,
		auditors: auditors,
		pacer:    pacer,
		report:   rep,
		metrics:  rec,
	}
}

// ProcessTargets captures every selected target into outputDir in input order. Per-item
// failures are recorded in the report and never abort the batch; only cancellation of ctx
// stops it early.
func (e *Extractor) ProcessTargets(ctx context.Context, outputDir string, targets []types.ProductTarget, selection types.Selection) error {
	startTime := time.Now()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	selected := selection.Filter(targets)
	if len(selected) == 0 {
		if len(selection) > 0 {
			e.logger.Warnf("No links matched the selection: %v", selection.Indices())
		} else {
			e.logger.Warnf("Input list is empty, nothing to capture")
		}
		return nil
	}
	e.logger.Infof("Capturing %d of %d products", len(selected), len(targets))

	if e.config.InitialDelay > 0 {
		e.logger.Infof("Waiting %s before starting...", e.config.InitialDelay)
		if err := e.pacer.Pause(ctx, e.config.InitialDelay, e.config.InitialDelay); err != nil {
			return err
		}
	}

	for i, target := range selected {
		e.logger.Infof("Processing %s (Link #%d): %s", target.BaseName(), target.Index, target.URL)
		e.processTarget(ctx, outputDir, target)

		if err := ctx.Err(); err != nil {
			e.logger.Warnf("Capture interrupted after %d of %d products", i+1, len(selected))
			return err
		}
		if i < len(selected)-1 {
			e.logger.Debugf("Waiting before next link...")
			if err := e.pacer.Pause(ctx, e.config.LinkDelayMin, e.config.LinkDelayMax); err != nil {
				return err
			}
		}
	}

	e.logger.Infof("Capture completed in %v", time.Since(startTime).Round(time.Second))
	return nil
}

func (e *Extractor) processTarget(ctx context.Context, outputDir string, target types.ProductTarget) {
	id := target.BaseName()
	e.report.Start(id)

	auditor, err := e.auditors.Get(target.Retailer)
	if err != nil {
		e.fail(target, fmt.Sprintf("Unknown retailer for URL %s: %v", target.URL, err))
		return
	}

	base := filepath.Join(outputDir, id)
	attempts := max(e.config.MaxRetries, 1)
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		e.logger.Infof("Attempt %d of %d", attempt, attempts)

		result, critical, err := e.attempt(ctx, auditor, target.URL, base)
		if err == nil {
			e.pass(target, result)
			return
		}
		lastErr = err
		e.logger.Warnf("Attempt %d failed: %v", attempt, err)

		if ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			if e.metrics != nil {
				e.metrics.Retry(critical)
			}
			if perr := e.backoff(ctx, attempt, critical); perr != nil {
				lastErr = perr
				break
			}
		}
	}

	e.fail(target, fmt.Sprintf("All %d attempts failed. Last error: %v", attempts, lastErr))
}

// attempt runs one capture and converts a panic into a critical failure
func (e *Extractor) attempt(ctx context.Context, auditor types.RetailerAuditor, url, base string) (result *types.CaptureResult, critical bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, critical, err = nil, true, fmt.Errorf("capture panicked: %v", r)
		}
	}()

	result, err = auditor.CaptureProductData(ctx, url, base)
	if err != nil {
		return nil, errors.Is(err, adapters.ErrSessionStart), err
	}
	return result, false, nil
}

// backoff waits 10-25s by default, scaled by the growth factor for each completed attempt.
// Critical failures grow faster.
func (e *Extractor) backoff(ctx context.Context, attempt int, critical bool) error {
	growth := e.config.RetryGrowth
	if critical {
		growth = e.config.CriticalGrowth
	}
	factor := math.Pow(growth, float64(attempt-1))
	minDelay := time.Duration(float64(e.config.RetryDelayMin) * factor)
	maxDelay := time.Duration(float64(e.config.RetryDelayMax) * factor)

	e.logger.Infof("Waiting %s-%s before next attempt...", minDelay.Round(time.Second), maxDelay.Round(time.Second))
	return e.pacer.Pause(ctx, minDelay, maxDelay)
}

func (e *Extractor) pass(target types.ProductTarget, result *types.CaptureResult) {
	qualifier := ""
	switch {
	case !result.DetailsExpanded:
		qualifier = QualifierMissingDetails
	case !result.TextExtracted:
		qualifier = QualifierMissingText
	}
	e.report.Pass(target.BaseName(), qualifier)
	if e.metrics != nil {
		e.metrics.Item("capture", string(target.Retailer), "passed")
		e.metrics.Tier(result.Strategy)
	}
}

func (e *Extractor) fail(target types.ProductTarget, message string) {
	e.report.Fail(target.BaseName(), message)
	if e.metrics != nil {
		e.metrics.Item("capture", string(target.Retailer), "failed")
	}
}
