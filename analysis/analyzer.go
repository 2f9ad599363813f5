package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"audit-automate/internal/types"
	"audit-automate/llm"
	"audit-automate/metrics"
	"audit-automate/report"
)

// Analyzer sends captured artifacts to the reasoning provider and writes one schema-complete
// analysis file per product
type Analyzer struct {
	config   *types.Config
	logger   types.Logger
	provider llm.Provider
	report   *report.RunReport
	metrics  *metrics.Recorder

	mu      sync.Mutex
	prompts map[string]string
}

// NewAnalyzer creates an analyzer that records outcomes in rep and rec
func NewAnalyzer(config *types.Config, logger types.Logger, provider llm.Provider, rep *report.RunReport, rec *metrics.Recorder) *Analyzer {
	return &Analyzer{
		config:   config,
		logger:   logger,
		provider: provider,
		report:   rep,
		metrics:  rec,
		prompts:  make(map[string]string),
	}
}

// AnalysisPath returns the analysis file path of a target inside outputDir
func AnalysisPath(outputDir string, t types.ProductTarget) string {
	return filepath.Join(outputDir, t.BaseName()+"_analysis.txt")
}

// AnalyzeAll processes the selected targets in sequence order. Every selected target gets
// an analysis file, even when its artifacts are missing or the provider fails.
func (a *Analyzer) AnalyzeAll(ctx context.Context, outputDir string, targets []types.ProductTarget, selection types.Selection) (passed, failed int) {
	selected := selection.Filter(targets)
	a.logger.Infof("Analyzing %d products with %s (%s)", len(selected), a.provider.Name(), a.provider.Model())

	for i, t := range selected {
		if ctx.Err() != nil {
			a.logger.Warnf("Analysis interrupted after %d of %d products", i, len(selected))
			break
		}
		a.logger.Infof("[%d/%d] Analyzing %s", i+1, len(selected), t.BaseName())
		if err := a.Analyze(ctx, outputDir, t); err != nil {
			failed++
		} else {
			passed++
		}
	}
	return passed, failed
}

// Analyze writes the analysis file for one target. The returned error reflects the
// report outcome; the file is written either way.
func (a *Analyzer) Analyze(ctx context.Context, outputDir string, t types.ProductTarget) error {
	id := t.BaseName()
	base := filepath.Join(outputDir, id)
	analysisPath := base + "_analysis.txt"
	identity := IdentityFor(t)

	a.report.Start(id)
	if err := os.Remove(analysisPath); err == nil {
		a.logger.Debugf("Removed previous analysis: %s", analysisPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		a.logger.Warnf("Could not remove previous analysis %s: %v", analysisPath, err)
	}

	raw, err := a.request(ctx, t, base)
	if err != nil {
		msg := fmt.Sprintf("Error processing %s: %v", id, err)
		a.logger.Errorf("%s", msg)
		return a.finish(t, analysisPath, Fallback(identity, msg), errors.New(msg))
	}

	if !HasSchemaFields(raw) {
		a.logger.Warnf("No schema fields in response for %s", id)
		fallback := Fallback(identity, ErrNoSchemaFields.Error())
		a.saveRaw(base, raw, fallback)
		return a.finish(t, analysisPath, fallback, ErrNoSchemaFields)
	}

	formatted := Format(raw, identity)
	if verr := Verify(formatted); verr != nil {
		a.logger.Warnf("Schema mismatch for %s: %v", id, verr)
		a.saveRaw(base, raw, formatted)
		return a.finish(t, analysisPath, formatted, fmt.Errorf("schema mismatch: %w", verr))
	}

	return a.finish(t, analysisPath, formatted, nil)
}

// saveRaw writes the diagnostic side file pairing the reply with what was written for it
func (a *Analyzer) saveRaw(base, raw, formatted string) {
	rawPath := base + "_raw_response.txt"
	diag := fmt.Sprintf("RAW:\n%s\n\nFORMATTED:\n%s", raw, formatted)
	if err := os.WriteFile(rawPath, []byte(diag), 0644); err != nil {
		a.logger.Warnf("Failed to save raw response: %v", err)
		return
	}
	a.logger.Infof("Saved raw response to: %s", rawPath)
}

func (a *Analyzer) finish(t types.ProductTarget, path, content string, outcome error) error {
	id := t.BaseName()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		outcome = fmt.Errorf("failed to write analysis file: %w", err)
	} else {
		a.logger.Infof("Saved analysis to: %s", path)
	}

	status := "passed"
	if outcome != nil {
		status = "failed"
		a.report.Fail(id, outcome.Error())
	} else {
		a.report.Pass(id, "")
	}
	if a.metrics != nil {
		a.metrics.Item("analysis", string(t.Retailer), status)
	}
	return outcome
}

func (a *Analyzer) request(ctx context.Context, t types.ProductTarget, base string) (string, error) {
	if t.Retailer == types.RetailerUnknown {
		return "", fmt.Errorf("%w: %s", types.ErrUnknownRetailer, t.URL)
	}

	instruction, err := a.prompt(fmt.Sprintf("prompt_%s.txt", t.Retailer))
	if err != nil {
		return "", err
	}
	pageText, err := os.ReadFile(base + ".txt")
	if err != nil {
		return "", fmt.Errorf("input file not found: %w", err)
	}
	image, err := os.ReadFile(base + ".png")
	if err != nil {
		return "", fmt.Errorf("input file not found: %w", err)
	}

	start := time.Now()
	resp, err := a.provider.Analyze(ctx, llm.Request{
		Instruction: instruction,
		PageText:    string(pageText),
		Image:       image,
		MediaType:   "image/png",
		MaxTokens:   a.config.MaxTokens,
	})
	if a.metrics != nil {
		a.metrics.Analysis(a.provider.Name(), time.Since(start))
	}
	if err != nil {
		return "", err
	}

	a.logger.Debugf("Response received for %s: %d output tokens in %s", t.BaseName(), resp.OutputTokens, resp.Duration.Round(time.Millisecond))
	return resp.Content, nil
}

// prompt loads an instruction file once per run
func (a *Analyzer) prompt(name string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if p, ok := a.prompts[name]; ok {
		return p, nil
	}
	path := filepath.Join(a.config.PromptDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("required prompt file is missing: %w", err)
	}
	a.logger.Infof("Loaded prompt from: %s", path)
	a.prompts[name] = string(data)
	return a.prompts[name], nil
}
