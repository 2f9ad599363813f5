package commands

import (
	"fmt"

	"audit-automate/analysis"
	"audit-automate/llm"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Assess captured pages with a vision model, then rebuild the table",
	Long: `Analyze sends each selected capture (screenshot, page text and the retailer's
prompt from the prompt folder) to the configured provider and writes
<n>_<retailer>_analysis.txt. A failed call still produces a complete record carrying
the error. The table is rebuilt afterwards.`,
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringP("prompt-dir", "p", "prompts", "folder with prompt_<retailer>.txt files")
	f.String("provider", "anthropic", "reasoning provider: anthropic, openai, gemini or ollama")
	f.String("model", "", "model name (provider default when empty)")
	f.String("api-key", "", "provider API key (defaults to the provider's environment variable)")
	f.String("base-url", "", "provider endpoint override")
	addTableFlags(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	r, err := newRun(cmd)
	if err != nil {
		return err
	}

	provider, err := llm.New(r.config, r.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize provider: %w", err)
	}
	if c, ok := provider.(interface{ Close() }); ok {
		defer c.Close()
	}
	defer r.finish()

	analyzer := analysis.NewAnalyzer(r.config, r.logger, provider, r.report, r.metrics)
	passed, failed := analyzer.AnalyzeAll(cmd.Context(), r.outputDir, r.targets, r.selection)
	r.logger.Infof("Analysis finished: %d passed, %d failed", passed, failed)

	if err := cmd.Context().Err(); err != nil {
		return err
	}
	return r.table()
}
