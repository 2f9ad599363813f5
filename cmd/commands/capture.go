package commands

import (
	"audit-automate/adapters"
	"audit-automate/extractor"
	"audit-automate/utils"

	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture screenshots and page text for each link",
	Long: `Capture opens every selected link in a fresh browser, dismisses popups, expands
the product details section, and saves <n>_<retailer>.png and .txt into the output folder.
Failed links are retried with backoff; one failing link never stops the batch.`,
	RunE: runCapture,
}

func init() {
	addCaptureFlags(captureCmd)
}

func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("retries", "r", 3, "capture attempts per link")
	cmd.Flags().IntP("delay", "d", 0, "seconds to wait before starting")
	cmd.Flags().Bool("headless", false, "run the browser without a window")
}

func runCapture(cmd *cobra.Command, args []string) error {
	r, err := newRun(cmd)
	if err != nil {
		return err
	}
	defer r.finish()

	browser := utils.NewBrowserClient(r.config, r.logger)
	pacer := utils.NewRandomPacer()
	registry := adapters.NewRegistry(r.config, r.logger, browser, pacer)

	ex := extractor.NewExtractor(r.config, r.logger, registry, pacer, r.report, r.metrics)
	return ex.ProcessTargets(cmd.Context(), r.outputDir, r.targets, r.selection)
}
