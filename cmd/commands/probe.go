package commands

import (
	"context"
	"fmt"

	"audit-automate/adapters"
	"audit-automate/internal/types"
	"audit-automate/utils"

	"github.com/spf13/cobra"
)

type prober interface {
	Probe(ctx context.Context, url string) (*adapters.ProbeResult, error)
}

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Check popup and details selectors against one live product page",
	Long: `Probe opens a single product URL the way capture does, dismisses popups and
tries to expand the product details section, then reports what happened. Nothing is
written to the output folder.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().Bool("headless", false, "run the browser without a window")
}

func runProbe(cmd *cobra.Command, args []string) error {
	url := args[0]
	retailer, err := types.ResolveRetailer(url)
	if err != nil {
		return err
	}

	browser := utils.NewBrowserClient(current.config, current.logger)
	registry := adapters.NewRegistry(current.config, current.logger, browser, utils.NewRandomPacer())
	auditor, err := registry.Get(retailer)
	if err != nil {
		return err
	}
	p, ok := auditor.(prober)
	if !ok {
		return fmt.Errorf("auditor for %s does not support probing", retailer.DisplayName())
	}

	current.logger.Infof("Probing %s page: %s", retailer.DisplayName(), url)
	result, err := p.Probe(cmd.Context(), url)
	if err != nil {
		return fmt.Errorf("failed to probe %s: %w", url, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Retailer:         %s\n", retailer.DisplayName())
	fmt.Fprintf(out, "Popups closed:    %d\n", result.PopupsClosed)
	fmt.Fprintf(out, "Details expanded: %t\n", result.DetailsExpanded)
	fmt.Fprintf(out, "Page size:        %dx%d\n", result.Width, result.Height)
	return nil
}
