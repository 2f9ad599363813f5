package commands

import (
	"audit-automate/analysis"

	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Merge analysis files into the consolidated CSV table",
	Long: `Table reads every <n>_<retailer>_analysis.txt in the output folder and upserts it
into the CSV table by product URL. The previous table is kept as <file>.bak and a
timestamped snapshot is archived in the report folder.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRun(cmd)
		if err != nil {
			return err
		}
		defer r.finish()
		return r.table()
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rewrite analysis files in schema order, then rebuild the table",
	Long: `Repair re-parses existing analysis files, tolerating missing or reordered fields,
rewrites them with every schema field in order and the Link and Retailer taken from the
links list, and then rebuilds the table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRun(cmd)
		if err != nil {
			return err
		}
		defer r.finish()

		repaired, err := analysis.Repair(r.logger, r.outputDir, r.targets, r.selection)
		r.logger.Infof("Repaired %d analysis files", repaired)
		if err != nil {
			r.logger.Warnf("Some analysis files could not be repaired: %v", err)
		}
		return r.table()
	},
}

func init() {
	addTableFlags(tableCmd)
	addTableFlags(repairCmd)
}
