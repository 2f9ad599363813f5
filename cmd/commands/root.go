// Package commands implements the audit CLI.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audit-automate/internal/config"
	"audit-automate/internal/types"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what PersistentPreRunE assembled for the running command
type app struct {
	v         *viper.Viper
	config    *types.Config
	logger    *logrus.Logger
	selection types.Selection
}

var current app

var rootCmd = &cobra.Command{
	Use:   "audit",
	Short: "Capture, assess and tabulate retailer product pages",
	Long: `audit drives a browser over a list of product URLs, captures a full-page
screenshot and the page text of each, asks a vision model to assess the listing,
and merges the results into one CSV table keyed by product URL.

Examples:
  # Capture every link in links.txt into ./output
  audit capture -i links.txt -o output

  # Re-capture only links 1 and 3
  audit capture -s 1,3

  # Analyze the captures with Gemini and rebuild the table
  GEMINI_API_KEY=... audit analyze --provider gemini

  # Rebuild the table from existing analysis files
  audit table -f audit_results.csv`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runCapture,
}

// flagKeys maps command-line flags to config keys
var flagKeys = map[string]string{
	"retries":    "max_retries",
	"headless":   "headless",
	"prompt-dir": "prompt_dir",
	"provider":   "provider",
	"model":      "model",
	"api-key":    "api_key",
	"base-url":   "base_url",
	"csv-file":   "csv_file",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("input-file", "i", "links.txt", "file with one product URL per line")
	pf.StringP("output-folder", "o", "output", "folder for screenshots, text and analysis files")
	pf.StringP("select", "s", "", "comma separated link numbers to process, e.g. 1,3,5")
	pf.Bool("verbose", false, "enable debug logging")
	pf.String("config", "", "config file (default ./"+config.DefaultFile+")")

	addCaptureFlags(rootCmd)

	rootCmd.AddCommand(captureCmd, analyzeCmd, tableCmd, repairCmd, probeCmd)
}

// setup loads .env, config and logging for every command
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	configPath, _ := cmd.Flags().GetString("config")
	v, err := config.NewViper(configPath)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}
	if f := cmd.Flags().Lookup("delay"); f != nil && f.Changed {
		seconds, _ := cmd.Flags().GetInt("delay")
		v.Set("initial_delay", time.Duration(seconds)*time.Second)
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	selectFlag, _ := cmd.Flags().GetString("select")
	selection, err := types.ParseSelection(selectFlag)
	if err != nil {
		return err
	}

	current = app{
		v:         v,
		config:    cfg,
		logger:    newLogger(verbose),
		selection: selection,
	}
	if len(selection) > 0 {
		current.logger.Infof("Processing selected links: %v", selection.Indices())
	}
	return nil
}

// newLogger builds the process logger. LOG_LEVEL wins over --verbose.
func newLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
			return logger
		}
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

func addTableFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("csv-file", "f", "audit_results.csv", "consolidated table file name inside the output folder")
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
