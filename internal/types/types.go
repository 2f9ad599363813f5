package types

import (
	"context"
	"errors"
	"path/filepath"
	"time"
)

// ErrUnknownRetailer is returned when a product URL does not belong to any supported retailer
var ErrUnknownRetailer = errors.New("unknown retailer")

// Config holds the configuration for an audit run
type Config struct {
	// Browser
	UserAgent    string        `mapstructure:"user_agent" validate:"required"`
	Headless     bool          `mapstructure:"headless"`
	WindowWidth  int           `mapstructure:"window_width" validate:"min=320"`
	WindowHeight int           `mapstructure:"window_height" validate:"min=240"`
	PageTimeout  time.Duration `mapstructure:"page_timeout" validate:"min=1s"`

	// Batch
	MaxRetries     int           `mapstructure:"max_retries" validate:"min=1"`
	InitialDelay   time.Duration `mapstructure:"initial_delay" validate:"min=0"`
	RetryDelayMin  time.Duration `mapstructure:"retry_delay_min" validate:"min=0"`
	RetryDelayMax  time.Duration `mapstructure:"retry_delay_max" validate:"gtefield=RetryDelayMin"`
	LinkDelayMin   time.Duration `mapstructure:"link_delay_min" validate:"min=0"`
	LinkDelayMax   time.Duration `mapstructure:"link_delay_max" validate:"gtefield=LinkDelayMin"`
	RetryGrowth    float64       `mapstructure:"retry_growth" validate:"min=1"`
	CriticalGrowth float64       `mapstructure:"critical_growth" validate:"gtefield=RetryGrowth"`

	// Detail-section locator
	LocatorAttempts        int `mapstructure:"locator_attempts" validate:"min=1"`
	LocatorScrollIncrement int `mapstructure:"locator_scroll_increment" validate:"min=1"`

	// Capture
	StitchOverlap int     `mapstructure:"stitch_overlap" validate:"min=0"`
	CropFraction  float64 `mapstructure:"crop_fraction" validate:"min=0,lt=1"`

	// Analysis
	Provider  string `mapstructure:"provider" validate:"oneof=anthropic openai gemini ollama"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	PromptDir string `mapstructure:"prompt_dir" validate:"required"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"min=1"`

	// HTTP collaborators
	RequestDelay   time.Duration `mapstructure:"request_delay" validate:"min=1ms"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s"`

	// Table
	CSVFile      string `mapstructure:"csv_file" validate:"required"`
	ReportFolder string `mapstructure:"report_folder" validate:"required"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Headless:     false,
		WindowWidth:  1920,
		WindowHeight: 1080,
		PageTimeout:  3 * time.Minute,

		MaxRetries:     3,
		RetryDelayMin:  10 * time.Second,
		RetryDelayMax:  25 * time.Second,
		LinkDelayMin:   5 * time.Second,
		LinkDelayMax:   15 * time.Second,
		RetryGrowth:    1.2,
		CriticalGrowth: 1.5,

		LocatorAttempts:        20,
		LocatorScrollIncrement: 300,

		StitchOverlap: 100,
		CropFraction:  1.0 / 3.0,

		Provider:  "anthropic",
		PromptDir: "prompts",
		MaxTokens: 4096,

		RequestDelay:   1 * time.Second,
		RequestTimeout: 2 * time.Minute,

		CSVFile:      "audit_results.csv",
		ReportFolder: "audit_report",
	}
}

// Session is an exclusively owned browser session for a single product capture
type Session interface {
	// Navigate loads url and waits for the document to be ready
	Navigate(ctx context.Context, url string) error

	// Evaluate runs script in the page and decodes its JSON result into res (res may be nil)
	Evaluate(ctx context.Context, script string, res interface{}) error

	// Screenshot captures the current viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)

	// ContentSize returns the true document content size from the protocol layout metrics
	ContentSize(ctx context.Context) (width, height int, err error)

	// CaptureClip captures the rectangle (0,0,width,height) beyond the viewport as PNG
	CaptureClip(ctx context.Context, width, height int) ([]byte, error)

	// SetViewport resizes the rendering viewport
	SetViewport(ctx context.Context, width, height int) error

	// Quit releases the session and its browser process
	Quit() error
}

// SessionFactory acquires fresh browser sessions
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// CaptureResult describes the artifacts produced for one product page
type CaptureResult struct {
	ImagePath       string
	TextPath        string
	Strategy        string
	DetailsExpanded bool
	TextExtracted   bool
}

// RetailerAuditor defines the interface for retailer-specific capture logic
type RetailerAuditor interface {
	// Retailer returns the retailer this auditor handles
	Retailer() Retailer

	// PromptName returns the instruction file name used for analysis of this retailer's pages
	PromptName() string

	// CaptureProductData captures the screenshot and text of url into outputBase.png/.txt
	CaptureProductData(ctx context.Context, url string, outputBase string) (*CaptureResult, error)
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ReportDir resolves the report folder against the output folder unless it is absolute
func (c *Config) ReportDir(outputDir string) string {
	if filepath.IsAbs(c.ReportFolder) {
		return c.ReportFolder
	}
	return filepath.Join(outputDir, c.ReportFolder)
}

// TablePath resolves the consolidated table against the output folder unless it is absolute
func (c *Config) TablePath(outputDir string) string {
	if filepath.IsAbs(c.CSVFile) {
		return c.CSVFile
	}
	return filepath.Join(outputDir, c.CSVFile)
}
