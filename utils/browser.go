package utils

import (
	"context"
	"fmt"
	"math"
	"time"

	"audit-automate/internal/types"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// stealthScript hides the most common automation fingerprints before any page script runs
const stealthScript = `
(function() {
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
    delete Object.getPrototypeOf(navigator).webdriver;
    Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'], configurable: true });
    if (!window.chrome) { window.chrome = { runtime: {} }; }
    const originalQuery = window.navigator.permissions && window.navigator.permissions.query;
    if (originalQuery) {
        window.navigator.permissions.query = (parameters) => (
            parameters.name === 'notifications'
                ? Promise.resolve({ state: Notification.permission })
                : originalQuery(parameters)
        );
    }
})();
`

// BrowserClient launches a fresh, anti-detection configured Chrome for every session
type BrowserClient struct {
	config *types.Config
	logger types.Logger
}

// NewBrowserClient creates a new browser client
func NewBrowserClient(config *types.Config, logger types.Logger) *BrowserClient {
	return &BrowserClient{
		config: config,
		logger: logger,
	}
}

var _ types.SessionFactory = (*BrowserClient)(nil)

func (b *BrowserClient) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.config.Headless),
		chromedp.Flag("disable-gpu", b.config.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),

		// Anti-detection flags
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),

		chromedp.WindowSize(b.config.WindowWidth, b.config.WindowHeight),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("lang", "en-US,en"),
		chromedp.UserAgent(b.config.UserAgent),
	)
	return opts
}

// NewSession starts a browser process and returns a session bound to its first tab
func (b *BrowserClient) NewSession(ctx context.Context) (types.Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), b.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(b.logger.Debugf),
		chromedp.WithErrorf(b.logger.Debugf),
	)

	s := &chromeSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		timeout:     b.config.PageTimeout,
		logger:      b.logger,
	}

	// The first Run starts Chrome and binds the process to the context it is given,
	// so it must not carry the per-step timeout.
	stop := context.AfterFunc(ctx, cancelAlloc)
	err := chromedp.Run(tabCtx)
	stop()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.Quit()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	err = s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	}))
	if err != nil {
		s.Quit()
		return nil, fmt.Errorf("failed to install stealth script: %w", err)
	}

	b.logger.Debugf("Browser session started (headless=%v, window=%dx%d)", b.config.Headless, b.config.WindowWidth, b.config.WindowHeight)
	return s, nil
}

// chromeSession implements types.Session on top of a chromedp tab
type chromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	timeout     time.Duration
	logger      types.Logger
	closed      bool
}

// run executes actions against the tab, bounded by the page timeout and the caller's context
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed {
		return fmt.Errorf("browser session already closed")
	}
	runCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) Evaluate(ctx context.Context, script string, res interface{}) error {
	if res == nil {
		var raw *runtime.RemoteObject
		return s.run(ctx, chromedp.Evaluate(script, &raw))
	}
	return s.run(ctx, chromedp.Evaluate(script, res))
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture viewport: %w", err)
	}
	return buf, nil
}

func (s *chromeSession) ContentSize(ctx context.Context) (int, int, error) {
	var width, height int
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, _, _, cssContentSize, err := page.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return err
		}
		if cssContentSize == nil {
			return fmt.Errorf("layout metrics returned no content size")
		}
		width = int(math.Ceil(cssContentSize.Width))
		height = int(math.Ceil(cssContentSize.Height))
		return nil
	}))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get layout metrics: %w", err)
	}
	return width, height, nil
}

func (s *chromeSession) CaptureClip(ctx context.Context, width, height int) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithCaptureBeyondViewport(true).
			WithFromSurface(true).
			WithClip(&page.Viewport{
				X:      0,
				Y:      0,
				Width:  float64(width),
				Height: float64(height),
				Scale:  1,
			}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture clip %dx%d: %w", width, height, err)
	}
	return buf, nil
}

func (s *chromeSession) SetViewport(ctx context.Context, width, height int) error {
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1, false).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to set viewport %dx%d: %w", width, height, err)
	}
	return nil
}

// Quit closes the browser. Safe to call more than once.
func (s *chromeSession) Quit() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := chromedp.Cancel(s.ctx)
	s.cancelTab()
	s.cancelAlloc()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	s.logger.Debugf("Browser session closed")
	return nil
}
