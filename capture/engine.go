package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"audit-automate/internal/types"
	"audit-automate/utils"

	"github.com/dustin/go-humanize"
)

// ErrAllStrategiesFailed is returned when no screenshot tier produced an image
var ErrAllStrategiesFailed = errors.New("all screenshot strategies failed")

const (
	scriptScrollSize   = `[Math.max(document.body.scrollWidth, document.documentElement.scrollWidth), Math.max(document.body.scrollHeight, document.documentElement.scrollHeight)]`
	scriptViewportSize = `[window.innerWidth, window.innerHeight]`
	scriptScrollPrefix = "window.scrollTo(0, "
)

func scrollScript(y int) string {
	return fmt.Sprintf("%s%d)", scriptScrollPrefix, y)
}

// Strategy is one tier of the full-page screenshot chain
type Strategy interface {
	Name() string
	Capture(ctx context.Context, s types.Session) ([]byte, error)
}

// Engine produces full-page screenshots and page text for a rendered session
type Engine struct {
	config     *types.Config
	logger     types.Logger
	pacer      utils.Pacer
	strategies []Strategy
}

// NewEngine creates an engine with the default tier order:
// protocol clip, viewport resize, tiled stitch, bare viewport
func NewEngine(config *types.Config, logger types.Logger, pacer utils.Pacer) *Engine {
	e := &Engine{
		config: config,
		logger: logger,
		pacer:  pacer,
	}
	e.strategies = []Strategy{
		&protocolStrategy{engine: e},
		&viewportResizeStrategy{engine: e},
		&stitchStrategy{engine: e},
		&bareStrategy{},
	}
	return e
}

// Strategies returns the tiers in the order they are attempted
func (e *Engine) Strategies() []Strategy {
	return e.strategies
}

// WithStrategies replaces the tier chain
func (e *Engine) WithStrategies(strategies ...Strategy) *Engine {
	e.strategies = strategies
	return e
}

// CaptureFullPage walks the tier chain and writes the first successful image to targetPath.
// It returns the name of the tier that produced the image.
func (e *Engine) CaptureFullPage(ctx context.Context, s types.Session, targetPath string) (string, error) {
	var failures []string

	for i, strategy := range e.strategies {
		start := time.Now()
		data, err := e.attempt(ctx, strategy, s)
		if err == nil && len(data) == 0 {
			err = fmt.Errorf("empty image")
		}
		if err != nil {
			e.logger.Warnf("Screenshot tier %d (%s) failed: %v", i+1, strategy.Name(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", strategy.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if err := os.WriteFile(targetPath, data, 0644); err != nil {
			return "", fmt.Errorf("failed to write screenshot %s: %w", targetPath, err)
		}
		e.logger.Infof("Full page screenshot saved via %s tier (%s in %v): %s",
			strategy.Name(), humanize.Bytes(uint64(len(data))), time.Since(start).Round(time.Millisecond), targetPath)
		return strategy.Name(), nil
	}

	return "", fmt.Errorf("%w: %s", ErrAllStrategiesFailed, strings.Join(failures, "; "))
}

// attempt isolates one tier so a panic inside it falls through like any other failure
func (e *Engine) attempt(ctx context.Context, strategy Strategy, s types.Session) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return strategy.Capture(ctx, s)
}

// restoreViewport puts the window back to the configured size after a resize tier
func (e *Engine) restoreViewport(ctx context.Context, s types.Session) {
	if err := s.SetViewport(ctx, e.config.WindowWidth, e.config.WindowHeight); err != nil {
		e.logger.Debugf("Failed to restore viewport: %v", err)
	}
}

func scrollSize(ctx context.Context, s types.Session) (int, int, error) {
	var dims []float64
	if err := s.Evaluate(ctx, scriptScrollSize, &dims); err != nil {
		return 0, 0, fmt.Errorf("failed to read scroll size: %w", err)
	}
	if len(dims) != 2 || dims[0] <= 0 || dims[1] <= 0 {
		return 0, 0, fmt.Errorf("invalid scroll size %v", dims)
	}
	return int(dims[0]), int(dims[1]), nil
}

func viewportSize(ctx context.Context, s types.Session) (int, int, error) {
	var dims []float64
	if err := s.Evaluate(ctx, scriptViewportSize, &dims); err != nil {
		return 0, 0, fmt.Errorf("failed to read viewport size: %w", err)
	}
	if len(dims) != 2 || dims[0] <= 0 || dims[1] <= 0 {
		return 0, 0, fmt.Errorf("invalid viewport size %v", dims)
	}
	return int(dims[0]), int(dims[1]), nil
}

// protocolStrategy asks the protocol for the true content size and captures it in one clip
type protocolStrategy struct {
	engine *Engine
}

func (p *protocolStrategy) Name() string { return "protocol" }

func (p *protocolStrategy) Capture(ctx context.Context, s types.Session) ([]byte, error) {
	width, height, err := s.ContentSize(ctx)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid content size %dx%d", width, height)
	}
	p.engine.logger.Debugf("Protocol content size %dx%d", width, height)

	if err := s.SetViewport(ctx, width, height); err != nil {
		return nil, err
	}
	defer p.engine.restoreViewport(ctx, s)

	return s.CaptureClip(ctx, width, height)
}

// viewportResizeStrategy grows the viewport to the scroll size and takes a plain screenshot
type viewportResizeStrategy struct {
	engine *Engine
}

func (v *viewportResizeStrategy) Name() string { return "viewport-resize" }

func (v *viewportResizeStrategy) Capture(ctx context.Context, s types.Session) ([]byte, error) {
	width, height, err := scrollSize(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := s.SetViewport(ctx, width, height); err != nil {
		return nil, err
	}
	defer v.engine.restoreViewport(ctx, s)

	if err := v.engine.pacer.Pause(ctx, 2*time.Second, 2500*time.Millisecond); err != nil {
		return nil, err
	}
	return s.Screenshot(ctx)
}

// bareStrategy saves whatever the viewport currently shows
type bareStrategy struct{}

func (bareStrategy) Name() string { return "bare" }

func (bareStrategy) Capture(ctx context.Context, s types.Session) ([]byte, error) {
	return s.Screenshot(ctx)
}
