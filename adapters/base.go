package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"audit-automate/capture"
	"audit-automate/internal/types"
	"audit-automate/utils"
)

// ErrSessionStart marks failures to acquire a browser session. The orchestrator
// treats them as critical and backs off harder.
var ErrSessionStart = errors.New("failed to start browser session")

// Profile holds everything that differs between retailers. The capture flow itself
// lives once in BaseAdapter.
type Profile struct {
	Retailer types.Retailer

	// Initial wait after navigation, randomized within the range
	InitialWaitMin time.Duration
	InitialWaitMax time.Duration

	// XPath selectors of dismissible overlays
	Popups []string

	// XPath predicates for the product-details affordance, in priority order
	DetailPredicates []string
	AcceptDetail     func(Candidate) bool

	// Crop the bottom of the screenshot after capture
	Crop bool
}

// BaseAdapter provides the shared capture flow for retailer adapters.
// It implements the Template Method pattern: navigate, pause and jitter,
// dismiss popups, expand details, capture, extract text, post-process.
// Retailer adapters embed it and supply a Profile.
type BaseAdapter struct {
	config   *types.Config
	logger   types.Logger
	sessions types.SessionFactory
	pacer    utils.Pacer
	engine   *capture.Engine
	profile  Profile
}

// NewBaseAdapter creates a base adapter for the given profile
func NewBaseAdapter(config *types.Config, logger types.Logger, sessions types.SessionFactory, pacer utils.Pacer, profile Profile) *BaseAdapter {
	return &BaseAdapter{
		config:   config,
		logger:   logger,
		sessions: sessions,
		pacer:    pacer,
		engine:   capture.NewEngine(config, logger, pacer),
		profile:  profile,
	}
}

// Retailer returns the retailer this adapter handles
func (b *BaseAdapter) Retailer() types.Retailer {
	return b.profile.Retailer
}

// PromptName returns the instruction file name for this retailer
func (b *BaseAdapter) PromptName() string {
	return fmt.Sprintf("prompt_%s.txt", b.profile.Retailer)
}

// CaptureProductData captures outputBase.png and outputBase.txt for url.
// The browser session is always released, and partial artifacts are removed on failure.
func (b *BaseAdapter) CaptureProductData(ctx context.Context, url string, outputBase string) (*types.CaptureResult, error) {
	imagePath := outputBase + ".png"
	textPath := outputBase + ".txt"
	name := b.profile.Retailer.DisplayName()

	b.logger.Infof("Starting %s capture for: %s", name, url)

	session, err := b.sessions.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}

	succeeded := false
	defer func() {
		if qerr := session.Quit(); qerr != nil {
			b.logger.Warnf("Failed to close browser: %v", qerr)
		}
		if !succeeded {
			removeArtifacts(b.logger, imagePath, textPath)
		}
	}()

	result, err := b.run(ctx, session, url, imagePath, textPath)
	if err != nil {
		return nil, fmt.Errorf("%s capture failed for %s: %w", name, url, err)
	}

	succeeded = true
	b.logger.Infof("%s capture finished for: %s", name, url)
	return result, nil
}

func (b *BaseAdapter) run(ctx context.Context, s types.Session, url, imagePath, textPath string) (*types.CaptureResult, error) {
	if err := s.Navigate(ctx, url); err != nil {
		return nil, err
	}

	b.logger.Debugf("Waiting for page load...")
	if err := b.pacer.Pause(ctx, b.profile.InitialWaitMin, b.profile.InitialWaitMax); err != nil {
		return nil, err
	}
	if err := b.jitter(ctx, s); err != nil {
		return nil, err
	}

	if len(b.profile.Popups) > 0 {
		dismisser := NewPopupDismisser(b.logger, b.pacer, b.profile.Popups...)
		if _, err := dismisser.Dismiss(ctx, s); err != nil {
			return nil, err
		}
		if err := b.pacer.Pause(ctx, time.Second, 2*time.Second); err != nil {
			return nil, err
		}
	}

	expanded := false
	if len(b.profile.DetailPredicates) > 0 {
		locator := NewDetailLocator(b.config, b.logger, b.pacer, b.profile.DetailPredicates)
		locator.Accept = b.profile.AcceptDetail
		expanded = locator.LocateAndActivate(ctx, s)
		if !expanded {
			b.logger.Warnf("Failed to open product details section")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tier, err := b.engine.CaptureFullPage(ctx, s, imagePath)
	if err != nil {
		return nil, err
	}

	textExtracted := true
	if err := b.engine.ExtractText(ctx, s, textPath); err != nil {
		b.logger.Warnf("Text extraction incomplete: %v", err)
		textExtracted = false
	}

	if b.profile.Crop {
		if err := capture.CropBottom(imagePath, b.config.CropFraction); err != nil {
			b.logger.Warnf("Screenshot cropping failed: %v", err)
		} else {
			b.logger.Debugf("Screenshot cropped: %s", imagePath)
		}
	}

	return &types.CaptureResult{
		ImagePath:       imagePath,
		TextPath:        textPath,
		Strategy:        tier,
		DetailsExpanded: expanded,
		TextExtracted:   textExtracted,
	}, nil
}

// jitter scrolls a few small random steps like a reader would, then returns to the top
func (b *BaseAdapter) jitter(ctx context.Context, s types.Session) error {
	scrolls := 2 + b.pacer.Intn(3)
	for i := 0; i < scrolls; i++ {
		amount := 100 + b.pacer.Intn(201)
		if err := s.Evaluate(ctx, fmt.Sprintf("window.scrollBy(0, %d)", amount), nil); err != nil {
			b.logger.Debugf("Jitter scroll failed: %v", err)
		}
		if err := b.pacer.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
			return err
		}
	}
	if err := s.Evaluate(ctx, "window.scrollTo(0, 0)", nil); err != nil {
		b.logger.Debugf("Scroll to top failed: %v", err)
	}
	return nil
}

func removeArtifacts(logger types.Logger, paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err == nil {
			logger.Infof("Removed incomplete file: %s", p)
		} else if !os.IsNotExist(err) {
			logger.Warnf("Could not remove incomplete file %s: %v", p, err)
		}
	}
}

// ProbeResult describes how the page interaction steps behaved on one URL
type ProbeResult struct {
	PopupsClosed    int
	DetailsExpanded bool
	Width           int
	Height          int
}

// Probe runs the interaction steps of a capture (navigate, wait, dismiss popups, expand
// details) without writing any artifacts. It is used to check selectors against live pages.
func (b *BaseAdapter) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	session, err := b.sessions.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionStart, err)
	}
	defer func() {
		if qerr := session.Quit(); qerr != nil {
			b.logger.Warnf("Failed to close browser: %v", qerr)
		}
	}()

	if err := session.Navigate(ctx, url); err != nil {
		return nil, err
	}
	if err := b.pacer.Pause(ctx, b.profile.InitialWaitMin, b.profile.InitialWaitMax); err != nil {
		return nil, err
	}

	result := &ProbeResult{}
	if len(b.profile.Popups) > 0 {
		dismisser := NewPopupDismisser(b.logger, b.pacer, b.profile.Popups...)
		if result.PopupsClosed, err = dismisser.Dismiss(ctx, session); err != nil {
			return nil, err
		}
	}
	if len(b.profile.DetailPredicates) > 0 {
		locator := NewDetailLocator(b.config, b.logger, b.pacer, b.profile.DetailPredicates)
		locator.Accept = b.profile.AcceptDetail
		result.DetailsExpanded = locator.LocateAndActivate(ctx, session)
	}
	if result.Width, result.Height, err = session.ContentSize(ctx); err != nil {
		b.logger.Debugf("Content size unavailable: %v", err)
	}
	return result, nil
}
