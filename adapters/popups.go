package adapters

import (
	"context"
	"fmt"
	"time"

	"audit-automate/internal/types"
	"audit-automate/utils"
)

const dismissScript = `(function(xpath) {
    var el = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
    if (!el) return false;
    var r = el.getBoundingClientRect();
    if (r.width === 0 || r.height === 0) return false;
    if (el.scrollIntoViewIfNeeded) { el.scrollIntoViewIfNeeded(true); } else { el.scrollIntoView({block: 'center'}); }
    el.click();
    return true;
})(%q)`

// PopupDismisser clicks known overlay close buttons. Popups are optional obstacles,
// so every selector is tried and individual failures are ignored.
type PopupDismisser struct {
	Selectors []string

	logger types.Logger
	pacer  utils.Pacer
}

// NewPopupDismisser creates a dismisser for the given XPath selectors
func NewPopupDismisser(logger types.Logger, pacer utils.Pacer, selectors ...string) *PopupDismisser {
	return &PopupDismisser{
		Selectors: selectors,
		logger:    logger,
		pacer:     pacer,
	}
}

// Dismiss returns the number of popups closed. Only context cancellation is reported.
func (p *PopupDismisser) Dismiss(ctx context.Context, s types.Session) (int, error) {
	closed := 0
	for _, selector := range p.Selectors {
		if err := ctx.Err(); err != nil {
			return closed, err
		}

		var clicked bool
		if err := s.Evaluate(ctx, fmt.Sprintf(dismissScript, selector), &clicked); err != nil {
			p.logger.Debugf("Popup selector %s failed: %v", selector, err)
			continue
		}
		if !clicked {
			continue
		}

		closed++
		p.logger.Infof("Closed popup using selector: %s", selector)
		if err := p.pacer.Pause(ctx, 500*time.Millisecond, 1500*time.Millisecond); err != nil {
			return closed, err
		}
	}
	if closed == 0 {
		p.logger.Debugf("No popups detected")
	}
	return closed, nil
}
