package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"audit-automate/internal/types"
	"audit-automate/utils"
)

// DefaultExclusions reject add-to-cart style controls that sit next to detail toggles
var DefaultExclusions = []string{"add to", "cart", "list"}

const candidateAttr = "data-audit-candidate"

const scriptDocumentHeight = `Math.max(document.body.scrollHeight, document.documentElement.scrollHeight)`

// candidateScript evaluates every XPath predicate, tags each hit with a marker
// attribute and reports what it found
const candidateScript = `(function(predicates, attr) {
    document.querySelectorAll('[' + attr + ']').forEach(function(el) { el.removeAttribute(attr); });
    var out = [];
    predicates.forEach(function(xpath, p) {
        var snap;
        try {
            snap = document.evaluate(xpath, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
        } catch (e) {
            return;
        }
        for (var i = 0; i < snap.snapshotLength; i++) {
            var el = snap.snapshotItem(i);
            if (!el || el.nodeType !== 1) continue;
            var r = el.getBoundingClientRect();
            var st = window.getComputedStyle(el);
            var visible = r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
            var id = String(out.length);
            el.setAttribute(attr, id);
            out.push({id: id, predicate: p, tag: el.tagName.toLowerCase(), text: (el.innerText || el.textContent || '').trim(), visible: visible});
        }
    });
    return out;
})(%s, %q)`

// Candidate is one element matched by a locator predicate
type Candidate struct {
	ID        string `json:"id"`
	Predicate int    `json:"predicate"`
	Tag       string `json:"tag"`
	Text      string `json:"text"`
	Visible   bool   `json:"visible"`
}

// DetailLocator finds and activates the expandable product-details region of a page.
// Predicates are XPath expressions tried in order; the first visible match whose text
// contains none of the exclusion terms (and passes Accept, when set) is clicked.
type DetailLocator struct {
	Predicates []string
	Exclusions []string
	Accept     func(c Candidate) bool

	Attempts  int
	Increment int

	logger types.Logger
	pacer  utils.Pacer
}

// NewDetailLocator creates a locator with the configured attempt budget and scroll increment
func NewDetailLocator(config *types.Config, logger types.Logger, pacer utils.Pacer, predicates []string) *DetailLocator {
	return &DetailLocator{
		Predicates: predicates,
		Exclusions: DefaultExclusions,
		Attempts:   config.LocatorAttempts,
		Increment:  config.LocatorScrollIncrement,
		logger:     logger,
		pacer:      pacer,
	}
}

// LocateAndActivate scrolls down the page looking for a match and clicks it.
// A miss is not an error: it returns false and the caller records a qualified pass.
func (l *DetailLocator) LocateAndActivate(ctx context.Context, s types.Session) bool {
	var total float64
	if err := s.Evaluate(ctx, scriptDocumentHeight, &total); err != nil {
		l.logger.Warnf("Could not read document height: %v", err)
	}
	totalHeight := int(total)

	position := 0
	for attempt := 0; attempt < l.Attempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if totalHeight > 0 && position >= totalHeight {
			break
		}

		match, err := l.find(ctx, s)
		if err != nil {
			l.logger.Debugf("Detail search attempt %d failed: %v", attempt+1, err)
		}
		if match != nil {
			l.logger.Infof("Found details element <%s> %q using predicate %d", match.Tag, truncate(match.Text, 60), match.Predicate)
			return l.activate(ctx, s, match)
		}

		position += l.Increment
		target := position
		if totalHeight > 0 && target > totalHeight {
			target = totalHeight
		}
		if err := s.Evaluate(ctx, fmt.Sprintf("window.scrollTo(0, %d)", target), nil); err != nil {
			l.logger.Debugf("Scroll to %d failed: %v", target, err)
		}
		if err := l.pacer.Pause(ctx, 1500*time.Millisecond, 2500*time.Millisecond); err != nil {
			return false
		}
	}

	l.logger.Warnf("Product details section not found after %d attempts", l.Attempts)
	return false
}

func (l *DetailLocator) find(ctx context.Context, s types.Session) (*Candidate, error) {
	predicates, err := json.Marshal(l.Predicates)
	if err != nil {
		return nil, err
	}
	var candidates []Candidate
	if err := s.Evaluate(ctx, fmt.Sprintf(candidateScript, predicates, candidateAttr), &candidates); err != nil {
		return nil, err
	}
	return l.Select(candidates), nil
}

// Select returns the first acceptable candidate in predicate order
func (l *DetailLocator) Select(candidates []Candidate) *Candidate {
	for p := range l.Predicates {
		for i := range candidates {
			c := &candidates[i]
			if c.Predicate != p || !c.Visible {
				continue
			}
			if l.excluded(c.Text) {
				continue
			}
			if l.Accept != nil && !l.Accept(*c) {
				continue
			}
			return c
		}
	}
	return nil
}

func (l *DetailLocator) excluded(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range l.Exclusions {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func (l *DetailLocator) activate(ctx context.Context, s types.Session, c *Candidate) bool {
	selector := fmt.Sprintf(`document.querySelector('[%s="%s"]')`, candidateAttr, c.ID)

	var ok bool
	scroll := fmt.Sprintf(`(function(el) { if (!el) return false; el.scrollIntoView({behavior: 'auto', block: 'center', inline: 'center'}); return true; })(%s)`, selector)
	if err := s.Evaluate(ctx, scroll, &ok); err != nil || !ok {
		l.logger.Warnf("Details element disappeared before activation: %v", err)
		return false
	}
	if err := l.pacer.Pause(ctx, 1500*time.Millisecond, 1500*time.Millisecond); err != nil {
		return false
	}

	// Script-level click is not intercepted by overlays
	click := fmt.Sprintf(`(function(el) { if (!el) return false; el.click(); return true; })(%s)`, selector)
	if err := s.Evaluate(ctx, click, &ok); err != nil || !ok {
		l.logger.Warnf("Could not click details element: %v", err)
		return false
	}
	l.logger.Infof("Clicked details element")

	if err := l.pacer.Pause(ctx, 3*time.Second, 4*time.Second); err != nil {
		return false
	}
	return true
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
