package capture

import (
	"context"
	"fmt"
	"os"
	"strings"

	"audit-automate/internal/types"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
)

const (
	scriptInnerText = `document.body ? document.body.innerText : ""`
	scriptOuterHTML = `document.documentElement ? document.documentElement.outerHTML : ""`
)

// ExtractText writes the rendered body text of the page to targetPath.
// When innerText is unavailable the serialized DOM is reduced to text instead.
func (e *Engine) ExtractText(ctx context.Context, s types.Session, targetPath string) error {
	text, err := e.innerText(ctx, s)
	if err != nil {
		e.logger.Warnf("innerText extraction failed, falling back to DOM text: %v", err)
		text, err = e.domText(ctx, s)
		if err != nil {
			return fmt.Errorf("failed to extract page text: %w", err)
		}
	}

	if err := os.WriteFile(targetPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write page text %s: %w", targetPath, err)
	}
	e.logger.Infof("Page text saved (%s): %s", humanize.Bytes(uint64(len(text))), targetPath)
	return nil
}

func (e *Engine) innerText(ctx context.Context, s types.Session) (string, error) {
	var text string
	if err := s.Evaluate(ctx, scriptInnerText, &text); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("page body has no visible text")
	}
	return text, nil
}

func (e *Engine) domText(ctx context.Context, s types.Session) (string, error) {
	var html string
	if err := s.Evaluate(ctx, scriptOuterHTML, &html); err != nil {
		return "", err
	}
	text, err := HTMLText(html)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("document has no text content")
	}
	return text, nil
}

// HTMLText returns the readable text of an HTML document, one block per line
func HTMLText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript, template, svg").Remove()
	doc.Find("p, div, li, tr, br, h1, h2, h3, h4, h5, h6, section, article, header, footer").AppendHtml("\n")

	var lines []string
	for _, line := range strings.Split(doc.Find("body").Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
