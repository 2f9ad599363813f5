package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"time"

	"audit-automate/internal/types"
)

// stitchStrategy scrolls through the page one viewport at a time and composites the tiles.
// Tiles overlap by config.StitchOverlap pixels; the last tile only contributes the rows
// left before the end of the document.
type stitchStrategy struct {
	engine *Engine
}

func (st *stitchStrategy) Name() string { return "stitched" }

func (st *stitchStrategy) Capture(ctx context.Context, s types.Session) ([]byte, error) {
	viewW, viewH, err := viewportSize(ctx, s)
	if err != nil {
		return nil, err
	}
	_, totalH, err := scrollSize(ctx, s)
	if err != nil {
		return nil, err
	}

	step := viewH - st.engine.config.StitchOverlap
	if step <= 0 {
		step = viewH
	}

	canvas := image.NewRGBA(image.Rect(0, 0, viewW, totalH))
	tiles := 0

	for offset := 0; offset < totalH; offset += step {
		if err := s.Evaluate(ctx, scrollScript(offset), nil); err != nil {
			return nil, fmt.Errorf("failed to scroll to %d: %w", offset, err)
		}
		if err := st.engine.pacer.Pause(ctx, 500*time.Millisecond, 700*time.Millisecond); err != nil {
			return nil, err
		}

		shot, err := s.Screenshot(ctx)
		if err != nil {
			return nil, err
		}
		tile, err := png.Decode(bytes.NewReader(shot))
		if err != nil {
			return nil, fmt.Errorf("failed to decode tile at %d: %w", offset, err)
		}

		// The browser cannot scroll past the last viewport, so the final tile starts
		// higher than offset and only its bottom rows are new.
		actual := offset
		if maxScroll := totalH - viewH; actual > maxScroll {
			actual = max(maxScroll, 0)
		}
		rows := min(viewH, totalH-offset)
		src := image.Pt(tile.Bounds().Min.X, tile.Bounds().Min.Y+offset-actual)
		dst := image.Rect(0, offset, viewW, offset+rows)
		draw.Draw(canvas, dst, tile, src, draw.Src)
		tiles++

		if offset+viewH >= totalH {
			break
		}
	}

	if err := s.Evaluate(ctx, scrollScript(0), nil); err != nil {
		st.engine.logger.Debugf("Failed to scroll back to top: %v", err)
	}
	st.engine.logger.Debugf("Stitched %d tiles into %dx%d", tiles, viewW, totalH)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode stitched image: %w", err)
	}
	return buf.Bytes(), nil
}
