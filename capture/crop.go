package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
)

// CropBottom removes the bottom fraction of the PNG at path and overwrites it in place.
// A fraction of 1/3 keeps int(height*2/3) rows.
func CropBottom(path string, fraction float64) error {
	if fraction <= 0 {
		return nil
	}
	if fraction >= 1 {
		return fmt.Errorf("invalid crop fraction %v", fraction)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode screenshot: %w", err)
	}

	bounds := img.Bounds()
	keep := int(float64(bounds.Dy()) * (1 - fraction))
	if keep <= 0 {
		return fmt.Errorf("image too small to crop (%dx%d)", bounds.Dx(), bounds.Dy())
	}

	cropped := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), keep))
	draw.Draw(cropped, cropped.Bounds(), img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return fmt.Errorf("failed to encode cropped screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write cropped screenshot: %w", err)
	}
	return nil
}
