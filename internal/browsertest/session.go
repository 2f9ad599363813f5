// Package browsertest provides an in-memory browser session for tests
package browsertest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"audit-automate/internal/types"
)

// FakeSession is a scriptable types.Session. Screenshots are solid gray PNGs whose
// shade encodes the scroll offset (ScrollY/10) at capture time.
type FakeSession struct {
	mu sync.Mutex

	ViewportWidth  int
	ViewportHeight int
	ScrollY        int

	// OnEvaluate answers scripts. The returned value is JSON round-tripped into res.
	OnEvaluate func(script string) (interface{}, error)

	NavigateErr    error
	ScreenshotErr  error
	ContentSizeErr error
	ClipErr        error
	ViewportErr    error

	ContentWidth  int
	ContentHeight int

	Navigated []string
	Scripts   []string
	Viewports [][2]int
	Clips     [][2]int
	Shots     int

	quits int
}

// NewFakeSession creates a fake session with the given viewport
func NewFakeSession(width, height int) *FakeSession {
	return &FakeSession{ViewportWidth: width, ViewportHeight: height}
}

var _ types.Session = (*FakeSession)(nil)

func (f *FakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Navigated = append(f.Navigated, url)
	return f.NavigateErr
}

func (f *FakeSession) Evaluate(ctx context.Context, script string, res interface{}) error {
	f.mu.Lock()
	f.Scripts = append(f.Scripts, script)
	handler := f.OnEvaluate
	f.mu.Unlock()

	if handler == nil {
		return nil
	}
	v, err := handler(script)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("fake evaluate marshal: %w", err)
	}
	return json.Unmarshal(data, res)
}

func (f *FakeSession) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScreenshotErr != nil {
		return nil, f.ScreenshotErr
	}
	f.Shots++
	return SolidPNG(f.ViewportWidth, f.ViewportHeight, Shade(f.ScrollY)), nil
}

func (f *FakeSession) ContentSize(ctx context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ContentSizeErr != nil {
		return 0, 0, f.ContentSizeErr
	}
	return f.ContentWidth, f.ContentHeight, nil
}

func (f *FakeSession) CaptureClip(ctx context.Context, width, height int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Clips = append(f.Clips, [2]int{width, height})
	if f.ClipErr != nil {
		return nil, f.ClipErr
	}
	return SolidPNG(width, height, Shade(0)), nil
}

func (f *FakeSession) SetViewport(ctx context.Context, width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Viewports = append(f.Viewports, [2]int{width, height})
	if f.ViewportErr != nil {
		return f.ViewportErr
	}
	f.ViewportWidth, f.ViewportHeight = width, height
	return nil
}

func (f *FakeSession) Quit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quits++
	return nil
}

// ScrollTo sets the scroll offset, clamped to the scrollable range of a page of totalHeight
func (f *FakeSession) ScrollTo(y, totalHeight int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	maxY := totalHeight - f.ViewportHeight
	if maxY < 0 {
		maxY = 0
	}
	if y > maxY {
		y = maxY
	}
	if y < 0 {
		y = 0
	}
	f.ScrollY = y
}

// Quits returns how many times Quit was called
func (f *FakeSession) Quits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quits
}

// ScriptCount returns how many evaluated scripts satisfy match
func (f *FakeSession) ScriptCount(match func(string) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.Scripts {
		if match(s) {
			n++
		}
	}
	return n
}

// Shade maps a scroll offset to the gray level used by fake screenshots
func Shade(scrollY int) color.Gray {
	return color.Gray{Y: uint8((scrollY / 10) % 256)}
}

// SolidPNG encodes a width x height PNG filled with c
func SolidPNG(width, height int, c color.Color) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Factory hands out fake sessions
type Factory struct {
	mu sync.Mutex

	// New builds each session; defaults to a 1280x800 fake
	New func() *FakeSession
	Err error

	Sessions []*FakeSession
}

func (f *Factory) NewSession(ctx context.Context) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var s *FakeSession
	if f.New != nil {
		s = f.New()
	} else {
		s = NewFakeSession(1280, 800)
	}
	f.Sessions = append(f.Sessions, s)
	return s, nil
}

// Created returns how many sessions were handed out
func (f *Factory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sessions)
}
