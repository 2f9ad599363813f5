package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"audit-automate/internal/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no Chrome or Chromium installed")
}

func browserConfig() *types.Config {
	config := types.DefaultConfig()
	config.Headless = true
	config.WindowWidth = 1024
	config.WindowHeight = 768
	config.PageTimeout = 30 * time.Second
	return config
}

func TestBrowserClient_SessionOutlivesStartup(t *testing.T) {
	requireChrome(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Cordless Drill</title></head><body><h1>Drill</h1></body></html>`))
	}))
	defer server.Close()

	client := NewBrowserClient(browserConfig(), logrus.New())
	session, err := client.NewSession(context.Background())
	require.NoError(t, err)
	defer session.Quit()

	require.NoError(t, session.Navigate(context.Background(), server.URL))

	var title string
	require.NoError(t, session.Evaluate(context.Background(), "document.title", &title))
	assert.Equal(t, "Cordless Drill", title)

	var webdriver bool
	require.NoError(t, session.Evaluate(context.Background(), "navigator.webdriver === true", &webdriver))
	assert.False(t, webdriver)

	width, height, err := session.ContentSize(context.Background())
	require.NoError(t, err)
	assert.Positive(t, width)
	assert.Positive(t, height)

	shot, err := session.Screenshot(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, shot)

	require.NoError(t, session.Quit())
	assert.Error(t, session.Navigate(context.Background(), server.URL))
}

func TestBrowserClient_CancelledStartup(t *testing.T) {
	requireChrome(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBrowserClient(browserConfig(), logrus.New()).NewSession(ctx)

	assert.Error(t, err)
}
