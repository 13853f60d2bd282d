package helpers

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/gmail-e2e/internal/browser"
	"github.com/gotrs-io/gmail-e2e/internal/config"
	"github.com/gotrs-io/gmail-e2e/internal/logging"
	"github.com/gotrs-io/gmail-e2e/internal/markers"
	"github.com/gotrs-io/gmail-e2e/internal/scenarios"
)

// openSession starts the browser for Setup. Tests replace it.
var openSession = browser.Open

// BrowserHelper provides browser setup and teardown for tests
type BrowserHelper struct {
	Session *browser.Session
	Config  *config.TestConfig
	log     logrus.FieldLogger
	t       *testing.T
}

// NewBrowserHelper creates a new browser helper instance
func NewBrowserHelper(t *testing.T) *BrowserHelper {
	t.Helper()
	cfg := config.GetConfig()
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		t.Logf("logging disabled: %v", err)
		log = logging.Discard()
	}
	return &BrowserHelper{
		Config: cfg,
		log:    log.WithField("test", t.Name()),
		t:      t,
	}
}

// Setup launches the browser and opens a page
func (b *BrowserHelper) Setup() error {
	s, err := openSession(b.Config, b.log)
	if err != nil {
		return err
	}
	b.Session = s
	return nil
}

// TearDown closes the browser, keeping a screenshot and video on failure
func (b *BrowserHelper) TearDown() {
	if b.Session == nil {
		return
	}
	failed := b.t.Failed()
	if failed {
		if path, err := b.Session.CaptureFailure(b.t.Name()); err == nil {
			b.t.Logf("failure screenshot: %s", path)
		}
	}
	if err := b.Session.Close(failed); err != nil {
		b.t.Logf("teardown: %v", err)
	}
}

// RequireMarkers skips the test unless E2E_MARKERS selects one of labels.
func RequireMarkers(t *testing.T, labels ...markers.Marker) {
	t.Helper()
	sel, err := markers.Default().SelectionFromEnv()
	if err != nil {
		t.Fatalf("invalid %s: %v", markers.SelectionEnv, err)
	}
	if !sel.Matches(labels...) {
		t.Skipf("deselected by %s=%q", markers.SelectionEnv, os.Getenv(markers.SelectionEnv))
	}
}

// RunScenario runs sc in a fresh browser, failing t on the first error.
// The test is skipped when the Playwright driver cannot start.
func RunScenario(t *testing.T, sc scenarios.Scenario) {
	t.Helper()
	RequireMarkers(t, sc.Markers...)

	b := NewBrowserHelper(t)
	err := b.Setup()
	if errors.Is(err, browser.ErrDriverUnavailable) {
		t.Skipf("playwright unavailable: %v", err)
	}
	require.NoError(t, err, "Failed to setup browser")
	defer b.TearDown()

	err = sc.Run(context.Background(), b.Session, b.Config.BaseURL)
	require.NoError(t, err, sc.Name)
}
