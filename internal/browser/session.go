// Package browser wraps a single Playwright Chromium session configured
// from config.TestConfig.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"github.com/gotrs-io/gmail-e2e/internal/config"
)

// PreinstalledEnv skips the driver/browser download when set to "1".
const PreinstalledEnv = "PLAYWRIGHT_PREINSTALLED"

// ErrDriverUnavailable marks an Open failure before any browser was launched:
// the driver could not be installed or started.
var ErrDriverUnavailable = errors.New("playwright driver unavailable")

// Session owns the driver, browser, context and page for one scenario.
type Session struct {
	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page
	Config     *config.TestConfig

	expect playwright.PlaywrightAssertions
	log    logrus.FieldLogger
}

// Install downloads the Playwright driver and Chromium.
func Install() error {
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return fmt.Errorf("could not install playwright browsers: %w", err)
	}
	return nil
}

// Open starts Playwright, launches Chromium and opens a page.
func Open(cfg *config.TestConfig, log logrus.FieldLogger) (*Session, error) {
	s := &Session{Config: cfg, log: log}

	if os.Getenv(PreinstalledEnv) != "1" {
		if err := Install(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDriverUnavailable, err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		// driver may be missing or mismatched; install once more and retry
		_ = Install()
		pw, err = playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("%w: could not start playwright after retry: %w", ErrDriverUnavailable, err)
		}
	}
	s.Playwright = pw

	b, err := pw.Chromium.Launch(LaunchOptions(cfg.LaunchArgs()))
	if err != nil {
		_ = s.Close(false)
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	s.Browser = b

	bctx, err := b.NewContext(ContextOptions(cfg.ContextArgs()))
	if err != nil {
		_ = s.Close(false)
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	s.Context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		_ = s.Close(false)
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	s.Page = page

	timeout := float64(cfg.TimeoutMillis())
	page.SetDefaultTimeout(timeout)
	s.expect = playwright.NewPlaywrightAssertions(timeout)

	log.WithFields(logrus.Fields{
		"headless": cfg.Headless,
		"timeout":  cfg.Timeout,
		"video":    cfg.VideoOnFailure,
	}).Debug("browser session opened")
	return s, nil
}

// LaunchOptions converts launch args into Playwright options.
func LaunchOptions(a config.LaunchArgs) playwright.BrowserTypeLaunchOptions {
	return playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(a.Headless),
		SlowMo:   playwright.Float(float64(a.SlowMo.Milliseconds())),
		Args:     append([]string(nil), a.Args...),
	}
}

// ContextOptions converts context args into Playwright options. Video
// recording is only configured when a directory is set.
func ContextOptions(a config.ContextArgs) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  a.Viewport.Width,
			Height: a.Viewport.Height,
		},
		IgnoreHttpsErrors: playwright.Bool(a.IgnoreHTTPSErrors),
	}
	if a.RecordVideoDir != "" {
		opts.RecordVideo = &playwright.RecordVideo{
			Dir: a.RecordVideoDir,
			Size: &playwright.Size{
				Width:  a.RecordVideoSize.Width,
				Height: a.RecordVideoSize.Height,
			},
		}
	}
	return opts
}

// Navigate loads url in the page.
func (s *Session) Navigate(url string) error {
	s.log.WithField("url", url).Debug("navigate")
	if _, err := s.Page.Goto(url); err != nil {
		if strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
			return fmt.Errorf("redirect loop navigating to %s (check BASE_URL): %w", url, err)
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForNetworkIdle blocks until the page reports the networkidle load state.
func (s *Session) WaitForNetworkIdle() error {
	if err := s.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		return fmt.Errorf("page never reached networkidle: %w", err)
	}
	return nil
}

// ExpectTitle waits until the page title equals title.
func (s *Session) ExpectTitle(title string) error {
	if err := s.expect.Page(s.Page).ToHaveTitle(title); err != nil {
		return fmt.Errorf("expected title %q: %w", title, err)
	}
	return nil
}

// ExpectVisible waits until the first element matching selector is visible.
// It is deliberately non-strict: selector lists such as the logo one may
// match several elements, which Playwright's strict mode would reject.
func (s *Session) ExpectVisible(selector string) error {
	if err := s.expect.Locator(s.Page.Locator(selector).First()).ToBeVisible(); err != nil {
		return fmt.Errorf("expected %s to be visible: %w", selector, err)
	}
	return nil
}

// ViewportWidthHeight returns the page viewport, or zeros when unset.
func (s *Session) ViewportWidthHeight() (int, int) {
	if vp := s.Page.ViewportSize(); vp != nil {
		return vp.Width, vp.Height
	}
	return 0, 0
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}

// Screenshot writes <ScreenshotDir>/<name>.png and returns the path.
func (s *Session) Screenshot(name string) (string, error) {
	path := filepath.Join(s.Config.ScreenshotDir, name+".png")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	if _, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(path),
	}); err != nil {
		return "", fmt.Errorf("failed to capture screenshot %s: %w", path, err)
	}
	s.log.WithField("path", path).Info("screenshot saved")
	return path, nil
}

// CaptureFailure screenshots the page under <ScreenshotDir>/failures.
func (s *Session) CaptureFailure(name string) (string, error) {
	if s.Page == nil {
		return "", nil
	}
	return s.Screenshot(filepath.Join("failures", fmt.Sprintf("%s_%d", sanitize(name), time.Now().Unix())))
}

// Pause sleeps for the configured pause, returning early on cancellation.
func (s *Session) Pause(ctx context.Context) error {
	if s.Config.Pause <= 0 {
		return nil
	}
	s.log.Infof("pausing for %s to view results", s.Config.Pause)
	timer := time.NewTimer(s.Config.Pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases every resource in reverse order. When video recording
// is on, the recording is kept only if keepVideo is set.
func (s *Session) Close(keepVideo bool) error {
	var errs []error

	var video playwright.Video
	if s.Page != nil && s.Config.VideoOnFailure {
		video = s.Page.Video()
	}
	if s.Page != nil {
		if err := s.Page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if s.Context != nil {
		// the recording is finalised when the context closes
		if err := s.Context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
	}
	if video != nil {
		if keepVideo {
			if path, err := video.Path(); err == nil {
				s.log.WithField("path", path).Info("video kept")
			}
		} else if err := video.Delete(); err != nil {
			errs = append(errs, fmt.Errorf("delete video: %w", err))
		}
	}
	if s.Browser != nil {
		if err := s.Browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if s.Playwright != nil {
		if err := s.Playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

func sanitize(name string) string {
	return strings.NewReplacer("/", "_", " ", "_", ":", "_").Replace(name)
}
