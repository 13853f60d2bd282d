// Package scenarios contains the Gmail smoke scenarios. Each scenario is a
// linear script over a browser.Session that stops at the first failed check.
package scenarios

import (
	"context"
	"fmt"

	"github.com/gotrs-io/gmail-e2e/internal/browser"
	"github.com/gotrs-io/gmail-e2e/internal/markers"
)

// Page is the subset of browser.Session a scenario drives.
type Page interface {
	Navigate(url string) error
	WaitForNetworkIdle() error
	ExpectTitle(title string) error
	ExpectVisible(selector string) error
	AnyVisible(selectors ...string) (bool, error)
	AllVisible(selectors ...string) (bool, error)
	URL() string
	ViewportWidthHeight() (int, int)
	Screenshot(name string) (string, error)
	Pause(ctx context.Context) error
}

// Scenario is a named, labelled script.
type Scenario struct {
	Name    string
	Markers []markers.Marker
	Run     func(ctx context.Context, p Page, baseURL string) error
}

const (
	signInHeading = "h1:has-text('Sign in')"
	emailInput    = "input[type='email']"
	googleLogo    = "img[alt*='Google'], img[alt*='Gmail']"
)

var _ Page = (*browser.Session)(nil)

var expectedHosts = []string{"gmail.com", "accounts.google.com"}

// PageLoads checks that Gmail (or its sign-in redirect) renders.
var PageLoads = Scenario{
	Name:    "gmail_page_loads",
	Markers: []markers.Marker{markers.Smoke},
	Run: func(ctx context.Context, p Page, baseURL string) error {
		if err := p.Navigate(baseURL); err != nil {
			return err
		}
		if err := p.ExpectTitle("Gmail"); err != nil {
			return err
		}

		visible, err := p.AnyVisible(signInHeading, emailInput)
		if err != nil {
			return err
		}
		if !visible {
			return fmt.Errorf("neither sign-in heading nor email input field is visible")
		}

		if url := p.URL(); !browser.ContainsAny(url, expectedHosts...) {
			return fmt.Errorf("expected URL to contain 'gmail.com' or 'accounts.google.com', got: %s", url)
		}

		if _, err := p.Screenshot("gmail_page_loads"); err != nil {
			return err
		}
		return p.Pause(ctx)
	},
}

// BasicElements checks branding and a non-empty viewport once the page settles.
var BasicElements = Scenario{
	Name:    "gmail_page_basic_elements",
	Markers: []markers.Marker{markers.Smoke},
	Run: func(ctx context.Context, p Page, baseURL string) error {
		if err := p.Navigate(baseURL); err != nil {
			return err
		}
		if err := p.WaitForNetworkIdle(); err != nil {
			return err
		}
		if err := p.ExpectVisible(googleLogo); err != nil {
			return err
		}

		w, h := p.ViewportWidthHeight()
		if w <= 0 {
			return fmt.Errorf("page width should be greater than 0, got %d", w)
		}
		if h <= 0 {
			return fmt.Errorf("page height should be greater than 0, got %d", h)
		}
		return p.Pause(ctx)
	},
}

// All lists every scenario in execution order.
func All() []Scenario {
	return []Scenario{PageLoads, BasicElements}
}

// Select filters All by a marker selection.
func Select(sel markers.Selection) []Scenario {
	var out []Scenario
	for _, sc := range All() {
		if sel.Matches(sc.Markers...) {
			out = append(out, sc)
		}
	}
	return out
}

// ByName returns the scenario with the given name.
func ByName(name string) (Scenario, bool) {
	for _, sc := range All() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}
