//go:build e2e

package e2e

import (
	"testing"

	"github.com/gotrs-io/gmail-e2e/internal/scenarios"
	"github.com/gotrs-io/gmail-e2e/tests/e2e/helpers"
)

// TestGmailPageLoads verifies Gmail, or its sign-in redirect, loads.
func TestGmailPageLoads(t *testing.T) {
	helpers.RunScenario(t, scenarios.PageLoads)
}

// TestGmailPageBasicElements verifies branding renders and the viewport is sized.
func TestGmailPageBasicElements(t *testing.T) {
	helpers.RunScenario(t, scenarios.BasicElements)
}
