package e2e

// Loads .env and the environment once, before any test reads config.

import (
	"github.com/gotrs-io/gmail-e2e/internal/config"
)

func init() {
	config.GetConfig()
}
