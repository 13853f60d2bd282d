package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so the host environment
// cannot leak into a test case. t.Setenv registers the restore first.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range append(envValues(), ConfigFileEnv) {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func envValues() []string {
	out := make([]string, 0, len(envKeys))
	for _, env := range envKeys {
		out = append(out, env)
	}
	return out
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 30000, cfg.TimeoutMillis())
	assert.False(t, cfg.Headless)
	assert.False(t, cfg.VideoOnFailure)
	assert.Empty(t, cfg.Credentials.Email)
	assert.Empty(t, cfg.Credentials.Password)
	assert.Empty(t, cfg.TestData.RecipientEmail)
	assert.Equal(t, "E2E_TEST", cfg.TestData.SubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.Pause)
	assert.Equal(t, "screenshots", cfg.ScreenshotDir)
	assert.Empty(t, cfg.MetricsFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "https://mail.example.test/u/0/")
	t.Setenv("GMAIL_TEST_EMAIL", "tester@example.test")
	t.Setenv("GMAIL_TEST_PASSWORD", "hunter2")
	t.Setenv("TEST_RECIPIENT_EMAIL", "inbox@example.test")
	t.Setenv("TEST_SUBJECT_PREFIX", "NIGHTLY")
	t.Setenv("HEADLESS", "true")
	t.Setenv("TIMEOUT", "5000")
	t.Setenv("E2E_PAUSE", "0s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://mail.example.test/u/0/", cfg.BaseURL)
	assert.Equal(t, Credentials{Email: "tester@example.test", Password: "hunter2"}, cfg.Credentials)
	assert.Equal(t, TestData{RecipientEmail: "inbox@example.test", SubjectPrefix: "NIGHTLY"}, cfg.TestData)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 5000, cfg.TimeoutMillis())
	assert.Equal(t, time.Duration(0), cfg.Pause)
}

func TestBooleanFlags(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"True", true},
		{"false", false},
		{"1", false},
		{"yes", false},
		{"", false},
		{" true", false},
		{"true ", false},
	}
	for _, tc := range cases {
		t.Run("value="+tc.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("HEADLESS", tc.value)
			t.Setenv("VIDEO_ON_FAILURE", tc.value)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg.Headless)
			assert.Equal(t, tc.want, cfg.VideoOnFailure)
		})
	}
}

func TestSetButEmptyIsPassedThrough(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "")
	t.Setenv("TEST_SUBJECT_PREFIX", "")
	t.Setenv("GMAIL_TEST_EMAIL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.BaseURL)
	assert.Empty(t, cfg.TestData.SubjectPrefix)
	assert.Empty(t, cfg.Credentials.Email)
	assert.Equal(t, DefaultTimeoutMillis, cfg.TimeoutMillis())
}

func TestInvalidTimeoutFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeoutMillis, cfg.TimeoutMillis())
}

func TestContextArgs(t *testing.T) {
	t.Run("video enabled", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("VIDEO_ON_FAILURE", "true")

		cfg, err := Load()
		require.NoError(t, err)

		args := cfg.ContextArgs()
		assert.Equal(t, "videos/", args.RecordVideoDir)
		assert.Equal(t, Size{Width: 1920, Height: 1080}, args.Viewport)
		assert.Equal(t, Size{Width: 1920, Height: 1080}, args.RecordVideoSize)
		assert.True(t, args.IgnoreHTTPSErrors)
	})

	t.Run("video disabled", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("VIDEO_ON_FAILURE", "false")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.ContextArgs().RecordVideoDir)
	})

	t.Run("video unset", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.ContextArgs().RecordVideoDir)
	})
}

func TestLaunchArgs(t *testing.T) {
	cfg := &TestConfig{Headless: true}

	args := cfg.LaunchArgs()
	assert.True(t, args.Headless)
	assert.Equal(t, 500*time.Millisecond, args.SlowMo)
	assert.Equal(t, []string{
		"--start-maximized",
		"--disable-blink-features=AutomationControlled",
	}, args.Args)
}

func TestConfigFile(t *testing.T) {
	t.Run("file values sit under the environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "e2e.yaml")
		require.NoError(t, os.WriteFile(path, []byte("base_url: https://file.example.test\ntimeout: 12000\ntest_subject_prefix: FROM_FILE\n"), 0o600))
		t.Setenv(ConfigFileEnv, path)
		t.Setenv("TIMEOUT", "7000")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://file.example.test", cfg.BaseURL)
		assert.Equal(t, 7000, cfg.TimeoutMillis())
		assert.Equal(t, "FROM_FILE", cfg.TestData.SubjectPrefix)
	})

	t.Run("missing file still yields a config", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))

		cfg, err := Load()
		require.Error(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	})
}

func TestRedacted(t *testing.T) {
	cfg := &TestConfig{Credentials: Credentials{Email: "a@example.test", Password: "secret"}}

	out := cfg.Redacted()
	assert.Equal(t, "********", out.Credentials.Password)
	assert.Equal(t, "a@example.test", out.Credentials.Email)
	assert.Equal(t, "secret", cfg.Credentials.Password, "original must be untouched")

	empty := (&TestConfig{}).Redacted()
	assert.Empty(t, empty.Credentials.Password)
}
