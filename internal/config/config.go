package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DefaultBaseURL       = "https://mail.google.com"
	DefaultTimeoutMillis = 30000
	DefaultSubjectPrefix = "E2E_TEST"
	DefaultPause         = 5 * time.Second
	DefaultScreenshotDir = "screenshots"
	DefaultVideoDir      = "videos/"

	// ConfigFileEnv names an optional YAML file layered under the environment.
	ConfigFileEnv = "E2E_CONFIG_FILE"

	viewportWidth  = 1920
	viewportHeight = 1080
	slowMo         = 500 * time.Millisecond
)

// envKeys maps viper keys to the environment variables that feed them.
var envKeys = map[string]string{
	"base_url":             "BASE_URL",
	"gmail_test_email":     "GMAIL_TEST_EMAIL",
	"gmail_test_password":  "GMAIL_TEST_PASSWORD",
	"test_recipient_email": "TEST_RECIPIENT_EMAIL",
	"test_subject_prefix":  "TEST_SUBJECT_PREFIX",
	"headless":             "HEADLESS",
	"timeout":              "TIMEOUT",
	"video_on_failure":     "VIDEO_ON_FAILURE",
	"pause":                "E2E_PAUSE",
	"screenshot_dir":       "E2E_SCREENSHOT_DIR",
	"metrics_file":         "E2E_METRICS_FILE",
	"log_level":            "E2E_LOG_LEVEL",
	"log_format":           "E2E_LOG_FORMAT",
}

// Credentials is the test account used by login scenarios.
type Credentials struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// TestData holds values used when composing test messages.
type TestData struct {
	RecipientEmail string `yaml:"recipient_email"`
	SubjectPrefix  string `yaml:"subject_prefix"`
}

// TestConfig holds all configuration for E2E tests
type TestConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Credentials    Credentials   `yaml:"credentials"`
	TestData       TestData      `yaml:"test_data"`
	Timeout        time.Duration `yaml:"timeout"`
	Headless       bool          `yaml:"headless"`
	VideoOnFailure bool          `yaml:"video_on_failure"`
	Pause          time.Duration `yaml:"pause"`
	ScreenshotDir  string        `yaml:"screenshot_dir"`
	MetricsFile    string        `yaml:"metrics_file,omitempty"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
}

// Size is a pixel width/height pair.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// ContextArgs are the options used to create a browser context.
// An empty RecordVideoDir means no recording.
type ContextArgs struct {
	Viewport          Size   `yaml:"viewport"`
	IgnoreHTTPSErrors bool   `yaml:"ignore_https_errors"`
	RecordVideoDir    string `yaml:"record_video_dir,omitempty"`
	RecordVideoSize   Size   `yaml:"record_video_size"`
}

// LaunchArgs are the options used to launch the browser.
type LaunchArgs struct {
	Headless bool          `yaml:"headless"`
	SlowMo   time.Duration `yaml:"slow_mo"`
	Args     []string      `yaml:"args"`
}

var (
	cached   *TestConfig
	loadOnce sync.Once
	dotEnv   sync.Once
)

// GetConfig returns the test configuration, reading the environment on first use.
func GetConfig() *TestConfig {
	loadOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			logrus.WithError(err).Error("[e2e-config] config file ignored")
		}
		cached = cfg
	})
	return cached
}

// Load reads a fresh TestConfig from .env, the optional config file and
// the process environment. The returned config is usable even when err is
// non-nil; err only reports an unreadable config file.
func Load() (*TestConfig, error) {
	dotEnv.Do(func() {
		// existing variables win; a missing .env is fine
		_ = godotenv.Load()
	})

	v := viper.New()
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("test_subject_prefix", DefaultSubjectPrefix)
	v.SetDefault("headless", "false")
	v.SetDefault("timeout", DefaultTimeoutMillis)
	v.SetDefault("video_on_failure", "false")
	v.SetDefault("pause", DefaultPause.String())
	v.SetDefault("screenshot_dir", DefaultScreenshotDir)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	// a variable set to "" is a value, not a reason to use the default
	v.AllowEmptyEnv(true)
	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}

	var fileErr error
	if path := os.Getenv(ConfigFileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			fileErr = fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &TestConfig{
		BaseURL: v.GetString("base_url"),
		Credentials: Credentials{
			Email:    v.GetString("gmail_test_email"),
			Password: v.GetString("gmail_test_password"),
		},
		TestData: TestData{
			RecipientEmail: v.GetString("test_recipient_email"),
			SubjectPrefix:  v.GetString("test_subject_prefix"),
		},
		Timeout:        time.Duration(parseMillis(v.GetString("timeout"))) * time.Millisecond,
		Headless:       isTrue(v.GetString("headless")),
		VideoOnFailure: isTrue(v.GetString("video_on_failure")),
		Pause:          parsePause(v.GetString("pause")),
		ScreenshotDir:  v.GetString("screenshot_dir"),
		MetricsFile:    v.GetString("metrics_file"),
		LogLevel:       v.GetString("log_level"),
		LogFormat:      v.GetString("log_format"),
	}
	return cfg, fileErr
}

// isTrue accepts only "true", in any case. Surrounding spaces make it false.
func isTrue(s string) bool {
	return strings.EqualFold(s, "true")
}

func parseMillis(s string) int {
	ms, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		logrus.Warnf("[e2e-config] TIMEOUT=%q is not an integer, using %d", s, DefaultTimeoutMillis)
		return DefaultTimeoutMillis
	}
	return ms
}

func parsePause(s string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d < 0 {
		logrus.Warnf("[e2e-config] E2E_PAUSE=%q is not a duration, using %s", s, DefaultPause)
		return DefaultPause
	}
	return d
}

// TimeoutMillis is the default page timeout in milliseconds.
func (c *TestConfig) TimeoutMillis() int {
	return int(c.Timeout.Milliseconds())
}

// VideoDir returns the recording directory, or "" when recording is off.
func (c *TestConfig) VideoDir() string {
	if c.VideoOnFailure {
		return DefaultVideoDir
	}
	return ""
}

// ContextArgs returns the browser context options.
func (c *TestConfig) ContextArgs() ContextArgs {
	full := Size{Width: viewportWidth, Height: viewportHeight}
	return ContextArgs{
		Viewport:          full,
		IgnoreHTTPSErrors: true,
		RecordVideoDir:    c.VideoDir(),
		RecordVideoSize:   full,
	}
}

// LaunchArgs returns the browser launch options.
func (c *TestConfig) LaunchArgs() LaunchArgs {
	return LaunchArgs{
		Headless: c.Headless,
		SlowMo:   slowMo,
		Args: []string{
			"--start-maximized",
			"--disable-blink-features=AutomationControlled",
		},
	}
}

// Redacted returns a copy safe to print.
func (c *TestConfig) Redacted() TestConfig {
	out := *c
	if out.Credentials.Password != "" {
		out.Credentials.Password = "********"
	}
	return out
}
