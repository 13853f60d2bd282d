package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gotrs-io/gmail-e2e/internal/browser"
	"github.com/gotrs-io/gmail-e2e/internal/config"
	"github.com/gotrs-io/gmail-e2e/internal/logging"
	"github.com/gotrs-io/gmail-e2e/internal/markers"
	"github.com/gotrs-io/gmail-e2e/internal/runner"
	"github.com/gotrs-io/gmail-e2e/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "gmail-e2e",
	Short: "Gmail browser smoke checks",
	Long: `gmail-e2e drives the Gmail web client through Playwright and checks
that the page loads and its basic UI is present.

Configuration comes from the environment (BASE_URL, HEADLESS, TIMEOUT,
VIDEO_ON_FAILURE, ...), an optional .env file and E2E_CONFIG_FILE.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	markersFlag    string
	cronFlag       string
	reportFlag     string
	runTimeoutFlag time.Duration

	versionOutputFlag string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the selected scenarios once",
	RunE:  runRun,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the selected scenarios on a cron schedule until interrupted",
	Example: `  gmail-e2e schedule --cron "*/15 * * * *"
  gmail-e2e schedule --cron "@every 30m" --markers smoke`,
	RunE: runSchedule,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration as YAML (password masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return printConfig(cmd.OutOrStdout(), cfg)
	},
}

var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "List the registered scenario markers",
	Run: func(cmd *cobra.Command, args []string) {
		reg := markers.Default()
		for _, m := range reg.Names() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m, reg.Description(m))
		}
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the Playwright driver and Chromium",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := browser.Install(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Playwright Chromium installed")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVersion(cmd.OutOrStdout(), versionOutputFlag)
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, scheduleCmd} {
		c.Flags().StringVar(&markersFlag, "markers", "", "Comma-separated marker filter, e.g. smoke or !search (default $E2E_MARKERS)")
	}
	runCmd.Flags().StringVar(&reportFlag, "report", "", "Write the run report as YAML to this path")
	scheduleCmd.Flags().StringVar(&cronFlag, "cron", "", "Cron schedule (five fields or @every <duration>)")
	scheduleCmd.Flags().DurationVar(&runTimeoutFlag, "run-timeout", 10*time.Minute, "Maximum duration of one scheduled run")
	_ = scheduleCmd.MarkFlagRequired("cron")
	versionCmd.Flags().StringVarP(&versionOutputFlag, "output", "o", "text", "Output format: text or yaml")

	rootCmd.AddCommand(runCmd, scheduleCmd, configCmd, markersCmd, installCmd, versionCmd)
}

// setup resolves config, logger and marker selection shared by run and schedule.
func setup() (*config.TestConfig, *logrus.Logger, markers.Selection, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, markers.Selection{}, err
	}
	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, markers.Selection{}, err
	}
	expr := markersFlag
	if expr == "" {
		expr = os.Getenv(markers.SelectionEnv)
	}
	sel, err := markers.Default().Parse(expr)
	if err != nil {
		return nil, nil, markers.Selection{}, err
	}
	return cfg, log, sel, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, sel, err := setup()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := runner.New(cfg, log, sel).RunOnce(ctx)
	if reportFlag != "" {
		if err := writeReport(reportFlag, report); err != nil {
			return err
		}
	}
	for _, res := range report.Results {
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s (%s)\n", res.Outcome, res.Scenario, res.Duration.Round(time.Millisecond))
	}
	if runErr != nil {
		return fmt.Errorf("%d scenario(s) failed: %w", report.Failed(), runErr)
	}
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, log, sel, err := setup()
	if err != nil {
		return err
	}
	task := runner.NewSuiteTask(runner.New(cfg, log, sel), cronFlag, runTimeoutFlag)
	err = runner.NewScheduler(log, task).Start(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printConfig(w io.Writer, cfg *config.TestConfig) error {
	out := struct {
		Config  config.TestConfig  `yaml:"config"`
		Context config.ContextArgs `yaml:"browser_context"`
		Launch  config.LaunchArgs  `yaml:"browser_launch"`
	}{
		Config:  cfg.Redacted(),
		Context: cfg.ContextArgs(),
		Launch:  cfg.LaunchArgs(),
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

func printVersion(w io.Writer, format string) error {
	switch format {
	case "", "text":
		_, err := fmt.Fprintf(w, "gmail-e2e %s\n", version.Full())
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(version.GetInfo()); err != nil {
			return fmt.Errorf("failed to encode version: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeReport(path string, report *runner.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
