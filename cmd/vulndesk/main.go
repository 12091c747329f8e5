// Command vulndesk generates vulnerability reports from a tracked record
// graph: an HTTP API server for interactive use and a one-shot generator
// for pipelines. Both run against a store snapshot file or, without one,
// the built-in sample dataset.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vulndesk/vulndesk/pkg/config"
	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/ui"
)

// defaultConfigFile is probed when --config is not given. It is allowed
// to be absent; an explicitly named file is not.
const defaultConfigFile = "vulndesk.yaml"

var (
	cfgPath string
	silent  bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   defaults.ToolName,
	Short: "Vulnerability report engine",
	Long: `vulndesk renders scoped vulnerability reports (product type, product,
engagement, test, endpoint, or an ad-hoc finding list) as JSON, text or
PDF, from an HTTP API or straight from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		ui.SetSilent(silent)
		ui.SetNoColor(noColor)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigFile, "configuration file")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "suppress banners and progress output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(exitCode(err))
	}
}

// cliError pins the process exit code for a failed command.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func usageErr(err error) error { return &cliError{code: defaults.ExitUserError, err: err} }
func genErr(err error) error   { return &cliError{code: defaults.ExitGenerateError, err: err} }
func ioErr(err error) error    { return &cliError{code: defaults.ExitIOError, err: err} }
func internalErr(err error) error {
	return &cliError{code: defaults.ExitInternalError, err: err}
}

// exitCode maps an Execute error to the process exit code. Errors
// without a pinned code come from flag and argument parsing.
func exitCode(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return defaults.ExitUserError
}

// loadConfig reads the configured file. The default path may be absent
// (run on defaults); a path the user named must exist.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, config.ErrNotFound) && !rootCmd.PersistentFlags().Changed("config") {
		return config.Default(), nil
	}
	return config.Config{}, usageErr(err)
}

// newLogger builds the process logger at the configured level. Logs go
// to stderr so report bodies can stream clean on stdout.
func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, usageErr(err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func configBanner(cfg config.Config) map[string]string {
	opts := map[string]string{
		"Listen":      cfg.Listen,
		"Host":        cfg.Host,
		"Team":        cfg.TeamName,
		"Reports Dir": cfg.ReportsDir,
		"Snapshot":    cfg.Snapshot,
		"Converter":   cfg.Converter.Kind,
		"Workers":     fmt.Sprintf("%d", cfg.Queue.Workers),
	}
	if cfg.Webhook.URL != "" {
		opts["Webhook"] = cfg.Webhook.URL
	}
	if cfg.Telemetry.Endpoint != "" {
		opts["Telemetry"] = cfg.Telemetry.Endpoint
	}
	return opts
}
