package cli

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gzhole/hardenedsuite/internal/config"
	"github.com/gzhole/hardenedsuite/internal/logger"
)

var (
	logLevel  string
	logFormat string
	envFile   string

	// Populated by the root PersistentPreRunE. appCfgErr records settings
	// that fell back to defaults; only simulator commands treat it as fatal.
	appCfg    *config.Config
	appCfgErr error
	appLog    = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "hardenedsuite",
	Short: "hardenedsuite - security testing harness for the hardened API",
	Long: `hardenedsuite drives security checks against the hardened API and
summarizes their results.

It simulates SQL injection, XSS, broken authentication and login attacks
against the target API, either as an HTTP service or from a YAML scenario
suite, and aggregates pytest, PHPUnit and ZAP reports into a Markdown
summary whose exit status gates the CI pipeline.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatAuto, "Log format: auto, console or json")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file loaded before reading the environment")
}

func setup(cmd *cobra.Command, args []string) error {
	lg, err := logger.New(logger.Options{Level: logLevel, Format: logFormat, Writer: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	appLog = lg

	appCfg, appCfgErr = config.Load(envFile)
	if appCfgErr != nil {
		appLog.Warn().Err(appCfgErr).Msg("configuration incomplete, using defaults for invalid settings")
	}
	return nil
}

// simulatorConfig returns the simulator settings, failing when any setting
// could not be loaded.
func simulatorConfig() (config.SimulatorConfig, error) {
	if appCfgErr != nil {
		return config.SimulatorConfig{}, appCfgErr
	}
	return appCfg.Simulator, nil
}

// ExitError carries a non-zero exit status for a command that has already
// reported its outcome.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var exit *ExitError
		if errors.As(err, &exit) {
			return exit.Code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
