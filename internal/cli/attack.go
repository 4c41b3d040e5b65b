package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gzhole/hardenedsuite/internal/attack"
	"github.com/gzhole/hardenedsuite/internal/junit"
	"github.com/gzhole/hardenedsuite/internal/scenario"
)

var (
	attackTarget  string
	attackTimeout time.Duration
	attackYes     bool

	runSuite    string
	runJUnitOut string
)

// attemptFlags holds the flags of one single-attack subcommand.
type attemptFlags struct {
	endpoint string
	payload  string
	status   int
	headers  []string
}

var attackCmd = &cobra.Command{
	Use:   "attack",
	Short: "Run simulated attacks against the target API",
}

var attackRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a YAML scenario suite and write a JUnit report",
	Long: `Runs every scenario of the suite in order and writes the outcome as JUnit
XML, which "hardenedsuite report" can aggregate. Without a suite file the
built-in baseline checks are run.

Exits 1 if any scenario did not produce its expected verdict.

Examples:
  hardenedsuite attack run
  hardenedsuite attack run --suite attack-suite.yaml --junit-out reports/attack.xml`,
	RunE: attackRunCommand,
}

func init() {
	attackCmd.PersistentFlags().StringVar(&attackTarget, "target", "", "Target API base URL (default: suite target or TARGET_API_BASE_URL)")
	attackCmd.PersistentFlags().DurationVar(&attackTimeout, "timeout", 0, "Per-request timeout (default: SIMULATOR_REQUEST_TIMEOUT or 10s)")
	attackCmd.PersistentFlags().BoolVarP(&attackYes, "yes", "y", false, "Attack hosts outside SIMULATOR_ALLOWED_HOSTS without asking")

	attackRunCmd.Flags().StringVar(&runSuite, "suite", "", "Scenario suite YAML (default: ATTACK_SUITE_PATH or attack-suite.yaml)")
	attackRunCmd.Flags().StringVar(&runJUnitOut, "junit-out", "", "JUnit XML output (default: ATTACK_JUNIT_PATH or attack-report.xml)")
	attackCmd.AddCommand(attackRunCmd)

	attackCmd.AddCommand(
		newAttemptCmd("sqli", attack.KindSQLInjection, "Send a SQL injection payload as the name query parameter", "/products/search", "' OR 1=1 --", 200),
		newAttemptCmd("xss", attack.KindXSS, "Post a script payload as {\"content\": ...}", "/comments", "<script>alert('XSSed!')</script>", 201),
		newAttemptCmd("auth", attack.KindBrokenAuth, "Present the payload as a bearer token", "/user", "invalid.jwt.token", 401),
		newAttemptCmd("login", attack.KindLogin, "Post a JSON credentials payload and expect a token", "/login", `{"email": "test@example.com", "password": "password"}`, 200),
	)
	rootCmd.AddCommand(attackCmd)
}

func newAttemptCmd(use string, kind attack.Kind, short, endpoint, payload string, status int) *cobra.Command {
	flags := &attemptFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return attemptCommand(cmd, kind, flags)
		},
	}
	cmd.Flags().StringVar(&flags.endpoint, "endpoint", endpoint, "Target endpoint, appended to the base URL")
	cmd.Flags().StringVar(&flags.payload, "payload", payload, "Attack payload")
	cmd.Flags().IntVar(&flags.status, "status", status, "Expected HTTP status")
	cmd.Flags().StringArrayVarP(&flags.headers, "header", "H", nil, `Extra request header as "Name: value" (repeatable)`)
	return cmd
}

// newSimulator resolves the target (flag, then suite, then environment)
// and confirms it before any payload is sent.
func newSimulator(suiteTarget string, attacks []string) (*attack.Simulator, error) {
	sc, err := simulatorConfig()
	if err != nil {
		return nil, err
	}
	override(&sc.TargetBaseURL, suiteTarget)
	override(&sc.TargetBaseURL, attackTarget)
	if attackTimeout > 0 {
		sc.RequestTimeout = attackTimeout
	}
	if err := confirmTarget(sc.TargetBaseURL, attacks, attackYes); err != nil {
		return nil, err
	}
	return attack.New(attack.Config{BaseURL: sc.TargetBaseURL, Timeout: sc.RequestTimeout}), nil
}

func attemptCommand(cmd *cobra.Command, kind attack.Kind, flags *attemptFlags) error {
	headers, err := parseHeaders(flags.headers)
	if err != nil {
		return err
	}

	sim, err := newSimulator("", []string{string(kind)})
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	v, err := sim.Simulate(ctx, kind, attack.Payload{
		TargetEndpoint: flags.endpoint,
		Payload:        flags.payload,
		ExpectedStatus: flags.status,
		Headers:        headers,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), v)
}

func attackRunCommand(cmd *cobra.Command, args []string) error {
	sc, err := simulatorConfig()
	if err != nil {
		return err
	}
	suitePath := sc.SuitePath
	override(&suitePath, runSuite)
	junitPath := sc.JUnitPath
	override(&junitPath, runJUnitOut)

	suite, err := scenario.Load(suitePath)
	if err != nil {
		return err
	}

	sim, err := newSimulator(suite.Target, suiteAttacks(suite))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	runner := &scenario.Runner{
		Simulator: sim,
		Log:       appLog,
		OnResult: func(r scenario.Result) {
			icon := "✅"
			if !r.Passed() {
				icon = "❌"
			}
			detail := ""
			switch {
			case r.Err != nil:
				detail = r.Err.Error()
			case r.Verdict != nil:
				detail = r.Verdict.Message
			}
			fmt.Fprintf(out, "%s %s (%s): %s\n", icon, r.Scenario.Name, r.Scenario.Attack, firstLine(detail))
		},
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	suites := runner.Run(ctx, suite)
	if err := junit.WriteFile(junitPath, suites); err != nil {
		return err
	}
	appLog.Info().Str("path", junitPath).Int("tests", suites.Tests).Msg("attack report written")

	if bad := suites.Failures + suites.Errors; bad > 0 {
		fmt.Fprintf(out, "\n%d of %d scenarios did not pass\n", bad, suites.Tests)
		return &ExitError{Code: 1}
	}
	fmt.Fprintf(out, "\nall %d scenarios passed\n", suites.Tests)
	return nil
}

func suiteAttacks(suite *scenario.Suite) []string {
	var kinds []string
	seen := map[attack.Kind]bool{}
	for _, sc := range suite.Scenarios {
		if !seen[sc.Attack] {
			seen[sc.Attack] = true
			kinds = append(kinds, string(sc.Attack))
		}
	}
	return kinds
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Errorf("invalid header %q, want \"Name: value\"", h)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
