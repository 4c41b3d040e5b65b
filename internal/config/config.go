package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Environment variable names.
const (
	EnvPytestReport   = "PYTEST_REPORT_PATH"
	EnvPHPUnitReport  = "PHPUNIT_REPORT_PATH"
	EnvZAPReport      = "ZAP_REPORT_PATH"
	EnvOutputMarkdown = "OUTPUT_MARKDOWN_PATH"

	EnvTargetBaseURL  = "TARGET_API_BASE_URL"
	EnvListenAddr     = "SIMULATOR_LISTEN_ADDR"
	EnvRequestTimeout = "SIMULATOR_REQUEST_TIMEOUT"
	EnvAuditLog       = "SIMULATOR_AUDIT_LOG"
	EnvSuiteFile      = "ATTACK_SUITE_PATH"
	EnvJUnitOutput    = "ATTACK_JUNIT_PATH"
	EnvAllowedHosts   = "SIMULATOR_ALLOWED_HOSTS"
)

const (
	DefaultPytestReport   = "pytest-report.xml"
	DefaultPHPUnitReport  = "laravel-report.xml"
	DefaultZAPReport      = "zap-reports/zap_report.json"
	DefaultOutputMarkdown = "reports/summary.md"

	DefaultTargetBaseURL  = "http://nginx:80/api"
	DefaultListenAddr     = "127.0.0.1:8000"
	DefaultRequestTimeout = 10 * time.Second
	DefaultSuiteFile      = "attack-suite.yaml"
	DefaultJUnitOutput    = "attack-report.xml"
)

// DefaultAllowedHosts are targets attacked without confirmation: loopback
// and the compose service fronting the API.
var DefaultAllowedHosts = []string{"localhost", "127.0.0.1", "::1", "nginx"}

type Config struct {
	Report    ReportConfig
	Simulator SimulatorConfig
}

// ReportConfig names the inputs and output of the report pipeline.
type ReportConfig struct {
	PytestPath  string
	PHPUnitPath string
	ZAPPath     string
	OutputPath  string
}

// SimulatorConfig controls the attack simulator and scenario runner.
type SimulatorConfig struct {
	// TargetBaseURL is prefixed to every target endpoint, e.g. "http://nginx:80/api".
	TargetBaseURL string
	ListenAddr    string
	// RequestTimeout bounds each attack request. Requests are never retried.
	RequestTimeout time.Duration
	// AuditLogPath enables the JSONL verdict trail when non-empty.
	AuditLogPath string
	SuitePath    string
	JUnitPath    string
	// AllowedHosts can be attacked without operator confirmation.
	AllowedHosts []string
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Report: ReportConfig{
			PytestPath:  DefaultPytestReport,
			PHPUnitPath: DefaultPHPUnitReport,
			ZAPPath:     DefaultZAPReport,
			OutputPath:  DefaultOutputMarkdown,
		},
		Simulator: SimulatorConfig{
			TargetBaseURL:  DefaultTargetBaseURL,
			ListenAddr:     DefaultListenAddr,
			RequestTimeout: DefaultRequestTimeout,
			SuitePath:      DefaultSuiteFile,
			JUnitPath:      DefaultJUnitOutput,
			AllowedHosts:   append([]string(nil), DefaultAllowedHosts...),
		},
	}
}

// Load reads the process environment, first seeding it from envFile when
// that file exists. A missing env file is not an error. The returned Config
// is always usable: settings that fail to load keep their defaults and are
// reported through the error.
func Load(envFile string) (*Config, error) {
	var envErr error
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(errors.Cause(err)) {
			envErr = errors.Wrapf(err, "failed to load env file %s", envFile)
		}
	}
	cfg, err := FromLookup(os.LookupEnv)
	if envErr != nil {
		return cfg, envErr
	}
	return cfg, err
}

// FromLookup builds a Config from defaults overridden by lookup. Invalid
// values keep their default and are reported through the error; the Config
// is never nil.
func FromLookup(lookup LookupFunc) (*Config, error) {
	cfg := Default()

	setString(lookup, EnvPytestReport, &cfg.Report.PytestPath)
	setString(lookup, EnvPHPUnitReport, &cfg.Report.PHPUnitPath)
	setString(lookup, EnvZAPReport, &cfg.Report.ZAPPath)
	setString(lookup, EnvOutputMarkdown, &cfg.Report.OutputPath)

	setString(lookup, EnvTargetBaseURL, &cfg.Simulator.TargetBaseURL)
	setString(lookup, EnvListenAddr, &cfg.Simulator.ListenAddr)
	setString(lookup, EnvAuditLog, &cfg.Simulator.AuditLogPath)
	setString(lookup, EnvSuiteFile, &cfg.Simulator.SuitePath)
	setString(lookup, EnvJUnitOutput, &cfg.Simulator.JUnitPath)

	if v, ok := lookup(EnvAllowedHosts); ok && v != "" {
		cfg.Simulator.AllowedHosts = splitList(v)
	}

	if v, ok := lookup(EnvRequestTimeout); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return cfg, errors.Wrapf(err, "invalid %s", EnvRequestTimeout)
		}
		cfg.Simulator.RequestTimeout = d
	}

	return cfg, nil
}

// EnsureDir creates path and its parents if missing. Calling it on an
// existing directory is a no-op; an empty path means the working directory.
func EnsureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0755)
	}
	return nil
}

func setString(lookup LookupFunc, key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTimeout accepts Go durations ("2500ms") and bare seconds ("10").
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0, errors.Errorf("timeout must be positive, got %q", v)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.Errorf("timeout must be positive, got %q", v)
	}
	return d, nil
}
