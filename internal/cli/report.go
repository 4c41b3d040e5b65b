package cli

import (
	"github.com/spf13/cobra"

	"github.com/gzhole/hardenedsuite/internal/report"
)

var (
	reportPytest  string
	reportPHPUnit string
	reportZAP     string
	reportOutput  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate pytest, PHPUnit and ZAP results into a Markdown summary",
	Long: `Reads the pytest and PHPUnit JUnit XML reports and the ZAP JSON report,
writes a Markdown security summary, and exits non-zero when any test failed
or errored or the scan found a medium or high risk alert.

Missing or malformed inputs are logged and reported as absent; they do not
fail the run on their own.

Paths default to PYTEST_REPORT_PATH, PHPUNIT_REPORT_PATH, ZAP_REPORT_PATH
and OUTPUT_MARKDOWN_PATH.

Examples:
  hardenedsuite report
  hardenedsuite report --zap zap.json --output out/summary.md`,
	RunE: reportCommand,
}

func init() {
	reportCmd.Flags().StringVar(&reportPytest, "pytest", "", "Pytest JUnit XML report")
	reportCmd.Flags().StringVar(&reportPHPUnit, "phpunit", "", "PHPUnit JUnit XML report")
	reportCmd.Flags().StringVar(&reportZAP, "zap", "", "ZAP JSON report")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "Markdown output path")
	rootCmd.AddCommand(reportCmd)
}

func reportCommand(cmd *cobra.Command, args []string) error {
	rc := appCfg.Report
	override(&rc.PytestPath, reportPytest)
	override(&rc.PHPUnitPath, reportPHPUnit)
	override(&rc.ZAPPath, reportZAP)
	override(&rc.OutputPath, reportOutput)

	p := report.Pipeline{Config: rc, Log: appLog}
	if code := p.Run(); code != report.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}
