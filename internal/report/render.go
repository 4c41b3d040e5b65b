package report

import (
	"fmt"
	"strings"

	"github.com/gzhole/hardenedsuite/internal/junit"
	"github.com/gzhole/hardenedsuite/internal/zap"
)

const (
	title      = "## OWASP Hardened API Suite Security Report"
	dateLayout = "2006-01-02 15:04:05"
)

type testSection struct {
	heading string
	missing string
}

var (
	pytestSection = testSection{
		heading: "### 🧪 FastAPI Pytest Security Results",
		missing: "No valid FastAPI Pytest report found or parsing failed.",
	}
	phpunitSection = testSection{
		heading: "### 🐘 Laravel PHPUnit Security Results",
		missing: "No valid Laravel PHPUnit report found or parsing failed.",
	}
)

// Render formats r as Markdown. It reads no clock or global state: the
// same Report always renders to the same bytes.
func Render(r Report) string {
	var b strings.Builder

	b.WriteString(title + "\n\n")
	fmt.Fprintf(&b, "**Generated Date:** %s\n\n", r.GeneratedAt.Format(dateLayout))
	b.WriteString("---\n\n")

	writeTests(&b, pytestSection, r.Pytest)
	writeTests(&b, phpunitSection, r.PHPUnit)
	writeAlerts(&b, r.Scan)

	return b.String()
}

func writeTests(b *strings.Builder, sec testSection, s *junit.Summary) {
	b.WriteString(sec.heading + "\n\n")
	if s == nil {
		b.WriteString(sec.missing + "\n\n")
		return
	}

	fmt.Fprintf(b, "- Total Tests: **%d**\n", s.TotalTests)
	fmt.Fprintf(b, "- Failed Tests: **%d**\n\n", s.TotalFailures)

	b.WriteString("| Test Name | Status | Message |\n")
	b.WriteString("| :------- | :----- | ------ |\n")
	for _, rec := range s.Records {
		fmt.Fprintf(b, "| `%s` | %s %s | %s |\n", cell(strings.ReplaceAll(rec.Name, "`", "'")), statusIcon(rec.Status), rec.Status, cell(rec.Message))
	}
	b.WriteString("\n")
}

func writeAlerts(b *strings.Builder, scan *zap.Scan) {
	b.WriteString("### 🛡️ ZAP Dynamic Analysis Results\n\n")
	switch {
	case scan == nil:
		b.WriteString("No valid ZAP JSON report found or parsing failed.\n\n")
	case len(scan.Alerts) == 0:
		b.WriteString("ZAP scan completed. No high-severity alerts found.\n\n")
	default:
		b.WriteString("| Alert Name | Risk Level | Confidence | Instances |\n")
		b.WriteString("| :--------- | :--------- | :--------- | :-------- |\n")
		for _, a := range scan.Alerts {
			fmt.Fprintf(b, "| %s | %s %s | %s | %d |\n", cell(a.Name), riskIcon(a.RiskCode), cell(a.RiskDesc), cell(a.Confidence), a.Instances)
		}
		b.WriteString("\nFull ZAP JSON report available in CI/CD artifacts.\n\n")
	}
}

func statusIcon(s junit.Status) string {
	if s == junit.StatusPass {
		return "✅"
	}
	return "❌"
}

func riskIcon(code string) string {
	switch code {
	case zap.RiskHigh:
		return "🔴"
	case zap.RiskMedium:
		return "🟠"
	case zap.RiskLow:
		return "🟡"
	default:
		return "⚪"
	}
}

var cellReplacer = strings.NewReplacer(
	"|", `\|`,
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// cell keeps free text on one table row.
func cell(s string) string {
	return cellReplacer.Replace(s)
}
