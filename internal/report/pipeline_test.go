package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/hardenedsuite/internal/config"
)

const passingJUnit = `<testsuites><testsuite name="pytest" tests="1" failures="0" errors="0">
<testcase classname="tests.test_security" name="test_ok"/>
</testsuite></testsuites>`

const failingJUnit = `<testsuite name="Feature" tests="2" failures="1" errors="0">
<testcase classname="ProductTest" name="test_ok"/>
<testcase classname="ProductTest" name="test_bad"><failure>nope</failure></testcase>
</testsuite>`

func zapJSON(riskCodes ...string) string {
	doc := `{"site": [{"@name": "http://nginx", "alerts": [`
	for i, code := range riskCodes {
		if i > 0 {
			doc += ","
		}
		doc += `{"alert": "alert-` + code + `", "riskcode": "` + code + `", "riskdesc": "d", "confidence": "2", "instances": [{}]}`
	}
	return doc + `]}]}`
}

type fixture struct {
	dir string
	cfg config.ReportConfig
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	return &fixture{
		dir: dir,
		cfg: config.ReportConfig{
			PytestPath:  filepath.Join(dir, "pytest-report.xml"),
			PHPUnitPath: filepath.Join(dir, "laravel-report.xml"),
			ZAPPath:     filepath.Join(dir, "zap-reports", "zap_report.json"),
			OutputPath:  filepath.Join(dir, "reports", "nested", "summary.md"),
		},
	}
}

func (f *fixture) write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (f *fixture) run(t *testing.T) (int, string) {
	t.Helper()
	var logs bytes.Buffer
	p := &Pipeline{
		Config: f.cfg,
		Log:    zerolog.New(&logs),
		Now:    func() time.Time { return frozen },
	}
	code := p.Run()
	return code, logs.String()
}

func TestPipeline_CleanRun(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.PytestPath, passingJUnit)
	f.write(t, f.cfg.ZAPPath, zapJSON("0", "1"))

	code, _ := f.run(t)
	assert.Equal(t, ExitOK, code)

	out, err := os.ReadFile(f.cfg.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "**Generated Date:** 2026-10-19 09:30:05")
	assert.Contains(t, string(out), "| `tests.test_security.test_ok` | ✅ PASS | Test Passed |")
	assert.Contains(t, string(out), "No valid Laravel PHPUnit report found or parsing failed.")
	assert.Contains(t, string(out), "| alert-1 | 🟡 d | 2 | 1 |")
}

func TestPipeline_HighRiskAlertFails(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.ZAPPath, zapJSON("3", "1"))

	code, logs := f.run(t)
	assert.Equal(t, ExitFailed, code)
	assert.Contains(t, logs, "medium/high risk alerts detected")

	// The report is still written.
	_, err := os.Stat(f.cfg.OutputPath)
	assert.NoError(t, err)
}

func TestPipeline_InformationalOnlyPasses(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.ZAPPath, zapJSON("0"))

	code, _ := f.run(t)
	assert.Equal(t, ExitOK, code)
}

func TestPipeline_TestFailuresFail(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.PytestPath, passingJUnit)
	f.write(t, f.cfg.PHPUnitPath, failingJUnit)

	code, _ := f.run(t)
	assert.Equal(t, ExitFailed, code)

	out, err := os.ReadFile(f.cfg.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "| `ProductTest.test_bad` | ❌ FAIL | nope |")
}

func TestPipeline_MissingAndMalformedInputsDegrade(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.cfg.PytestPath, "<testsuites><testsuite")
	f.write(t, f.cfg.ZAPPath, "{not json")

	code, logs := f.run(t)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, logs, "failed to parse JUnit XML report")
	assert.Contains(t, logs, "JUnit XML report not found")
	assert.Contains(t, logs, "failed to parse ZAP JSON report")

	out, err := os.ReadFile(f.cfg.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), "No valid FastAPI Pytest report found or parsing failed.")
	assert.Contains(t, string(out), "No valid ZAP JSON report found or parsing failed.")
}

func TestPipeline_WriteFailure(t *testing.T) {
	f := newFixture(t)
	// A regular file where the output directory should be.
	blocker := filepath.Join(f.dir, "reports")
	f.write(t, blocker, "not a directory")

	code, logs := f.run(t)
	assert.Equal(t, ExitFailed, code)
	assert.Contains(t, logs, "failed to write security report")
}

func TestPipeline_OutputInWorkingDirectory(t *testing.T) {
	f := newFixture(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(f.dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	f.cfg.OutputPath = "summary.md"

	code, _ := f.run(t)
	assert.Equal(t, ExitOK, code)
	_, err = os.Stat(filepath.Join(f.dir, "summary.md"))
	assert.NoError(t, err)
}
