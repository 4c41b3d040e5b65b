package junit

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	jr "github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSuites() *jr.Testsuites {
	suite := jr.Testsuite{Name: "attack-simulation"}
	suite.AddTestcase(jr.Testcase{Classname: "attack.sql_injection", Name: "product search", Time: "0.010"})
	suite.AddTestcase(jr.Testcase{
		Classname: "attack.xss",
		Name:      "comment escaping",
		Time:      "0.020",
		Failure:   &jr.Result{Message: "expected success, got failed", Type: "VerdictMismatch", Data: "raw payload reflected"},
	})

	var suites jr.Testsuites
	suites.AddSuite(suite)
	return &suites
}

func TestWrite_ReadBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleSuites()))
	assert.True(t, strings.HasPrefix(buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`))

	summary, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTests)
	assert.Equal(t, 1, summary.TotalFailures)
	require.Len(t, summary.Records, 2)
	assert.Equal(t, "attack.xss.comment escaping", summary.Records[1].Name)
	assert.Equal(t, "raw payload reflected", summary.Records[1].Details)
}

func TestWriteFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "attack-report.xml")
	require.NoError(t, WriteFile(path, sampleSuites()))

	summary := Load(path, zerolog.Nop())
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.TotalTests)
}
