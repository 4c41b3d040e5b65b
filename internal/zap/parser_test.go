package zap

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Report(t *testing.T) {
	scan := Load(filepath.Join("testdata", "zap_report.json"), zerolog.Nop())
	require.NotNil(t, scan)
	require.Len(t, scan.Alerts, 3)

	assert.Equal(t, Alert{
		Name:       "Content Security Policy (CSP) Header Not Set",
		RiskCode:   RiskMedium,
		RiskDesc:   "Medium (High)",
		Confidence: "3",
		Instances:  3,
	}, scan.Alerts[0])

	assert.Equal(t, RiskLow, scan.Alerts[1].RiskCode)
	assert.Equal(t, 1, scan.Alerts[1].Instances)

	// Numeric riskcode/confidence and no instances.
	assert.Equal(t, RiskInformational, scan.Alerts[2].RiskCode)
	assert.Equal(t, "2", scan.Alerts[2].Confidence)
	assert.Equal(t, 0, scan.Alerts[2].Instances)

	blocking := scan.Blocking()
	require.Len(t, blocking, 1)
	assert.Equal(t, "Content Security Policy (CSP) Header Not Set", blocking[0].Name)
}

func TestLoad_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	scan := Load(filepath.Join(t.TempDir(), "zap_report.json"), zerolog.New(&buf))
	assert.Nil(t, scan)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestLoad_MalformedFile(t *testing.T) {
	var buf bytes.Buffer
	scan := Load(filepath.Join("testdata", "malformed.json"), zerolog.New(&buf))
	assert.Nil(t, scan)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestParse_Defaults(t *testing.T) {
	scan, err := Parse(strings.NewReader(`{"site": [{"alerts": [{}]}]}`))
	require.NoError(t, err)
	require.Len(t, scan.Alerts, 1)

	assert.Equal(t, Alert{
		Name:       "Unknown",
		RiskCode:   "0",
		RiskDesc:   "Unknown",
		Confidence: "Unknown",
		Instances:  0,
	}, scan.Alerts[0])
	assert.False(t, scan.Alerts[0].Blocking())
}

func TestParse_EmptyReport(t *testing.T) {
	for _, doc := range []string{`{}`, `{"site": []}`, `{"site": [{"@name": "x"}]}`} {
		scan, err := Parse(strings.NewReader(doc))
		require.NoError(t, err, doc)
		require.NotNil(t, scan)
		assert.Empty(t, scan.Alerts)
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, doc := range []string{
		``,
		`[]`,
		`<xml/>`,
		`{"site": {"alerts": []}}`,
		`{"site": [{"alerts": [{"riskcode": true}]}]}`,
	} {
		_, err := Parse(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}

func TestAlert_Blocking(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{RiskInformational, false},
		{RiskLow, false},
		{RiskMedium, true},
		{RiskHigh, true},
		{"", false},
		{"4", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Alert{RiskCode: tt.code}.Blocking(), "risk code %q", tt.code)
	}
}
