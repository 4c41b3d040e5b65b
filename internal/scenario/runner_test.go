package scenario

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/hardenedsuite/internal/attack"
	"github.com/gzhole/hardenedsuite/internal/attack/attacktest"
	"github.com/gzhole/hardenedsuite/internal/junit"
)

func newRunner(baseURL string, results *[]Result) *Runner {
	return &Runner{
		Simulator: attack.New(attack.Config{BaseURL: baseURL, Timeout: 2 * time.Second}),
		Log:       zerolog.Nop(),
		OnResult: func(r Result) {
			if results != nil {
				*results = append(*results, r)
			}
		},
	}
}

func TestRun_DefaultSuitePasses(t *testing.T) {
	target := attacktest.NewTarget(attacktest.Options{})
	defer target.Close()

	var results []Result
	suites := newRunner(target.BaseURL(), &results).Run(context.Background(), DefaultSuite())

	require.Len(t, suites.Suites, 1)
	suite := suites.Suites[0]
	assert.Equal(t, "attack-simulation", suite.Name)
	assert.Equal(t, 7, suite.Tests)
	assert.Zero(t, suite.Failures)
	assert.Zero(t, suite.Errors)
	assert.NotEmpty(t, suite.Timestamp)
	require.NotNil(t, suite.Properties)
	assert.Equal(t, target.BaseURL(), (*suite.Properties)[0].Value)

	require.Len(t, results, 7)
	for _, r := range results {
		assert.True(t, r.Passed(), r.Scenario.Name)
	}

	// The XSS attack carries the token from the earlier login.
	var sawToken bool
	for _, req := range target.Requests() {
		if req.URL.Path == "/api/comments" {
			sawToken = req.Header.Get("Authorization") == "Bearer "+attacktest.Token
		}
	}
	assert.True(t, sawToken)

	assert.Equal(t, "attack.sql_injection", suite.Testcases[0].Classname)
	assert.Equal(t, "sql_injection_defense_product_search", suite.Testcases[0].Name)
}

func TestRun_VerdictMismatch(t *testing.T) {
	target := attacktest.NewTarget(attacktest.Options{ReflectRaw: true})
	defer target.Close()

	suites := newRunner(target.BaseURL(), nil).Run(context.Background(), DefaultSuite())
	suite := suites.Suites[0]
	assert.Equal(t, 1, suite.Failures)
	assert.Zero(t, suite.Errors)

	xss := suite.Testcases[2]
	require.NotNil(t, xss.Failure)
	assert.Equal(t, TypeVerdictMismatch, xss.Failure.Type)
	assert.Equal(t, "expected verdict success, got failed", xss.Failure.Message)
	assert.Contains(t, xss.Failure.Data, "XSS defense failed")
}

func TestRun_MissingToken(t *testing.T) {
	target := attacktest.NewTarget(attacktest.Options{OmitToken: true})
	defer target.Close()

	var results []Result
	suites := newRunner(target.BaseURL(), &results).Run(context.Background(), DefaultSuite())
	suite := suites.Suites[0]

	// login_for_comments and successful_login fail; the XSS attack is never sent.
	assert.Equal(t, 2, suite.Failures)
	assert.Equal(t, 1, suite.Errors)

	xss := suite.Testcases[2]
	require.NotNil(t, xss.Error)
	assert.Equal(t, TypeMissingToken, xss.Error.Type)
	assert.ErrorIs(t, results[2].Err, ErrMissingToken)
	for _, req := range target.Requests() {
		assert.NotEqual(t, "/api/comments", req.URL.Path)
	}
}

func TestRun_TargetUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	base := dead.URL
	dead.Close()

	suite := &Suite{Name: "dead", Scenarios: []Scenario{
		{Name: "search", Attack: attack.KindSQLInjection, Payload: attack.Payload{TargetEndpoint: "/products/search"}},
		{Name: "login", Attack: attack.KindLogin, Payload: attack.Payload{TargetEndpoint: "/login", Payload: "not json"}},
	}}
	suites := newRunner(base, nil).Run(context.Background(), suite)

	tcs := suites.Suites[0].Testcases
	require.Len(t, tcs, 2)
	require.NotNil(t, tcs[0].Error)
	assert.Equal(t, TypeTargetError, tcs[0].Error.Type)
	require.NotNil(t, tcs[1].Error)
	assert.Equal(t, TypeInvalidPayload, tcs[1].Error.Type)
	assert.Equal(t, 2, suites.Errors)
}

func TestRun_Cancelled(t *testing.T) {
	target := attacktest.NewTarget(attacktest.Options{})
	defer target.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suites := newRunner(target.BaseURL(), nil).Run(ctx, DefaultSuite())
	suite := suites.Suites[0]
	assert.Equal(t, 7, suite.Skipped)
	assert.Empty(t, target.Requests())
}

func TestRun_ReportParsesBack(t *testing.T) {
	target := attacktest.NewTarget(attacktest.Options{LeakSQLErrors: true})
	defer target.Close()

	suites := newRunner(target.BaseURL(), nil).Run(context.Background(), DefaultSuite())

	var buf bytes.Buffer
	require.NoError(t, junit.Write(&buf, suites))
	summary, err := junit.Parse(&buf)
	require.NoError(t, err)

	assert.Equal(t, 7, summary.TotalTests)
	assert.Equal(t, 1, summary.TotalFailures)
	require.Len(t, summary.Records, 7)
	first := summary.Records[0]
	assert.Equal(t, "attack.sql_injection.sql_injection_defense_product_search", first.Name)
	assert.Equal(t, junit.StatusFail, first.Status)
	assert.Equal(t, TypeVerdictMismatch, first.Type)
}
