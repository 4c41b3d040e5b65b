package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/hardenedsuite/internal/attack"
)

func TestLoad_File(t *testing.T) {
	suite, err := Load(filepath.Join("testdata", "suite.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "hardened-api", suite.Name)
	assert.Equal(t, "http://nginx:80/api", suite.Target)
	require.Len(t, suite.Scenarios, 4)

	search := suite.Scenarios[0]
	assert.Equal(t, attack.KindSQLInjection, search.Attack)
	assert.Equal(t, "/products/search", search.TargetEndpoint)
	assert.Equal(t, "' OR 1=1 --", search.Payload.Payload)
	assert.Zero(t, search.ExpectedStatus)
	assert.Equal(t, attack.StatusSuccess, search.expected())

	comment := suite.Scenarios[2]
	assert.Equal(t, "login", comment.AuthFrom)
	assert.Equal(t, 201, comment.ExpectedStatus)
	assert.Equal(t, map[string]string{"X-Trace": "scenario"}, comment.Headers)

	assert.Equal(t, attack.StatusFailed, suite.Scenarios[3].expected())
}

func TestLoad_MissingFileUsesDefault(t *testing.T) {
	suite, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSuite(), suite)
}

func TestLoad_DefaultName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios:\n  - name: a\n    attack: broken_auth\n    target_endpoint: /user\n"), 0644))

	suite, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "attack-simulation", suite.Name)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		is   error
	}{
		{"malformed", "scenarios: [", nil},
		{"unknown attack", "scenarios:\n  - {name: a, attack: csrf, target_endpoint: /x}\n", ErrUnknownAttack},
		{"duplicate", "scenarios:\n  - {name: a, attack: xss, target_endpoint: /x}\n  - {name: a, attack: xss, target_endpoint: /x}\n", ErrDuplicateName},
		{"auth from later", "scenarios:\n  - {name: a, attack: xss, target_endpoint: /x, auth_from: b}\n  - {name: b, attack: login, target_endpoint: /login}\n", ErrInvalidAuthRef},
		{"auth from non-login", "scenarios:\n  - {name: a, attack: sql_injection, target_endpoint: /x}\n  - {name: b, attack: xss, target_endpoint: /x, auth_from: a}\n", ErrInvalidAuthRef},
		{"bad expect", "scenarios:\n  - {name: a, attack: xss, target_endpoint: /x, expect: maybe}\n", nil},
		{"missing endpoint", "scenarios:\n  - {name: a, attack: xss}\n", nil},
		{"missing name", "scenarios:\n  - {attack: xss, target_endpoint: /x}\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "suite.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			_, err := Load(path)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestDefaultSuite_Valid(t *testing.T) {
	suite := DefaultSuite()
	require.NoError(t, suite.Validate())
	assert.Len(t, suite.Scenarios, 7)
}
