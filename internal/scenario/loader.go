package scenario

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gzhole/hardenedsuite/internal/attack"
)

// Load reads a suite from path. A missing file yields DefaultSuite.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSuite(), nil
		}
		return nil, errors.Wrapf(err, "failed to read suite %s", path)
	}

	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, errors.Wrapf(err, "failed to parse suite %s", path)
	}
	if suite.Name == "" {
		suite.Name = "attack-simulation"
	}
	if err := suite.Validate(); err != nil {
		return nil, err
	}
	return &suite, nil
}

// Seeded test account of the hardened API.
const loginPayload = `{"email": "test@example.com", "password": "password"}`

// DefaultSuite is the baseline set of checks against the hardened API.
func DefaultSuite() *Suite {
	return &Suite{
		Name: "attack-simulation",
		Scenarios: []Scenario{
			{
				Name:    "sql_injection_defense_product_search",
				Attack:  attack.KindSQLInjection,
				Payload: attack.Payload{TargetEndpoint: "/products/search", Payload: "' OR 1=1 --", ExpectedStatus: 200},
			},
			{
				Name:    "login_for_comments",
				Attack:  attack.KindLogin,
				Payload: attack.Payload{TargetEndpoint: "/login", Payload: loginPayload, ExpectedStatus: 200},
			},
			{
				Name:     "xss_defense_comments",
				Attack:   attack.KindXSS,
				Payload:  attack.Payload{TargetEndpoint: "/comments", Payload: "<script>alert('XSSed!')</script>", ExpectedStatus: 201},
				AuthFrom: "login_for_comments",
			},
			{
				Name:    "broken_auth_invalid_token",
				Attack:  attack.KindBrokenAuth,
				Payload: attack.Payload{TargetEndpoint: "/user", Payload: "invalid.jwt.token", ExpectedStatus: 401},
			},
			{
				Name:    "broken_auth_no_token",
				Attack:  attack.KindBrokenAuth,
				Payload: attack.Payload{TargetEndpoint: "/user", ExpectedStatus: 401},
			},
			{
				Name:    "successful_login",
				Attack:  attack.KindLogin,
				Payload: attack.Payload{TargetEndpoint: "/login", Payload: loginPayload, ExpectedStatus: 200},
			},
			{
				Name:    "failed_login_invalid_credentials",
				Attack:  attack.KindLogin,
				Payload: attack.Payload{TargetEndpoint: "/login", Payload: `{"email": "test@example.com", "password": "wrong_password"}`, ExpectedStatus: 401},
				Expect:  attack.StatusFailed,
			},
		},
	}
}
