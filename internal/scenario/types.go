// Package scenario runs a YAML-defined suite of simulated attacks and
// reports the outcome as JUnit XML.
package scenario

import (
	"github.com/pkg/errors"

	"github.com/gzhole/hardenedsuite/internal/attack"
)

var (
	ErrUnknownAttack  = errors.New("unknown attack")
	ErrDuplicateName  = errors.New("duplicate scenario name")
	ErrInvalidAuthRef = errors.New("auth_from must name an earlier login scenario")
	ErrMissingToken   = errors.New("no token available")
)

// Suite is an ordered list of scenarios run against one target.
type Suite struct {
	Name string `yaml:"name"`
	// Target overrides the simulator base URL when set.
	Target    string     `yaml:"target,omitempty"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// Scenario is one simulated attack and the verdict it must produce.
type Scenario struct {
	Name           string      `yaml:"name"`
	Attack         attack.Kind `yaml:"attack"`
	attack.Payload `yaml:",inline"`

	// AuthFrom names an earlier login scenario whose token is sent as a
	// bearer credential.
	AuthFrom string `yaml:"auth_from,omitempty"`

	// Expect is the verdict status this scenario must produce. Defaults
	// to "success".
	Expect string `yaml:"expect,omitempty"`
}

func (s Scenario) expected() string {
	if s.Expect == "" {
		return attack.StatusSuccess
	}
	return s.Expect
}

// Validate checks names, attack kinds, expectations and auth references.
func (s *Suite) Validate() error {
	seen := make(map[string]attack.Kind, len(s.Scenarios))
	for i, sc := range s.Scenarios {
		if sc.Name == "" {
			return errors.Errorf("scenario %d: name is required", i+1)
		}
		if _, dup := seen[sc.Name]; dup {
			return errors.Wrapf(ErrDuplicateName, "scenario %q", sc.Name)
		}
		if !sc.Attack.Valid() {
			return errors.Wrapf(ErrUnknownAttack, "scenario %q: %q", sc.Name, sc.Attack)
		}
		if sc.TargetEndpoint == "" {
			return errors.Errorf("scenario %q: target_endpoint is required", sc.Name)
		}
		switch sc.Expect {
		case "", attack.StatusSuccess, attack.StatusFailed:
		default:
			return errors.Errorf("scenario %q: expect must be %q or %q", sc.Name, attack.StatusSuccess, attack.StatusFailed)
		}
		if sc.AuthFrom != "" && seen[sc.AuthFrom] != attack.KindLogin {
			return errors.Wrapf(ErrInvalidAuthRef, "scenario %q: %q", sc.Name, sc.AuthFrom)
		}
		seen[sc.Name] = sc.Attack
	}
	return nil
}
