package cli

import (
	"github.com/pkg/errors"

	"github.com/gzhole/hardenedsuite/internal/approval"
)

// asker is replaced in tests.
var asker = approval.Default()

func confirmTarget(target string, attacks []string, preapproved bool) error {
	required, err := approval.Required(target, appCfg.Simulator.AllowedHosts)
	if err != nil {
		return err
	}
	if !required {
		return nil
	}
	if preapproved {
		appLog.Warn().Str("target", target).Msg("attacking host outside the allow list")
		return nil
	}

	res := asker.Ask(approval.Prompt{
		Target:  target,
		Attacks: attacks,
		Reason:  "target host is not listed in SIMULATOR_ALLOWED_HOSTS",
	})
	appLog.Info().Str("target", target).Str("action", res.UserAction).Bool("approved", res.Approved).Msg("target approval")
	if !res.Approved {
		return errors.Errorf("attacks on %s not approved (%s); pass --yes to skip confirmation", target, res.UserAction)
	}
	return nil
}
