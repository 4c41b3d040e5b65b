package report

import (
	"os"
	"path/filepath"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gzhole/hardenedsuite/internal/config"
	"github.com/gzhole/hardenedsuite/internal/junit"
	"github.com/gzhole/hardenedsuite/internal/zap"
)

// Process exit codes returned by Pipeline.Run.
const (
	ExitOK     = 0
	ExitFailed = 1
)

// Pipeline loads the three input reports, renders the summary and writes it.
type Pipeline struct {
	Config config.ReportConfig
	Log    zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run executes the pipeline once and returns the process exit code: 1 if the
// summary could not be written or the inputs contain failures or medium/high
// risk alerts, 0 otherwise. Unreadable inputs are not failures.
func (p *Pipeline) Run() int {
	cfg := p.Config
	p.Log.Info().
		Str("pytest", cfg.PytestPath).
		Str("phpunit", cfg.PHPUnitPath).
		Str("zap", cfg.ZAPPath).
		Msg("processing reports")

	rep := p.Collect()

	if err := p.write(Render(rep)); err != nil {
		p.Log.Error().Err(err).Str("path", cfg.OutputPath).Msg("failed to write security report")
		return ExitFailed
	}
	p.Log.Info().Str("path", cfg.OutputPath).Msg("security report written")

	if rep.Failing() {
		p.Log.Error().Msg("security test failures or medium/high risk alerts detected")
		return ExitFailed
	}
	p.Log.Info().Msg("all security tests passed and no medium/high risk alerts detected")
	return ExitOK
}

// Collect parses the configured inputs into a Report stamped with Now.
func (p *Pipeline) Collect() Report {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	rep := Report{
		GeneratedAt: now(),
		Pytest:      junit.Load(p.Config.PytestPath, p.Log),
		PHPUnit:     junit.Load(p.Config.PHPUnitPath, p.Log),
		Scan:        zap.Load(p.Config.ZAPPath, p.Log),
	}

	if e := p.Log.Trace(); e.Enabled() {
		e.Msg("collected report\n" + spew.Sdump(rep))
	}
	return rep
}

func (p *Pipeline) write(markdown string) error {
	path := p.Config.OutputPath
	if err := config.EnsureDir(filepath.Dir(path)); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	return errors.Wrapf(os.WriteFile(path, []byte(markdown), 0644), "failed to write %s", path)
}
