package report

import (
	"time"

	"github.com/gzhole/hardenedsuite/internal/junit"
	"github.com/gzhole/hardenedsuite/internal/zap"
)

// Report is the input to Render. Nil fields are rendered as "not found".
type Report struct {
	GeneratedAt time.Time
	Pytest      *junit.Summary
	PHPUnit     *junit.Summary
	Scan        *zap.Scan
}

// Failing reports whether the run should fail CI: any failed or errored
// test, or any medium/high risk alert.
func (r Report) Failing() bool {
	for _, s := range []*junit.Summary{r.Pytest, r.PHPUnit} {
		if s != nil && s.TotalFailures > 0 {
			return true
		}
	}
	return r.Scan != nil && len(r.Scan.Blocking()) > 0
}
