package scenario

import (
	"context"
	"fmt"
	"time"

	jr "github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gzhole/hardenedsuite/internal/attack"
)

// Failure and error types recorded on testcases.
const (
	TypeVerdictMismatch = "VerdictMismatch"
	TypeTargetError     = "TargetError"
	TypeInvalidPayload  = "InvalidPayload"
	TypeMissingToken    = "MissingToken"
	TypeCancelled       = "Cancelled"
	TypeError           = "Error"
)

// Result is the outcome of one scenario.
type Result struct {
	Scenario Scenario
	Verdict  *attack.Verdict
	Err      error
	Duration time.Duration
}

// Passed reports whether the scenario produced its expected verdict.
func (r Result) Passed() bool {
	return r.Err == nil && r.Verdict != nil && r.Verdict.Status == r.Scenario.expected()
}

// Runner executes suites one scenario at a time.
type Runner struct {
	Simulator *attack.Simulator
	Log       zerolog.Logger
	// OnResult, when set, is called after every scenario.
	OnResult func(Result)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run executes every scenario in order and returns the JUnit report. A
// cancelled context marks the remaining scenarios as skipped.
func (r *Runner) Run(ctx context.Context, suite *Suite) *jr.Testsuites {
	now := r.Now
	if now == nil {
		now = time.Now
	}

	started := now()
	ts := jr.Testsuite{
		Name:      suite.Name,
		Timestamp: started.UTC().Format(time.RFC3339),
	}
	ts.AddProperty("target", r.Simulator.BaseURL())

	tokens := make(map[string]string)
	for _, sc := range suite.Scenarios {
		if err := ctx.Err(); err != nil {
			ts.AddTestcase(jr.Testcase{
				Classname: classname(sc),
				Name:      sc.Name,
				Time:      seconds(0),
				Skipped:   &jr.Result{Message: "run cancelled", Type: TypeCancelled},
			})
			continue
		}

		res := r.runOne(ctx, sc, tokens, now)
		if res.Verdict != nil && sc.Attack == attack.KindLogin {
			if token, ok := res.Verdict.Token(); ok {
				tokens[sc.Name] = token
			}
		}
		r.log(res)
		if r.OnResult != nil {
			r.OnResult(res)
		}
		ts.AddTestcase(testcase(res))
	}
	ts.Time = seconds(now().Sub(started))

	var suites jr.Testsuites
	suites.AddSuite(ts)
	return &suites
}

func (r *Runner) runOne(ctx context.Context, sc Scenario, tokens map[string]string, now func() time.Time) Result {
	start := now()
	res := Result{Scenario: sc}

	p := sc.Payload
	if sc.AuthFrom != "" {
		token, ok := tokens[sc.AuthFrom]
		if !ok {
			res.Err = errors.Wrapf(ErrMissingToken, "login scenario %q", sc.AuthFrom)
			res.Duration = now().Sub(start)
			return res
		}
		headers := make(map[string]string, len(p.Headers)+1)
		for k, v := range p.Headers {
			headers[k] = v
		}
		headers["Authorization"] = "Bearer " + token
		p.Headers = headers
	}

	res.Verdict, res.Err = r.Simulator.Simulate(ctx, sc.Attack, p)
	res.Duration = now().Sub(start)
	return res
}

func (r *Runner) log(res Result) {
	ev := r.Log.Info()
	if !res.Passed() {
		ev = r.Log.Warn()
	}
	ev = ev.Str("scenario", res.Scenario.Name).Str("attack", string(res.Scenario.Attack)).Dur("duration", res.Duration)
	if res.Err != nil {
		ev.Err(res.Err).Msg("scenario errored")
		return
	}
	ev.Str("verdict", res.Verdict.Status).Str("expect", res.Scenario.expected()).Msg("scenario finished")
}

func testcase(res Result) jr.Testcase {
	tc := jr.Testcase{
		Classname: classname(res.Scenario),
		Name:      res.Scenario.Name,
		Time:      seconds(res.Duration),
	}

	switch {
	case res.Err != nil:
		tc.Error = &jr.Result{Message: res.Err.Error(), Type: errorType(res.Err), Data: res.Err.Error()}
	case !res.Passed():
		tc.Failure = &jr.Result{
			Message: fmt.Sprintf("expected verdict %s, got %s", res.Scenario.expected(), res.Verdict.Status),
			Type:    TypeVerdictMismatch,
			Data:    res.Verdict.Message,
		}
	}
	return tc
}

func errorType(err error) string {
	var targetErr *attack.TargetError
	switch {
	case errors.As(err, &targetErr):
		return TypeTargetError
	case errors.Is(err, attack.ErrInvalidPayload):
		return TypeInvalidPayload
	case errors.Is(err, ErrMissingToken):
		return TypeMissingToken
	default:
		return TypeError
	}
}

func classname(sc Scenario) string {
	return "attack." + string(sc.Attack)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
