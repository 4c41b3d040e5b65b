package attack

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind names a simulated attack.
type Kind string

const (
	KindSQLInjection Kind = "sql_injection"
	KindXSS          Kind = "xss"
	KindBrokenAuth   Kind = "broken_auth"
	KindLogin        Kind = "login"
)

// Kinds lists every supported attack in a stable order.
var Kinds = []Kind{KindSQLInjection, KindXSS, KindBrokenAuth, KindLogin}

// Valid reports whether k is a supported attack.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Verdict statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Payload describes one attack against the target API.
type Payload struct {
	TargetEndpoint string            `json:"target_endpoint" yaml:"target_endpoint"`
	Payload        string            `json:"payload" yaml:"payload"`
	ExpectedStatus int               `json:"expected_status" yaml:"expected_status"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
}

// DefaultExpectedStatus is used when Payload.ExpectedStatus is zero.
const DefaultExpectedStatus = http.StatusOK

func (p Payload) expected() int {
	if p.ExpectedStatus == 0 {
		return DefaultExpectedStatus
	}
	return p.ExpectedStatus
}

// Verdict is the outcome of one simulated attack. Status "success" means the
// target defended itself (or, for login, issued a token).
type Verdict struct {
	ID         string `json:"id"`
	Attack     Kind   `json:"attack"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	// Response is the raw body, or the decoded JSON object for a
	// successful login.
	Response any `json:"response"`
}

// Succeeded reports whether the verdict status is "success".
func (v *Verdict) Succeeded() bool {
	return v.Status == StatusSuccess
}

// Token returns the token issued by a successful login, if any.
func (v *Verdict) Token() (string, bool) {
	body, ok := v.Response.(map[string]any)
	if !ok {
		return "", false
	}
	token, ok := body["token"].(string)
	return token, ok && token != ""
}

// ErrInvalidPayload is returned when a login payload is not a JSON object.
var ErrInvalidPayload = errors.New("payload is not valid JSON")

// TargetError wraps a transport failure talking to the target API.
type TargetError struct {
	URL string
	Err error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("request to target API %s failed: %v", e.URL, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }
