package attack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "hardenedsuite-simulator/1.0"
	maxBodyBytes     = 1 << 20
)

// Config configures a Simulator.
type Config struct {
	// BaseURL is prefixed verbatim to every target endpoint.
	BaseURL string
	// Timeout bounds each attack request. Defaults to 10s. Requests are never retried.
	Timeout   time.Duration
	UserAgent string
	// OnVerdict, when set, is called after every attack.
	OnVerdict ObserveFunc
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Observation describes one completed attack. Exactly one of Verdict and
// Err is set.
type Observation struct {
	Time    time.Time
	ID      string
	Attack  Kind
	URL     string
	Payload Payload
	Verdict *Verdict
	Err     error
}

// ObserveFunc receives every Observation.
type ObserveFunc func(Observation)

// Simulator sends one crafted request per call and judges the response.
type Simulator struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) *Simulator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Simulator{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// BaseURL returns the configured target prefix.
func (s *Simulator) BaseURL() string {
	return s.cfg.BaseURL
}

// Simulate dispatches to the attack named by kind.
func (s *Simulator) Simulate(ctx context.Context, kind Kind, p Payload) (*Verdict, error) {
	switch kind {
	case KindSQLInjection:
		return s.SQLInjection(ctx, p)
	case KindXSS:
		return s.XSS(ctx, p)
	case KindBrokenAuth:
		return s.BrokenAuth(ctx, p)
	case KindLogin:
		return s.Login(ctx, p)
	default:
		return nil, errors.Errorf("unknown attack %q", kind)
	}
}

// SQLInjection sends the payload as the "name" query parameter and fails the
// verdict when the status differs from the expected one or the body leaks a
// database error.
func (s *Simulator) SQLInjection(ctx context.Context, p Payload) (*Verdict, error) {
	at := s.newAttempt(KindSQLInjection, p)

	target, err := url.Parse(s.cfg.BaseURL + p.TargetEndpoint)
	if err != nil {
		return s.fail(at, errors.Wrap(err, "invalid target URL"))
	}
	q := target.Query()
	q.Set("name", p.Payload)
	target.RawQuery = q.Encode()
	at.url = target.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, at.url, nil)
	if err != nil {
		return s.fail(at, errors.Wrap(err, "creating request"))
	}
	resp, err := s.do(at, req)
	if err != nil {
		return s.fail(at, err)
	}

	v := at.verdict(resp.status)
	switch sig, leaked := sqlErrorLeak(resp.body); {
	case resp.status != p.expected():
		v.failed(fmt.Sprintf("unexpected status code: %d. response: %s", resp.status, resp.body), resp.body)
	case leaked:
		v.failed(fmt.Sprintf("SQL injection vulnerability detected: response contains database error (%s): %s", sig, resp.body), resp.body)
	default:
		v.succeeded("SQL injection defended", resp.body)
	}
	return s.done(at, v)
}

// XSS posts the payload as {"content": payload} and fails the verdict when a
// <script> payload is reflected unescaped.
func (s *Simulator) XSS(ctx context.Context, p Payload) (*Verdict, error) {
	at := s.newAttempt(KindXSS, p)

	body, err := json.Marshal(map[string]string{"content": p.Payload})
	if err != nil {
		return s.fail(at, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, at.url, bytes.NewReader(body))
	if err != nil {
		return s.fail(at, errors.Wrap(err, "creating request"))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.do(at, req)
	if err != nil {
		return s.fail(at, err)
	}

	v := at.verdict(resp.status)
	switch {
	case resp.status != p.expected():
		v.failed(fmt.Sprintf("unexpected status code: %d. response: %s", resp.status, resp.body), resp.body)
	case scriptReflected(p.Payload, resp.body):
		v.failed(fmt.Sprintf("XSS defense failed: raw payload reflected without escaping. response: %s", resp.body), resp.body)
	case scriptEscaped(resp.body):
		v.succeeded("XSS defended (content escaped)", resp.body)
	default:
		v.succeeded("XSS defended (raw payload not reflected or handled)", resp.body)
	}
	return s.done(at, v)
}

// BrokenAuth presents the payload as a bearer token; the target must answer
// with the expected status (typically 401).
func (s *Simulator) BrokenAuth(ctx context.Context, p Payload) (*Verdict, error) {
	at := s.newAttempt(KindBrokenAuth, p)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, at.url, nil)
	if err != nil {
		return s.fail(at, errors.Wrap(err, "creating request"))
	}
	req.Header.Set("Authorization", "Bearer "+p.Payload)
	resp, err := s.do(at, req)
	if err != nil {
		return s.fail(at, err)
	}

	v := at.verdict(resp.status)
	if resp.status == p.expected() {
		v.succeeded(fmt.Sprintf("broken auth handled: received expected status code %d", resp.status), resp.body)
	} else {
		v.failed(fmt.Sprintf("expected status code %d not received: got %d. response: %s", p.expected(), resp.status, resp.body), resp.body)
	}
	return s.done(at, v)
}

// Login posts the payload, which must be a JSON object, and expects a token
// in the JSON response.
func (s *Simulator) Login(ctx context.Context, p Payload) (*Verdict, error) {
	at := s.newAttempt(KindLogin, p)

	var creds map[string]any
	if err := json.Unmarshal([]byte(p.Payload), &creds); err != nil || creds == nil {
		return s.fail(at, ErrInvalidPayload)
	}
	body, err := json.Marshal(creds)
	if err != nil {
		return s.fail(at, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, at.url, bytes.NewReader(body))
	if err != nil {
		return s.fail(at, errors.Wrap(err, "creating request"))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.do(at, req)
	if err != nil {
		return s.fail(at, err)
	}

	v := at.verdict(resp.status)
	if resp.status != p.expected() {
		v.failed(fmt.Sprintf("login failed or unexpected status code: %d. response: %s", resp.status, resp.body), resp.body)
		return s.done(at, v)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(resp.body), &decoded); err != nil || decoded == nil {
		v.failed(fmt.Sprintf("login succeeded but response is not valid JSON: %s", resp.body), resp.body)
		return s.done(at, v)
	}
	if _, ok := decoded["token"]; !ok {
		v.failed("login succeeded but no token found in response", decoded)
		return s.done(at, v)
	}
	v.succeeded("Login successful, token obtained", decoded)
	return s.done(at, v)
}

type attempt struct {
	id      string
	kind    Kind
	url     string
	payload Payload
}

func (s *Simulator) newAttempt(kind Kind, p Payload) *attempt {
	return &attempt{
		id:      uuid.NewString(),
		kind:    kind,
		url:     s.cfg.BaseURL + p.TargetEndpoint,
		payload: p,
	}
}

func (p *attempt) verdict(status int) *Verdict {
	return &Verdict{ID: p.id, Attack: p.kind, StatusCode: status}
}

func (v *Verdict) succeeded(msg string, response any) {
	v.Status = StatusSuccess
	v.Message = msg
	v.Response = response
}

func (v *Verdict) failed(msg string, response any) {
	v.Status = StatusFailed
	v.Message = msg
	v.Response = response
}

type response struct {
	status int
	body   string
}

func (s *Simulator) do(p *attempt, req *http.Request) (*response, error) {
	// Headers the attack set itself take precedence over caller headers.
	own := req.Header.Clone()
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range p.payload.Headers {
		if own.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("X-Request-ID", p.id)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TargetError{URL: p.url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TargetError{URL: p.url, Err: errors.Wrap(err, "reading response body")}
	}
	return &response{status: resp.StatusCode, body: strings.ToValidUTF8(string(body), "�")}, nil
}

func (s *Simulator) fail(p *attempt, err error) (*Verdict, error) {
	s.observe(p, nil, err)
	return nil, err
}

func (s *Simulator) done(p *attempt, v *Verdict) (*Verdict, error) {
	s.observe(p, v, nil)
	return v, nil
}

func (s *Simulator) observe(p *attempt, v *Verdict, err error) {
	if s.cfg.OnVerdict == nil {
		return
	}
	s.cfg.OnVerdict(Observation{
		Time:    time.Now(),
		ID:      p.id,
		Attack:  p.kind,
		URL:     p.url,
		Payload: p.payload,
		Verdict: v,
		Err:     err,
	})
}
