// Package server exposes the attack simulator over HTTP, with a websocket
// feed of verdicts and an optional JSONL audit trail.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gzhole/hardenedsuite/internal/attack"
	"github.com/gzhole/hardenedsuite/internal/logger"
)

const maxRequestBytes = 1 << 20

// Config holds configuration for the simulator service.
type Config struct {
	// ListenAddr defaults to "127.0.0.1:0" (random port on loopback).
	ListenAddr string

	// Simulator configures outgoing attacks. Its OnVerdict hook, if any, is
	// still called after the server's own bookkeeping.
	Simulator attack.Config

	Log zerolog.Logger

	// Audit receives every attack when non-nil. The server does not close it.
	Audit *logger.AuditLogger
}

// Server is the attack simulator HTTP API.
type Server struct {
	cfg      Config
	log      zerolog.Logger
	sim      *attack.Simulator
	hub      *Hub
	server   *http.Server
	listener net.Listener
	closed   bool
	mu       sync.Mutex
}

func New(cfg Config) *Server {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:0"
	}
	s := &Server{
		cfg: cfg,
		log: cfg.Log.With().Str("component", "server").Logger(),
		hub: NewHub(cfg.Log.With().Str("component", "feed").Logger()),
	}

	simCfg := cfg.Simulator
	next := simCfg.OnVerdict
	simCfg.OnVerdict = func(o attack.Observation) {
		s.observe(o)
		if next != nil {
			next(o)
		}
	}
	s.sim = attack.New(simCfg)
	return s
}

// Handler returns the routing table. It is usable without ListenAndServe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /attack/simulate_sql_injection", s.simulate(attack.KindSQLInjection))
	mux.HandleFunc("POST /attack/simulate_xss", s.simulate(attack.KindXSS))
	mux.HandleFunc("POST /attack/simulate_broken_auth", s.simulate(attack.KindBrokenAuth))
	mux.HandleFunc("POST /attack/simulate_login", s.simulate(attack.KindLogin))
	mux.HandleFunc("GET /attack/events", s.hub.ServeWS)
	return mux
}

// ListenAddr returns the actual address the server is listening on.
// Only valid after ListenAndServe has been called.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ListenAndServe blocks until the server is shut down. A graceful shutdown
// returns nil.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.cfg.ListenAddr)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.listener = ln
	s.server = srv
	s.mu.Unlock()

	s.log.Info().
		Str("addr", "http://"+ln.Addr().String()).
		Str("target", s.sim.BaseURL()).
		Msg("attack simulator listening")

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight attacks and
// disconnects feed subscribers. A later ListenAndServe returns nil at once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "hardenedsuite attack simulator is running"})
}

func (s *Server) simulate(kind attack.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() { _ = r.Body.Close() }()

		var p attack.Payload
		if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if p.TargetEndpoint == "" {
			writeError(w, http.StatusBadRequest, "target_endpoint is required")
			return
		}

		v, err := s.sim.Simulate(r.Context(), kind, p)
		if err != nil {
			var targetErr *attack.TargetError
			switch {
			case errors.Is(err, attack.ErrInvalidPayload):
				writeError(w, http.StatusBadRequest, "Payload is not valid JSON")
			case errors.As(err, &targetErr):
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error connecting to target API: %v", targetErr.Err))
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func (s *Server) observe(o attack.Observation) {
	event := logger.AuditEvent{
		Timestamp:      o.Time.UTC().Format(time.RFC3339),
		ID:             o.ID,
		Attack:         string(o.Attack),
		URL:            o.URL,
		Payload:        o.Payload.Payload,
		Headers:        o.Payload.Headers,
		ExpectedStatus: o.Payload.ExpectedStatus,
	}

	if o.Err != nil {
		event.Verdict = "error"
		event.Error = o.Err.Error()
		s.log.Error().Err(o.Err).Str("id", o.ID).Str("attack", string(o.Attack)).Msg("attack failed")
	} else {
		event.Verdict = o.Verdict.Status
		event.StatusCode = o.Verdict.StatusCode
		event.Message = o.Verdict.Message
		event.Response = o.Verdict.Response
		s.log.Info().
			Str("id", o.ID).
			Str("attack", string(o.Attack)).
			Int("status_code", o.Verdict.StatusCode).
			Str("verdict", o.Verdict.Status).
			Msg("attack completed")
		s.hub.Broadcast("verdict", o.Verdict)
	}

	if s.cfg.Audit != nil {
		if err := s.cfg.Audit.Log(event); err != nil {
			s.log.Warn().Err(err).Msg("failed to write audit event")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
