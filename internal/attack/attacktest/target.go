// Package attacktest provides a fake target API for exercising the attack
// simulator without a running Laravel stack.
package attacktest

import (
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Credentials accepted by the fake /login endpoint.
const (
	Email    = "test@example.com"
	Password = "password"
	Token    = "1|Xk3bQ0eWv9aLmP2sR7tY1uZ4cN6dF8gH0jK2lM4n"
)

// Options selects how the fake target misbehaves.
type Options struct {
	// LeakSQLErrors makes /products/search answer with a raw database error.
	LeakSQLErrors bool
	// ReflectRaw makes /comments echo content without escaping.
	ReflectRaw bool
	// OmitToken makes /login succeed without returning a token.
	OmitToken bool
}

// Target is a fake of the hardened API under test, mounted under /api.
type Target struct {
	*httptest.Server
	opts Options

	mu       sync.Mutex
	requests []*http.Request
}

// NewTarget starts a fake target. Callers must Close it.
func NewTarget(opts Options) *Target {
	t := &Target{opts: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/products/search", t.search)
	mux.HandleFunc("/api/comments", t.comments)
	mux.HandleFunc("/api/user", t.user)
	mux.HandleFunc("/api/login", t.login)
	t.Server = httptest.NewServer(t.record(mux))
	return t
}

// BaseURL is the value to use as the simulator's base URL.
func (t *Target) BaseURL() string {
	return t.URL + "/api"
}

// Requests returns clones of every request received so far.
func (t *Target) Requests() []*http.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*http.Request(nil), t.requests...)
}

func (t *Target) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.mu.Lock()
		t.requests = append(t.requests, r.Clone(r.Context()))
		t.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (t *Target) search(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if t.opts.LeakSQLErrors && strings.Contains(name, "'") {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "SQLSTATE[42000]: Syntax error or access violation: 1064 You have an error in your SQL syntax near '" + name + "'",
		})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{})
}

func (t *Target) comments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method not allowed"})
		return
	}
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Content == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The content field is required."})
		return
	}

	content := body.Content
	if !t.opts.ReflectRaw {
		content = html.EscapeString(content)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Comment received!",
		"comment": map[string]string{"author": "Test User", "content": content},
	})
}

func (t *Target) user(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": "Test User", "email": Email})
}

func (t *Target) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The email field is required."})
		return
	}
	if creds.Email != Email || creds.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	if t.opts.OmitToken {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Login successful", "token": Token})
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+Token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
