package redact

import (
	"regexp"
	"strings"
)

type pattern struct {
	re   *regexp.Regexp
	repl string
}

const redactedPlaceholder = "[REDACTED]"

var sensitivePatterns = []pattern{
	// JSON bodies: {"password": "..."} and friends. Must run before the
	// key=value form so the quoted value is replaced as a whole.
	{regexp.MustCompile(`(?i)("(?:password|passwd|password_confirmation|token|access_token|refresh_token|secret|api_key)"\s*:\s*)"[^"]*"`), `$1"` + redactedPlaceholder + `"`},

	// Authorization headers
	{regexp.MustCompile(`(?i)\b(bearer|basic)\s+[A-Za-z0-9._~+/=|-]{8,}`), `$1 ` + redactedPlaceholder},

	// Laravel Sanctum plain-text tokens: "<id>|<40 chars>"
	{regexp.MustCompile(`\b\d+\|[A-Za-z0-9]{40,}\b`), redactedPlaceholder},

	// JWTs
	{regexp.MustCompile(`eyJ[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]+`), redactedPlaceholder},

	// Credentials in URLs
	{regexp.MustCompile(`(https?://)[^:/\s@]+:[^@/\s]+@`), `$1` + redactedPlaceholder + `@`},

	// Query strings and form bodies
	{regexp.MustCompile(`(?i)\b(password|passwd|pwd|secret|token|api_key|apikey)\s*[=:]\s*['"]?[^\s'"&]{4,}['"]?`), `$1=` + redactedPlaceholder},

	// Private keys
	{regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY-----`), redactedPlaceholder},
}

var sensitiveHeaders = []string{
	"Authorization",
	"Proxy-Authorization",
	"Cookie",
	"Set-Cookie",
	"X-Api-Key",
	"X-Xsrf-Token",
	"X-Csrf-Token",
}

// Redact replaces credentials and tokens in s with a placeholder.
func Redact(s string) string {
	result := s
	for _, p := range sensitivePatterns {
		result = p.re.ReplaceAllString(result, p.repl)
	}
	return result
}

// Headers returns a copy of headers with credential-bearing values masked.
func Headers(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	result := make(map[string]string, len(headers))
	for name, value := range headers {
		if isSensitiveHeader(name) {
			result[name] = redactedPlaceholder
			continue
		}
		result[name] = Redact(value)
	}
	return result
}

// Value walks decoded JSON (maps, slices, strings) and redacts every string.
// Values under token-like keys are masked regardless of their shape.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return Redact(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			if isSensitiveKey(k) {
				out[k] = redactedPlaceholder
				continue
			}
			out[k] = Value(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = Value(inner)
		}
		return out
	default:
		return v
	}
}

func isSensitiveHeader(name string) bool {
	for _, h := range sensitiveHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

func isSensitiveKey(key string) bool {
	switch strings.ToLower(key) {
	case "password", "passwd", "password_confirmation", "token", "access_token", "refresh_token", "secret", "api_key":
		return true
	}
	return false
}
