package attack

import "strings"

// sqlErrorSignatures are substrings of database errors leaked by a
// vulnerable endpoint, matched against the lower-cased body.
var sqlErrorSignatures = []string{
	"sqlstate",
	"syntax error",
	"mysql_fetch_array",
}

// sqlErrorLeak returns the first database error signature found in body.
func sqlErrorLeak(body string) (string, bool) {
	lower := strings.ToLower(body)
	for _, sig := range sqlErrorSignatures {
		if strings.Contains(lower, sig) {
			return sig, true
		}
	}
	if strings.Contains(lower, "warning") {
		for _, driver := range []string{"odbc", "mysqli"} {
			if strings.Contains(lower, driver) {
				return "warning: " + driver, true
			}
		}
	}
	return "", false
}

var jsonUnescaper = strings.NewReplacer(
	`\/`, `/`,
	`\u003c`, `<`,
	`\u003e`, `>`,
	`\u0026`, `&`,
	`\"`, `"`,
)

// scriptReflected reports whether a payload carrying a <script> tag comes
// back verbatim, either raw or inside a JSON string.
func scriptReflected(payload, body string) bool {
	if !strings.Contains(strings.ToLower(payload), "<script>") {
		return false
	}
	return strings.Contains(body, payload) || strings.Contains(jsonUnescaper.Replace(body), payload)
}

// scriptEscaped reports whether body contains an HTML-escaped script tag.
func scriptEscaped(body string) bool {
	return strings.Contains(strings.ToLower(jsonUnescaper.Replace(body)), "&lt;script&gt;")
}
