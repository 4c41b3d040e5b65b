package attack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSQLErrorLeak(t *testing.T) {
	tests := []struct {
		body string
		sig  string
		leak bool
	}{
		{`[]`, "", false},
		{`SQLSTATE[42000]: Syntax error`, "sqlstate", true},
		{`You have an error in your SQL syntax; syntax error near`, "syntax error", true},
		{`mysql_fetch_array() expects parameter 1`, "mysql_fetch_array", true},
		{`Warning: odbc_exec(): SQL error`, "warning: odbc", true},
		{`Warning: mysqli_query()`, "warning: mysqli", true},
		{`warning: disk almost full`, "", false},
		{`mysqli_connect() is mentioned in the docs`, "", false},
	}

	for _, tt := range tests {
		sig, leak := sqlErrorLeak(tt.body)
		assert.Equal(t, tt.leak, leak, tt.body)
		assert.Equal(t, tt.sig, sig, tt.body)
	}
}

func TestScriptReflected(t *testing.T) {
	payload := `<script>alert("XSSed!")</script>`

	assert.True(t, scriptReflected(payload, `{"content":"`+payload+`"}`))
	assert.True(t, scriptReflected(payload, `{"content":"<script>alert(\"XSSed!\")<\/script>"}`))
	assert.True(t, scriptReflected(payload, `{"content":"<script>alert(\"XSSed!\")</script>"}`))
	assert.False(t, scriptReflected(payload, `{"content":"&lt;script&gt;alert(&quot;XSSed!&quot;)&lt;\/script&gt;"}`))
	// Payloads without a script tag are never judged reflected.
	assert.False(t, scriptReflected(`<b>bold</b>`, `<b>bold</b>`))
}

func TestScriptEscaped(t *testing.T) {
	assert.True(t, scriptEscaped(`&lt;script&gt;alert(&quot;XSSed!&quot;)&lt;/script&gt;`))
	assert.True(t, scriptEscaped(`{"c":"&lt;script&gt;"}`))
	assert.False(t, scriptEscaped(`{"message":"Comment received!"}`))
}
