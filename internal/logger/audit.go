package logger

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/gzhole/hardenedsuite/internal/redact"
)

const defaultMaxLogBytes = 10 * 1024 * 1024

// AuditEvent is one simulated attack as recorded in the JSONL trail.
type AuditEvent struct {
	Timestamp      string            `json:"timestamp"`
	ID             string            `json:"id"`
	Attack         string            `json:"attack"`
	URL            string            `json:"url"`
	Payload        string            `json:"payload"`
	Headers        map[string]string `json:"headers,omitempty"`
	ExpectedStatus int               `json:"expected_status"`
	StatusCode     int               `json:"status_code,omitempty"`
	Verdict        string            `json:"verdict"`
	Message        string            `json:"message,omitempty"`
	Response       any               `json:"response,omitempty"`
	Error          string            `json:"error,omitempty"`
}

// AuditLogger appends AuditEvents to a file, one JSON object per line.
// Once the file reaches maxBytes it is moved to <path>.1 and a fresh file
// is started.
type AuditLogger struct {
	path     string
	maxBytes int64
	file     *os.File
	size     int64
	mu       sync.Mutex
}

func NewAudit(path string) (*AuditLogger, error) {
	l := &AuditLogger{path: path, maxBytes: defaultMaxLogBytes}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *AuditLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrapf(err, "failed to open audit log %s", l.path)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return errors.Wrapf(err, "failed to stat audit log %s", l.path)
	}
	l.file = file
	l.size = info.Size()
	return nil
}

// rotate leaves the logger closed when any step fails.
func (l *AuditLogger) rotate() error {
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return errors.Wrap(err, "failed to close audit log for rotation")
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return errors.Wrap(err, "failed to rotate audit log")
	}
	return l.open()
}

// Log writes event with payloads, headers, messages and the target's
// response redacted.
func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return errors.New("audit log is closed")
	}

	event.URL = redact.Redact(event.URL)
	event.Payload = redact.Redact(event.Payload)
	event.Headers = redact.Headers(event.Headers)
	event.Message = redact.Redact(event.Message)
	event.Response = redact.Value(event.Response)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if l.size >= l.maxBytes {
		if err := l.rotate(); err != nil {
			return err
		}
	}

	n, err := l.file.Write(data)
	l.size += int64(n)
	return err
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
