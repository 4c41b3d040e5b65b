package junit

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	jr "github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Load reads and parses the report at path. A missing file is logged as a
// warning and a malformed one as an error; both yield nil so the caller can
// render the section as absent.
func Load(path string, log zerolog.Logger) *Summary {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("JUnit XML report not found")
			return nil
		}
		log.Error().Err(err).Str("path", path).Msg("failed to read JUnit XML report")
		return nil
	}

	summary, err := Parse(bytes.NewReader(data))
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to parse JUnit XML report")
		return nil
	}

	log.Debug().
		Str("path", path).
		Int("tests", summary.TotalTests).
		Int("failures", summary.TotalFailures).
		Int("records", len(summary.Records)).
		Msg("parsed JUnit XML report")
	return summary
}

// Parse decodes a JUnit document whose root is either <testsuites> or a
// single <testsuite>.
func Parse(r io.Reader) (*Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read JUnit XML")
	}

	suites, err := decode(data)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Records: []Record{}}
	for _, suite := range suites {
		summary.TotalTests += suite.Tests
		summary.TotalFailures += suite.Failures + suite.Errors
		summary.Records = suite.collect(summary.Records)
	}
	return summary, nil
}

// suite mirrors jr.Testsuite but keeps nested suites, which PHPUnit emits
// one level per test class or directory.
type suite struct {
	Name      string        `xml:"name,attr"`
	Tests     int           `xml:"tests,attr"`
	Failures  int           `xml:"failures,attr"`
	Errors    int           `xml:"errors,attr"`
	Testcases []jr.Testcase `xml:"testcase"`
	Suites    []suite       `xml:"testsuite"`
}

type suitesDoc struct {
	Suites []suite `xml:"testsuite"`
}

// collect appends the records of s and every nested suite, depth first.
func (s suite) collect(records []Record) []Record {
	for _, tc := range s.Testcases {
		records = append(records, toRecord(tc))
	}
	for _, child := range s.Suites {
		records = child.collect(records)
	}
	return records
}

// decode returns the top-level suites of a <testsuites> or <testsuite> document.
func decode(data []byte) ([]suite, error) {
	root, err := rootElement(data)
	if err != nil {
		return nil, errors.Wrap(err, "malformed JUnit XML")
	}

	switch root {
	case "testsuites":
		var doc suitesDoc
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "malformed JUnit XML")
		}
		return doc.Suites, nil
	case "testsuite":
		var single suite
		if err := xml.Unmarshal(data, &single); err != nil {
			return nil, errors.Wrap(err, "malformed JUnit XML")
		}
		return []suite{single}, nil
	default:
		return nil, errors.Errorf("unexpected JUnit XML root element <%s>, want <testsuites> or <testsuite>", root)
	}
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

func toRecord(tc jr.Testcase) Record {
	rec := Record{
		Name:   qualifiedName(tc),
		Status: StatusPass,
	}

	var res *jr.Result
	switch {
	case tc.Error != nil:
		rec.Status = StatusError
		res = tc.Error
	case tc.Failure != nil:
		rec.Status = StatusFail
		res = tc.Failure
	default:
		rec.Message = passedMessage
		return rec
	}

	text := strings.TrimSpace(res.Data)
	rec.Type = res.Type
	rec.Message = res.Message
	if rec.Message == "" {
		rec.Message = text
	}
	rec.Details = Truncate(text, MaxDetailsLen)
	return rec
}

func qualifiedName(tc jr.Testcase) string {
	if tc.Classname == "" {
		return tc.Name
	}
	return tc.Classname + "." + tc.Name
}

// Truncate shortens s to max characters followed by "..." when it is
// longer than max. Shorter strings are returned unchanged.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + ellipsis
}
