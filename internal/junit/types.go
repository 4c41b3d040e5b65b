package junit

// Status is the outcome of a single test case.
type Status string

const (
	StatusPass  Status = "PASS"
	StatusFail  Status = "FAIL"
	StatusError Status = "ERROR"
)

// MaxDetailsLen is the number of characters of failure text kept in
// Record.Details before the ellipsis marker is appended.
const MaxDetailsLen = 200

const ellipsis = "..."

const passedMessage = "Test Passed"

// Record is one test case as it appears in the summary.
type Record struct {
	// Name is "<classname>.<name>".
	Name    string
	Status  Status
	Type    string // failure or error type attribute, empty for PASS
	Message string
	Details string
}

// Summary is everything extracted from one JUnit document. Totals are taken
// from the suite attributes as written; they are not recomputed from Records.
type Summary struct {
	TotalTests    int
	TotalFailures int // failures + errors
	Records       []Record
}

// Failed counts records with a non-PASS status.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Records {
		if r.Status != StatusPass {
			n++
		}
	}
	return n
}
