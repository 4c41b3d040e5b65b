package zap

// Risk codes as written by ZAP in the "riskcode" field.
const (
	RiskInformational = "0"
	RiskLow           = "1"
	RiskMedium        = "2"
	RiskHigh          = "3"
)

const unknown = "Unknown"

// Alert is one ZAP alert type with the number of places it fired.
type Alert struct {
	Name       string
	RiskCode   string
	RiskDesc   string
	Confidence string
	Instances  int
}

// Blocking reports whether the alert is medium or high risk.
func (a Alert) Blocking() bool {
	return a.RiskCode == RiskMedium || a.RiskCode == RiskHigh
}

// Scan is a parsed ZAP report. A Scan with no Alerts means the scan ran
// and found nothing; a nil *Scan means no usable report.
type Scan struct {
	Alerts []Alert
}

// Blocking returns the medium and high risk alerts.
func (s *Scan) Blocking() []Alert {
	var out []Alert
	for _, a := range s.Alerts {
		if a.Blocking() {
			out = append(out, a)
		}
	}
	return out
}
