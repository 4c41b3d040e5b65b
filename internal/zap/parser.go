package zap

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type report struct {
	Site []site `json:"site"`
}

type site struct {
	Name   string      `json:"@name"`
	Alerts []alertJSON `json:"alerts"`
}

type alertJSON struct {
	Alert      *string           `json:"alert"`
	RiskCode   *flexString       `json:"riskcode"`
	RiskDesc   *string           `json:"riskdesc"`
	Confidence *flexString       `json:"confidence"`
	Instances  []json.RawMessage `json:"instances"`
}

// flexString accepts both "2" and 2; ZAP versions disagree on which.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// Load reads and parses the ZAP JSON report at path. Missing and malformed
// files are logged and yield nil.
func Load(path string, log zerolog.Logger) *Scan {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("ZAP JSON report not found")
			return nil
		}
		log.Error().Err(err).Str("path", path).Msg("failed to open ZAP JSON report")
		return nil
	}
	defer func() { _ = f.Close() }()

	scan, err := Parse(f)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to parse ZAP JSON report")
		return nil
	}

	log.Debug().
		Str("path", path).
		Int("alerts", len(scan.Alerts)).
		Int("blocking", len(scan.Blocking())).
		Msg("parsed ZAP JSON report")
	return scan
}

// Parse decodes a ZAP traditional JSON report, flattening site[].alerts[].
func Parse(r io.Reader) (*Scan, error) {
	var rep report
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rep); err != nil {
		return nil, errors.Wrap(err, "malformed ZAP JSON")
	}

	scan := &Scan{Alerts: []Alert{}}
	for _, s := range rep.Site {
		for _, a := range s.Alerts {
			scan.Alerts = append(scan.Alerts, toAlert(a))
		}
	}
	return scan, nil
}

func toAlert(a alertJSON) Alert {
	out := Alert{
		Name:       unknown,
		RiskCode:   RiskInformational,
		RiskDesc:   unknown,
		Confidence: unknown,
		Instances:  len(a.Instances),
	}
	if a.Alert != nil {
		out.Name = *a.Alert
	}
	if a.RiskCode != nil {
		out.RiskCode = strings.TrimSpace(string(*a.RiskCode))
	}
	if a.RiskDesc != nil {
		out.RiskDesc = *a.RiskDesc
	}
	if a.Confidence != nil {
		out.Confidence = string(*a.Confidence)
	}
	return out
}
