// Package status builds the structured JSON documents both CLIs print
// to stdout, encoded with plain encoding/json.
package status

import (
	"encoding/json"
	"io"

	"panako/internal/container"
	"panako/internal/matcher"
	"panako/internal/xerrors"
)

// GeneratorReport is printed by the generator CLI after processing one
// input file.
type GeneratorReport struct {
	Status                string              `json:"status"`
	InputFile             string              `json:"input_file"`
	OutputFile            string              `json:"output_file"`
	DurationSeconds       float64             `json:"duration_seconds"`
	NumFingerprints       int                 `json:"num_fingerprints"`
	ProcessingTimeSeconds float64             `json:"processing_time_seconds"`
	Segments              []container.Segment `json:"segments,omitempty"`
}

// MatchResult is the status-document shape of one matcher.Detection,
// carrying the per-detection fields named in §3.
type MatchResult struct {
	RefID                   string  `json:"ref_identifier"`
	QueryStartS             float64 `json:"query_start_s"`
	QueryStopS              float64 `json:"query_stop_s"`
	RefStartS               float64 `json:"ref_start_s"`
	RefStopS                float64 `json:"ref_stop_s"`
	Score                   int     `json:"score"`
	TimeFactor              float64 `json:"time_factor"`
	FrequencyFactor         float64 `json:"frequency_factor"`
	PercentSecondsWithMatch float64 `json:"percent_seconds_with_match"`
}

// MatcherReport is printed by the matcher CLI after running a query.
type MatcherReport struct {
	Status     string        `json:"status"`
	QueryPath  string        `json:"query_path"`
	Detections int           `json:"detections"`
	Results    []MatchResult `json:"results"`
}

// ErrorReport is printed by either CLI on failure, in place of its
// success report.
type ErrorReport struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

func FromDetections(ds []matcher.Detection) []MatchResult {
	results := make([]MatchResult, len(ds))
	for i, d := range ds {
		results[i] = MatchResult{
			RefID:                   d.RefID,
			QueryStartS:             d.QueryStartS,
			QueryStopS:              d.QueryStopS,
			RefStartS:               d.RefStartS,
			RefStopS:                d.RefStopS,
			Score:                   d.Score,
			TimeFactor:              d.TimeFactor,
			FrequencyFactor:         d.FrequencyFactor,
			PercentSecondsWithMatch: d.PercentSecondsWithMatch,
		}
	}
	return results
}

func WriteGenerator(w io.Writer, r GeneratorReport) error {
	r.Status = "ok"
	return json.NewEncoder(w).Encode(r)
}

func WriteMatcher(w io.Writer, r MatcherReport) error {
	r.Status = "ok"
	return json.NewEncoder(w).Encode(r)
}

// WriteError reports err as a status document. If err carries an
// xerrors.Kind, it is included so scripted callers can branch on it
// without parsing the message.
func WriteError(w io.Writer, err error) error {
	report := ErrorReport{Status: "error", Message: err.Error()}
	if kind, ok := xerrors.KindOf(err); ok {
		report.Kind = string(kind)
	}
	return json.NewEncoder(w).Encode(report)
}
