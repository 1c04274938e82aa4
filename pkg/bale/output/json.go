package output

import (
	"bytes"
	"encoding/json"

	"github.com/balebuild/bale/pkg/bale/builder"
)

// JSONFormatter formats reports as indented JSON for machine
// consumption.
type JSONFormatter struct{}

// jsonResult mirrors builder.Result with the error rendered as a
// string, since errors do not marshal.
type jsonResult struct {
	builder.Result
	Error string `json:"error,omitempty"`
}

// Format writes the JSON build report to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *builder.Report) error {
	out := struct {
		ID       string       `json:"id"`
		Duration string       `json:"duration"`
		Results  []jsonResult `json:"results"`
	}{
		ID:       r.ID,
		Duration: r.Duration.String(),
		Results:  wrapResults(r.Results),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// FormatCheck writes the JSON staleness report to the buffer.
func (f *JSONFormatter) FormatCheck(w *bytes.Buffer, results []builder.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(wrapResults(results))
}

// wrapResults converts results into their JSON shape.
func wrapResults(results []builder.Result) []jsonResult {
	out := make([]jsonResult, len(results))
	for i, res := range results {
		out[i] = jsonResult{Result: res}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	return out
}
