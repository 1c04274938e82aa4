package output

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/balebuild/bale/pkg/bale/builder"
)

// PlainFormatter formats reports as unstyled text, suitable for pipes
// and CI logs.
type PlainFormatter struct{}

// Format writes the plain-text build report to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *builder.Report) error {
	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "FAIL  %s: %v\n", res.Bundle, res.Err)
		case res.Skipped:
			fmt.Fprintf(w, "fresh %s\n", res.Bundle)
		default:
			fmt.Fprintf(w, "built %s -> %s (%s)\n",
				res.Bundle, res.Output, humanize.Bytes(uint64(res.Bytes)))
		}
	}
	fmt.Fprintf(w, "%d built, %d fresh, %d failed in %s\n",
		r.Built(), r.SkippedCount(), r.FailedCount(), r.Duration.Round(1e6))
	return nil
}

// FormatCheck writes the plain-text staleness report to the buffer.
func (f *PlainFormatter) FormatCheck(w *bytes.Buffer, results []builder.Result) error {
	for _, res := range results {
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "error %s: %v\n", res.Bundle, res.Err)
		case res.Stale:
			fmt.Fprintf(w, "stale %s\n", res.Bundle)
		default:
			fmt.Fprintf(w, "fresh %s\n", res.Bundle)
		}
	}
	return nil
}
