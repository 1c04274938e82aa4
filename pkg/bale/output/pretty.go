package output

import (
	"bytes"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/balebuild/bale/pkg/bale/builder"
)

// PrettyFormatter formats reports with colors and styling using
// lipgloss, for terminal display.
type PrettyFormatter struct{}

// Format writes the formatted build report to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *builder.Report) error {
	w.WriteString(TitleStyle.Render("Build " + r.ID))
	w.WriteString("\n\n")

	for _, res := range r.Results {
		w.WriteString(f.formatResult(res))
		w.WriteByte('\n')
	}

	summary := fmt.Sprintf("%d built, %d fresh, %d failed in %s (%s written)",
		r.Built(), r.SkippedCount(), r.FailedCount(),
		r.Duration.Round(1e6),
		humanize.Bytes(uint64(r.TotalBytes())))
	w.WriteByte('\n')
	if r.Failed() {
		w.WriteString(ErrorStyle.Render(summary))
	} else {
		w.WriteString(SuccessStyle.Render(summary))
	}
	w.WriteByte('\n')
	return nil
}

// formatResult renders one bundle's outcome line.
func (f *PrettyFormatter) formatResult(res builder.Result) string {
	name := LabelStyle.Render(res.Bundle)
	switch {
	case res.Err != nil:
		return fmt.Sprintf("  %s %s %v", ErrorStyle.Render("FAIL"), name, res.Err)
	case res.Skipped:
		return fmt.Sprintf("  %s %s", MutedStyle.Render("fresh"), name)
	default:
		size := SizeStyle.Render(humanize.Bytes(uint64(res.Bytes)))
		line := fmt.Sprintf("  %s %s -> %s (%s)",
			SuccessStyle.Render("built"), name, res.Output, size)
		if res.Version != "" {
			line += MutedStyle.Render(" v=" + res.Version)
		}
		return line
	}
}

// FormatCheck writes the formatted staleness report to the buffer.
func (f *PrettyFormatter) FormatCheck(w *bytes.Buffer, results []builder.Result) error {
	for _, res := range results {
		name := LabelStyle.Render(res.Bundle)
		switch {
		case res.Err != nil:
			fmt.Fprintf(w, "  %s %s %v\n", ErrorStyle.Render("ERROR"), name, res.Err)
		case res.Stale:
			fmt.Fprintf(w, "  %s %s\n", WarningStyle.Render("stale"), name)
		default:
			fmt.Fprintf(w, "  %s %s\n", SuccessStyle.Render("fresh"), name)
		}
	}
	return nil
}
