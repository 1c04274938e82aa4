package builder

import "time"

// Result is the outcome of one bundle's build or staleness check.
type Result struct {
	// Bundle is the bundle name.
	Bundle string `json:"bundle"`

	// Output is the bundle's output template.
	Output string `json:"output,omitempty"`

	// Version is the stamped version, or the last recorded one for
	// skipped bundles.
	Version string `json:"version,omitempty"`

	// Artifacts lists the paths written.
	Artifacts []string `json:"artifacts,omitempty"`

	// Bytes is the total size written.
	Bytes int64 `json:"bytes,omitempty"`

	// Skipped marks bundles that were fresh (or unscheduled under
	// fail-fast).
	Skipped bool `json:"skipped,omitempty"`

	// Stale is the staleness verdict from a check pass.
	Stale bool `json:"stale,omitempty"`

	// Extra is the bundle's opaque payload, passed through untouched.
	Extra map[string]string `json:"extra,omitempty"`

	// Duration is how long the bundle took.
	Duration time.Duration `json:"duration,omitempty"`

	// Err is the bundle's failure, nil on success.
	Err error `json:"-"`
}

// Report aggregates one build pass over multiple bundles.
type Report struct {
	// ID uniquely identifies this run in logs and reports.
	ID string `json:"id"`

	// StartedAt is when the pass began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock time of the whole pass.
	Duration time.Duration `json:"duration"`

	// Results holds one entry per target bundle.
	Results []Result `json:"results"`
}

// Failed reports whether any bundle failed.
func (r *Report) Failed() bool {
	return r.FailedCount() > 0
}

// FailedCount returns the number of failed bundles.
func (r *Report) FailedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Built returns the number of bundles actually rebuilt.
func (r *Report) Built() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && !res.Skipped {
			n++
		}
	}
	return n
}

// SkippedCount returns the number of fresh bundles left untouched.
func (r *Report) SkippedCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil && res.Skipped {
			n++
		}
	}
	return n
}

// TotalBytes returns the total bytes written this pass.
func (r *Report) TotalBytes() int64 {
	var n int64
	for _, res := range r.Results {
		n += res.Bytes
	}
	return n
}
