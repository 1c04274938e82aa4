package filter

import "bytes"

// ConcatFilter controls the concat stage: it joins post-input source
// contents with a configurable separator. Without it the pipeline
// joins sources with a single newline.
type ConcatFilter struct {
	separator string
}

// NewConcat returns a concat filter with the given separator.
func NewConcat(separator string) *ConcatFilter {
	return &ConcatFilter{separator: separator}
}

// NewConcatFactory constructs the filter from registry options.
// Recognized options: "separator" (default "\n").
func NewConcatFactory(opts map[string]string) (Filter, error) {
	sep := "\n"
	if s, ok := opts["separator"]; ok {
		sep = s
	}
	return NewConcat(sep), nil
}

// Name returns the registry identifier.
func (f *ConcatFilter) Name() string { return "concat" }

// Fingerprint returns the configuration fingerprint.
func (f *ConcatFilter) Fingerprint() string {
	return fingerprintOpts("concat", map[string]string{"separator": f.separator})
}

// Concat joins the parts with the configured separator.
func (f *ConcatFilter) Concat(parts []Part) ([]byte, error) {
	var buf bytes.Buffer
	for i, part := range parts {
		if i > 0 {
			buf.WriteString(f.separator)
		}
		buf.Write(part.Content)
	}
	return buf.Bytes(), nil
}
