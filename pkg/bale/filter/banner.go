package filter

import "bytes"

// BannerFilter prepends a comment header to the merged output.
// Cosmetic: debug builds skip it.
type BannerFilter struct {
	text string
}

// NewBanner returns a banner filter with the given header text.
func NewBanner(text string) *BannerFilter {
	return &BannerFilter{text: text}
}

// NewBannerFactory constructs the filter from registry options.
// Recognized options: "text" (the banner body, without comment markers).
func NewBannerFactory(opts map[string]string) (Filter, error) {
	return NewBanner(opts["text"]), nil
}

// Name returns the registry identifier.
func (f *BannerFilter) Name() string { return "banner" }

// Fingerprint returns the configuration fingerprint.
func (f *BannerFilter) Fingerprint() string {
	return fingerprintOpts("banner", map[string]string{"text": f.text})
}

// Cosmetic marks the filter as skippable in debug mode.
func (f *BannerFilter) Cosmetic() bool { return true }

// Output prepends the banner comment.
func (f *BannerFilter) Output(content []byte) ([]byte, error) {
	if f.text == "" {
		return content, nil
	}
	var buf bytes.Buffer
	buf.WriteString("/* ")
	buf.WriteString(f.text)
	buf.WriteString(" */\n")
	buf.Write(content)
	return buf.Bytes(), nil
}
