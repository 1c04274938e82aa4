package filter

import (
	"bytes"
	"strings"
)

// JSMinFilter is a conservative JavaScript whitespace and comment
// squeezer. It is cosmetic: debug builds skip it.
//
// It is deliberately not a full minifier; projects needing aggressive
// minification wrap their tool of choice with the extern filter.
type JSMinFilter struct{}

// NewJSMin returns the JavaScript minifier.
func NewJSMin() *JSMinFilter { return &JSMinFilter{} }

// NewJSMinFactory constructs the filter from registry options.
func NewJSMinFactory(map[string]string) (Filter, error) { return NewJSMin(), nil }

// Name returns the registry identifier.
func (f *JSMinFilter) Name() string { return "jsmin" }

// Fingerprint returns the configuration fingerprint.
func (f *JSMinFilter) Fingerprint() string { return "jsmin" }

// Cosmetic marks the filter as skippable in debug mode.
func (f *JSMinFilter) Cosmetic() bool { return true }

// Output squeezes the merged content.
func (f *JSMinFilter) Output(content []byte) ([]byte, error) {
	return minifyJS(content), nil
}

// minifyJS strips line comments, block comments, and leading/trailing
// whitespace per line. String and regex literals containing comment
// markers survive because stripping is line-based and only applies
// outside quotes.
func minifyJS(content []byte) []byte {
	var out bytes.Buffer
	inBlockComment := false
	for _, line := range strings.Split(string(content), "\n") {
		if inBlockComment {
			end := strings.Index(line, "*/")
			if end < 0 {
				continue
			}
			line = line[end+2:]
			inBlockComment = false
		}
		line = stripLineComments(line, &inBlockComment)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(line)
	}
	return out.Bytes()
}

// stripLineComments removes // and /* */ comments from a single line,
// respecting single- and double-quoted strings.
func stripLineComments(line string, inBlockComment *bool) string {
	var out strings.Builder
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			out.WriteByte(c)
			if c == '\\' && i+1 < len(line) {
				i++
				out.WriteByte(line[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			out.WriteByte(c)
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			return out.String()
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			end := strings.Index(line[i+2:], "*/")
			if end < 0 {
				*inBlockComment = true
				return out.String()
			}
			i += 2 + end + 1
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// CSSMinFilter is a whitespace-collapsing CSS minifier. Cosmetic.
type CSSMinFilter struct{}

// NewCSSMin returns the CSS minifier.
func NewCSSMin() *CSSMinFilter { return &CSSMinFilter{} }

// NewCSSMinFactory constructs the filter from registry options.
func NewCSSMinFactory(map[string]string) (Filter, error) { return NewCSSMin(), nil }

// Name returns the registry identifier.
func (f *CSSMinFilter) Name() string { return "cssmin" }

// Fingerprint returns the configuration fingerprint.
func (f *CSSMinFilter) Fingerprint() string { return "cssmin" }

// Cosmetic marks the filter as skippable in debug mode.
func (f *CSSMinFilter) Cosmetic() bool { return true }

// Output squeezes the merged content.
func (f *CSSMinFilter) Output(content []byte) ([]byte, error) {
	return minifyCSS(content), nil
}

// minifyCSS strips comments and collapses whitespace around CSS
// punctuation.
func minifyCSS(content []byte) []byte {
	s := string(content)

	// Strip /* */ comments
	var sb strings.Builder
	for {
		start := strings.Index(s, "/*")
		if start < 0 {
			sb.WriteString(s)
			break
		}
		sb.WriteString(s[:start])
		end := strings.Index(s[start+2:], "*/")
		if end < 0 {
			break
		}
		s = s[start+2+end+2:]
	}
	s = sb.String()

	// Collapse runs of whitespace to single spaces
	s = strings.Join(strings.Fields(s), " ")

	// Drop spaces around punctuation
	for _, p := range []string{"{", "}", ":", ";", ","} {
		s = strings.ReplaceAll(s, " "+p, p)
		s = strings.ReplaceAll(s, p+" ", p)
	}
	s = strings.ReplaceAll(s, ";}", "}")

	return []byte(s)
}
