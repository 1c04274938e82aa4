// Package version computes the stable identifiers that distinguish
// one build's output from another, and substitutes them into output
// paths and URLs for cache busting.
package version

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Placeholder is the token in an output path template that the
// version is substituted into.
const Placeholder = "%(version)s"

// Version is an opaque identifier for one build's output of one
// bundle. Distinct builds with different output get distinct versions;
// no ordering is implied.
type Version string

// Versioner computes a version from a build's final output bytes.
type Versioner interface {
	// Name identifies the strategy ("hash" or "timestamp").
	Name() string

	// Determine computes the version for the given output.
	Determine(content []byte, buildTime time.Time) Version
}

// ErrUnknownVersioner indicates an unrecognized versioner name.
var ErrUnknownVersioner = errors.New("unknown versioner")

// New returns the named versioner strategy.
func New(name string) (Versioner, error) {
	switch strings.ToLower(name) {
	case "", "hash":
		return HashVersioner{}, nil
	case "timestamp":
		return TimestampVersioner{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersioner, name)
	}
}

// HashVersioner derives the version from a digest of the output
// bytes. Deterministic: byte-identical output always yields the same
// version, enabling safe long-term HTTP caching.
type HashVersioner struct{}

// Name returns "hash".
func (HashVersioner) Name() string { return "hash" }

// Determine returns the first eight hex characters of the content
// digest.
func (HashVersioner) Determine(content []byte, _ time.Time) Version {
	sum := xxhash.Sum64(content)
	return Version(fmt.Sprintf("%016x", sum)[:8])
}

// TimestampVersioner derives the version from the build wall-clock
// time. Monotonic per machine, not reproducible across machines.
type TimestampVersioner struct{}

// Name returns "timestamp".
func (TimestampVersioner) Name() string { return "timestamp" }

// Determine returns the build time as unix seconds.
func (TimestampVersioner) Determine(_ []byte, buildTime time.Time) Version {
	return Version(fmt.Sprintf("%d", buildTime.Unix()))
}

// HasPlaceholder reports whether an output template embeds the
// version placeholder.
func HasPlaceholder(output string) bool {
	return strings.Contains(output, Placeholder)
}

// Expand substitutes the version into an output path template. A
// template without a placeholder is returned unchanged; file outputs
// without a placeholder are not renamed.
func Expand(output string, v Version) string {
	return strings.ReplaceAll(output, Placeholder, string(v))
}

// URLFor produces the public URL for a built bundle. Templates with a
// placeholder get it substituted; otherwise the version is appended as
// a query parameter. Both forms give distinct URLs for distinct
// versions.
func URLFor(url string, v Version) string {
	if HasPlaceholder(url) {
		return Expand(url, v)
	}
	if v == "" {
		return url
	}
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "v=" + string(v)
}
