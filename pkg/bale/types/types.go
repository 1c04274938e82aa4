// Package types provides the core data types for the bale asset pipeline.
// It defines bundles, their contents, debug-mode resolution, and the
// resolved-source records produced by flattening a bundle tree.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// DebugMode is the tri-state debug setting on a bundle.
// A bundle either forces debug on, forces it off, or inherits the
// nearest explicit setting from its ancestors (falling back to the
// environment default).
type DebugMode int

const (
	// DebugInherit defers to the enclosing bundle or the environment.
	DebugInherit DebugMode = iota
	// DebugOn forces debug mode for this bundle and its descendants.
	DebugOn
	// DebugOff forces production mode for this bundle and its descendants.
	DebugOff
)

// String returns the string representation of the debug mode.
func (d DebugMode) String() string {
	switch d {
	case DebugOn:
		return "on"
	case DebugOff:
		return "off"
	default:
		return "inherit"
	}
}

// ErrInvalidDebugMode indicates that a debug mode string could not be parsed.
var ErrInvalidDebugMode = errors.New("invalid debug mode")

// ParseDebugMode parses a string into a DebugMode.
// Valid values are "on"/"true", "off"/"false", and ""/"inherit".
func ParseDebugMode(s string) (DebugMode, error) {
	switch strings.ToLower(s) {
	case "on", "true":
		return DebugOn, nil
	case "off", "false":
		return DebugOff, nil
	case "", "inherit", "null":
		return DebugInherit, nil
	default:
		return DebugInherit, fmt.Errorf("%w: %q", ErrInvalidDebugMode, s)
	}
}

// Resolve applies debug inheritance: an explicit setting wins, an
// inherited one falls back to the parent's effective state.
func (d DebugMode) Resolve(parent bool) bool {
	switch d {
	case DebugOn:
		return true
	case DebugOff:
		return false
	default:
		return parent
	}
}

// ContentKind identifies the variant of a bundle content entry.
type ContentKind int

const (
	// ContentFile is a concrete local file path.
	ContentFile ContentKind = iota
	// ContentGlob is a glob pattern expanded at resolution time.
	ContentGlob
	// ContentURL is an external http(s) resource.
	ContentURL
	// ContentBundle is a reference to another bundle by name.
	ContentBundle
)

// String returns the string representation of the content kind.
func (k ContentKind) String() string {
	switch k {
	case ContentGlob:
		return "glob"
	case ContentURL:
		return "url"
	case ContentBundle:
		return "bundle"
	default:
		return "file"
	}
}

// Content is one entry in a bundle's ordered contents list.
// The Value is interpreted according to Kind: a path, a glob pattern,
// a URL, or the name of another bundle in the same Set.
type Content struct {
	Kind  ContentKind `json:"kind" yaml:"kind"`
	Value string      `json:"value" yaml:"value"`
}

// File returns a file content entry.
func File(path string) Content { return Content{Kind: ContentFile, Value: path} }

// Glob returns a glob content entry.
func Glob(pattern string) Content { return Content{Kind: ContentGlob, Value: pattern} }

// URL returns an external URL content entry.
func URL(url string) Content { return Content{Kind: ContentURL, Value: url} }

// BundleRef returns a nested-bundle content entry.
func BundleRef(name string) Content { return Content{Kind: ContentBundle, Value: name} }

// Classify converts a raw contents string into a Content entry.
// Strings with a http(s) scheme become URLs, strings containing glob
// metacharacters become globs, and everything else is a file path.
// Bundle references cannot be classified from the string alone; the
// declaration loader marks those explicitly.
func Classify(s string) Content {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return URL(s)
	}
	if strings.ContainsAny(s, "*?[") {
		return Glob(s)
	}
	return File(s)
}

// Bundle is a named group of asset sources plus the filters and output
// rules that apply to them. Bundles are constructed once at
// configuration-load time and never mutated afterwards; resolution
// reads them concurrently without locking.
type Bundle struct {
	// Name identifies the bundle within its Set. Anonymous nested
	// bundles receive generated names at load time.
	Name string `json:"name" yaml:"name"`

	// Output is the output path template, relative to the environment
	// output directory. It may embed the %(version)s placeholder.
	Output string `json:"output" yaml:"output"`

	// Contents is the ordered list of content entries.
	Contents []Content `json:"contents" yaml:"contents"`

	// Filters is the ordered list of filter names applied to this
	// bundle's sources. Parent filters prepend to these unless
	// OverrideFilters is set.
	Filters []string `json:"filters,omitempty" yaml:"filters,omitempty"`

	// OverrideFilters discards inherited filters instead of appending
	// to them.
	OverrideFilters bool `json:"override_filters,omitempty" yaml:"override_filters,omitempty"`

	// Debug is the tri-state debug override for this subtree.
	Debug DebugMode `json:"debug,omitempty" yaml:"debug,omitempty"`

	// Optional suppresses the resolution error when a glob in this
	// bundle matches no files.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`

	// Extra is an opaque payload passed through to build reports and
	// template consumers. The pipeline never interprets it.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`

	// Depends lists paths watched for staleness but not included in
	// the output (compiler include files and the like).
	Depends []string `json:"depends,omitempty" yaml:"depends,omitempty"`
}

// IsContainer reports whether the bundle is a pure container: no
// filters of its own and only nested bundles as contents. Container
// children build independently.
func (b *Bundle) IsContainer() bool {
	if len(b.Filters) > 0 || len(b.Contents) == 0 {
		return false
	}
	for _, c := range b.Contents {
		if c.Kind != ContentBundle {
			return false
		}
	}
	return true
}

// ResolvedSource is a concrete source plus the filter chain and debug
// mode that apply to it, produced by flattening a bundle tree. It is
// recomputed on every build pass and never persisted.
type ResolvedSource struct {
	// Path is the local file path, or the URL for remote sources.
	Path string

	// Remote marks sources fetched over HTTP rather than read from disk.
	Remote bool

	// Filters is the effective filter chain, outermost bundle first.
	Filters []string

	// Debug is the effective debug state for this source.
	Debug bool
}

// ChainKey returns the deduplication key for a resolved source: the
// path joined with its filter chain. Two occurrences of the same file
// under the same chain collapse to the first.
func (r ResolvedSource) ChainKey() string {
	return r.Path + "|" + strings.Join(r.Filters, ",")
}
