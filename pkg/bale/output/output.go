// Package output provides formatters for displaying build and check
// reports in various formats (pretty, plain, json).
//
// The package uses a registry pattern so the CLI can select a
// formatter at runtime:
//
//	formatter, err := output.Get("pretty")
//	var buf bytes.Buffer
//	_ = formatter.Format(&buf, report)
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/balebuild/bale/pkg/bale/builder"
)

// Formatter renders build and check reports.
type Formatter interface {
	// Format renders a build report.
	Format(w *bytes.Buffer, r *builder.Report) error

	// FormatCheck renders a staleness report.
	FormatCheck(w *bytes.Buffer, results []builder.Result) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Formatter)
)

// Register adds a formatter under the given name.
func Register(name string, f Formatter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Get returns the named formatter.
func Get(name string) (Formatter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
	return f, nil
}

// Names returns the registered formatter names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("pretty", &PrettyFormatter{})
	Register("plain", &PlainFormatter{})
	Register("json", &JSONFormatter{})
}
