package filter

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExternFilter wraps an external tool (a compiler, transpiler, or
// minifier binary) as a pipeline filter. Content is piped through the
// tool's stdin and read back from stdout. The {source} placeholder in
// the argv expands to the source path at the input stage.
//
// Invocations run to completion or fail; there is no mid-flight
// cancellation of a spawned tool.
type ExternFilter struct {
	name     string
	argv     []string
	stage    string // "input" or "output"
	cosmetic bool
}

// NewExtern returns an external-tool filter.
func NewExtern(name string, argv []string, stage string, cosmetic bool) (*ExternFilter, error) {
	if len(argv) == 0 {
		return nil, errors.New("extern filter requires a command")
	}
	if stage != "input" && stage != "output" {
		return nil, fmt.Errorf("extern filter stage must be input or output, got %q", stage)
	}
	return &ExternFilter{name: name, argv: argv, stage: stage, cosmetic: cosmetic}, nil
}

// NewExternFactory constructs the filter from registry options.
// Recognized options:
//
//	command  - the tool argv, whitespace-separated (required)
//	name     - registry alias, defaults to "extern"
//	stage    - "input" or "output" (default "output")
//	cosmetic - "true" to skip the tool in debug builds
func NewExternFactory(opts map[string]string) (Filter, error) {
	command := opts["command"]
	if command == "" {
		return nil, errors.New("extern filter requires the command option")
	}
	name := opts["name"]
	if name == "" {
		name = "extern"
	}
	stage := opts["stage"]
	if stage == "" {
		stage = "output"
	}
	cosmetic := opts["cosmetic"] == "true"
	return NewExtern(name, strings.Fields(command), stage, cosmetic)
}

// Name returns the registry identifier.
func (f *ExternFilter) Name() string { return f.name }

// Fingerprint returns the configuration fingerprint.
func (f *ExternFilter) Fingerprint() string {
	return fingerprintOpts(f.name, map[string]string{
		"command":  strings.Join(f.argv, " "),
		"stage":    f.stage,
		"cosmetic": fmt.Sprintf("%t", f.cosmetic),
	})
}

// Cosmetic reports whether debug builds skip the tool.
func (f *ExternFilter) Cosmetic() bool { return f.cosmetic }

// Input pipes one source's content through the tool when configured
// for the input stage.
func (f *ExternFilter) Input(content []byte, src Source) ([]byte, error) {
	if f.stage != "input" {
		return content, nil
	}
	return f.run(content, src.Path)
}

// Output pipes the merged content through the tool when configured
// for the output stage.
func (f *ExternFilter) Output(content []byte) ([]byte, error) {
	if f.stage != "output" {
		return content, nil
	}
	return f.run(content, "")
}

// run executes the tool once, stdin to stdout.
func (f *ExternFilter) run(content []byte, sourcePath string) ([]byte, error) {
	argv := make([]string, len(f.argv))
	for i, a := range f.argv {
		argv[i] = strings.ReplaceAll(a, "{source}", sourcePath)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", argv[0], err)
	}
	return stdout.Bytes(), nil
}
