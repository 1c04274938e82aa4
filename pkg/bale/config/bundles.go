package config

import (
	"fmt"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/balebuild/bale/pkg/bale/types"
)

// bundlesFile is the top-level shape of the bundle declaration file.
type bundlesFile struct {
	Bundles map[string]*bundleDecl `yaml:"bundles"`
}

// bundleDecl is the YAML shape of one bundle declaration.
type bundleDecl struct {
	Output          string            `yaml:"output"`
	Filters         []string          `yaml:"filters"`
	OverrideFilters bool              `yaml:"override_filters"`
	Contents        []contentDecl     `yaml:"contents"`
	Debug           *bool             `yaml:"debug"`
	Extra           map[string]string `yaml:"extra"`
	Depends         []string          `yaml:"depends"`
	Optional        bool              `yaml:"optional"`
}

// contentDecl is one polymorphic entry in a contents list: a plain
// string (file, glob, or URL, classified by shape), a {bundle: name}
// reference, a {bundle: {...}} inline declaration, or a {url: ...}
// entry.
type contentDecl struct {
	str    string
	ref    string
	url    string
	inline *bundleDecl
}

// UnmarshalYAML decodes the polymorphic content entry.
func (c *contentDecl) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&c.str)

	case yaml.MappingNode:
		var m struct {
			Bundle yaml.Node `yaml:"bundle"`
			URL    string    `yaml:"url"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		if m.URL != "" {
			c.url = m.URL
			return nil
		}
		switch m.Bundle.Kind {
		case yaml.ScalarNode:
			return m.Bundle.Decode(&c.ref)
		case yaml.MappingNode:
			c.inline = &bundleDecl{}
			return m.Bundle.Decode(c.inline)
		default:
			return fmt.Errorf("line %d: content mapping needs a bundle or url key", node.Line)
		}

	default:
		return fmt.Errorf("line %d: unsupported content entry", node.Line)
	}
}

// LoadBundles parses a bundle declaration file into a flat bundle set.
// Inline nested bundles receive generated names derived from their
// parent and position.
func LoadBundles(fs afero.Fs, path string) (*types.Set, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading bundles file: %w", err)
	}
	return ParseBundles(data)
}

// ParseBundles parses bundle declarations from YAML bytes.
func ParseBundles(data []byte) (*types.Set, error) {
	var file bundlesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing bundles file: %w", err)
	}
	if len(file.Bundles) == 0 {
		return nil, fmt.Errorf("bundles file declares no bundles")
	}

	// Register in sorted order: map iteration would make Names() and
	// error attribution vary across runs.
	names := make([]string, 0, len(file.Bundles))
	for name := range file.Bundles {
		names = append(names, name)
	}
	sort.Strings(names)

	set := types.NewSet()
	for _, name := range names {
		if err := addBundle(set, name, file.Bundles[name]); err != nil {
			return nil, err
		}
	}

	// Validate bundle references now, so a typo surfaces at load time
	// instead of at build time.
	for _, name := range set.Names() {
		b, _ := set.Get(name)
		for _, c := range b.Contents {
			if c.Kind == types.ContentBundle && !set.Has(c.Value) {
				return nil, fmt.Errorf("bundle %s references unknown bundle %s", name, c.Value)
			}
		}
	}
	return set, nil
}

// addBundle converts one declaration (and its inline children) into
// set entries.
func addBundle(set *types.Set, name string, decl *bundleDecl) error {
	b := &types.Bundle{
		Name:            name,
		Output:          decl.Output,
		Filters:         decl.Filters,
		OverrideFilters: decl.OverrideFilters,
		Extra:           decl.Extra,
		Depends:         decl.Depends,
		Optional:        decl.Optional,
	}

	switch {
	case decl.Debug == nil:
		b.Debug = types.DebugInherit
	case *decl.Debug:
		b.Debug = types.DebugOn
	default:
		b.Debug = types.DebugOff
	}

	for i, c := range decl.Contents {
		switch {
		case c.url != "":
			b.Contents = append(b.Contents, types.URL(c.url))
		case c.ref != "":
			b.Contents = append(b.Contents, types.BundleRef(c.ref))
		case c.inline != nil:
			childName := fmt.Sprintf("%s:%d", name, i)
			if err := addBundle(set, childName, c.inline); err != nil {
				return err
			}
			b.Contents = append(b.Contents, types.BundleRef(childName))
		default:
			b.Contents = append(b.Contents, types.Classify(c.str))
		}
	}

	return set.Add(b)
}
