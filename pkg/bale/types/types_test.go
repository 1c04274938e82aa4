package types

import (
	"errors"
	"testing"
)

func TestParseDebugMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DebugMode
		wantErr bool
	}{
		{name: "on", input: "on", want: DebugOn},
		{name: "true", input: "true", want: DebugOn},
		{name: "off", input: "off", want: DebugOff},
		{name: "false", input: "false", want: DebugOff},
		{name: "empty inherits", input: "", want: DebugInherit},
		{name: "inherit", input: "inherit", want: DebugInherit},
		{name: "mixed case", input: "ON", want: DebugOn},
		{name: "garbage", input: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDebugMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDebugMode) {
					t.Fatalf("ParseDebugMode(%q) error = %v, want ErrInvalidDebugMode", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDebugMode(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDebugMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDebugModeResolve(t *testing.T) {
	tests := []struct {
		name   string
		mode   DebugMode
		parent bool
		want   bool
	}{
		{name: "on wins over production parent", mode: DebugOn, parent: false, want: true},
		{name: "off wins over debug parent", mode: DebugOff, parent: true, want: false},
		{name: "inherit follows debug parent", mode: DebugInherit, parent: true, want: true},
		{name: "inherit follows production parent", mode: DebugInherit, parent: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.Resolve(tt.parent); got != tt.want {
				t.Errorf("Resolve(%v) = %v, want %v", tt.parent, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ContentKind
	}{
		{name: "plain path", input: "js/app.js", want: ContentFile},
		{name: "star glob", input: "js/*.js", want: ContentGlob},
		{name: "recursive glob", input: "js/**/*.js", want: ContentGlob},
		{name: "question mark", input: "js/app?.js", want: ContentGlob},
		{name: "char class", input: "js/app[0-9].js", want: ContentGlob},
		{name: "http url", input: "http://cdn.example.com/jquery.js", want: ContentURL},
		{name: "https url", input: "https://cdn.example.com/jquery.js", want: ContentURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.input)
			if got.Kind != tt.want {
				t.Errorf("Classify(%q).Kind = %v, want %v", tt.input, got.Kind, tt.want)
			}
			if got.Value != tt.input {
				t.Errorf("Classify(%q).Value = %q, want input preserved", tt.input, got.Value)
			}
		})
	}
}

func TestBundleIsContainer(t *testing.T) {
	tests := []struct {
		name   string
		bundle *Bundle
		want   bool
	}{
		{
			name:   "only nested bundles",
			bundle: &Bundle{Name: "all", Contents: []Content{BundleRef("a"), BundleRef("b")}},
			want:   true,
		},
		{
			name:   "mixed contents",
			bundle: &Bundle{Name: "mixed", Contents: []Content{BundleRef("a"), File("app.js")}},
			want:   false,
		},
		{
			name:   "nested bundles but own filters",
			bundle: &Bundle{Name: "filtered", Filters: []string{"jsmin"}, Contents: []Content{BundleRef("a")}},
			want:   false,
		},
		{
			name:   "empty contents",
			bundle: &Bundle{Name: "empty"},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bundle.IsContainer(); got != tt.want {
				t.Errorf("IsContainer() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolvedSourceChainKey(t *testing.T) {
	a := ResolvedSource{Path: "js/app.js", Filters: []string{"jsmin"}}
	b := ResolvedSource{Path: "js/app.js", Filters: []string{"jsmin"}}
	c := ResolvedSource{Path: "js/app.js", Filters: []string{"jsmin", "banner"}}

	if a.ChainKey() != b.ChainKey() {
		t.Error("identical path and chain should share a key")
	}
	if a.ChainKey() == c.ChainKey() {
		t.Error("different chains should not share a key")
	}
}

func TestSet(t *testing.T) {
	t.Run("add and get", func(t *testing.T) {
		s := NewSet()
		if err := s.Add(&Bundle{Name: "app-js"}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}

		b, err := s.Get("app-js")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if b.Name != "app-js" {
			t.Errorf("Get().Name = %q, want app-js", b.Name)
		}
		if !s.Has("app-js") {
			t.Error("Has() = false after Add")
		}
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		s := NewSet()
		if err := s.Add(&Bundle{Name: "app-js"}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := s.Add(&Bundle{Name: "app-js"}); !errors.Is(err, ErrBundleExists) {
			t.Errorf("Add() error = %v, want ErrBundleExists", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		s := NewSet()
		if err := s.Add(&Bundle{}); err == nil {
			t.Error("Add() error = nil, want error for empty name")
		}
	})

	t.Run("missing bundle", func(t *testing.T) {
		s := NewSet()
		if _, err := s.Get("nope"); !errors.Is(err, ErrBundleNotFound) {
			t.Errorf("Get() error = %v, want ErrBundleNotFound", err)
		}
	})
}

func TestSetRoots(t *testing.T) {
	s := NewSet()
	for _, b := range []*Bundle{
		{Name: "vendor", Contents: []Content{File("vendor/jquery.js")}},
		{Name: "app", Contents: []Content{File("app.js")}},
		{Name: "all", Contents: []Content{BundleRef("vendor"), BundleRef("app")}},
	} {
		if err := s.Add(b); err != nil {
			t.Fatalf("Add(%s) error = %v", b.Name, err)
		}
	}

	roots := s.Roots()
	if len(roots) != 1 || roots[0] != "all" {
		t.Errorf("Roots() = %v, want [all]", roots)
	}
}

func TestSetRootsSorted(t *testing.T) {
	s := NewSet()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Add(&Bundle{Name: name, Contents: []Content{File(name + ".js")}}); err != nil {
			t.Fatalf("Add(%s) error = %v", name, err)
		}
	}

	roots := s.Roots()
	want := []string{"alpha", "mid", "zeta"}
	if len(roots) != len(want) {
		t.Fatalf("Roots() = %v, want %v", roots, want)
	}
	for i := range want {
		if roots[i] != want[i] {
			t.Errorf("Roots()[%d] = %q, want %q", i, roots[i], want[i])
		}
	}
}
