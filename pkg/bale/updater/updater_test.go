package updater

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/balebuild/bale/pkg/bale/filter"
	"github.com/balebuild/bale/pkg/bale/manifest"
	"github.com/balebuild/bale/pkg/bale/types"
)

func newManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	return manifest.New(manifest.NewJSON("/m.json", manifest.WithFs(afero.NewMemMapFs())))
}

// recordFor stamps a manifest entry as if the bundle were just built.
func recordFor(t *testing.T, m *manifest.Manifest, b *types.Bundle, sources []types.ResolvedSource, builtAt time.Time) {
	t.Helper()
	fp, err := Fingerprint(filter.Default(), b, sources)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}
	m.Set(b.Output, manifest.Record{Version: "v1", BuiltAt: builtAt, Fingerprint: fp})
}

func writeAt(t *testing.T, fs afero.Fs, path string, mtime time.Time) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fs.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestNeedsRebuildNoRecord(t *testing.T) {
	u := New(Options{Fs: afero.NewMemMapFs(), Manifest: newManifest(t)})
	b := &types.Bundle{Name: "app", Output: "app.js"}

	stale, err := u.NeedsRebuild(b, nil)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if !stale {
		t.Error("a bundle never built must be stale")
	}
}

func TestNeedsRebuildFreshSources(t *testing.T) {
	fs := afero.NewMemMapFs()
	builtAt := time.Now()
	writeAt(t, fs, "a.js", builtAt.Add(-time.Hour))

	b := &types.Bundle{Name: "app", Output: "app.js"}
	sources := []types.ResolvedSource{{Path: "a.js"}}

	m := newManifest(t)
	recordFor(t, m, b, sources, builtAt)

	u := New(Options{Fs: fs, Manifest: m})
	stale, err := u.NeedsRebuild(b, sources)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if stale {
		t.Error("sources older than the build must be fresh")
	}
}

func TestNeedsRebuildModifiedSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	builtAt := time.Now().Add(-time.Hour)
	writeAt(t, fs, "a.js", time.Now())

	b := &types.Bundle{Name: "app", Output: "app.js"}
	sources := []types.ResolvedSource{{Path: "a.js"}}

	m := newManifest(t)
	recordFor(t, m, b, sources, builtAt)

	u := New(Options{Fs: fs, Manifest: m})
	stale, err := u.NeedsRebuild(b, sources)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if !stale {
		t.Error("a source newer than the build must be stale")
	}
}

func TestNeedsRebuildMissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	builtAt := time.Now()
	writeAt(t, fs, "a.js", builtAt.Add(-time.Hour))

	b := &types.Bundle{Name: "app", Output: "app.js"}
	sources := []types.ResolvedSource{{Path: "a.js"}}

	m := newManifest(t)
	recordFor(t, m, b, sources, builtAt)

	if err := fs.Remove("a.js"); err != nil {
		t.Fatal(err)
	}

	u := New(Options{Fs: fs, Manifest: m})
	stale, err := u.NeedsRebuild(b, sources)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if !stale {
		t.Error("an unstattable source must force a rebuild, never fail open")
	}
}

func TestNeedsRebuildConfigurationChange(t *testing.T) {
	fs := afero.NewMemMapFs()
	builtAt := time.Now()
	writeAt(t, fs, "a.js", builtAt.Add(-time.Hour))

	b := &types.Bundle{Name: "app", Output: "app.js"}
	m := newManifest(t)
	recordFor(t, m, b, []types.ResolvedSource{{Path: "a.js"}}, builtAt)

	// Same source bytes and mtime, but a filter joined the chain.
	changed := []types.ResolvedSource{{Path: "a.js", Filters: []string{"jsmin"}}}

	u := New(Options{Fs: fs, Manifest: m})
	stale, err := u.NeedsRebuild(b, changed)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if !stale {
		t.Error("a configuration change must invalidate unchanged sources")
	}
}

func TestNeedsRebuildDependsTouched(t *testing.T) {
	fs := afero.NewMemMapFs()
	builtAt := time.Now().Add(-time.Hour)
	writeAt(t, fs, "src/a.js", builtAt.Add(-time.Hour))
	writeAt(t, fs, "src/_mixins.scss", time.Now())

	b := &types.Bundle{Name: "app", Output: "app.css", Depends: []string{"_mixins.scss"}}
	sources := []types.ResolvedSource{{Path: "src/a.js"}}

	m := newManifest(t)
	recordFor(t, m, b, sources, builtAt)

	u := New(Options{Fs: fs, Directory: "src", Manifest: m})
	stale, err := u.NeedsRebuild(b, sources)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if !stale {
		t.Error("a touched extra dependency must trigger a rebuild")
	}
}

func TestNeedsRebuildRemoteSourcesSkipped(t *testing.T) {
	builtAt := time.Now()
	b := &types.Bundle{Name: "cdn", Output: "vendor.js"}
	sources := []types.ResolvedSource{{Path: "https://cdn.example.com/lib.js", Remote: true}}

	m := newManifest(t)
	recordFor(t, m, b, sources, builtAt)

	// The filesystem is empty; a stat attempt on the URL would force a
	// rebuild, so freshness here proves remote sources are skipped.
	u := New(Options{Fs: afero.NewMemMapFs(), Manifest: m})
	stale, err := u.NeedsRebuild(b, sources)
	if err != nil {
		t.Fatalf("NeedsRebuild() error = %v", err)
	}
	if stale {
		t.Error("remote sources carry no mtime and must not force rebuilds")
	}
}

func TestNeedsRebuildTrustManifest(t *testing.T) {
	b := &types.Bundle{Name: "app", Output: "app.js"}

	t.Run("record exists means fresh", func(t *testing.T) {
		m := newManifest(t)
		m.Set("app.js", manifest.Record{Version: "v1"})

		// Nil-like fs usage is fine: trust mode never stats anything.
		u := New(Options{Fs: afero.NewMemMapFs(), Manifest: m, TrustManifest: true})
		stale, err := u.NeedsRebuild(b, []types.ResolvedSource{{Path: "gone.js"}})
		if err != nil {
			t.Fatalf("NeedsRebuild() error = %v", err)
		}
		if stale {
			t.Error("trust mode must never report stale for a recorded bundle")
		}
	})

	t.Run("missing record is fatal", func(t *testing.T) {
		u := New(Options{Fs: afero.NewMemMapFs(), Manifest: newManifest(t), TrustManifest: true})
		_, err := u.NeedsRebuild(b, nil)
		if !errors.Is(err, ErrNoRecord) {
			t.Errorf("NeedsRebuild() error = %v, want ErrNoRecord", err)
		}
	})
}

func TestFingerprint(t *testing.T) {
	registry := filter.Default()
	b := &types.Bundle{Name: "app", Output: "app.js"}
	sources := []types.ResolvedSource{{Path: "a.js", Filters: []string{"jsmin"}}}

	base, err := Fingerprint(registry, b, sources)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	same, _ := Fingerprint(registry, b, sources)
	if base != same {
		t.Error("fingerprint must be stable for identical inputs")
	}

	otherOutput, _ := Fingerprint(registry, &types.Bundle{Name: "app", Output: "app.%(version)s.js"}, sources)
	if base == otherOutput {
		t.Error("output template must participate in the fingerprint")
	}

	reconfigured := filter.Default()
	reconfigured.Register("jsmin", func(map[string]string) (filter.Filter, error) {
		return filter.NewBanner("different"), nil
	})
	otherFilter, _ := Fingerprint(reconfigured, b, sources)
	if base == otherFilter {
		t.Error("a filter's configuration fingerprint must participate")
	}
}
