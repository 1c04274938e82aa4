package manifest

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestManifestRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	backend := NewJSON("/out/.manifest.json", WithFs(fs))

	m := New(backend)
	m.Set("app.js", Record{
		Version:     "abc12345",
		BuiltAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Fingerprint: "fp1",
	})
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := New(NewJSON("/out/.manifest.json", WithFs(fs)))
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	rec, ok := loaded.Get("app.js")
	if !ok {
		t.Fatal("Get() missing record after round trip")
	}
	if rec.Version != "abc12345" || rec.Fingerprint != "fp1" {
		t.Errorf("Get() = %+v", rec)
	}
	if !rec.BuiltAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("BuiltAt = %v, want preserved", rec.BuiltAt)
	}
}

func TestManifestLoadMissingFile(t *testing.T) {
	m := New(NewJSON("/nowhere/.manifest.json", WithFs(afero.NewMemMapFs())))
	if err := m.Load(); err != nil {
		t.Fatalf("Load() of missing file error = %v, want empty manifest", err)
	}
	if _, ok := m.Get("app.js"); ok {
		t.Error("Get() found a record in a missing manifest")
	}
}

func TestManifestLoadCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/out/.manifest.json", []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New(NewJSON("/out/.manifest.json", WithFs(fs)))
	err := m.Load()
	if err == nil {
		t.Fatal("Load() error = nil, want corruption error")
	}

	var merr *Error
	if !errors.As(err, &merr) {
		t.Fatalf("error type = %T, want *manifest.Error", err)
	}
	if merr.Path != "/out/.manifest.json" {
		t.Errorf("error path = %q", merr.Path)
	}
}

func TestManifestSaveLeavesNoTempFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	m := New(NewJSON("/out/.manifest.json", WithFs(fs)))
	m.Set("app.js", Record{Version: "v1"})
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if ok, _ := afero.Exists(fs, "/out/.manifest.json.tmp"); ok {
		t.Error("temp file left behind after save")
	}
	if ok, _ := afero.Exists(fs, "/out/.manifest.json"); !ok {
		t.Error("manifest file not written")
	}
}

func TestManifestRecordsCopies(t *testing.T) {
	m := New(NewJSON("/m.json", WithFs(afero.NewMemMapFs())))
	m.Set("a.js", Record{Version: "v1"})

	records := m.Records()
	records["a.js"] = Record{Version: "hacked"}

	rec, _ := m.Get("a.js")
	if rec.Version != "v1" {
		t.Error("Records() must return a copy, not the live map")
	}
}
