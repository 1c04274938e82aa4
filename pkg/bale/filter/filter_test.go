package filter

import (
	"errors"
	"testing"
)

func TestRegistryConfigure(t *testing.T) {
	t.Run("configured instance is pinned", func(t *testing.T) {
		r := Default()
		if err := r.Configure("concat", map[string]string{"separator": ";"}); err != nil {
			t.Fatalf("Configure() error = %v", err)
		}

		f, err := r.Get("concat")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		out, err := f.(Concater).Concat([]Part{
			{Content: []byte("a")},
			{Content: []byte("b")},
		})
		if err != nil {
			t.Fatalf("Concat() error = %v", err)
		}
		if string(out) != "a;b" {
			t.Errorf("Concat() = %q, want a;b", out)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		r := Default()
		if err := r.Configure("sass", nil); !errors.Is(err, ErrUnknownFilter) {
			t.Errorf("Configure() error = %v, want ErrUnknownFilter", err)
		}
	})

	t.Run("bad options surface", func(t *testing.T) {
		r := Default()
		if err := r.Configure("extern", map[string]string{}); err == nil {
			t.Error("Configure() error = nil, want error for missing command")
		}
	})
}

func TestRegistryGetDefaults(t *testing.T) {
	r := Default()

	f, err := r.Get("jsmin")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if f.Name() != "jsmin" {
		t.Errorf("Name() = %q, want jsmin", f.Name())
	}

	again, err := r.Get("jsmin")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if f != again {
		t.Error("Get() should return the same instance on repeat calls")
	}

	if _, err := r.Get("coffeescript"); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("Get() error = %v, want ErrUnknownFilter", err)
	}
}

func TestRegistryChain(t *testing.T) {
	r := Default()
	chain, err := r.Chain([]string{"jsmin", "banner"})
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if len(chain) != 2 || chain[0].Name() != "jsmin" || chain[1].Name() != "banner" {
		t.Errorf("Chain() order not preserved: %v", chain)
	}

	if _, err := r.Chain([]string{"jsmin", "nope"}); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("Chain() error = %v, want ErrUnknownFilter", err)
	}
}

func TestIsCosmetic(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{name: "jsmin", filter: NewJSMin(), want: true},
		{name: "cssmin", filter: NewCSSMin(), want: true},
		{name: "banner", filter: NewBanner("x"), want: true},
		{name: "concat", filter: NewConcat("\n"), want: false},
		{name: "replace", filter: NewReplace(nil), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCosmetic(tt.filter); got != tt.want {
				t.Errorf("IsCosmetic(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestFingerprintDistinguishesOptions(t *testing.T) {
	a := NewBanner("v1").Fingerprint()
	b := NewBanner("v2").Fingerprint()
	if a == b {
		t.Error("different banner text must change the fingerprint")
	}

	c := NewReplace(map[string]string{"k1": "v", "k2": "v"}).Fingerprint()
	d := NewReplace(map[string]string{"k2": "v", "k1": "v"}).Fingerprint()
	if c != d {
		t.Error("replace fingerprint must not depend on map iteration order")
	}
}

func TestFilterError(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Filter: "jsmin", Path: "js/app.js", Stage: "output", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Error should unwrap to the inner error")
	}
	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() returned empty message")
	}

	noPath := &Error{Filter: "banner", Stage: "output", Err: inner}
	if noPath.Error() == msg {
		t.Error("messages with and without a path should differ")
	}
}
