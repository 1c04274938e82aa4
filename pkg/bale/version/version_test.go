package version

import (
	"errors"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "hash", input: "hash", want: "hash"},
		{name: "default is hash", input: "", want: "hash"},
		{name: "timestamp", input: "timestamp", want: "timestamp"},
		{name: "case insensitive", input: "Hash", want: "hash"},
		{name: "unknown", input: "git-sha", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := New(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownVersioner) {
					t.Fatalf("New(%q) error = %v, want ErrUnknownVersioner", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.input, err)
			}
			if v.Name() != tt.want {
				t.Errorf("New(%q).Name() = %q, want %q", tt.input, v.Name(), tt.want)
			}
		})
	}
}

func TestHashVersioner(t *testing.T) {
	v := HashVersioner{}
	now := time.Now()

	a := v.Determine([]byte("var x = 1;"), now)
	b := v.Determine([]byte("var x = 1;"), now.Add(time.Hour))
	c := v.Determine([]byte("var x = 2;"), now)

	if a != b {
		t.Error("hash version must depend only on content, not build time")
	}
	if a == c {
		t.Error("different content must produce different versions")
	}
	if len(a) != 8 {
		t.Errorf("version length = %d, want 8", len(a))
	}
}

func TestTimestampVersioner(t *testing.T) {
	v := TimestampVersioner{}
	at := time.Unix(1700000000, 0)
	if got := v.Determine([]byte("anything"), at); got != "1700000000" {
		t.Errorf("Determine() = %q, want 1700000000", got)
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name   string
		output string
		v      Version
		want   string
	}{
		{name: "placeholder", output: "app.%(version)s.js", v: "abc12345", want: "app.abc12345.js"},
		{name: "no placeholder unchanged", output: "app.js", v: "abc12345", want: "app.js"},
		{name: "placeholder in directory", output: "%(version)s/app.js", v: "v9", want: "v9/app.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(tt.output, tt.v); got != tt.want {
				t.Errorf("Expand(%q) = %q, want %q", tt.output, got, tt.want)
			}
		})
	}
}

func TestURLFor(t *testing.T) {
	tests := []struct {
		name string
		url  string
		v    Version
		want string
	}{
		{name: "placeholder substituted", url: "/static/app.%(version)s.js", v: "abc", want: "/static/app.abc.js"},
		{name: "query param fallback", url: "/static/app.js", v: "abc", want: "/static/app.js?v=abc"},
		{name: "existing query appends", url: "/static/app.js?raw=1", v: "abc", want: "/static/app.js?raw=1&v=abc"},
		{name: "empty version unchanged", url: "/static/app.js", v: "", want: "/static/app.js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URLFor(tt.url, tt.v); got != tt.want {
				t.Errorf("URLFor(%q, %q) = %q, want %q", tt.url, tt.v, got, tt.want)
			}
		})
	}
}
