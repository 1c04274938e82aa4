package filter

import (
	"strings"
	"testing"
)

func TestConcatFilter(t *testing.T) {
	tests := []struct {
		name      string
		separator string
		parts     []string
		want      string
	}{
		{name: "newline", separator: "\n", parts: []string{"a", "b", "c"}, want: "a\nb\nc"},
		{name: "semicolon for js", separator: ";\n", parts: []string{"var x=1", "var y=2"}, want: "var x=1;\nvar y=2"},
		{name: "single part", separator: "\n", parts: []string{"only"}, want: "only"},
		{name: "no parts", separator: "\n", parts: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewConcat(tt.separator)
			parts := make([]Part, len(tt.parts))
			for i, p := range tt.parts {
				parts[i] = Part{Content: []byte(p)}
			}
			got, err := f.Concat(parts)
			if err != nil {
				t.Fatalf("Concat() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Concat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJSMin(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "line comments stripped",
			input: "var x = 1; // counter\nvar y = 2;",
			want:  "var x = 1;\nvar y = 2;",
		},
		{
			name:  "block comment within line",
			input: "var x = /* init */ 1;",
			want:  "var x =  1;",
		},
		{
			name:  "multiline block comment",
			input: "/*\n * header\n */\nvar x = 1;",
			want:  "var x = 1;",
		},
		{
			name:  "comment marker inside string survives",
			input: `var url = "http://example.com"; // endpoint`,
			want:  `var url = "http://example.com";`,
		},
		{
			name:  "indentation and blank lines dropped",
			input: "function f() {\n    return 1;\n\n}\n",
			want:  "function f() {\nreturn 1;\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewJSMin()
			got, err := f.Output([]byte(tt.input))
			if err != nil {
				t.Fatalf("Output() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Output() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCSSMin(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "whitespace collapsed",
			input: "body {\n    color: red;\n}\n",
			want:  "body{color:red}",
		},
		{
			name:  "comments stripped",
			input: "/* reset */ body { margin: 0; }",
			want:  "body{margin:0}",
		},
		{
			name:  "selector list",
			input: "h1, h2 { font-weight: bold; }",
			want:  "h1,h2{font-weight:bold}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewCSSMin()
			got, err := f.Output([]byte(tt.input))
			if err != nil {
				t.Fatalf("Output() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Output() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBannerFilter(t *testing.T) {
	f := NewBanner("app v1.2")
	got, err := f.Output([]byte("var x = 1;"))
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	want := "/* app v1.2 */\nvar x = 1;"
	if string(got) != want {
		t.Errorf("Output() = %q, want %q", got, want)
	}

	empty := NewBanner("")
	got, err = empty.Output([]byte("var x = 1;"))
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if string(got) != "var x = 1;" {
		t.Errorf("empty banner should pass content through, got %q", got)
	}
}

func TestReplaceFilter(t *testing.T) {
	f := NewReplace(map[string]string{
		"__API__":   "https://api.example.com",
		"__DEBUG__": "false",
	})

	got, err := f.Input([]byte("fetch('__API__/v1'); var dbg = __DEBUG__;"), Source{Path: "app.js"})
	if err != nil {
		t.Fatalf("Input() error = %v", err)
	}
	want := "fetch('https://api.example.com/v1'); var dbg = false;"
	if string(got) != want {
		t.Errorf("Input() = %q, want %q", got, want)
	}
}

func TestExternFilter(t *testing.T) {
	t.Run("pipes through tool", func(t *testing.T) {
		f, err := NewExtern("upper", []string{"tr", "a-z", "A-Z"}, "output", false)
		if err != nil {
			t.Fatalf("NewExtern() error = %v", err)
		}
		got, err := f.Output([]byte("hello"))
		if err != nil {
			t.Fatalf("Output() error = %v", err)
		}
		if string(got) != "HELLO" {
			t.Errorf("Output() = %q, want HELLO", got)
		}
	})

	t.Run("wrong stage passes through", func(t *testing.T) {
		f, err := NewExtern("upper", []string{"tr", "a-z", "A-Z"}, "input", false)
		if err != nil {
			t.Fatalf("NewExtern() error = %v", err)
		}
		got, err := f.Output([]byte("hello"))
		if err != nil {
			t.Fatalf("Output() error = %v", err)
		}
		if string(got) != "hello" {
			t.Errorf("output stage of input-configured filter should pass through, got %q", got)
		}
	})

	t.Run("tool failure includes stderr", func(t *testing.T) {
		f, err := NewExtern("broken", []string{"sh", "-c", "echo oops >&2; exit 3"}, "output", false)
		if err != nil {
			t.Fatalf("NewExtern() error = %v", err)
		}
		_, err = f.Output([]byte("x"))
		if err == nil {
			t.Fatal("Output() error = nil, want tool failure")
		}
		if !strings.Contains(err.Error(), "oops") {
			t.Errorf("error should carry stderr, got %v", err)
		}
	})

	t.Run("source placeholder expands at input stage", func(t *testing.T) {
		f, err := NewExtern("echo", []string{"sh", "-c", "printf %s {source}"}, "input", false)
		if err != nil {
			t.Fatalf("NewExtern() error = %v", err)
		}
		got, err := f.Input([]byte(""), Source{Path: "js/app.js"})
		if err != nil {
			t.Fatalf("Input() error = %v", err)
		}
		if string(got) != "js/app.js" {
			t.Errorf("Input() = %q, want source path", got)
		}
	})

	t.Run("rejects bad stage", func(t *testing.T) {
		if _, err := NewExtern("x", []string{"cat"}, "concat", false); err == nil {
			t.Error("NewExtern() error = nil, want error for unsupported stage")
		}
	})
}
