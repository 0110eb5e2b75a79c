package docgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xonecas/docsmith/internal/provider"
)

const areaSrc = "def area(width, height):\n    return width * height"

func TestSetStyle(t *testing.T) {
	mock := provider.NewMock("mock", "ok")
	s := New(mock)
	if s.Style() != StyleGoogle {
		t.Fatalf("initial style = %q, want google", s.Style())
	}

	if err := s.SetStyle("NUMPY"); err != nil {
		t.Fatalf("SetStyle(NUMPY): %v", err)
	}
	if s.Style() != StyleNumPy {
		t.Errorf("style = %q, want numpy", s.Style())
	}

	err := s.SetStyle("latex")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SetStyle(latex) = %v, want ErrInvalidArgument", err)
	}
	if !strings.Contains(err.Error(), "latex") || !strings.Contains(err.Error(), "google, numpy, sphinx") {
		t.Errorf("error should name the value and the allowed set: %v", err)
	}

	// The failed call must not have touched the numpy default.
	if _, err := s.GenerateDocstring(context.Background(), areaSrc, "area", ""); err != nil {
		t.Fatalf("GenerateDocstring: %v", err)
	}
	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	if !strings.Contains(calls[0].Prompt, "NumPy-style") {
		t.Errorf("prompt should use the numpy instruction:\n%s", calls[0].Prompt)
	}
}

func TestGenerateDocstring_Extraction(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"delimited", "noise noise Docstring:\n  Real text.", "Real text."},
		{"plain", "  Computes the area.\n", "Computes the area."},
		{"echoed prompt", "Code:\ndef f(): pass\n\nDocstring: first\nDocstring: second ", "second"},
		{"empty after delimiter", "Docstring:   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(provider.NewMock("mock", tt.response))
			got, err := s.GenerateDocstring(context.Background(), areaSrc, "area", "")
			if err != nil {
				t.Fatalf("GenerateDocstring: %v", err)
			}
			if got != tt.want {
				t.Errorf("docstring = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateDocstring_Prompt(t *testing.T) {
	mock := provider.NewMock("mock", "x")
	s := New(mock)

	if _, err := s.GenerateDocstring(context.Background(), areaSrc, "area", StyleSphinx); err != nil {
		t.Fatal(err)
	}
	want := "You are a Python documentation expert. Generate a Sphinx-style docstring with:\n" +
		"1. Brief description\n2. :param: for each parameter\n3. :return: description\n4. :rtype: return type" +
		"\n\nFunction name: area\nCode:\n" + areaSrc + "\n\nDocstring:"

	call := mock.Calls()[0]
	if call.Prompt != want {
		t.Errorf("prompt =\n%q\nwant\n%q", call.Prompt, want)
	}
	if call.Params != provider.DefaultParams() {
		t.Errorf("params = %+v", call.Params)
	}
	if s.Style() != StyleGoogle {
		t.Error("per-call style must not change the default")
	}
}

func TestGenerateDocstring_UnknownStyleUsesGoogle(t *testing.T) {
	mock := provider.NewMock("mock", "x")
	if _, err := New(mock).GenerateDocstring(context.Background(), areaSrc, "area", Style("rst")); err != nil {
		t.Fatal(err)
	}
	if p := mock.Calls()[0].Prompt; !strings.Contains(p, "Google-style") {
		t.Errorf("prompt should fall back to google:\n%s", p)
	}
}

func TestGenerateDocstring_StyleKeyIsExact(t *testing.T) {
	for _, st := range []Style{"NUMPY", "Sphinx", " numpy"} {
		mock := provider.NewMock("mock", "x")
		if _, err := New(mock).GenerateDocstring(context.Background(), areaSrc, "area", st); err != nil {
			t.Fatal(err)
		}
		if p := mock.Calls()[0].Prompt; !strings.Contains(p, "Google-style") {
			t.Errorf("style %q should fall back to google:\n%s", st, p)
		}
	}
}

func TestGenerateDocstring_CompleterError(t *testing.T) {
	boom := &provider.StatusError{Provider: "mock", Code: 503, Body: "overloaded"}
	s := New(provider.NewMock("mock", "").WithError(boom))

	_, err := s.GenerateDocstring(context.Background(), areaSrc, "area", "")
	if err != boom {
		t.Fatalf("error = %v, want the completer's error unchanged", err)
	}
}

func TestParseStyle(t *testing.T) {
	for in, want := range map[string]Style{
		"google": StyleGoogle,
		"Sphinx": StyleSphinx,
		"NumPy":  StyleNumPy,
	} {
		got, err := ParseStyle(in)
		if err != nil || got != want {
			t.Errorf("ParseStyle(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "latex", "epytext", " Sphinx ", "google\n"} {
		if _, err := ParseStyle(in); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseStyle(%q) error = %v", in, err)
		}
	}
}

func TestExtractDocstring(t *testing.T) {
	if got := ExtractDocstring("a Docstring: b Docstring:c"); got != "c" {
		t.Errorf("got %q", got)
	}
}
