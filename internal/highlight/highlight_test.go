package highlight

import (
	"regexp"
	"strings"
	"testing"
)

var hexColor = regexp.MustCompile(`^#[0-9a-f]{6}$`)

func TestCode(t *testing.T) {
	src := "def area(w, h):\n    return w * h"
	out := Code(src, LangPython, "monokai")
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI sequences in %q", out)
	}
	if got := Plain(out); got != src {
		t.Errorf("stripped output = %q, want %q", got, src)
	}

	withNewline := Code(src+"\n", LangPython, "monokai")
	if !strings.HasSuffix(Plain(withNewline), "\n") {
		t.Error("trailing newline should be kept when the input has one")
	}
}

func TestCode_UnknownLanguage(t *testing.T) {
	if got := Code("plain text", "no-such-language", "monokai"); got != "plain text" {
		t.Errorf("got %q", got)
	}
}

func TestDetectLanguage(t *testing.T) {
	for path, want := range map[string]string{
		"app.py":         LangPython,
		"stubs/os.PYI":   LangPython,
		"change.diff":    LangDiff,
		"result.json":    LangJSON,
		"result.yml":     LangYAML,
		"Makefile":       "",
		"archive.tar.gz": "",
	} {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestThemePalette(t *testing.T) {
	p := ThemePalette("monokai")
	for name, c := range map[string]string{"fg": p.Fg, "dim": p.Dim, "accent": p.Accent, "error": p.Error} {
		if !hexColor.MatchString(c) {
			t.Errorf("%s = %q is not a #rrggbb color", name, c)
		}
	}
	if p != ThemePalette("monokai") {
		t.Error("palette not deterministic")
	}
	if ThemePalette("definitely-not-a-theme") == (Palette{}) {
		t.Error("unknown theme should still produce a palette")
	}
}

func TestLerpHex(t *testing.T) {
	if got := lerpHex("#000000", "#ffffff", 0.5); got != "#808080" {
		t.Errorf("lerpHex = %q", got)
	}
	if got := lerpHex("#102030", "#102030", 0.9); got != "#102030" {
		t.Errorf("lerpHex same = %q", got)
	}
}
