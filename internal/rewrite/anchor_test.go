package rewrite

import (
	"errors"
	"testing"
)

func TestLineHash(t *testing.T) {
	h := LineHash("def area(w, h):")
	if len(h) != HashLen {
		t.Fatalf("hash length = %d, want %d", len(h), HashLen)
	}
	if h != LineHash("def area(w, h):") {
		t.Error("hash not deterministic")
	}
	if h != LineHash("def area(w, h):  \r") {
		t.Error("trailing whitespace should not change the hash")
	}
	if h == LineHash("def area(w, h, d):") {
		t.Error("different lines produced the same hash")
	}
}

func TestAnchor(t *testing.T) {
	src := []byte("import os\n\ndef main():\n    pass\n")
	a, err := AnchorAt(src, 3)
	if err != nil {
		t.Fatal(err)
	}
	if a.IsZero() || a.Line != 3 {
		t.Fatalf("anchor = %+v", a)
	}
	if a.String() != "3:"+LineHash("def main():") {
		t.Errorf("String = %q", a.String())
	}
	if err := a.Validate(splitLines(src)); err != nil {
		t.Errorf("Validate: %v", err)
	}

	moved := splitLines([]byte("import os\nimport sys\n\ndef main():\n    pass\n"))
	var stale *StaleError
	if err := a.Validate(moved); !errors.As(err, &stale) {
		t.Fatalf("Validate after shift = %v, want *StaleError", err)
	}

	if _, err := AnchorAt(src, 99); err == nil {
		t.Error("out of range line should fail")
	}
	if err := (Anchor{Line: 99, Hash: "00000000"}).Validate(splitLines(src)); err == nil {
		t.Error("out of range anchor should fail")
	}
	if !(Anchor{}).IsZero() {
		t.Error("zero anchor should report IsZero")
	}
}
