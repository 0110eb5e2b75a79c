package treesitter

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func TestIndexBuild(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"app.py":             "def main():\n    \"\"\"Entry point.\"\"\"\n",
		"pkg/util.py":        "class Helper:\n    def run(self, job):\n        pass\n",
		"pkg/broken.py":      "def nope(:\n",
		"build/generated.py": "def skipped():\n    pass\n",
		".gitignore":         "build/\n",
		"notes.txt":          "def not_python(): pass\n",
	}
	for rel, body := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	idx := NewIndex(root)
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := idx.Files()
	sort.Strings(got)
	want := []string{"app.py", "pkg/broken.py", "pkg/util.py"}
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("file %d = %q, want %q", i, got[i], want[i])
		}
	}

	util, ok := idx.Result("pkg/util.py")
	if !ok || !util.Succeeded || len(util.Classes) != 1 || util.Classes[0].Name != "Helper" {
		t.Errorf("unexpected util result: %+v", util)
	}
	broken, _ := idx.Result("pkg/broken.py")
	if broken.Succeeded || broken.Error == "" {
		t.Errorf("broken.py should carry its syntax error: %+v", broken)
	}

	outline := FormatOutline(idx.Snapshot())
	if outline == "" {
		t.Fatal("empty outline")
	}
	t.Logf("Outline (%d bytes):\n%s", len(outline), outline)
}

func TestIndexUpdateFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "mod.py")
	if err := os.WriteFile(path, []byte("def one():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx := NewIndex(root)
	if err := idx.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := os.WriteFile(path, []byte("def one():\n    pass\n\ndef two(x):\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Make sure the cache key changes even on coarse mtime filesystems.
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	rel, res, ok := idx.UpdateFile(path)
	if !ok || rel != "mod.py" {
		t.Fatalf("UpdateFile = %q, %v", rel, ok)
	}
	if len(res.Functions) != 2 {
		t.Errorf("functions = %d, want 2", len(res.Functions))
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := idx.UpdateFile(path); ok {
		t.Error("UpdateFile on a removed file should report false")
	}
	if _, ok := idx.Result("mod.py"); ok {
		t.Error("removed file should leave the index")
	}
}

func TestIndexUpdateFile_Unsupported(t *testing.T) {
	idx := NewIndex(t.TempDir())
	if _, _, ok := idx.UpdateFile(filepath.Join(idx.Root(), "README.md")); ok {
		t.Error("non-Python file should be rejected")
	}
}
