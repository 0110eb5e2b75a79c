package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xonecas/docsmith/internal/config"
	"github.com/xonecas/docsmith/internal/filesearch"
	"github.com/xonecas/docsmith/internal/provider"
	"github.com/xonecas/docsmith/internal/treesitter"
)

const addSrc = "def add(a, b):\n    return a + b\n\n\ndef sub(a, b):\n    \"\"\"Subtract.\"\"\"\n    return a - b\n"

// setupEnv isolates the user config and history under a temp HOME.
func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NO_COLOR", "1")
	t.Setenv("DOCSMITH_PROVIDER", "")
	t.Setenv("DOCSMITH_STYLE", "")
	t.Setenv("DOCSMITH_HISTORY_PATH", filepath.Join(home, "history.db"))
	return home
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, reg *provider.Registry, args ...string) (string, error) {
	t.Helper()
	if reg == nil {
		reg = provider.NewRegistry()
	}
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(reg, "1.2.3")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mockRegistry(response string) (*provider.Registry, *provider.MockProvider) {
	m := provider.NewMock("ollama", response)
	reg := provider.NewRegistry()
	reg.RegisterFactory(provider.NewMockFactory(m))
	return reg, m
}

func TestVersion(t *testing.T) {
	setupEnv(t)
	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Equal(t, "docsmith 1.2.3\n", out)
}

func TestParseOutline(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "math.py", addSrc+"\nclass Calc:\n    def run(self):\n        pass\n")

	out, err := run(t, nil, "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, "class Calc:  run")
	assert.Contains(t, out, "def add(a, b):  # undocumented")
	assert.Contains(t, out, "def sub(a, b):\n")
	assert.NotContains(t, out, "\x1b[", "plain output expected off a terminal")
}

func TestParseJSON(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "math.py", addSrc)

	out, err := run(t, nil, "parse", "--format", "json", path)
	require.NoError(t, err)

	var res treesitter.ParseResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Succeeded)
	require.Len(t, res.Functions, 2)
	assert.Equal(t, []string{"a", "b"}, res.Functions[0].Parameters)
	require.NotNil(t, res.Functions[1].Docstring)
	assert.Equal(t, "Subtract.", *res.Functions[1].Docstring)
}

func TestParseYAML(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "math.py", addSrc)

	out, err := run(t, nil, "parse", "-f", "yaml", path)
	require.NoError(t, err)
	assert.Contains(t, out, "success: true")
	assert.Contains(t, out, "- name: add")
}

func TestParseErrors(t *testing.T) {
	dir := setupEnv(t)
	broken := writeFile(t, dir, "broken.py", "def nope(:\n")

	out, err := run(t, nil, "parse", broken)
	require.Error(t, err)
	assert.Contains(t, out, "error: ")

	_, err = run(t, nil, "parse", "--format", "xml", writeFile(t, dir, "ok.py", addSrc))
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, nil, "parse", filepath.Join(dir, "missing.py"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScan(t *testing.T) {
	dir := setupEnv(t)
	proj := filepath.Join(dir, "proj")
	writeFile(t, proj, "app.py", addSrc)
	writeFile(t, proj, "pkg/broken.py", "class A\n")

	out, err := run(t, nil, "scan", proj)
	require.NoError(t, err)
	assert.Contains(t, out, "# Python Structure")
	assert.Contains(t, out, "app.py:")
	assert.Contains(t, out, "2 files, 2 functions, 1 undocumented, 1 with syntax errors")
}

func TestGenerateWriteAndUndo(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "math.py", addSrc)
	reg, mock := mockRegistry("Docstring: Add two numbers.")

	out, err := run(t, reg, "generate", "--write", path)
	require.NoError(t, err)
	assert.Contains(t, out, "add")
	assert.Contains(t, out, "Add two numbers.")
	assert.Contains(t, out, "wrote "+path)

	// Only the undocumented function is sent.
	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Function name: add")
	assert.Contains(t, calls[0].Prompt, "Google-style")
	assert.Equal(t, provider.DefaultParams(), calls[0].Params)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), "def add(a, b):\n    \"\"\"Add two numbers.\"\"\"\n    return a + b\n"), string(got))

	out, err = run(t, nil, "history")
	require.NoError(t, err)
	assert.Contains(t, out, path+":1 add")
	assert.Contains(t, out, "ollama/llama3.2")

	out, err = run(t, nil, "undo")
	require.NoError(t, err)
	assert.Contains(t, out, "restored "+path)

	got, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, addSrc, string(got))

	_, err = run(t, nil, "undo")
	assert.Error(t, err, "nothing left to undo")
}

func TestGenerateDiff(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "math.py", addSrc)
	reg, _ := mockRegistry("Docstring: Add two numbers.")

	out, err := run(t, reg, "generate", "--diff", "--style", "numpy", path)
	require.NoError(t, err)
	assert.Contains(t, out, "+    \"\"\"Add two numbers.\"\"\"")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, addSrc, string(got), "--diff alone must not touch the file")
}

func TestGenerateFuncSelection(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "math.py", addSrc)
	reg, mock := mockRegistry("Docstring: Something.")

	_, err := run(t, reg, "generate", "--func", "sub", path)
	require.NoError(t, err)
	require.Len(t, mock.Calls(), 1)
	assert.Contains(t, mock.Calls()[0].Prompt, "Function name: sub")

	_, err = run(t, reg, "generate", "--func", "nope", path)
	assert.ErrorContains(t, err, "unknown function")
}

func TestGenerateErrors(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "math.py", addSrc)

	_, err := run(t, provider.NewRegistry(), "generate", path)
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)

	reg, _ := mockRegistry("x")
	_, err = run(t, reg, "generate", "--style", "epytext", path)
	assert.ErrorContains(t, err, "epytext")

	_, err = run(t, reg, "generate", "--provider", "missing", path)
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)

	backendDown := errors.New("connection refused")
	failing, m := mockRegistry("")
	m.WithError(backendDown)
	_, err = run(t, failing, "generate", path)
	assert.ErrorIs(t, err, backendDown)
}

func TestGenerateSyntaxErrorContinues(t *testing.T) {
	dir := setupEnv(t)
	broken := writeFile(t, dir, "broken.py", "def nope(:\n")
	good := writeFile(t, dir, "good.py", addSrc)
	reg, mock := mockRegistry("Docstring: Add.")

	_, err := run(t, reg, "generate", broken, good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.py")
	assert.Len(t, mock.Calls(), 1, "the valid file is still processed")
}

func TestHistoryEmpty(t *testing.T) {
	setupEnv(t)
	out, err := run(t, nil, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no generations recorded")
}

func TestWatchTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "build/\n")
	writeFile(t, root, "build/out.py", "")
	m, err := filesearch.NewMatcher(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- watchTree(ctx, root, 20*time.Millisecond, m, func(paths []string) {
			changes <- paths
		})
	}()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)
	target := writeFile(t, root, "mod.py", "def f():\n    pass\n")
	writeFile(t, root, "build/out.py", "def ignored(): pass\n")

	select {
	case got := <-changes:
		assert.Equal(t, []string{target}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchTree did not stop")
	}
}

func TestPrintChange(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "mod.py", "def f():\n    pass\n")
	idx := treesitter.NewIndex(root)
	require.NoError(t, idx.Build(context.Background()))

	var buf bytes.Buffer
	p := newPrinter(&buf, true, "")
	printChange(p, idx, path)
	assert.Contains(t, buf.String(), "mod.py\n  fn: f\n")

	require.NoError(t, os.Remove(path))
	buf.Reset()
	printChange(p, idx, path)
	assert.Equal(t, "mod.py: removed\n", buf.String())

	buf.Reset()
	printChange(p, idx, filepath.Join(root, "notes.txt"))
	assert.Empty(t, buf.String())
}

func TestIgnoredPath(t *testing.T) {
	m, err := filesearch.NewMatcher("")
	require.NoError(t, err)
	root := "/proj"
	assert.True(t, ignoredPath(root, "/proj/.venv", true, m))
	assert.True(t, ignoredPath(root, "/proj/pkg/.mod.py.swp", false, m))
	assert.False(t, ignoredPath(root, "/proj/pkg/mod.py", false, m))
	assert.False(t, ignoredPath(root, root, true, m))
}

func TestProviders(t *testing.T) {
	setupEnv(t)
	out, err := run(t, provider.DefaultRegistry(), "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "* ollama  ollama  llama3.2  http://localhost:11434")
	assert.Contains(t, out, "gemini, ollama, openai, openai-compat, vllm, zen")
}

func TestLogin(t *testing.T) {
	dir := setupEnv(t)
	cfgPath := writeFile(t, dir, "conf/config.toml", `
default_provider = "cloud"

[providers.cloud]
kind = "openai"
model = "gpt-4o-mini"
`)

	cmd := NewRootCommand(provider.NewRegistry(), "test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("sk-test\n"))
	cmd.SetArgs([]string{"--config", cfgPath, "login", "cloud"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	creds, err := config.LoadCredentials(filepath.Dir(cfgPath))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", creds.GetAPIKey("cloud"))

	info, err := os.Stat(filepath.Join(dir, "conf", "credentials.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = run(t, nil, "--config", cfgPath, "login", "nope")
	assert.ErrorIs(t, err, provider.ErrProviderNotFound)
}
