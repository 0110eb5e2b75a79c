// Package filesearch finds the Python sources of a project, honouring
// .gitignore and the usual virtualenv and cache directories.
package filesearch

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultIgnores are skipped in every project, before .gitignore rules apply.
var DefaultIgnores = []string{
	".git/",
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	".nox/",
	".mypy_cache/",
	".pytest_cache/",
	".ruff_cache/",
	"*.egg-info/",
	"node_modules/",
}

// Matcher decides whether a slash-separated path relative to the project
// root is ignored. The last matching rule wins, as in git.
type Matcher struct {
	rules []rule
}

type rule struct {
	self     *regexp.Regexp // the path itself
	inside   *regexp.Regexp // a path below a matching directory
	negate   bool
	dirOnly  bool
	original string
}

// NewMatcher builds a Matcher from DefaultIgnores plus root/.gitignore when it
// exists.
func NewMatcher(root string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range DefaultIgnores {
		m.Add(p)
	}
	if root == "" {
		return m, nil
	}

	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.Add(scanner.Text())
	}
	return m, scanner.Err()
}

// Add compiles a single gitignore line. Blank lines, comments and patterns
// that do not compile are skipped.
func (m *Matcher) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	if r, ok := compileRule(line); ok {
		m.rules = append(m.rules, r)
	}
}

// Ignored reports whether rel (relative to the root) is excluded.
func (m *Matcher) Ignored(rel string, isDir bool) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")

	ignored := false
	for _, r := range m.rules {
		hit := r.inside.MatchString(rel)
		if !hit && (isDir || !r.dirOnly) {
			hit = r.self.MatchString(rel)
		}
		if hit {
			ignored = !r.negate
		}
	}
	return ignored
}

func compileRule(pattern string) (rule, bool) {
	r := rule{original: pattern}
	if strings.HasPrefix(pattern, "!") {
		r.negate = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimRight(pattern, "/")
	}

	// A slash anywhere but the end ties the pattern to the root.
	prefix := `(^|.*/)`
	if strings.Contains(pattern, "/") {
		prefix = `^`
		pattern = strings.TrimPrefix(pattern, "/")
	}
	if pattern == "" {
		return r, false
	}

	body := globToRegex(pattern)
	self, err := regexp.Compile(prefix + body + `$`)
	if err != nil {
		return r, false
	}
	inside, err := regexp.Compile(prefix + body + `/.+$`)
	if err != nil {
		return r, false
	}
	r.self, r.inside = self, inside
	return r, true
}

// globToRegex translates gitignore glob syntax. "**/" may match zero
// directories, "*" and "?" never cross a slash.
func globToRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		c := glob[i]
		switch {
		case strings.HasPrefix(glob[i:], "**/"):
			b.WriteString(`(.*/)?`)
			i += 2
		case strings.HasPrefix(glob[i:], "**"):
			b.WriteString(`.*`)
			i++
		case c == '*':
			b.WriteString(`[^/]*`)
		case c == '?':
			b.WriteString(`[^/]`)
		case c == '[':
			end := strings.IndexByte(glob[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := glob[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[" + class + "]")
			i += end + 1
		case c == '\\' && i+1 < len(glob):
			b.WriteString(regexp.QuoteMeta(glob[i+1 : i+2]))
			i++
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String()
}
