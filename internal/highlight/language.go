package highlight

import (
	"path/filepath"
	"strings"
)

// Chroma lexer names for the formats docsmith prints.
const (
	LangPython = "python"
	LangDiff   = "diff"
	LangJSON   = "json"
	LangYAML   = "yaml"
)

// DetectLanguage returns the Chroma language identifier based on file extension.
func DetectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyi":
		return LangPython
	case ".diff", ".patch":
		return LangDiff
	case ".json":
		return LangJSON
	case ".yaml", ".yml":
		return LangYAML
	}
	return ""
}
