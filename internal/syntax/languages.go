package syntax

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ErrUnsupportedLanguage is returned for files the analyzer cannot parse.
var ErrUnsupportedLanguage = errors.New("syntax: unsupported language")

// extToLanguage maps file extensions to canonical language names.
var extToLanguage = map[string]string{
	".py":  "python",
	".pyi": "python",
	".pyw": "python",
}

var (
	pythonGrammar *sitter.Language
	grammarOnce   sync.Once
)

// Language returns the tree-sitter Python grammar, initialized lazily.
func Language() *sitter.Language {
	grammarOnce.Do(func() {
		pythonGrammar = python.GetLanguage()
	})
	return pythonGrammar
}

// LanguageForFile returns the canonical language name for a file path based
// on its extension. Returns ("", false) if the extension is not recognized.
func LanguageForFile(path string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	lang, ok := extToLanguage[ext]
	return lang, ok
}
