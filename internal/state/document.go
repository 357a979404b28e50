package state

import (
	"path/filepath"
	"strings"

	"github.com/shinyvision/twiglens/internal/analyzer"
)

// Document represents an open document in the state.
type Document struct {
	Text       string
	LanguageID string
	Analyzer   analyzer.Analyzer
}

// LanguageFor picks the language of a document. Editors disagree on the id
// for Twig templates, so the file name wins for those.
func LanguageFor(path, languageID string) string {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".twig"), strings.HasPrefix(languageID, "twig"), languageID == "html.twig":
		return "twig"
	case strings.HasSuffix(name, ".php"):
		return "php"
	case strings.HasSuffix(name, ".xml"):
		return "xml"
	case strings.HasSuffix(name, ".yml"), strings.HasSuffix(name, ".yaml"):
		return "yaml"
	}
	return languageID
}

// IsMapping reports whether path is a Doctrine XML or YAML mapping file.
func IsMapping(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	return strings.HasSuffix(name, ".orm.xml") || strings.HasSuffix(name, ".orm.yml") || strings.HasSuffix(name, ".orm.yaml")
}

// NewAnalyzer returns the analyzer for a document, or nil when there is none.
// Only Doctrine mappings get one among XML and YAML files.
func NewAnalyzer(ws *analyzer.Workspace, path, languageID string) analyzer.Analyzer {
	switch languageID {
	case "twig":
		return analyzer.NewTwigAnalyzer(ws)
	case "php":
		return analyzer.NewPHPAnalyzer(ws, path)
	case "xml":
		if IsMapping(path) {
			return analyzer.NewXMLAnalyzer(ws)
		}
	case "yaml":
		if IsMapping(path) {
			return analyzer.NewYamlAnalyzer(ws)
		}
	}
	return nil
}
