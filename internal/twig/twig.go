package twig

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var templateNameRe = regexp.MustCompile(`^[@A-Za-z0-9_./:-]+\.twig$`)

// TemplateNameAt returns the template name held by the string token under
// offset, with its quotes removed. Only names ending in .twig qualify.
func TemplateNameAt(code string, tokens []Token, offset int) (string, Token, bool) {
	i := TokenAt(tokens, offset)
	if i == NoToken || tokens[i].Type != TokenString {
		return "", Token{}, false
	}
	tok := tokens[i]
	text := tok.Text(code)
	if len(text) < 2 {
		return "", Token{}, false
	}
	name := text[1 : len(text)-1]
	if !templateNameRe.MatchString(name) {
		return "", Token{}, false
	}
	return name, tok, true
}

// normalize turns "@Bundle/path.twig" and "bundle:section/file.twig" into a
// slash separated relative path.
func normalize(p string) string {
	p = strings.TrimPrefix(p, "@")
	p = strings.ReplaceAll(p, ":", "/")
	p = strings.TrimPrefix(p, "/")
	return filepath.FromSlash(p)
}

// ResolveTemplate finds the file of a template name. A leading @Name/ is
// looked up in namespaces (name -> directory) before the plain dirs are
// tried. The candidates that were checked are returned for diagnostics.
func ResolveTemplate(name string, dirs []string, namespaces map[string]string) (string, []string, bool) {
	var tried []string
	check := func(candidate string) bool {
		tried = append(tried, candidate)
		info, err := os.Stat(candidate)
		return err == nil && !info.IsDir()
	}

	if strings.HasPrefix(name, "@") {
		ns, rest, ok := strings.Cut(strings.TrimPrefix(name, "@"), "/")
		if ok {
			for _, key := range []string{ns, strings.TrimSuffix(ns, "Bundle")} {
				base, found := namespaces[key]
				if !found {
					continue
				}
				candidate := filepath.Join(base, filepath.FromSlash(rest))
				if check(candidate) {
					return candidate, tried, true
				}
			}
		}
	}

	rel := normalize(name)
	for _, dir := range dirs {
		candidate := filepath.Join(dir, rel)
		if check(candidate) {
			return candidate, tried, true
		}
	}
	return "", tried, false
}
