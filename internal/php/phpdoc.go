package php

import (
	"regexp"
	"strings"
)

var docblockTagRe = regexp.MustCompile(`@(?:phpstan-|psalm-)?(var|return)\s+`)

// docblockReturn extracts the type of an @return tag.
func docblockReturn(doc string) (string, bool) {
	for _, tag := range docblockTags(doc) {
		if tag.name == "return" {
			return tag.typ, true
		}
	}
	return "", false
}

// docblockVar extracts the type of an @var tag that names the variable or
// names none.
func docblockVar(doc, variable string) (string, bool) {
	for _, tag := range docblockTags(doc) {
		if tag.name != "var" {
			continue
		}
		if tag.variable == "" || tag.variable == variable {
			return tag.typ, true
		}
	}
	return "", false
}

type docTag struct {
	name     string
	typ      string
	variable string
}

// docblockTags reads @var and @return tags. Prefixed phpstan/psalm tags come
// after the plain ones in the result so they refine them.
func docblockTags(doc string) []docTag {
	if !strings.HasPrefix(doc, "/**") {
		return nil
	}
	var plain, prefixed []docTag
	for _, m := range docblockTagRe.FindAllStringSubmatchIndex(doc, -1) {
		typ, rest := readDocType(doc[m[1]:])
		if typ == "" {
			continue
		}
		tag := docTag{name: doc[m[2]:m[3]], typ: typ}
		rest = strings.TrimLeft(rest, " \t")
		if strings.HasPrefix(rest, "$") {
			tag.variable = identifierPrefix(rest[1:])
		}
		if doc[m[0]+1] == 'p' {
			prefixed = append(prefixed, tag)
		} else {
			plain = append(plain, tag)
		}
	}
	return append(prefixed, plain...)
}

// readDocType reads one type expression, which may contain blanks inside
// <>, {} or ().
func readDocType(s string) (string, string) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '<' || c == '{' || c == '(':
			depth++
		case c == '>' || c == '}' || c == ')':
			depth--
		case depth <= 0 && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			return s[:i], s[i:]
		case depth <= 0 && c == '*' && i+1 < len(s) && s[i+1] == '/':
			return s[:i], s[i:]
		}
	}
	return s, ""
}

func identifierPrefix(s string) string {
	n := 0
	for n < len(s) {
		c := s[n]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (n > 0 && c >= '0' && c <= '9') || c >= 0x80 {
			n++
			continue
		}
		break
	}
	return s[:n]
}
