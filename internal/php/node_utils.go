package php

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// VariableNameFromNode extracts the PHP variable identifier from the provided node.
func VariableNameFromNode(node sitter.Node, content []byte) string {
	if node.IsNull() {
		return ""
	}

	switch node.Type() {
	case "variable_name":
		for i := uint32(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Type() == "name" {
				return child.Content(content)
			}
		}
		raw := node.Content(content)
		return strings.TrimPrefix(raw, "$")
	case "by_ref":
		for i := uint32(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Type() == "variable_name" {
				return VariableNameFromNode(child, content)
			}
		}
	case "name":
		return node.Content(content)
	}

	raw := strings.TrimSpace(node.Content(content))
	return strings.TrimPrefix(raw, "$")
}

// isStringNode reports whether n is a quoted string literal.
func isStringNode(n sitter.Node) bool {
	switch n.Type() {
	case "string", "encapsed_string":
		return true
	}
	return false
}

// stringBounds returns the byte range of the literal's contents, without
// quotes.
func stringBounds(n sitter.Node, content []byte) (int, int, bool) {
	if n.IsNull() || !isStringNode(n) {
		return 0, 0, false
	}
	start, end := int(n.StartByte()), int(n.EndByte())
	if end > len(content) || end-start < 2 {
		return 0, 0, false
	}
	quote := content[start]
	if quote != '\'' && quote != '"' || content[end-1] != quote {
		return 0, 0, false
	}
	return start + 1, end - 1, true
}
