package php

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// queryMethods take a DQL string as their first argument.
var queryMethods = map[string]bool{
	"createquery": true,
}

// QueryString is a DQL literal inside PHP code. Offset is the byte offset of
// its first character, after the opening quote.
type QueryString struct {
	Query  string
	Offset int
}

// QueryStringAt returns the DQL literal that contains offset, if the string
// under the cursor is the first argument of a createQuery call.
func QueryStringAt(tree *sitter.Tree, content []byte, offset int) (QueryString, bool) {
	if tree == nil || offset < 0 || offset > len(content) {
		return QueryString{}, false
	}
	root := tree.RootNode()
	if root.IsNull() {
		return QueryString{}, false
	}

	node := root.NamedDescendantForByteRange(uint32(offset), uint32(offset))
	for cur := node; !cur.IsNull(); cur = cur.Parent() {
		if !isStringNode(cur) {
			continue
		}
		if !isQueryArgument(cur, content) {
			return QueryString{}, false
		}
		start, end, ok := stringBounds(cur, content)
		if !ok || offset < start || offset > end {
			return QueryString{}, false
		}
		return QueryString{Query: string(content[start:end]), Offset: start}, true
	}
	return QueryString{}, false
}

// QueryStrings lists every DQL literal of the file.
func QueryStrings(tree *sitter.Tree, content []byte) []QueryString {
	if tree == nil {
		return nil
	}
	var out []QueryString
	stack := []sitter.Node{tree.RootNode()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node.IsNull() {
			continue
		}
		if isStringNode(node) && isQueryArgument(node, content) {
			if start, end, ok := stringBounds(node, content); ok {
				out = append(out, QueryString{Query: string(content[start:end]), Offset: start})
			}
			continue
		}
		for i := node.NamedChildCount(); i > 0; i-- {
			stack = append(stack, node.NamedChild(i-1))
		}
	}
	return out
}

func isQueryArgument(str sitter.Node, content []byte) bool {
	arg := str.Parent()
	if arg.IsNull() || arg.Type() != "argument" {
		return false
	}
	args := arg.Parent()
	if args.IsNull() || args.Type() != "arguments" || args.NamedChildCount() == 0 {
		return false
	}
	if first := args.NamedChild(0); first.StartByte() != arg.StartByte() {
		return false
	}
	call := args.Parent()
	switch call.Type() {
	case "member_call_expression", "nullsafe_member_call_expression":
	default:
		return false
	}
	name := call.ChildByFieldName("name")
	return queryMethods[strings.ToLower(strings.TrimSpace(name.Content(content)))]
}
