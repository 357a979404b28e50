package php

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// analysisContext carries what the summary passes share for one parse.
type analysisContext struct {
	content []byte
	root    sitter.Node
	uses    map[string]string
}

func newAnalysisContext(content []byte, tree *sitter.Tree) *analysisContext {
	if content == nil || tree == nil {
		return nil
	}
	root := tree.RootNode()
	if root.IsNull() {
		return nil
	}
	ctx := &analysisContext{
		content: content,
		root:    root,
	}
	ctx.uses = ctx.collectNamespaceUses(root)
	return ctx
}

func (ctx *analysisContext) text(n sitter.Node) string {
	if n.IsNull() {
		return ""
	}
	return strings.TrimSpace(n.Content(ctx.content))
}

// summarize builds the declaration index of the parsed file.
func (ctx *analysisContext) summarize() FileSummary {
	summary := FileSummary{
		Uses: ctx.uses,
	}
	stack := []sitter.Node{ctx.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Type() {
		case "namespace_definition":
			if summary.Namespace == "" {
				summary.Namespace = normalizeFQN(ctx.text(node.ChildByFieldName("name")))
			}
		case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration":
			if info, ok := ctx.classSummaryFromNode(node); ok {
				summary.Classes = append(summary.Classes, info)
			}
			continue
		}

		for i := node.NamedChildCount(); i > 0; i-- {
			stack = append(stack, node.NamedChild(i-1))
		}
	}
	return summary
}

func rangeFromNode(n sitter.Node) LineColumnRange {
	if n.IsNull() {
		return LineColumnRange{}
	}
	start, end := n.StartPoint(), n.EndPoint()
	return LineColumnRange{
		StartLine:   int(start.Row) + 1,
		StartColumn: int(start.Column),
		EndLine:     int(end.Row) + 1,
		EndColumn:   int(end.Column),
	}
}
