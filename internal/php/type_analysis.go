package php

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/shinyvision/twiglens/internal/types"
)

func (ctx *analysisContext) collectNamespaceUses(root sitter.Node) map[string]string {
	uses := make(map[string]string)
	if root.IsNull() {
		return uses
	}

	stack := []sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Type() == "namespace_use_declaration" {
			// function and const imports do not name classes
			if typeNode := node.ChildByFieldName("type"); !typeNode.IsNull() {
				continue
			}
			prefix := ""
			for i := uint32(0); i < node.NamedChildCount(); i++ {
				child := node.NamedChild(i)
				switch child.Type() {
				case "namespace_name":
					prefix = normalizeFQN(child.Content(ctx.content))
				case "namespace_use_group":
					for j := uint32(0); j < child.NamedChildCount(); j++ {
						if child.NamedChild(j).Type() == "namespace_use_clause" {
							ctx.addUseClause(child.NamedChild(j), prefix, uses)
						}
					}
				case "namespace_use_clause":
					ctx.addUseClause(child, "", uses)
				}
			}
			continue
		}

		for i := uint32(0); i < node.NamedChildCount(); i++ {
			stack = append(stack, node.NamedChild(i))
		}
	}

	return uses
}

func (ctx *analysisContext) addUseClause(clause sitter.Node, prefix string, uses map[string]string) {
	if clause.IsNull() {
		return
	}

	alias := ctx.text(clause.ChildByFieldName("alias"))

	var nameNode sitter.Node
	for i := uint32(0); i < clause.NamedChildCount(); i++ {
		if clause.FieldNameForNamedChild(i) == "alias" {
			continue
		}
		child := clause.NamedChild(i)
		switch child.Type() {
		case "qualified_name", "relative_name", "name":
			nameNode = child
		}
		if !nameNode.IsNull() {
			break
		}
	}
	if nameNode.IsNull() {
		return
	}

	full := ctx.text(nameNode)
	if prefix != "" {
		full = prefix + `\` + strings.TrimLeft(full, `\`)
	}
	full = normalizeFQN(full)
	if full == "" {
		return
	}
	if alias == "" {
		alias = shortName(full)
	}
	uses[strings.ToLower(alias)] = full
}

// qualifyClassName expands name the way PHP does inside namespace: a leading
// backslash is absolute, an imported first segment is replaced, anything else
// is relative to the namespace.
func (ctx *analysisContext) qualifyClassName(name, namespace string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, `\`) {
		return normalizeFQN(name)
	}
	if strings.HasPrefix(strings.ToLower(name), `namespace\`) {
		name = name[len(`namespace\`):]
		if namespace == "" {
			return normalizeFQN(name)
		}
		return normalizeFQN(namespace + `\` + name)
	}

	first, rest, qualified := strings.Cut(name, `\`)
	if full, ok := ctx.uses[strings.ToLower(first)]; ok {
		if qualified {
			return normalizeFQN(full + `\` + rest)
		}
		return full
	}
	if namespace == "" {
		return normalizeFQN(name)
	}
	return normalizeFQN(namespace + `\` + name)
}

// typeQualifier returns the class-name qualifier used when parsing declared
// and documented types inside class.
func (ctx *analysisContext) typeQualifier(class ClassSummary) func(string) string {
	return func(name string) string {
		switch strings.ToLower(name) {
		case "self", "static", "$this":
			return class.FQN
		case "parent":
			if class.Parent != "" {
				return class.Parent
			}
		}
		return ctx.qualifyClassName(name, class.Namespace)
	}
}

// typeFromNode converts a declared type node into a lattice type.
func (ctx *analysisContext) typeFromNode(typeNode sitter.Node, class ClassSummary) types.Type {
	if typeNode.IsNull() {
		return types.Any
	}
	return types.ParseExprFunc(ctx.text(typeNode), ctx.typeQualifier(class))
}

// firstClassName returns the first class named by a declared type, which is
// what Doctrine infers relation targets from.
func (ctx *analysisContext) firstClassName(typeNode sitter.Node, class ClassSummary) string {
	if typeNode.IsNull() {
		return ""
	}
	var found string
	var collect func(n sitter.Node)
	collect = func(n sitter.Node) {
		if found != "" || n.IsNull() {
			return
		}
		switch n.Type() {
		case "primitive_type":
			return
		case "named_type":
			found = ctx.typeQualifier(class)(ctx.text(n))
			return
		case "qualified_name", "name":
			found = ctx.typeQualifier(class)(ctx.text(n))
			return
		}
		for i := uint32(0); i < n.NamedChildCount(); i++ {
			collect(n.NamedChild(i))
		}
	}
	collect(typeNode)
	return found
}

func (ctx *analysisContext) namespaceForNode(node sitter.Node) string {
	for cur := node; !cur.IsNull(); cur = cur.Parent() {
		if cur.Type() == "namespace_definition" {
			if nameNode := cur.ChildByFieldName("name"); !nameNode.IsNull() {
				if body := cur.ChildByFieldName("body"); !body.IsNull() {
					return normalizeFQN(ctx.text(nameNode))
				}
			}
		}
	}
	return ctx.namespaceBefore(uint32(node.StartByte()))
}

// namespaceBefore finds the statement-form namespace in effect at bytePos.
func (ctx *analysisContext) namespaceBefore(bytePos uint32) string {
	current := ""
	for i := uint32(0); i < ctx.root.NamedChildCount(); i++ {
		child := ctx.root.NamedChild(i)
		if uint32(child.StartByte()) >= bytePos {
			break
		}
		if child.Type() == "namespace_definition" {
			if nameNode := child.ChildByFieldName("name"); !nameNode.IsNull() {
				current = normalizeFQN(ctx.text(nameNode))
			}
		}
	}
	return current
}

func normalizeFQN(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\\`, `\`))
	name = strings.TrimLeft(name, `?\`)
	return name
}

func shortName(qualified string) string {
	if i := strings.LastIndexByte(qualified, '\\'); i >= 0 && i+1 < len(qualified) {
		return qualified[i+1:]
	}
	return qualified
}
