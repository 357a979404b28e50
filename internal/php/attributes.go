package php

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// attributesOf reads the #[...] attribute lists attached to a declaration.
func (ctx *analysisContext) attributesOf(node sitter.Node, namespace string) []Attribute {
	var out []Attribute
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		list := node.NamedChild(i)
		if list.Type() != "attribute_list" {
			continue
		}
		for j := uint32(0); j < list.NamedChildCount(); j++ {
			group := list.NamedChild(j)
			switch group.Type() {
			case "attribute_group":
				for k := uint32(0); k < group.NamedChildCount(); k++ {
					if attr := group.NamedChild(k); attr.Type() == "attribute" {
						out = append(out, ctx.attributeFromNode(attr, namespace))
					}
				}
			case "attribute":
				out = append(out, ctx.attributeFromNode(group, namespace))
			}
		}
	}
	return out
}

func (ctx *analysisContext) attributeFromNode(node sitter.Node, namespace string) Attribute {
	attr := Attribute{Args: make(map[string]string)}
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "name", "qualified_name":
			if attr.Name == "" {
				attr.Name = ctx.qualifyClassName(ctx.text(child), namespace)
			}
		case "arguments":
			ctx.collectArguments(child, namespace, &attr)
		}
	}
	return attr
}

func (ctx *analysisContext) collectArguments(args sitter.Node, namespace string, attr *Attribute) {
	for i := uint32(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "argument" || arg.NamedChildCount() == 0 {
			continue
		}
		value := ctx.argumentValue(arg.NamedChild(arg.NamedChildCount()-1), namespace)
		if nameNode := arg.ChildByFieldName("name"); !nameNode.IsNull() {
			attr.Args[ctx.text(nameNode)] = value
			continue
		}
		attr.Positional = append(attr.Positional, value)
	}
}

// argumentValue renders an attribute argument: strings lose their quotes and
// Foo::class becomes the qualified class name.
func (ctx *analysisContext) argumentValue(n sitter.Node, namespace string) string {
	if start, end, ok := stringBounds(n, ctx.content); ok {
		return string(ctx.content[start:end])
	}
	if n.Type() == "class_constant_access_expression" && n.NamedChildCount() == 2 {
		if strings.EqualFold(ctx.text(n.NamedChild(1)), "class") {
			return ctx.qualifyClassName(ctx.text(n.NamedChild(0)), namespace)
		}
	}
	return ctx.text(n)
}
