package php

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/shinyvision/twiglens/internal/types"
)

var classKinds = map[string]string{
	"class_declaration":     "class",
	"interface_declaration": "interface",
	"trait_declaration":     "trait",
	"enum_declaration":      "enum",
}

func (ctx *analysisContext) classSummaryFromNode(node sitter.Node) (ClassSummary, bool) {
	kind, ok := classKinds[node.Type()]
	if node.IsNull() || !ok {
		return ClassSummary{}, false
	}

	nameNode := node.ChildByFieldName("name")
	name := ctx.text(nameNode)
	if name == "" {
		return ClassSummary{}, false
	}
	namespace := ctx.namespaceForNode(node)
	fqn := name
	if namespace != "" {
		fqn = namespace + `\` + name
	}

	info := ClassSummary{
		Kind:      kind,
		Name:      name,
		Namespace: namespace,
		FQN:       normalizeFQN(fqn),
		Parent:    ctx.classParentFromNode(node, namespace),
		Range:     rangeFromNode(nameNode),
	}
	info.Attributes = ctx.attributesOf(node, namespace)

	body := node.ChildByFieldName("body")
	if body.IsNull() {
		return info, true
	}

	var doc string
	for i := uint32(0); i < body.NamedChildCount(); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "comment":
			doc = ctx.text(member)
			continue
		case "property_declaration":
			info.Properties = append(info.Properties, ctx.propertiesFromDeclaration(member, info, doc)...)
		case "method_declaration":
			if m, ok := ctx.methodFromNode(member, info, doc); ok {
				info.Methods = append(info.Methods, m)
				if strings.EqualFold(m.Name, "__construct") {
					info.Properties = append(info.Properties, ctx.promotedProperties(member, info)...)
				}
			}
		case "const_declaration":
			info.Constants = append(info.Constants, ctx.constantsFromDeclaration(member)...)
		case "use_declaration":
			info.Traits = append(info.Traits, ctx.traitsFromDeclaration(member, namespace)...)
		}
		doc = ""
	}
	return info, true
}

// classParentFromNode returns the extended class. Interfaces may extend
// several; the first one is kept.
func (ctx *analysisContext) classParentFromNode(node sitter.Node, namespace string) string {
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Type() != "base_clause" {
			continue
		}
		for j := uint32(0); j < child.NamedChildCount(); j++ {
			if candidate := ctx.text(child.NamedChild(j)); candidate != "" {
				return ctx.qualifyClassName(candidate, namespace)
			}
		}
	}
	return ""
}

func (ctx *analysisContext) traitsFromDeclaration(node sitter.Node, namespace string) []string {
	var out []string
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "name", "qualified_name":
			out = append(out, ctx.qualifyClassName(ctx.text(child), namespace))
		}
	}
	return out
}

func (ctx *analysisContext) methodFromNode(node sitter.Node, class ClassSummary, doc string) (MethodSummary, bool) {
	nameNode := node.ChildByFieldName("name")
	name := ctx.text(nameNode)
	if name == "" {
		return MethodSummary{}, false
	}

	returnType := ctx.typeFromNode(node.ChildByFieldName("return_type"), class)
	if documented, ok := docblockReturn(doc); ok {
		returnType = refine(returnType, types.ParseExprFunc(documented, ctx.typeQualifier(class)))
	}

	return MethodSummary{
		Name:       name,
		Visibility: ctx.visibility(node, class.Kind),
		ReturnType: returnType,
		Range:      rangeFromNode(nameNode),
	}, true
}

func (ctx *analysisContext) constantsFromDeclaration(node sitter.Node) []ConstantSummary {
	visibility := ctx.visibility(node, "class")
	var out []ConstantSummary
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		element := node.NamedChild(i)
		if element.Type() != "const_element" {
			continue
		}
		for j := uint32(0); j < element.NamedChildCount(); j++ {
			nameNode := element.NamedChild(j)
			if nameNode.Type() != "name" {
				continue
			}
			out = append(out, ConstantSummary{
				Name:       ctx.text(nameNode),
				Visibility: visibility,
				Range:      rangeFromNode(nameNode),
			})
			break
		}
	}
	return out
}

// visibility reads the visibility_modifier of a member. Interface members
// are always public.
func (ctx *analysisContext) visibility(node sitter.Node, kind string) string {
	if kind == "interface" {
		return "public"
	}
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Type() == "visibility_modifier" {
			switch v := strings.ToLower(ctx.text(child)); v {
			case "private", "protected", "public":
				return v
			}
		}
	}
	return "public"
}

// refine prefers a documented type over the declared one unless the
// documentation says nothing more.
func refine(declared, documented types.Type) types.Type {
	if _, unknown := documented.(types.AnyType); unknown {
		return declared
	}
	return documented
}
