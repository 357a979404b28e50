package php

import (
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/shinyvision/twiglens/internal/types"
)

func (ctx *analysisContext) propertiesFromDeclaration(node sitter.Node, class ClassSummary, doc string) []PropertySummary {
	typeNode := node.ChildByFieldName("type")
	declared := ctx.typeFromNode(typeNode, class)
	typeName := ctx.firstClassName(typeNode, class)
	visibility := ctx.visibility(node, class.Kind)
	attributes := ctx.attributesOf(node, class.Namespace)

	var out []PropertySummary
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Type() != "property_element" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode.IsNull() {
			// older grammars nest the variable without a field
			nameNode = child.NamedChild(0)
		}
		name := VariableNameFromNode(nameNode, ctx.content)
		if name == "" {
			continue
		}

		t := declared
		if documented, ok := docblockVar(doc, name); ok {
			t = refine(declared, types.ParseExprFunc(documented, ctx.typeQualifier(class)))
		}
		out = append(out, PropertySummary{
			Name:       name,
			Visibility: visibility,
			Type:       t,
			TypeName:   typeName,
			Range:      rangeFromNode(nameNode),
			Attributes: attributes,
		})
	}
	return out
}

// promotedProperties reads constructor parameters declared with a
// visibility, which PHP turns into properties.
func (ctx *analysisContext) promotedProperties(method sitter.Node, class ClassSummary) []PropertySummary {
	params := method.ChildByFieldName("parameters")
	if params.IsNull() {
		return nil
	}

	var out []PropertySummary
	for i := uint32(0); i < params.NamedChildCount(); i++ {
		param := params.NamedChild(i)
		if param.Type() != "property_promotion_parameter" {
			continue
		}
		nameNode := param.ChildByFieldName("name")
		name := VariableNameFromNode(nameNode, ctx.content)
		if name == "" {
			continue
		}
		typeNode := param.ChildByFieldName("type")
		out = append(out, PropertySummary{
			Name:       name,
			Visibility: ctx.visibility(param, class.Kind),
			Type:       ctx.typeFromNode(typeNode, class),
			TypeName:   ctx.firstClassName(typeNode, class),
			Range:      rangeFromNode(nameNode),
			Attributes: ctx.attributesOf(param, class.Namespace),
		})
	}
	return out
}
