package php

import (
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// TwigFunction is a `new TwigFunction('name', callable)` declaration found in
// an extension class. Class and Method name the callable when it is a
// [$this, 'method'] or [Runtime::class, 'method'] pair.
type TwigFunction struct {
	Name   string
	Path   string
	Range  LineColumnRange
	Class  string
	Method string
}

func (r *Resolver) scanExtensions() map[string]TwigFunction {
	out := make(map[string]TwigFunction)
	for _, class := range r.extensions {
		path, summary, ok := r.FindClass(class)
		if !ok {
			r.logger.Infof("twig extension %s not found", class)
			continue
		}
		doc, err := r.store.Get(path)
		if err != nil {
			r.logger.Warningf("could not load twig extension %s: %v", class, err)
			continue
		}
		doc.Read(func(tree *sitter.Tree, content []byte, _ FileSummary) {
			ctx := newAnalysisContext(content, tree)
			if ctx == nil {
				return
			}
			for _, fn := range ctx.twigFunctions(summary) {
				fn.Path = path
				if _, exists := out[fn.Name]; !exists {
					out[fn.Name] = fn
				}
			}
		})
		r.logger.Debugf("scanned twig extension %s", class)
	}
	return out
}

// twigFunctions collects the TwigFunction constructions inside class.
func (ctx *analysisContext) twigFunctions(class ClassSummary) []TwigFunction {
	var out []TwigFunction
	stack := []sitter.Node{ctx.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Type() == "object_creation_expression" {
			if fn, ok := ctx.twigFunctionFromNode(node, class); ok {
				out = append(out, fn)
			}
		}
		for i := node.NamedChildCount(); i > 0; i-- {
			stack = append(stack, node.NamedChild(i-1))
		}
	}
	return out
}

func (ctx *analysisContext) twigFunctionFromNode(node sitter.Node, class ClassSummary) (TwigFunction, bool) {
	var args sitter.Node
	isTwigFunction := false
	for i := uint32(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "name", "qualified_name":
			isTwigFunction = shortName(normalizeFQN(ctx.text(child))) == "TwigFunction"
		case "arguments":
			args = child
		}
	}
	if !isTwigFunction || args.IsNull() {
		return TwigFunction{}, false
	}

	var values []sitter.Node
	for i := uint32(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "argument" && arg.NamedChildCount() > 0 {
			values = append(values, arg.NamedChild(arg.NamedChildCount()-1))
		}
	}
	if len(values) == 0 {
		return TwigFunction{}, false
	}
	start, end, ok := stringBounds(values[0], ctx.content)
	if !ok {
		return TwigFunction{}, false
	}

	fn := TwigFunction{
		Name:  string(ctx.content[start:end]),
		Range: rangeFromNode(values[0]),
	}
	if len(values) > 1 {
		fn.Class, fn.Method = ctx.callableTarget(values[1], class)
	}
	return fn, true
}

// callableTarget reads [$this, 'method'] and [Foo::class, 'method'].
func (ctx *analysisContext) callableTarget(n sitter.Node, class ClassSummary) (string, string) {
	if n.Type() != "array_creation_expression" {
		return "", ""
	}
	var elems []sitter.Node
	for i := uint32(0); i < n.NamedChildCount(); i++ {
		if el := n.NamedChild(i); el.Type() == "array_element_initializer" && el.NamedChildCount() > 0 {
			elems = append(elems, el.NamedChild(el.NamedChildCount()-1))
		}
	}
	if len(elems) != 2 {
		return "", ""
	}
	start, end, ok := stringBounds(elems[1], ctx.content)
	if !ok {
		return "", ""
	}
	method := string(ctx.content[start:end])

	target := elems[0]
	switch {
	case target.Type() == "variable_name" && ctx.text(target) == "$this":
		return class.FQN, method
	case target.Type() == "class_constant_access_expression":
		if value := ctx.argumentValue(target, class.Namespace); !strings.Contains(value, "::") {
			return value, method
		}
	}
	return "", ""
}
