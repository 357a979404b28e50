// Package inference walks a parsed template and infers the type of every
// variable, member access and function call it can resolve.
package inference

import (
	"context"
	"sort"

	"github.com/shinyvision/twiglens/internal/twig"
	"github.com/shinyvision/twiglens/internal/types"
)

// Fields every for loop exposes through the loop variable.
var loopType = types.Hash(map[string]types.Type{
	"index":     types.Any,
	"index0":    types.Any,
	"revindex":  types.Any,
	"revindex0": types.Any,
	"first":     types.Any,
	"last":      types.Any,
	"length":    types.Any,
	"parent":    types.Any,
})

// Walk infers types over stmts. Variables set by the template live in a child
// of scope, so scope itself is left untouched. Resolver calls happen one at a
// time in document order. When ctx is done the walk stops at the next
// statement and returns what it has so far.
func Walk(ctx context.Context, code string, tokens []twig.Token, stmts []twig.Statement, scope *types.Scope, resolver Resolver) *Result {
	if scope == nil {
		scope = types.NewScope(nil)
	}
	if resolver == nil {
		resolver = ResolverFuncs{}
	}
	w := &walker{
		ctx:      ctx,
		code:     code,
		tokens:   tokens,
		resolver: resolver,
		result:   newResult(),
		classes:  make(map[string]*types.ClassInfo),
	}

	local := scope.Child()
	w.result.record(0, local)
	w.walkStatements(stmts, local)

	sort.SliceStable(w.result.checkpoints, func(i, j int) bool {
		return w.result.checkpoints[i].offset < w.result.checkpoints[j].offset
	})
	return w.result
}

type walker struct {
	ctx      context.Context
	code     string
	tokens   []twig.Token
	resolver Resolver
	result   *Result

	// answers already given for this walk
	classes map[string]*types.ClassInfo
}

func (w *walker) walkStatements(stmts []twig.Statement, scope *types.Scope) {
	for _, stmt := range stmts {
		if w.ctx.Err() != nil {
			return
		}
		w.walkStatement(stmt, scope)
		if closed(stmt) {
			_, end := stmt.Span()
			w.result.record(end, scope)
		}
	}
}

// closed reports whether the statement has its end tag. Unterminated
// constructs run to the end of input, so their scope never ends.
func closed(stmt twig.Statement) bool {
	switch s := stmt.(type) {
	case *twig.BodyStatement:
		return s.End != nil
	case *twig.IfStatement:
		return s.End != nil
	case *twig.ForStatement:
		return s.End != nil
	}
	return true
}

func (w *walker) walkStatement(stmt twig.Statement, scope *types.Scope) {
	switch s := stmt.(type) {
	case *twig.OutputStatement:
		first, last := s.Piece.Inner(w.tokens)
		w.eval(first, last, scope)
	case *twig.TagStatement:
		w.walkTag(s, scope)
	case *twig.BodyStatement:
		w.walkBody(s, scope)
	case *twig.IfStatement:
		w.walkIf(s, scope)
	case *twig.ForStatement:
		w.walkFor(s, scope)
	}
}

func (w *walker) walkTag(s *twig.TagStatement, scope *types.Scope) {
	first, last := s.Piece.Inner(w.tokens)
	switch s.Name {
	case "set":
		w.walkSet(first+1, last, scope)
	case "block":
		// {% block name expr %}
		w.eval(first+2, last, scope)
	case "import", "from":
		w.walkImport(first+1, last, scope)
	default:
		w.eval(first+1, last, scope)
	}
}

// walkSet handles {% set a = expr %} and {% set a, b = x, y %}.
func (w *walker) walkSet(first, last int, scope *types.Scope) {
	eq := w.findTop(first, last, func(i int) bool { return w.isOperator(i, "=") })
	if eq == twig.NoToken {
		w.eval(first, last, scope)
		return
	}

	var targets []int
	for i := first; i < eq; i++ {
		if w.tokens[i].Type == twig.TokenName {
			targets = append(targets, i)
		}
	}

	value := w.eval(eq+1, last, scope)
	if len(targets) != 1 {
		value = types.Any
	}
	for _, target := range targets {
		scope.Set(w.text(target), value)
		w.result.Names[target] = Variable{Type: value}
	}
}

// walkImport binds the aliases of {% import "x" as forms %} and
// {% from "x" import a as b, c %}.
func (w *walker) walkImport(first, last int, scope *types.Scope) {
	bind := func(i int) {
		scope.Set(w.text(i), types.Any)
		w.result.Names[i] = Variable{Type: types.Any}
	}

	start := first
	for i := first; i <= last; i++ {
		if w.isName(i, "import") {
			start = i + 1
			break
		}
	}
	for i := start; i <= last; i++ {
		if w.tokens[i].Type != twig.TokenName || w.isName(i, "as") {
			continue
		}
		if i+2 <= last && w.isName(i+1, "as") && w.tokens[i+2].Type == twig.TokenName {
			bind(i + 2)
			i += 2
			continue
		}
		if w.isName(i-1, "as") || start > first {
			bind(i)
		}
	}
}

func (w *walker) walkBody(s *twig.BodyStatement, scope *types.Scope) {
	first, last := s.Start.Inner(w.tokens)
	child := scope.Child()

	switch s.Name {
	case "verbatim":
		return
	case "macro":
		w.bindMacroParams(first+1, last, child)
	case "set":
		// body form captures text and binds nothing here
	case "block":
		w.eval(first+2, last, scope)
	case "with":
		if hash, ok := w.eval(first+1, last, scope).(types.ArrayType); ok {
			for name, t := range hash.Fields {
				child.Set(name, t)
			}
		}
	default:
		w.eval(first+1, last, scope)
	}

	w.result.record(s.Start.End, child)
	w.walkStatements(s.Body, child)
}

func (w *walker) bindMacroParams(first, last int, scope *types.Scope) {
	open := w.findTop(first, last, func(i int) bool { return w.isPunct(i, '(') })
	if open == twig.NoToken {
		return
	}
	depth := 0
	for i := open; i <= last; i++ {
		switch {
		case w.isPunct(i, '(') || w.isPunct(i, '[') || w.isPunct(i, '{'):
			depth++
		case w.isPunct(i, ')') || w.isPunct(i, ']') || w.isPunct(i, '}'):
			depth--
		case depth == 1 && w.tokens[i].Type == twig.TokenName && (w.isPunct(i-1, '(') || w.isPunct(i-1, ',')):
			scope.Set(w.text(i), types.Any)
			w.result.Names[i] = Variable{Type: types.Any}
		}
	}
}

func (w *walker) walkIf(s *twig.IfStatement, scope *types.Scope) {
	w.walkBranch(s.Start, s.Body, true, scope)
	for _, branch := range s.ElseIfs {
		w.walkBranch(branch.Piece, branch.Body, true, scope)
	}
	if s.Else != nil {
		w.walkBranch(s.Else.Piece, s.Else.Body, false, scope)
	}
}

// walkBranch evaluates the condition in the parent scope and the body in a
// child of it, so sibling branches never see each other's variables.
func (w *walker) walkBranch(piece twig.Piece, body []twig.Statement, condition bool, scope *types.Scope) {
	w.result.record(piece.Start, scope)
	if condition {
		first, last := piece.Inner(w.tokens)
		w.eval(first+1, last, scope)
	}
	child := scope.Child()
	w.result.record(piece.End, child)
	w.walkStatements(body, child)
}

// walkFor handles {% for [key,] value in source [if condition] %}.
func (w *walker) walkFor(s *twig.ForStatement, scope *types.Scope) {
	first, last := s.Start.Inner(w.tokens)
	first++

	in := w.findTop(first, last, func(i int) bool { return w.isOperator(i, "in") })
	child := scope.Child()
	if in == twig.NoToken {
		w.eval(first, last, scope)
	} else {
		cond := w.findTop(in+1, last, func(i int) bool { return w.isName(i, "if") })
		sourceLast := last
		if cond != twig.NoToken {
			sourceLast = cond - 1
		}
		element := types.ElementType(w.eval(in+1, sourceLast, scope))

		var targets []int
		for i := first; i < in; i++ {
			if w.tokens[i].Type == twig.TokenName {
				targets = append(targets, i)
			}
		}
		for n, target := range targets {
			t := element
			if n < len(targets)-1 {
				t = types.Any
			}
			child.Set(w.text(target), t)
			w.result.Names[target] = Variable{Type: t}
		}
		child.Set("loop", loopType)

		if cond != twig.NoToken {
			w.eval(cond+1, last, child)
		}
	}

	w.result.record(s.Start.End, child)
	w.walkStatements(s.Body, child)

	if s.Else != nil {
		w.walkBranch(s.Else.Piece, s.Else.Body, false, scope)
	}
}
