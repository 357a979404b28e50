package inference

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shinyvision/twiglens/internal/twig"
	"github.com/shinyvision/twiglens/internal/types"
)

const (
	repositoryClass = `Doctrine\ORM\EntityRepository`
	queryClass      = `Doctrine\ORM\Query`
)

// Doctrine methods whose result type follows from the entity alone.
var (
	repositoryFinders = map[string]func(entity string) types.Type{
		"find":               types.Object,
		"findoneby":          types.Object,
		"findall":            func(e string) types.Type { return types.ArrayOf(types.Object(e)) },
		"findby":             func(e string) types.Type { return types.ArrayOf(types.Object(e)) },
		"matching":           func(e string) types.Type { return types.ArrayOf(types.Object(e)) },
		"createquerybuilder": types.Query,
	}
	queryMethods = map[string]func(entity string) types.Type{
		"getresult":          func(e string) types.Type { return types.ArrayOf(types.Object(e)) },
		"execute":            func(e string) types.Type { return types.ArrayOf(types.Object(e)) },
		"getoneornullresult": types.Object,
		"getsingleresult":    types.Object,
		"getquery":           types.Query,
		"select":             types.Query,
		"where":              types.Query,
		"andwhere":           types.Query,
		"orwhere":            types.Query,
		"join":               types.Query,
		"leftjoin":           types.Query,
		"innerjoin":          types.Query,
		"setparameter":       types.Query,
		"setparameters":      types.Query,
		"orderby":            types.Query,
		"addorderby":         types.Query,
		"setmaxresults":      types.Query,
		"setfirstresult":     types.Query,
	}
)

// eval infers the type of tokens[first..last] and records what it learns on
// the way. The first access path stands for the whole expression.
func (w *walker) eval(first, last int, scope *types.Scope) types.Type {
	if first > last || first < 0 {
		return types.Any
	}
	paths := twig.ParseAccessPaths(w.code, w.tokens, first, last)

	var result types.Type = types.Any
	for i, path := range paths {
		t := w.resolvePath(path, scope)
		if i == 0 {
			result = t
		}
	}

	if literal, ok := w.literal(first, last); ok {
		return literal
	}
	return result
}

// literal types [..] and {..} expressions.
func (w *walker) literal(first, last int) (types.Type, bool) {
	switch {
	case w.isPunct(first, '['):
		return types.ArrayOf(types.Any), true
	case w.isPunct(first, '{'):
		fields := make(map[string]types.Type)
		depth := 0
		for i := first; i <= last; i++ {
			switch {
			case w.isPunct(i, '(') || w.isPunct(i, '[') || w.isPunct(i, '{'):
				depth++
			case w.isPunct(i, ')') || w.isPunct(i, ']') || w.isPunct(i, '}'):
				depth--
			case depth == 1 && w.isHashKey(i):
				fields[unquote(w.text(i))] = types.Any
			}
			if depth == 0 {
				break
			}
		}
		return types.Hash(fields), true
	}
	return nil, false
}

// isHashKey reports whether token i is a key of a {...} literal, including
// the {a, b} shorthand.
func (w *walker) isHashKey(i int) bool {
	switch w.tokens[i].Type {
	case twig.TokenName, twig.TokenString, twig.TokenNumber:
	default:
		return false
	}
	if !w.isPunct(i-1, '{') && !w.isPunct(i-1, ',') {
		return false
	}
	if w.isPunct(i+1, ':') {
		return true
	}
	return w.tokens[i].Type == twig.TokenName && (w.isPunct(i+1, ',') || w.isPunct(i+1, '}'))
}

// isNamedKey reports whether the name at i is a hash key or a named argument
// rather than a reference.
func (w *walker) isNamedKey(i int) bool {
	return (w.isPunct(i-1, '{') || w.isPunct(i-1, ',') || w.isPunct(i-1, '(')) && w.isPunct(i+1, ':')
}

// isFilterOrTest reports whether the name at i follows | or is, which makes
// it a filter or test name instead of a variable.
func (w *walker) isFilterOrTest(i int) bool {
	return w.isPunct(i-1, '|') || w.isOperator(i-1, "is") || w.isOperator(i-1, "is not")
}

func (w *walker) resolvePath(path twig.AccessPath, scope *types.Scope) types.Type {
	head := path.Head()
	if head == twig.NoToken {
		return types.Any
	}

	var current types.Type = types.Any
	switch name := w.text(head); {
	case w.isFilterOrTest(head), w.isNamedKey(head):
	default:
		if t, ok := scope.Get(name); ok {
			current = types.OrAny(t)
			w.result.Names[head] = Variable{Type: current}
		} else if t, ok := w.resolver.ResolveFunctionReturnType(w.ctx, name); ok {
			current = types.OrAny(t)
			w.result.Names[head] = Function{Name: name, ReturnType: current}
		}
	}

	for i := 1; i < len(path); i++ {
		switch el := path[i].(type) {
		case twig.DotElement:
			w.result.Dots[el.Token] = DotInfo{TypeBefore: current}
			next, ok := nextName(path, i)
			if !ok {
				current = types.Any
				continue
			}
			current = w.member(current, next)
			i++
		case twig.IndexElement:
			current = types.ElementType(current)
		case twig.CallElement:
			// the callee already produced the return type
		}
	}
	return current
}

func nextName(path twig.AccessPath, i int) (int, bool) {
	if i+1 >= len(path) {
		return twig.NoToken, false
	}
	n, ok := path[i+1].(twig.NameElement)
	return n.Token, ok
}

// member resolves receiver.name and records the classification of the name
// token. Properties win over methods, and methods over get/is/has accessors.
func (w *walker) member(receiver types.Type, tok int) types.Type {
	name := w.text(tok)
	switch r := receiver.(type) {
	case types.ObjectType:
		info := w.class(r.Class)
		if info == nil {
			return types.Any
		}
		if p, ok := info.PublicProperty(name); ok {
			t := types.OrAny(p.Type)
			w.result.Names[tok] = ClassProperty{Class: declaring(p.Class, r.Class), Property: p.Name, Type: t}
			return t
		}
		candidates := []string{name}
		for _, prefix := range []string{"get", "is", "has"} {
			candidates = append(candidates, prefix+capitalize(name))
		}
		for _, candidate := range candidates {
			if m, ok := info.PublicMethod(candidate); ok {
				t := types.OrAny(m.ReturnType)
				w.result.Names[tok] = ClassMethod{Class: declaring(m.Class, r.Class), Method: m.Name, Type: t}
				return t
			}
		}
	case types.ArrayType:
		if t, ok := r.Fields[name]; ok {
			return types.OrAny(t)
		}
	case types.EntityRepositoryType:
		if t, ok := magic(repositoryFinders, name, r.Entity); ok {
			w.result.Names[tok] = ClassMethod{Class: repositoryClass, Method: name, Type: t}
			return t
		}
	case types.DoctrineQueryType:
		if t, ok := magic(queryMethods, name, r.Entity); ok {
			w.result.Names[tok] = ClassMethod{Class: queryClass, Method: name, Type: t}
			return t
		}
	}
	return types.Any
}

// magic matches Doctrine methods case-insensitively, including the
// findBy<Field> and findOneBy<Field> forms.
func magic(table map[string]func(string) types.Type, name, entity string) (types.Type, bool) {
	lower := strings.ToLower(name)
	if fn, ok := table[lower]; ok {
		return fn(entity), true
	}
	for _, prefix := range []string{"findoneby", "findby"} {
		if strings.HasPrefix(lower, prefix) && len(lower) > len(prefix) {
			if fn, ok := table[prefix]; ok {
				return fn(entity), true
			}
		}
	}
	return nil, false
}

func (w *walker) class(name string) *types.ClassInfo {
	if info, ok := w.classes[name]; ok {
		return info
	}
	info := w.resolver.ResolveClass(w.ctx, name)
	w.classes[name] = info
	return info
}

func declaring(class, fallback string) string {
	if class != "" {
		return class
	}
	return fallback
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// findTop returns the first token in [first, last] outside brackets that
// satisfies match, or NoToken.
func (w *walker) findTop(first, last int, match func(int) bool) int {
	depth := 0
	for i := first; i <= last && i < len(w.tokens); i++ {
		switch {
		case depth == 0 && match(i):
			return i
		case w.isPunct(i, '(') || w.isPunct(i, '[') || w.isPunct(i, '{'):
			depth++
		case w.isPunct(i, ')') || w.isPunct(i, ']') || w.isPunct(i, '}'):
			depth--
		}
	}
	return twig.NoToken
}

func (w *walker) text(i int) string {
	return w.tokens[i].Text(w.code)
}

func (w *walker) isPunct(i int, ch byte) bool {
	if i < 0 || i >= len(w.tokens) {
		return false
	}
	tok := w.tokens[i]
	return tok.Type == twig.TokenPunctuation && tok.Length == 1 && w.code[tok.Offset] == ch
}

// isOperator compares word operators with their inner blanks collapsed.
func (w *walker) isOperator(i int, op string) bool {
	if i < 0 || i >= len(w.tokens) || w.tokens[i].Type != twig.TokenOperator {
		return false
	}
	return strings.Join(strings.Fields(w.text(i)), " ") == op
}

func (w *walker) isName(i int, name string) bool {
	if i < 0 || i >= len(w.tokens) || w.tokens[i].Type != twig.TokenName {
		return false
	}
	return w.text(i) == name
}
