package types

import "strings"

var scalarNames = map[string]bool{
	"mixed": true, "int": true, "integer": true, "float": true, "double": true,
	"string": true, "bool": true, "boolean": true, "true": true, "false": true,
	"null": true, "void": true, "never": true, "callable": true, "object": true,
	"resource": true, "number": true, "scalar": true, "class-string": true,
	"non-empty-string": true, "positive-int": true, "negative-int": true,
}

var listNames = map[string]bool{
	"array": true, "iterable": true, "list": true, "non-empty-array": true, "non-empty-list": true,
}

// ParseExpr parses a PHP type expression as written in declarations, phpdoc
// and configuration: mixed, X[], array<K, V>, ?X, X|null, EntityRepository<X>.
// Class names are kept as written.
func ParseExpr(expr string) Type {
	return ParseExprFunc(expr, nil)
}

// ParseExprFunc is ParseExpr with qualify applied to every class name, so
// callers can expand use imports and namespaces. qualify may be nil.
func ParseExprFunc(expr string, qualify func(string) string) Type {
	if qualify == nil {
		qualify = func(name string) string { return name }
	}
	return parseExpr(strings.TrimSpace(expr), qualify)
}

func parseExpr(expr string, qualify func(string) string) Type {
	expr = strings.TrimPrefix(expr, "?")
	if expr == "" {
		return Any
	}
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		return parseExpr(strings.TrimSpace(expr[1:len(expr)-1]), qualify)
	}

	if alternatives := splitTop(expr, '|'); len(alternatives) > 1 {
		var ts []Type
		for _, alt := range alternatives {
			alt = strings.TrimSpace(alt)
			if strings.EqualFold(alt, "null") || strings.EqualFold(alt, "false") {
				continue
			}
			ts = append(ts, parseExpr(alt, qualify))
		}
		return Combine(ts)
	}
	if len(splitTop(expr, '&')) > 1 {
		return Any
	}

	if strings.HasSuffix(expr, "[]") {
		return ArrayOf(parseExpr(strings.TrimSpace(strings.TrimSuffix(expr, "[]")), qualify))
	}

	if open := strings.IndexByte(expr, '{'); open > 0 && strings.HasSuffix(expr, "}") {
		if listNames[strings.ToLower(expr[:open])] {
			return parseShape(expr[open+1:len(expr)-1], qualify)
		}
		return Any
	}

	if open := strings.IndexByte(expr, '<'); open > 0 && strings.HasSuffix(expr, ">") {
		return parseGeneric(strings.TrimSpace(expr[:open]), splitTop(expr[open+1:len(expr)-1], ','), qualify)
	}

	lower := strings.ToLower(expr)
	switch {
	case scalarNames[lower]:
		return Any
	case listNames[lower]:
		return ArrayOf(Any)
	case strings.HasPrefix(expr, "$"), strings.ContainsAny(expr, `'"`):
		return Any
	}
	return Object(qualify(expr))
}

func parseGeneric(base string, args []string, qualify func(string) string) Type {
	if len(args) == 0 {
		return Any
	}
	last := strings.TrimSpace(args[len(args)-1])
	short := base
	if i := strings.LastIndexByte(base, '\\'); i >= 0 {
		short = base[i+1:]
	}

	switch {
	case listNames[strings.ToLower(base)], strings.HasSuffix(short, "Collection"), short == "Traversable", short == "Iterator", short == "Generator":
		if short == "Generator" && len(args) > 1 {
			last = strings.TrimSpace(args[1])
		}
		return ArrayOf(parseExpr(last, qualify))
	case short == "EntityRepository", short == "ServiceEntityRepository", short == "ObjectRepository":
		if obj, ok := parseExpr(last, qualify).(ObjectType); ok {
			return Repository(obj.Class)
		}
		return Any
	case short == "Query", short == "QueryBuilder", short == "AbstractQuery":
		if obj, ok := parseExpr(last, qualify).(ObjectType); ok {
			return Query(obj.Class)
		}
		return Any
	case short == "class-string":
		return Any
	}
	return Object(qualify(base))
}

// parseShape handles array{key: type, other?: type}.
func parseShape(body string, qualify func(string) string) Type {
	fields := make(map[string]Type)
	for _, part := range splitTop(body, ',') {
		part = strings.TrimSpace(part)
		if part == "" || part == "..." {
			continue
		}
		colon := indexTop(part, ':')
		if colon < 0 {
			continue
		}
		key := strings.TrimSpace(part[:colon])
		key = strings.TrimSuffix(key, "?")
		key = strings.Trim(key, `'"`)
		fields[key] = parseExpr(strings.TrimSpace(part[colon+1:]), qualify)
	}
	return Hash(fields)
}

// splitTop splits s on sep outside of <>, {} and () groups.
func splitTop(s string, sep byte) []string {
	var parts []string
	depth, from := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '{', '(':
			depth++
		case '>', '}', ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[from:i])
				from = i + 1
			}
		}
	}
	return append(parts, s[from:])
}

func indexTop(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '{', '(':
			depth++
		case '>', '}', ')':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
