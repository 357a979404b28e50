package twig

// PathElement is one link of an access path: NameElement, DotElement,
// CallElement or IndexElement.
type PathElement interface {
	pathElement()
}

type NameElement struct {
	Token int
}

type DotElement struct {
	Token int
}

// CallElement is a (...) group. End is NoToken when the group is unclosed.
type CallElement struct {
	Start  int
	End    int
	Commas []int
}

// IndexElement is a [...] group. End is NoToken when the group is unclosed.
type IndexElement struct {
	Start int
	End   int
}

func (NameElement) pathElement()  {}
func (DotElement) pathElement()   {}
func (CallElement) pathElement()  {}
func (IndexElement) pathElement() {}

// AccessPath is a chain like a.b(c)[d]. It always starts with a NameElement.
type AccessPath []PathElement

// Head returns the token index of the leading name.
func (p AccessPath) Head() int {
	if len(p) == 0 {
		return NoToken
	}
	if n, ok := p[0].(NameElement); ok {
		return n.Token
	}
	return NoToken
}

// ParseAccessPaths extracts every access path in tokens[first..last]. Each
// path is followed by the paths found inside its call arguments and index
// expressions, so the first path returned stands for the whole expression.
func ParseAccessPaths(code string, tokens []Token, first, last int) []AccessPath {
	if last >= len(tokens) {
		last = len(tokens) - 1
	}
	if first < 0 {
		first = 0
	}
	ap := &pathParser{code: code, tokens: tokens, last: last}

	var paths []AccessPath
	for i := first; i <= last; {
		if tokens[i].Type != TokenName {
			i++
			continue
		}
		path, nested, next := ap.parsePath(i)
		paths = append(paths, path)
		paths = append(paths, nested...)
		i = next
	}
	return paths
}

type pathParser struct {
	code   string
	tokens []Token
	last   int
}

func (ap *pathParser) punct(i int, value byte) bool {
	if i > ap.last {
		return false
	}
	tok := ap.tokens[i]
	return tok.Type == TokenPunctuation && tok.Length == 1 && ap.code[tok.Offset] == value
}

func (ap *pathParser) parsePath(i int) (AccessPath, []AccessPath, int) {
	path := AccessPath{NameElement{Token: i}}
	var nested []AccessPath

	j := i + 1
	for j <= ap.last {
		switch {
		case ap.punct(j, '('), ap.punct(j, '['):
			closing, commas := ap.matchGroup(j)
			end := closing
			if closing == NoToken {
				end = ap.last + 1
			}

			from := j + 1
			if ap.punct(j, '(') {
				for _, comma := range commas {
					nested = append(nested, ParseAccessPaths(ap.code, ap.tokens, from, comma-1)...)
					from = comma + 1
				}
				path = append(path, CallElement{Start: j, End: closing, Commas: commas})
			} else {
				path = append(path, IndexElement{Start: j, End: closing})
			}
			if from <= end-1 {
				nested = append(nested, ParseAccessPaths(ap.code, ap.tokens, from, end-1)...)
			}

			if closing == NoToken {
				return path, nested, ap.last + 1
			}
			j = closing + 1
		case ap.punct(j, '.'):
			path = append(path, DotElement{Token: j})
			if j+1 > ap.last || ap.tokens[j+1].Type != TokenName {
				return path, nested, j + 1
			}
			path = append(path, NameElement{Token: j + 1})
			j += 2
		default:
			return path, nested, j
		}
	}
	return path, nested, j
}

// matchGroup finds the bracket closing the group opened at start and the
// commas directly inside it. Bracket kinds share one depth counter.
func (ap *pathParser) matchGroup(start int) (int, []int) {
	var commas []int
	depth := 0
	for k := start; k <= ap.last; k++ {
		tok := ap.tokens[k]
		if tok.Type != TokenPunctuation {
			continue
		}
		switch ap.code[tok.Offset] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return k, commas
			}
		case ',':
			if depth == 1 {
				commas = append(commas, k)
			}
		}
	}
	return NoToken, commas
}
