package twig

import (
	"regexp"
	"sort"
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

var delimiterRe = regexp.MustCompile(`\{[{%#]-?`)

// Multi-word operators accept any run of blanks between their words.
var operators = func() []string {
	ops := []string{
		"not in", "is not", "starts with", "ends with", "has some", "has every",
		"matches", "b-and", "b-xor", "b-or", "not", "and", "xor", "or", "in", "is",
		"<=>", "==", "!=", "<=", ">=", "<", ">", "..", "+", "-", "~", "**", "*",
		"//", "/", "%", "??", "?:", "=",
	}
	sort.SliceStable(ops, func(i, j int) bool {
		return len(ops[i]) > len(ops[j])
	})
	return ops
}()

const punctuation = "()[]{}?:.,|"

// Tokenize splits template source into tokens. It never fails: unterminated
// tags end at the end of their line, unterminated comments at the end of input.
// The result always ends with a zero-length EOF token.
func Tokenize(code string) []Token {
	l := &lexer{code: code}
	l.run()
	return l.tokens
}

type lexer struct {
	code   string
	pos    int
	tokens []Token
}

func (l *lexer) emit(typ TokenType, start, end int) {
	if end <= start {
		return
	}
	l.tokens = append(l.tokens, Token{Type: typ, Offset: start, Length: end - start})
}

func (l *lexer) run() {
	delimiters := delimiterRe.FindAllStringIndex(l.code, -1)
	next := 0
	for {
		for next < len(delimiters) && delimiters[next][0] < l.pos {
			next++
		}
		if next >= len(delimiters) {
			l.emit(TokenText, l.pos, len(l.code))
			l.pos = len(l.code)
			break
		}
		start, end := delimiters[next][0], delimiters[next][1]
		next++

		l.emit(TokenText, l.pos, start)
		l.pos = end
		switch l.code[start+1] {
		case '#':
			l.emit(TokenCommentStart, start, end)
			l.lexComment()
		case '%':
			l.emit(TokenBlockStart, start, end)
			l.lexTag("%}", TokenBlockEnd)
		default:
			l.emit(TokenVarStart, start, end)
			l.lexTag("}}", TokenVarEnd)
		}
	}
	l.tokens = append(l.tokens, Token{Type: TokenEOF, Offset: len(l.code)})
}

// Comments may span lines, so the closing delimiter is searched in the whole rest.
func (l *lexer) lexComment() {
	rest := l.code[l.pos:]
	idx := strings.Index(rest, "#}")
	if idx < 0 {
		l.emit(TokenCommentBody, l.pos, len(l.code))
		l.pos = len(l.code)
		return
	}
	closeStart := l.pos + idx
	if idx > 0 && rest[idx-1] == '-' {
		closeStart--
	}
	l.emit(TokenCommentBody, l.pos, closeStart)
	l.emit(TokenCommentEnd, closeStart, l.pos+idx+2)
	l.pos += idx + 2
}

// lexTag scans the inside of a {% %} or {{ }} region. The region never extends
// past the current line: an unterminated tag gives back control to the data
// state at the newline.
func (l *lexer) lexTag(closer string, closerType TokenType) {
	lineEnd := len(l.code)
	if nl := strings.IndexByte(l.code[l.pos:], '\n'); nl >= 0 {
		lineEnd = l.pos + nl
	}

	closerMatcher := parsly.NewToken(closerToken, "Closer", &closerMatch{closer: closer})
	cursor := parsly.NewCursor("", []byte(l.code[l.pos:lineEnd]), 0)
	base := l.pos
	defer func() { l.pos = base + cursor.Pos }()

	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAfterOptional(blankMatcher,
			closerMatcher,
			operatorMatcher,
			nameMatcher,
			numberMatcher,
			punctuationMatcher,
			stringMatcher,
			anyMatcher,
		)

		var typ TokenType
		switch matched.Code {
		case closerToken:
			l.emit(closerType, base+matched.Offset, base+matched.Offset+matched.Size)
			return
		case operatorToken:
			typ = TokenOperator
		case nameToken:
			typ = TokenName
		case numberToken:
			typ = TokenNumber
		case punctuationToken:
			typ = TokenPunctuation
		case stringToken:
			typ = TokenString
		case parsly.EOF:
			return
		default:
			// unexpected character
			continue
		}
		l.emit(typ, base+matched.Offset, base+matched.Offset+matched.Size)
	}
}

const (
	closerToken = iota + 100
	operatorToken
	nameToken
	numberToken
	punctuationToken
	stringToken
	anyToken
)

var (
	blankMatcher       = parsly.NewToken(0, "Blank", matcher.NewWhiteSpace())
	operatorMatcher    = parsly.NewToken(operatorToken, "Operator", &operatorMatch{})
	nameMatcher        = parsly.NewToken(nameToken, "Name", &nameMatch{})
	numberMatcher      = parsly.NewToken(numberToken, "Number", &numberMatch{})
	punctuationMatcher = parsly.NewToken(punctuationToken, "Punctuation", matcher.NewCharset(punctuation))
	stringMatcher      = parsly.NewToken(stringToken, "String", &stringMatch{})
	anyMatcher         = parsly.NewToken(anyToken, "Any", &anyMatch{})
)

// closerMatch matches the closing delimiter with an optional trim dash.
type closerMatch struct {
	closer string
}

func (c *closerMatch) Match(cursor *parsly.Cursor) int {
	return closerLength(rest(cursor), c.closer)
}

// operatorMatch tries the longest operators first. Word operators must not be
// the head of an identifier.
type operatorMatch struct{}

func (o *operatorMatch) Match(cursor *parsly.Cursor) int {
	return operatorLength(rest(cursor))
}

type nameMatch struct{}

func (n *nameMatch) Match(cursor *parsly.Cursor) int {
	return nameLength(rest(cursor))
}

// numberMatch leaves the dot of a range such as 1..5 to the operator.
type numberMatch struct{}

func (n *numberMatch) Match(cursor *parsly.Cursor) int {
	return numberLength(rest(cursor))
}

// stringMatch matches a quoted literal bounded by the cursor input, which
// ends at the end of the line.
type stringMatch struct{}

func (s *stringMatch) Match(cursor *parsly.Cursor) int {
	return stringLength(rest(cursor))
}

type anyMatch struct{}

func (a *anyMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize {
		return 1
	}
	return 0
}

func rest(cursor *parsly.Cursor) string {
	return string(cursor.Input[cursor.Pos:cursor.InputSize])
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

func isNameStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x7f
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func blankLength(s string) int {
	n := 0
	for n < len(s) && isBlank(s[n]) {
		n++
	}
	return n
}

func closerLength(s, closer string) int {
	if strings.HasPrefix(s, closer) {
		return len(closer)
	}
	if len(s) > 0 && s[0] == '-' && strings.HasPrefix(s[1:], closer) {
		return len(closer) + 1
	}
	return 0
}

func operatorLength(s string) int {
	for _, op := range operators {
		n := wordsLength(s, op)
		if n == 0 {
			continue
		}
		// word operators must not be the head of an identifier
		if isLetter(op[len(op)-1]) && n < len(s) && !isBlank(s[n]) && s[n] != '(' {
			continue
		}
		return n
	}
	return 0
}

func wordsLength(s, op string) int {
	n := 0
	for i, word := range strings.Split(op, " ") {
		if i > 0 {
			blanks := blankLength(s[n:])
			if blanks == 0 {
				return 0
			}
			n += blanks
		}
		if !strings.HasPrefix(s[n:], word) {
			return 0
		}
		n += len(word)
	}
	return n
}

func nameLength(s string) int {
	if len(s) == 0 || !isNameStart(s[0]) {
		return 0
	}
	n := 1
	for n < len(s) && (isNameStart(s[n]) || isDigit(s[n])) {
		n++
	}
	return n
}

func numberLength(s string) int {
	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	if n == 0 {
		return 0
	}
	if n+1 < len(s) && s[n] == '.' && isDigit(s[n+1]) {
		n++
		for n < len(s) && isDigit(s[n]) {
			n++
		}
	}
	if n+1 < len(s) && (s[n] == 'e' || s[n] == 'E') {
		m := n + 1
		if s[m] == '+' || s[m] == '-' {
			m++
		}
		if m < len(s) && isDigit(s[m]) {
			for m < len(s) && isDigit(s[m]) {
				m++
			}
			n = m
		}
	}
	return n
}

// stringLength matches a quoted literal. Escaped quotes are honoured; an
// unterminated literal runs to the end of s, which is the end of the line.
func stringLength(s string) int {
	if len(s) == 0 || (s[0] != '"' && s[0] != '\'') {
		return 0
	}
	quote := s[0]
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}
	return len(s)
}
