// Package dql tokenizes Doctrine query strings and relates their aliases and
// field paths back to entity classes.
package dql

import (
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// TokenType classifies a query token.
type TokenType int

const (
	AliasedName TokenType = iota
	FullyQualifiedName
	Identifier
	Number
	String
	InputParameter
	Dot
	Join
	From
)

func (t TokenType) String() string {
	switch t {
	case AliasedName:
		return "aliased_name"
	case FullyQualifiedName:
		return "fully_qualified_name"
	case Identifier:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case InputParameter:
		return "input_parameter"
	case Dot:
		return "dot"
	case Join:
		return "join"
	case From:
		return "from"
	}
	return "unknown"
}

// Token is a query token. Position is the byte offset inside the query
// string; callers add the string's own offset to get file positions.
type Token struct {
	Value    string
	Type     TokenType
	Position int
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Position + len(t.Value)
}

const (
	whitespaceToken = iota + 100
	parameterToken
	singleQuotedToken
	doubleQuotedToken
	numberToken
	aliasedNameToken
	qualifiedNameToken
	identifierToken
	dotToken
	anyToken
)

var whitespaceMatcher = parsly.NewToken(whitespaceToken, "Whitespace", matcher.NewWhiteSpace())
var parameterMatcher = parsly.NewToken(parameterToken, "Parameter", &parameterMatch{})
var singleQuotedMatcher = parsly.NewToken(singleQuotedToken, "SingleQuote", matcher.NewBlock('\'', '\'', '\\'))
var doubleQuotedMatcher = parsly.NewToken(doubleQuotedToken, "DoubleQuote", matcher.NewBlock('"', '"', '\\'))
var numberMatcher = parsly.NewToken(numberToken, "Number", matcher.NewNumber())
var aliasedNameMatcher = parsly.NewToken(aliasedNameToken, "AliasedName", &aliasedNameMatch{})
var qualifiedNameMatcher = parsly.NewToken(qualifiedNameToken, "QualifiedName", &qualifiedNameMatch{})
var identifierMatcher = parsly.NewToken(identifierToken, "Identifier", &identifierMatch{})
var dotMatcher = parsly.NewToken(dotToken, "Dot", matcher.NewByte('.'))
var anyMatcher = parsly.NewToken(anyToken, "Any", &anyMatch{})

// Tokenize splits a query into tokens. Characters that start no token are
// skipped; it never fails.
func Tokenize(query string) []Token {
	cursor := parsly.NewCursor("", []byte(query), 0)
	var tokens []Token
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchAfterOptional(whitespaceMatcher,
			parameterMatcher,
			singleQuotedMatcher,
			doubleQuotedMatcher,
			numberMatcher,
			aliasedNameMatcher,
			qualifiedNameMatcher,
			identifierMatcher,
			dotMatcher,
			anyMatcher,
		)

		var typ TokenType
		switch matched.Code {
		case parameterToken:
			typ = InputParameter
		case singleQuotedToken, doubleQuotedToken:
			typ = String
		case numberToken:
			typ = Number
		case aliasedNameToken:
			typ = AliasedName
		case qualifiedNameToken:
			typ = FullyQualifiedName
		case identifierToken:
			typ = keywordType(matched.Text(cursor))
		case dotToken:
			typ = Dot
		case parsly.EOF:
			return tokens
		default:
			continue
		}
		tokens = append(tokens, Token{
			Value:    matched.Text(cursor),
			Type:     typ,
			Position: matched.Offset,
		})
	}
	return tokens
}

func keywordType(word string) TokenType {
	switch strings.ToUpper(word) {
	case "JOIN":
		return Join
	case "FROM":
		return From
	}
	return Identifier
}

type anyMatch struct{}

func (a *anyMatch) Match(cursor *parsly.Cursor) int {
	if cursor.Pos < cursor.InputSize {
		return 1
	}
	return 0
}

type identifierMatch struct{}

func (i *identifierMatch) Match(cursor *parsly.Cursor) int {
	return identifierLength(cursor.Input, cursor.Pos, cursor.InputSize)
}

// parameterMatch matches :name and ?1 placeholders.
type parameterMatch struct{}

func (p *parameterMatch) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	if pos+1 >= cursor.InputSize {
		return 0
	}
	switch cursor.Input[pos] {
	case ':':
		if n := identifierLength(cursor.Input, pos+1, cursor.InputSize); n > 0 {
			return n + 1
		}
	case '?':
		n := 0
		for pos+1+n < cursor.InputSize && isDigit(cursor.Input[pos+1+n]) {
			n++
		}
		if n > 0 {
			return n + 1
		}
	}
	return 0
}

// aliasedNameMatch matches the short App:Product entity form.
type aliasedNameMatch struct{}

func (a *aliasedNameMatch) Match(cursor *parsly.Cursor) int {
	n := identifierLength(cursor.Input, cursor.Pos, cursor.InputSize)
	if n == 0 {
		return 0
	}
	colon := cursor.Pos + n
	if colon >= cursor.InputSize || cursor.Input[colon] != ':' {
		return 0
	}
	m := identifierLength(cursor.Input, colon+1, cursor.InputSize)
	if m == 0 {
		return 0
	}
	return n + 1 + m
}

// qualifiedNameMatch matches App\Entity\Product with an optional leading
// backslash. At least one separator is required.
type qualifiedNameMatch struct{}

func (q *qualifiedNameMatch) Match(cursor *parsly.Cursor) int {
	input, size := cursor.Input, cursor.InputSize
	pos := cursor.Pos
	if pos < size && input[pos] == '\\' {
		pos++
	}
	separators := 0
	for {
		n := identifierLength(input, pos, size)
		if n == 0 {
			return 0
		}
		pos += n
		if pos+1 < size && input[pos] == '\\' && isIdentifierStart(input[pos+1]) {
			pos++
			separators++
			continue
		}
		break
	}
	if separators == 0 && input[cursor.Pos] != '\\' {
		return 0
	}
	return pos - cursor.Pos
}

func identifierLength(input []byte, pos, size int) int {
	if pos >= size || !isIdentifierStart(input[pos]) {
		return 0
	}
	n := 1
	for pos+n < size && isIdentifierPart(input[pos+n]) {
		n++
	}
	return n
}

func isIdentifierStart(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

func isIdentifierPart(b byte) bool {
	return isIdentifierStart(b) || isDigit(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
