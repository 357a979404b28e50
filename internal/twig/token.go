package twig

import "sort"

// TokenType identifies the lexical class of a Token.
type TokenType int

const (
	TokenText TokenType = iota
	TokenCommentStart
	TokenCommentBody
	TokenCommentEnd
	TokenBlockStart
	TokenBlockEnd
	TokenVarStart
	TokenVarEnd
	TokenName
	TokenNumber
	TokenString
	TokenOperator
	TokenPunctuation
	TokenEOF
)

var tokenTypeNames = [...]string{
	TokenText:         "TEXT",
	TokenCommentStart: "COMMENT_START",
	TokenCommentBody:  "COMMENT_BODY",
	TokenCommentEnd:   "COMMENT_END",
	TokenBlockStart:   "BLOCK_START",
	TokenBlockEnd:     "BLOCK_END",
	TokenVarStart:     "VAR_START",
	TokenVarEnd:       "VAR_END",
	TokenName:         "NAME",
	TokenNumber:       "NUMBER",
	TokenString:       "STRING",
	TokenOperator:     "OPERATOR",
	TokenPunctuation:  "PUNCTUATION",
	TokenEOF:          "EOF",
}

func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenTypeNames) {
		return "UNKNOWN"
	}
	return tokenTypeNames[t]
}

// Token is a span of template source. Offset and Length are byte based.
type Token struct {
	Type   TokenType
	Offset int
	Length int
}

// End returns the offset just past the token.
func (t Token) End() int {
	return t.Offset + t.Length
}

// Text returns the source text covered by the token.
func (t Token) Text(code string) string {
	if t.Offset < 0 || t.End() > len(code) {
		return ""
	}
	return code[t.Offset:t.End()]
}

// NoToken marks an absent token index.
const NoToken = -1

// TokenAt returns the index of the token under the byte offset. A cursor placed
// right after a token still counts as being on it, so completion prefixes work.
func TokenAt(tokens []Token, offset int) int {
	i := sort.Search(len(tokens), func(i int) bool {
		return tokens[i].Offset > offset
	}) - 1
	if i < 0 {
		return NoToken
	}
	tok := tokens[i]
	if offset < tok.End() {
		return i
	}
	if offset == tok.End() && tok.Length > 0 {
		return i
	}
	if i > 0 && tokens[i-1].End() == offset && tokens[i-1].Length > 0 {
		return i - 1
	}
	return NoToken
}
