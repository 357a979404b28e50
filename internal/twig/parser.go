package twig

import "strings"

// Tags whose body runs until end<tag>.
var bodyKeywords = map[string]bool{
	"apply":      true,
	"autoescape": true,
	"block":      true,
	"embed":      true,
	"filter":     true,
	"macro":      true,
	"sandbox":    true,
	"set":        true,
	"spaceless":  true,
	"verbatim":   true,
	"with":       true,
}

// Parse builds the statement tree. It is total: a construct whose end tag is
// missing gets a nil End and runs to the end of input.
func Parse(code string, tokens []Token, pieces []Piece) []Statement {
	p := &parser{code: code, tokens: tokens, pieces: pieces}
	stmts, _ := p.parseBody()
	return stmts
}

type parser struct {
	code   string
	tokens []Token
	pieces []Piece
	pos    int

	// terminators of every open construct, innermost last
	closers [][]string
}

// PieceName returns the tag name of a piece: its second token when that is a
// NAME, "" otherwise.
func PieceName(code string, tokens []Token, piece Piece) string {
	first, last := piece.Inner(tokens)
	if first > last || tokens[first].Type != TokenName {
		return ""
	}
	return tokens[first].Text(code)
}

func (p *parser) name(piece Piece) string {
	if piece.Type != PieceBlock {
		return ""
	}
	return PieceName(p.code, p.tokens, piece)
}

func (p *parser) closes(name string) bool {
	for _, level := range p.closers {
		for _, c := range level {
			if c == name {
				return true
			}
		}
	}
	return false
}

// parseBody collects statements until a piece closing this or any enclosing
// construct. The closing piece is left unconsumed at p.pos; found is false
// when input ran out first.
func (p *parser) parseBody(terminators ...string) (stmts []Statement, found bool) {
	p.closers = append(p.closers, terminators)
	defer func() {
		p.closers = p.closers[:len(p.closers)-1]
	}()

	for p.pos < len(p.pieces) {
		if name := p.name(p.pieces[p.pos]); name != "" && p.closes(name) {
			return stmts, true
		}
		if stmt := p.parseStatement(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, false
}

func (p *parser) parseStatement() Statement {
	piece := p.pieces[p.pos]
	switch piece.Type {
	case PieceVar:
		p.pos++
		return &OutputStatement{Piece: piece}
	case PieceComment:
		p.pos++
		return nil
	}

	name := p.name(piece)
	switch {
	case name == "":
		p.pos++
		return nil
	case name == "if":
		return p.parseIf()
	case name == "for":
		return p.parseFor()
	case bodyKeywords[name] && !p.isOneLine(piece, name):
		return p.parseGeneric(name)
	case name == "else" || name == "elseif" || strings.HasPrefix(name, "end"):
		// stray closer
		p.pos++
		return nil
	}
	p.pos++
	return &TagStatement{Name: name, Piece: piece}
}

// isOneLine tells the inline forms of body keywords apart:
// {% block title "Home" %} and {% set x = 1 %} have no end tag.
func (p *parser) isOneLine(piece Piece, name string) bool {
	first, last := piece.Inner(p.tokens)
	count := last - first + 1
	switch name {
	case "block":
		return count > 2
	case "set":
		return count != 2 || p.tokens[last].Type != TokenName
	}
	return false
}

func (p *parser) parseGeneric(name string) Statement {
	stmt := &BodyStatement{Name: name, Start: p.pieces[p.pos]}
	p.pos++

	end := "end" + name
	body, found := p.parseBody(end)
	stmt.Body = body
	if found && p.name(p.pieces[p.pos]) == end {
		closing := p.pieces[p.pos]
		stmt.End = &closing
		p.pos++
	}
	return stmt
}

func (p *parser) parseIf() Statement {
	stmt := &IfStatement{Start: p.pieces[p.pos]}
	p.pos++

	body, found := p.parseBody("elseif", "else", "endif")
	stmt.Body = body
	for found {
		piece := p.pieces[p.pos]
		switch p.name(piece) {
		case "elseif":
			if stmt.Else != nil {
				return stmt
			}
			p.pos++
			var branch []Statement
			branch, found = p.parseBody("elseif", "else", "endif")
			stmt.ElseIfs = append(stmt.ElseIfs, Branch{Piece: piece, Body: branch})
		case "else":
			if stmt.Else != nil {
				return stmt
			}
			p.pos++
			var branch []Statement
			branch, found = p.parseBody("endif", "else", "elseif")
			stmt.Else = &Branch{Piece: piece, Body: branch}
		case "endif":
			p.pos++
			stmt.End = &piece
			return stmt
		default:
			// closer of an enclosing construct
			return stmt
		}
	}
	return stmt
}

func (p *parser) parseFor() Statement {
	stmt := &ForStatement{Start: p.pieces[p.pos]}
	p.pos++

	body, found := p.parseBody("else", "endfor")
	stmt.Body = body
	for found {
		piece := p.pieces[p.pos]
		switch p.name(piece) {
		case "else":
			if stmt.Else != nil {
				return stmt
			}
			p.pos++
			var branch []Statement
			branch, found = p.parseBody("endfor", "else")
			stmt.Else = &Branch{Piece: piece, Body: branch}
		case "endfor":
			p.pos++
			stmt.End = &piece
			return stmt
		default:
			return stmt
		}
	}
	return stmt
}
