package twig

// Statement is a node of the template tree. The set of implementations is
// closed: OutputStatement, TagStatement, BodyStatement, IfStatement and
// ForStatement.
type Statement interface {
	// Span returns the byte range covered by the statement. A construct
	// without an end tag spans up to its last nested statement.
	Span() (start, end int)
	statement()
}

// OutputStatement is a {{ expression }} piece.
type OutputStatement struct {
	Piece Piece
}

// TagStatement is a block tag that needs no end tag: a one-line set or block,
// include, do, import and friends.
type TagStatement struct {
	Name  string
	Piece Piece
}

// BodyStatement is a block tag with a body closed by end<Name>.
type BodyStatement struct {
	Name  string
	Start Piece
	Body  []Statement
	End   *Piece
}

// Branch is an elseif or else part.
type Branch struct {
	Piece Piece
	Body  []Statement
}

type IfStatement struct {
	Start   Piece
	Body    []Statement
	ElseIfs []Branch
	Else    *Branch
	End     *Piece
}

type ForStatement struct {
	Start Piece
	Body  []Statement
	Else  *Branch
	End   *Piece
}

func (*OutputStatement) statement() {}
func (*TagStatement) statement()    {}
func (*BodyStatement) statement()   {}
func (*IfStatement) statement()     {}
func (*ForStatement) statement()    {}

func (s *OutputStatement) Span() (int, int) { return s.Piece.Start, s.Piece.End }
func (s *TagStatement) Span() (int, int)    { return s.Piece.Start, s.Piece.End }

func (s *BodyStatement) Span() (int, int) {
	return s.Start.Start, spanEnd(s.Start, s.End, s.Body)
}

func (s *IfStatement) Span() (int, int) {
	last, body := s.Start, s.Body
	for _, b := range s.ElseIfs {
		last, body = b.Piece, b.Body
	}
	if s.Else != nil {
		last, body = s.Else.Piece, s.Else.Body
	}
	return s.Start.Start, spanEnd(last, s.End, body)
}

func (s *ForStatement) Span() (int, int) {
	last, body := s.Start, s.Body
	if s.Else != nil {
		last, body = s.Else.Piece, s.Else.Body
	}
	return s.Start.Start, spanEnd(last, s.End, body)
}

func spanEnd(opening Piece, closing *Piece, body []Statement) int {
	if closing != nil {
		return closing.End
	}
	if len(body) > 0 {
		_, end := body[len(body)-1].Span()
		return end
	}
	return opening.End
}

// Walk calls fn for every statement in depth-first source order. Returning
// false from fn skips the statement's children.
func Walk(stmts []Statement, fn func(Statement) bool) {
	for _, stmt := range stmts {
		if !fn(stmt) {
			continue
		}
		switch s := stmt.(type) {
		case *BodyStatement:
			Walk(s.Body, fn)
		case *IfStatement:
			Walk(s.Body, fn)
			for _, b := range s.ElseIfs {
				Walk(b.Body, fn)
			}
			if s.Else != nil {
				Walk(s.Else.Body, fn)
			}
		case *ForStatement:
			Walk(s.Body, fn)
			if s.Else != nil {
				Walk(s.Else.Body, fn)
			}
		}
	}
}
