package twig

// PieceType is the kind of delimited region.
type PieceType int

const (
	PieceComment PieceType = iota
	PieceVar
	PieceBlock
)

func (t PieceType) String() string {
	switch t {
	case PieceComment:
		return "comment"
	case PieceVar:
		return "var"
	case PieceBlock:
		return "block"
	}
	return "unknown"
}

// Piece is a delimited region: {# #}, {{ }} or {% %}. Start and End are byte
// offsets (End exclusive), StartToken and EndToken are inclusive token indexes.
type Piece struct {
	Type       PieceType
	Start      int
	End        int
	StartToken int
	EndToken   int
}

// Closed reports whether the piece ends with its closing delimiter.
func (p Piece) Closed(tokens []Token) bool {
	if p.EndToken <= p.StartToken || p.EndToken >= len(tokens) {
		return false
	}
	switch tokens[p.EndToken].Type {
	case TokenCommentEnd, TokenBlockEnd, TokenVarEnd:
		return true
	}
	return false
}

// Inner returns the token range between the delimiters. first > last means
// the piece is empty.
func (p Piece) Inner(tokens []Token) (first, last int) {
	first, last = p.StartToken+1, p.EndToken
	if p.Closed(tokens) {
		last--
	}
	return first, last
}

// Contains reports whether the byte offset lies inside the piece. The offset
// right after an unterminated piece counts as inside, since that is where the
// user is typing.
func (p Piece) Contains(offset int) bool {
	return p.Start <= offset && offset <= p.End
}

// FindPieces groups tokens into pieces. Block and var pieces without a closing
// delimiter end right before the TEXT or EOF token that interrupts them.
func FindPieces(tokens []Token) []Piece {
	var pieces []Piece

	const (
		stateNone = iota
		stateComment
		stateBlock
		stateVar
	)
	state := stateNone
	start := 0

	closePiece := func(typ PieceType, end int) {
		if end < start {
			end = start
		}
		pieces = append(pieces, Piece{
			Type:       typ,
			Start:      tokens[start].Offset,
			End:        tokens[end].End(),
			StartToken: start,
			EndToken:   end,
		})
		state = stateNone
	}
	open := func(i int) {
		switch tokens[i].Type {
		case TokenCommentStart:
			state, start = stateComment, i
		case TokenBlockStart:
			state, start = stateBlock, i
		case TokenVarStart:
			state, start = stateVar, i
		}
	}

	for i, tok := range tokens {
		switch state {
		case stateNone:
			open(i)
		case stateComment:
			switch tok.Type {
			case TokenCommentEnd:
				closePiece(PieceComment, i)
			case TokenEOF:
				closePiece(PieceComment, i-1)
			}
		case stateBlock, stateVar:
			typ, end := PieceBlock, TokenBlockEnd
			if state == stateVar {
				typ, end = PieceVar, TokenVarEnd
			}
			switch tok.Type {
			case end:
				closePiece(typ, i)
			case TokenText, TokenEOF:
				closePiece(typ, i-1)
			case TokenCommentStart, TokenBlockStart, TokenVarStart:
				closePiece(typ, i-1)
				open(i)
			}
		}
	}
	return pieces
}

// PieceAt returns the index of the piece containing offset, or -1.
func PieceAt(pieces []Piece, offset int) int {
	for i, p := range pieces {
		if p.Start > offset {
			break
		}
		if p.Contains(offset) {
			return i
		}
	}
	return -1
}
