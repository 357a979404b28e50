package inference

import (
	"context"

	"github.com/shinyvision/twiglens/internal/twig"
	"github.com/shinyvision/twiglens/internal/types"
)

// Analysis bundles every stage of the pipeline for one template text.
type Analysis struct {
	Code       string
	Tokens     []twig.Token
	Pieces     []twig.Piece
	Statements []twig.Statement
	*Result
}

// AnalyzeTemplate runs lexer, piece finder, parser and walker over code.
func AnalyzeTemplate(ctx context.Context, code string, scope *types.Scope, resolver Resolver) *Analysis {
	tokens := twig.Tokenize(code)
	pieces := twig.FindPieces(tokens)
	stmts := twig.Parse(code, tokens, pieces)
	return &Analysis{
		Code:       code,
		Tokens:     tokens,
		Pieces:     pieces,
		Statements: stmts,
		Result:     Walk(ctx, code, tokens, stmts, scope, resolver),
	}
}

// TokenAt returns the index of the token under offset, or NoToken.
func (a *Analysis) TokenAt(offset int) int {
	return twig.TokenAt(a.Tokens, offset)
}

// DotBefore returns the type on the left of a member access whose name
// would sit at offset: right after a '.' or on the name following one.
func (a *Analysis) DotBefore(offset int) (types.Type, bool) {
	i := a.TokenAt(offset)
	if i == twig.NoToken {
		return nil, false
	}
	// between two touching tokens the left one is being typed
	if i > 0 && a.Tokens[i].Offset == offset && a.Tokens[i-1].End() == offset {
		i--
	}
	if a.Tokens[i].Type == twig.TokenName && i > 0 {
		i--
	}
	info, ok := a.Dots[i]
	if !ok {
		return nil, false
	}
	return types.OrAny(info.TypeBefore), true
}
