package server

import (
	"github.com/shinyvision/twiglens/internal/analyzer"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) onCompletion(_ *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.state.GetDocument(params.TextDocument.URI)
	if !ok || doc.Analyzer == nil {
		return nil, nil
	}

	provider, ok := doc.Analyzer.(analyzer.CompletionProvider)
	if !ok {
		return nil, nil
	}
	items, err := provider.OnCompletion(requestContext(), params.Position)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}
