package analyzer

import (
	"context"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Any analyzer may implement this contract. Editor features are optional
// sub-interfaces the server checks for.
type Analyzer interface {
	// Gets called by state.SetDocument when our code changes
	Changed(code []byte, change *sitter.InputEdit) error
	// When a document is closed
	Close()
}

type HoverProvider interface {
	OnHover(ctx context.Context, pos protocol.Position) (*protocol.Hover, error)
}

type DefinitionProvider interface {
	OnDefinition(ctx context.Context, pos protocol.Position) ([]protocol.Location, error)
}

type CompletionProvider interface {
	OnCompletion(ctx context.Context, pos protocol.Position) ([]protocol.CompletionItem, error)
}
