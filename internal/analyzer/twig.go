package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/shinyvision/twiglens/internal/inference"
	"github.com/shinyvision/twiglens/internal/twig"
	"github.com/shinyvision/twiglens/internal/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type twigAnalyzer struct {
	workspace *Workspace

	mu         sync.Mutex
	code       string
	analysis   *inference.Analysis
	generation int64
}

func NewTwigAnalyzer(ws *Workspace) Analyzer {
	return &twigAnalyzer{workspace: ws}
}

// Templates are re-lexed from scratch, so the edit is not needed.
func (a *twigAnalyzer) Changed(code []byte, _ *sitter.InputEdit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.code = string(code)
	a.analysis = nil
	return nil
}

func (a *twigAnalyzer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.code = ""
	a.analysis = nil
}

// current returns the analysis of the template, reusing the last one while
// neither the template nor any PHP summary changed.
func (a *twigAnalyzer) current(ctx context.Context) *inference.Analysis {
	a.mu.Lock()
	code := a.code
	generation := a.workspace.Store.Generation()
	if a.analysis != nil && a.generation == generation {
		analysis := a.analysis
		a.mu.Unlock()
		return analysis
	}
	a.mu.Unlock()

	analysis := inference.AnalyzeTemplate(ctx, code, a.workspace.Config.GlobalScope(), a.workspace.Resolver)
	if ctx.Err() != nil {
		return analysis
	}

	a.mu.Lock()
	if a.code == code {
		a.analysis = analysis
		a.generation = generation
	}
	a.mu.Unlock()
	return analysis
}

func (a *twigAnalyzer) OnHover(ctx context.Context, pos protocol.Position) (*protocol.Hover, error) {
	analysis := a.current(ctx)
	offset := pos.IndexIn(analysis.Code)

	if name, tok, ok := twig.TemplateNameAt(analysis.Code, analysis.Tokens, offset); ok {
		path, ok := a.workspace.resolveTemplate(name)
		if !ok {
			return nil, nil
		}
		hover := markdown(fmt.Sprintf("template `%s`", a.workspace.relativePath(path)))
		rng := spanRange(analysis.Code, tok.Offset, tok.End())
		hover.Range = &rng
		return hover, nil
	}

	i := analysis.TokenAt(offset)
	if i == twig.NoToken {
		return nil, nil
	}
	info, ok := analysis.Names[i]
	if !ok {
		return nil, nil
	}
	tok := analysis.Tokens[i]
	hover := markdown(describeName(tok.Text(analysis.Code), info))
	rng := spanRange(analysis.Code, tok.Offset, tok.End())
	hover.Range = &rng
	return hover, nil
}

func describeName(name string, info inference.NameInfo) string {
	switch v := info.(type) {
	case inference.Variable:
		return phpBlock(fmt.Sprintf("(variable) %s: %s", name, typeLabel(v.Type)))
	case inference.ClassProperty:
		return phpBlock(fmt.Sprintf("(property) %s::$%s: %s", v.Class, v.Property, typeLabel(v.Type)))
	case inference.ClassMethod:
		return phpBlock(fmt.Sprintf("(method) %s::%s(): %s", v.Class, v.Method, typeLabel(v.Type)))
	case inference.Function:
		return phpBlock(fmt.Sprintf("(function) %s(): %s", v.Name, typeLabel(v.ReturnType)))
	}
	return ""
}

func (a *twigAnalyzer) OnDefinition(ctx context.Context, pos protocol.Position) ([]protocol.Location, error) {
	analysis := a.current(ctx)
	offset := pos.IndexIn(analysis.Code)

	if name, _, ok := twig.TemplateNameAt(analysis.Code, analysis.Tokens, offset); ok {
		if path, ok := a.workspace.resolveTemplate(name); ok {
			return location(path, protocol.Range{}), nil
		}
		return nil, nil
	}

	i := analysis.TokenAt(offset)
	if i == twig.NoToken {
		return nil, nil
	}

	var (
		locations []protocol.Location
		found     bool
	)
	switch v := analysis.Names[i].(type) {
	case inference.ClassMethod:
		locations, found = a.workspace.methodLocation(v.Class, v.Method)
	case inference.ClassProperty:
		locations, found = a.workspace.propertyLocation(v.Class, v.Property)
	case inference.Function:
		locations, found = a.workspace.functionLocation(ctx, v.Name)
	case inference.Variable:
		if obj, ok := v.Type.(types.ObjectType); ok {
			locations, found = a.workspace.classLocation(obj.Class)
		}
	}
	if !found {
		return nil, nil
	}
	return locations, nil
}

func (a *twigAnalyzer) OnCompletion(ctx context.Context, pos protocol.Position) ([]protocol.CompletionItem, error) {
	analysis := a.current(ctx)
	offset := pos.IndexIn(analysis.Code)

	p := twig.PieceAt(analysis.Pieces, offset)
	if p < 0 {
		return nil, nil
	}
	piece := analysis.Pieces[p]
	if piece.Type == twig.PieceComment {
		return nil, nil
	}
	if piece.Closed(analysis.Tokens) && offset > analysis.Tokens[piece.EndToken].Offset {
		return nil, nil
	}

	prefix := a.namePrefix(analysis, offset)
	if before, ok := analysis.DotBefore(offset); ok {
		return memberCompletionItems(inference.Members(ctx, a.workspace.Resolver, before), prefix), nil
	}
	return a.scopeCompletionItems(ctx, analysis.ValuesAtOffset(offset), prefix), nil
}

// namePrefix is the part of the name under the cursor that is already typed.
func (a *twigAnalyzer) namePrefix(analysis *inference.Analysis, offset int) string {
	i := analysis.TokenAt(offset)
	if i == twig.NoToken {
		return ""
	}
	tok := analysis.Tokens[i]
	if tok.Type != twig.TokenName || tok.Offset >= offset {
		return ""
	}
	return analysis.Code[tok.Offset:min(offset, tok.End())]
}

func memberCompletionItems(members []inference.Member, prefix string) []protocol.CompletionItem {
	items := []protocol.CompletionItem{}
	for _, m := range members {
		if !strings.HasPrefix(m.Name, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindProperty
		switch m.Kind {
		case inference.MemberMethod:
			kind = protocol.CompletionItemKindMethod
		case inference.MemberKey:
			kind = protocol.CompletionItemKindField
		}
		items = append(items, completionItem(m.Name, kind, typeLabel(m.Type)))
	}
	return items
}

func (a *twigAnalyzer) scopeCompletionItems(ctx context.Context, values map[string]types.Type, prefix string) []protocol.CompletionItem {
	items := []protocol.CompletionItem{}

	names := make([]string, 0, len(values))
	for name := range values {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		items = append(items, completionItem(name, protocol.CompletionItemKindVariable, typeLabel(values[name])))
	}

	for _, name := range a.workspace.Resolver.FunctionNames(ctx) {
		if _, shadowed := values[name]; shadowed || !strings.HasPrefix(name, prefix) {
			continue
		}
		detail := "twig function"
		if t, ok := a.workspace.Resolver.ResolveFunctionReturnType(ctx, name); ok && !types.Equal(t, types.Any) {
			detail = "twig function: " + typeLabel(t)
		}
		items = append(items, completionItem(name, protocol.CompletionItemKindFunction, detail))
	}
	return items
}
