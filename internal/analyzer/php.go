package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/shinyvision/twiglens/internal/dql"
	php "github.com/shinyvision/twiglens/internal/php"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type phpAnalyzer struct {
	workspace *Workspace
	doc       *php.Document
	path      string
}

// queryContext is a DQL string under the cursor. Offset is the cursor
// position relative to the query.
type queryContext struct {
	content string
	query   php.QueryString
	tokens  []dql.Token
	aliases map[string]string
	index   int
	offset  int
}

// NewPHPAnalyzer tracks an open PHP file. Its live summary replaces the
// on-disk copy in the workspace store while the file is open.
func NewPHPAnalyzer(ws *Workspace, path string) Analyzer {
	return &phpAnalyzer{
		workspace: ws,
		doc:       php.NewDocument(),
		path:      path,
	}
}

func (a *phpAnalyzer) Changed(code []byte, change *sitter.InputEdit) error {
	if err := a.doc.Update(code, change); err != nil {
		return err
	}
	if a.path != "" {
		a.workspace.Store.RegisterOpen(a.path, a.doc)
	}
	return nil
}

func (a *phpAnalyzer) Close() {
	if a.path != "" {
		a.workspace.Store.Close(a.path)
	}
}

func (a *phpAnalyzer) queryAt(pos protocol.Position) (queryContext, bool) {
	var (
		qc    queryContext
		found bool
	)
	a.doc.Read(func(tree *sitter.Tree, content []byte, _ php.FileSummary) {
		text := string(content)
		offset := pos.IndexIn(text)
		query, ok := php.QueryStringAt(tree, content, offset)
		if !ok {
			return
		}
		tokens := dql.Tokenize(query.Query)
		local := offset - query.Offset
		qc = queryContext{
			content: text,
			query:   query,
			tokens:  tokens,
			aliases: dql.CollectAliases(tokens, a.workspace.Entities, a.workspace.Config.Namespaces),
			index:   dql.TokenAt(tokens, local),
			offset:  local,
		}
		found = true
	})
	return qc, found
}

func (qc queryContext) tokenRange() protocol.Range {
	tok := qc.tokens[qc.index]
	start := qc.query.Offset + tok.Position
	return spanRange(qc.content, start, start+len(tok.Value))
}

// entityName expands the entity reference under the cursor, if any.
func (a *phpAnalyzer) entityName(qc queryContext) (string, bool) {
	tok := qc.tokens[qc.index]
	if tok.Type != dql.AliasedName && tok.Type != dql.FullyQualifiedName {
		return "", false
	}
	return dql.ExpandName(tok, a.workspace.Config.Namespaces)
}

func (a *phpAnalyzer) OnHover(_ context.Context, pos protocol.Position) (*protocol.Hover, error) {
	qc, ok := a.queryAt(pos)
	if !ok || qc.index < 0 {
		return nil, nil
	}

	var text string
	if class, ok := a.entityName(qc); ok {
		text = a.workspace.describeEntity(class)
	} else if ref, ok := dql.ResolveChain(qc.tokens, qc.index, qc.aliases, a.workspace.Entities); ok {
		if ref.Field == "" {
			text = phpBlock(fmt.Sprintf("(alias) %s: %s", qc.tokens[qc.index].Value, ref.Class))
		} else {
			text = a.workspace.describeField(ref.Class, ref.Field)
		}
	}
	if text == "" {
		return nil, nil
	}
	hover := markdown(text)
	rng := qc.tokenRange()
	hover.Range = &rng
	return hover, nil
}

func (a *phpAnalyzer) OnDefinition(_ context.Context, pos protocol.Position) ([]protocol.Location, error) {
	qc, ok := a.queryAt(pos)
	if !ok || qc.index < 0 {
		return nil, nil
	}

	var (
		locations []protocol.Location
		found     bool
	)
	if class, ok := a.entityName(qc); ok {
		locations, found = a.workspace.classLocation(class)
	} else if ref, ok := dql.ResolveChain(qc.tokens, qc.index, qc.aliases, a.workspace.Entities); ok {
		if ref.Field == "" {
			locations, found = a.workspace.classLocation(ref.Class)
		} else {
			locations, found = a.workspace.propertyLocation(ref.Class, ref.Field)
		}
	}
	if !found {
		return nil, nil
	}
	return locations, nil
}

// OnCompletion offers entity fields after "alias." and the query's aliases
// anywhere else inside a DQL string.
func (a *phpAnalyzer) OnCompletion(_ context.Context, pos protocol.Position) ([]protocol.CompletionItem, error) {
	qc, ok := a.queryAt(pos)
	if !ok {
		return nil, nil
	}

	prefix := ""
	dot := qc.index
	if dot >= 0 && qc.tokens[dot].Type == dql.Identifier {
		tok := qc.tokens[dot]
		if qc.offset > tok.Position {
			prefix = tok.Value[:min(qc.offset-tok.Position, len(tok.Value))]
		}
		dot--
	}

	if dot >= 1 && qc.tokens[dot].Type == dql.Dot &&
		(prefix != "" || qc.tokens[dot].End() == qc.offset) &&
		dql.TouchEachOther(qc.tokens[dot-1], qc.tokens[dot]) {
		return a.fieldCompletionItems(qc, dot-1, prefix), nil
	}
	return a.aliasCompletionItems(qc, prefix), nil
}

func (a *phpAnalyzer) fieldCompletionItems(qc queryContext, owner int, prefix string) []protocol.CompletionItem {
	ref, ok := dql.ResolveChain(qc.tokens, owner, qc.aliases, a.workspace.Entities)
	if !ok {
		return nil
	}
	class := ref.Class
	if ref.Field != "" {
		field, ok := a.workspace.Entities.Get(ref.Class).Field(ref.Field)
		if !ok || !field.IsRelation {
			return nil
		}
		class = field.Target
	}

	entity := a.workspace.Entities.Get(class)
	if entity == nil {
		return nil
	}
	items := []protocol.CompletionItem{}
	for _, f := range entity.Fields {
		if !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		if f.IsRelation {
			items = append(items, completionItem(f.Name, protocol.CompletionItemKindReference, shortName(f.Target)))
			continue
		}
		items = append(items, completionItem(f.Name, protocol.CompletionItemKindField, f.Type))
	}
	return items
}

func (a *phpAnalyzer) aliasCompletionItems(qc queryContext, prefix string) []protocol.CompletionItem {
	items := []protocol.CompletionItem{}
	for _, alias := range sortedAliases(qc.aliases) {
		if strings.HasPrefix(alias, prefix) {
			items = append(items, completionItem(alias, protocol.CompletionItemKindVariable, qc.aliases[alias]))
		}
	}
	return items
}

func sortedAliases(aliases map[string]string) []string {
	out := make([]string, 0, len(aliases))
	for alias := range aliases {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}
