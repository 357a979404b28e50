package analyzer

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/shinyvision/twiglens/internal/doctrine"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	yamlEntityKeyRe  = regexp.MustCompile(`^\\?([A-Za-z_][\w\\]*)\s*:\s*(#.*)?$`)
	yamlClassValueRe = regexp.MustCompile(`^\s*(targetEntity|repositoryClass|class)\s*:\s*['"]?([\w\\]*)`)
	yamlKeyRe        = regexp.MustCompile(`^(\s*)(\w+)\s*:`)
)

var yamlFieldSections = []string{"id", "fields", "embedded", "manyToOne", "oneToOne", "oneToMany", "manyToMany"}

type yamlSymbolKind int

const (
	yamlEntity yamlSymbolKind = iota
	yamlClass
	yamlRepository
	yamlField
)

// yamlSymbol is a class or field name under the cursor. Start and End are
// byte offsets into the document.
type yamlSymbol struct {
	kind  yamlSymbolKind
	key   string
	raw   string
	value string
	owner string
	start int
	end   int
	caret int
}

type yamlAnalyzer struct {
	workspace *Workspace
	mu        sync.RWMutex
	content   string
	lines     []string
}

// NewYamlAnalyzer serves Doctrine .orm.yml mapping files.
func NewYamlAnalyzer(ws *Workspace) Analyzer {
	return &yamlAnalyzer{workspace: ws}
}

func (a *yamlAnalyzer) Changed(code []byte, _ *sitter.InputEdit) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.content = string(code)
	a.lines = strings.Split(a.content, "\n")
	return nil
}

func (a *yamlAnalyzer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.content = ""
	a.lines = nil
}

func (a *yamlAnalyzer) OnHover(_ context.Context, pos protocol.Position) (*protocol.Hover, error) {
	sym, content, ok := a.symbolAt(pos)
	if !ok || sym.value == "" {
		return nil, nil
	}

	var text string
	switch sym.kind {
	case yamlEntity, yamlClass:
		text = a.workspace.describeEntity(sym.value)
	case yamlRepository:
		text = phpBlock("(repository) " + sym.value)
	case yamlField:
		text = a.workspace.describeField(sym.owner, sym.value)
	}
	if text == "" {
		return nil, nil
	}
	hover := markdown(text)
	rng := spanRange(content, sym.start, sym.end)
	hover.Range = &rng
	return hover, nil
}

func (a *yamlAnalyzer) OnDefinition(_ context.Context, pos protocol.Position) ([]protocol.Location, error) {
	sym, _, ok := a.symbolAt(pos)
	if !ok || sym.value == "" {
		return nil, nil
	}

	var (
		locations []protocol.Location
		found     bool
	)
	if sym.kind == yamlField {
		locations, found = a.workspace.propertyLocation(sym.owner, sym.value)
	} else {
		locations, found = a.workspace.classLocation(sym.value)
	}
	if !found {
		return nil, nil
	}
	return locations, nil
}

// OnCompletion offers entity classes after targetEntity:. Relative names
// are matched against the namespace of the mapped entity.
func (a *yamlAnalyzer) OnCompletion(_ context.Context, pos protocol.Position) ([]protocol.CompletionItem, error) {
	sym, _, ok := a.symbolAt(pos)
	if !ok || sym.kind != yamlClass || sym.key != "targetEntity" {
		return nil, nil
	}
	prefix := sym.raw[:sym.caret-sym.start]
	if prefix != "" {
		prefix = doctrine.Qualify(prefix, sym.owner)
	}
	return a.workspace.entityCompletionItems(prefix), nil
}

func (a *yamlAnalyzer) symbolAt(pos protocol.Position) (yamlSymbol, string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if int(pos.Line) >= len(a.lines) {
		return yamlSymbol{}, "", false
	}
	offset := pos.IndexIn(a.content)
	lineStart := strings.LastIndexByte(a.content[:offset], '\n') + 1
	line := a.lines[pos.Line]
	col := offset - lineStart
	within := func(start, end int) bool { return start >= 0 && start <= col && col <= end }

	if m := yamlEntityKeyRe.FindStringSubmatchIndex(line); m != nil && within(m[2], m[3]) {
		class := line[m[2]:m[3]]
		return yamlSymbol{
			kind:  yamlEntity,
			raw:   class,
			value: class,
			owner: class,
			start: lineStart + m[2],
			end:   lineStart + m[3],
			caret: offset,
		}, a.content, true
	}

	owner := a.ownerAt(int(pos.Line))
	if m := yamlClassValueRe.FindStringSubmatchIndex(line); m != nil && within(m[4], m[5]) {
		key, raw := line[m[2]:m[3]], line[m[4]:m[5]]
		kind := yamlClass
		if key == "repositoryClass" {
			kind = yamlRepository
		}
		return yamlSymbol{
			kind:  kind,
			key:   key,
			raw:   raw,
			value: doctrine.Qualify(raw, owner),
			owner: owner,
			start: lineStart + m[4],
			end:   lineStart + m[5],
			caret: offset,
		}, a.content, true
	}

	if m := yamlKeyRe.FindStringSubmatchIndex(line); m != nil && owner != "" && within(m[4], m[5]) {
		indent := m[3] - m[2]
		if slices.Contains(yamlFieldSections, a.parentKey(int(pos.Line), indent)) {
			name := line[m[4]:m[5]]
			return yamlSymbol{
				kind:  yamlField,
				raw:   name,
				value: name,
				owner: owner,
				start: lineStart + m[4],
				end:   lineStart + m[5],
				caret: offset,
			}, a.content, true
		}
	}
	return yamlSymbol{}, "", false
}

// ownerAt is the entity whose mapping contains line.
func (a *yamlAnalyzer) ownerAt(line int) string {
	for i := line; i >= 0; i-- {
		if m := yamlEntityKeyRe.FindStringSubmatch(a.lines[i]); m != nil {
			return m[1]
		}
	}
	return ""
}

// parentKey is the nearest key above line that is indented less than indent.
func (a *yamlAnalyzer) parentKey(line, indent int) string {
	for i := line - 1; i >= 0; i-- {
		m := yamlKeyRe.FindStringSubmatch(a.lines[i])
		if m == nil {
			continue
		}
		if len(m[1]) < indent {
			return m[2]
		}
	}
	return ""
}
