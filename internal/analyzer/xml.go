package analyzer

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"
	"unicode"

	tsxml "github.com/alexaandru/go-sitter-forest/xml"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/shinyvision/twiglens/internal/doctrine"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var (
	entityElements   = []string{"entity", "mapped-superclass", "embeddable"}
	columnElements   = []string{"id", "field"}
	relationElements = []string{"many-to-one", "one-to-one", "one-to-many", "many-to-many"}
)

// mappingAttribute is an attribute value under the cursor in a Doctrine
// XML mapping. Start and End delimit the value without its quotes.
type mappingAttribute struct {
	element string
	name    string
	value   string
	start   int
	end     int
	// owner is the class of the enclosing entity element.
	owner string
}

// class reports the class an attribute names, qualified against the owner.
func (m mappingAttribute) class() (string, bool) {
	switch {
	case m.name == "name" && slices.Contains(entityElements, m.element):
		return strings.TrimPrefix(m.value, `\`), true
	case m.name == "target-entity", m.name == "repository-class":
		return doctrine.Qualify(m.value, m.owner), true
	case m.name == "class" && m.element == "embedded":
		return doctrine.Qualify(m.value, m.owner), true
	}
	return "", false
}

// field reports the mapped property an attribute names.
func (m mappingAttribute) field() (string, bool) {
	if m.owner == "" {
		return "", false
	}
	switch {
	case m.name == "name" && slices.Contains(columnElements, m.element):
		return m.value, true
	case m.name == "field" && slices.Contains(relationElements, m.element):
		return m.value, true
	case m.name == "name" && m.element == "embedded":
		return m.value, true
	}
	return "", false
}

type xmlAnalyzer struct {
	workspace *Workspace
	parser    *sitter.Parser
	mu        sync.RWMutex
	tree      *sitter.Tree
	content   []byte
}

// NewXMLAnalyzer serves Doctrine .orm.xml mapping files.
func NewXMLAnalyzer(ws *Workspace) Analyzer {
	p := sitter.NewParser()
	_ = p.SetLanguage(sitter.NewLanguage(tsxml.GetLanguage()))
	return &xmlAnalyzer{workspace: ws, parser: p}
}

func (a *xmlAnalyzer) Changed(code []byte, change *sitter.InputEdit) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.content = code
	if a.tree != nil && change != nil {
		a.tree.Edit(*change)
	}
	var old *sitter.Tree
	if change != nil {
		old = a.tree
	}
	newTree, err := a.parser.ParseString(context.Background(), old, code)
	if err != nil {
		return err
	}
	if a.tree != nil {
		a.tree.Close()
	}
	a.tree = newTree
	return nil
}

func (a *xmlAnalyzer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tree != nil {
		a.tree.Close()
		a.tree = nil
	}
}

func (a *xmlAnalyzer) OnHover(_ context.Context, pos protocol.Position) (*protocol.Hover, error) {
	attr, ok := a.attributeAt(pos)
	if !ok {
		return nil, nil
	}

	var text string
	if class, ok := attr.class(); ok {
		if attr.name == "repository-class" {
			text = phpBlock("(repository) " + class)
		} else {
			text = a.workspace.describeEntity(class)
		}
	} else if field, ok := attr.field(); ok {
		text = a.workspace.describeField(attr.owner, field)
	}
	if text == "" {
		return nil, nil
	}
	hover := markdown(text)
	rng := spanRange(string(a.contentSnapshot()), attr.start, attr.end)
	hover.Range = &rng
	return hover, nil
}

func (a *xmlAnalyzer) OnDefinition(_ context.Context, pos protocol.Position) ([]protocol.Location, error) {
	attr, ok := a.attributeAt(pos)
	if !ok {
		return nil, nil
	}

	var (
		locations []protocol.Location
		found     bool
	)
	if class, ok := attr.class(); ok {
		locations, found = a.workspace.classLocation(class)
	} else if field, ok := attr.field(); ok {
		locations, found = a.workspace.propertyLocation(attr.owner, field)
	}
	if !found {
		return nil, nil
	}
	return locations, nil
}

// OnCompletion offers entity classes inside target-entity attributes.
// Relative names are matched against the namespace of the mapped entity.
func (a *xmlAnalyzer) OnCompletion(_ context.Context, pos protocol.Position) ([]protocol.CompletionItem, error) {
	attr, ok := a.attributeAt(pos)
	if !ok || attr.name != "target-entity" {
		return nil, nil
	}
	caret := pos.IndexIn(string(a.contentSnapshot()))
	prefix := attr.value[:max(0, min(caret-attr.start, len(attr.value)))]
	if prefix != "" {
		prefix = doctrine.Qualify(prefix, attr.owner)
	}
	return a.workspace.entityCompletionItems(prefix), nil
}

func (a *xmlAnalyzer) contentSnapshot() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.content
}

func (a *xmlAnalyzer) attributeAt(pos protocol.Position) (mappingAttribute, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.tree == nil {
		return mappingAttribute{}, false
	}
	caret := pos.IndexIn(string(a.content))
	point := offsetToPoint(a.content, caret)

	root := a.tree.RootNode()
	if root.IsNull() {
		return mappingAttribute{}, false
	}
	node := root.NamedDescendantForPointRange(point, point)
	if node.IsNull() {
		return mappingAttribute{}, false
	}

	attrNode := a.ascendToType(node, "Attribute")
	if attrNode.IsNull() {
		return mappingAttribute{}, false
	}
	tag := a.ascendToAny(node, "STag", "EmptyElemTag")
	if tag.IsNull() {
		return mappingAttribute{}, false
	}

	start, end, ok := a.attributeValueSpan(attrNode)
	if !ok || caret < start || caret > end {
		return mappingAttribute{}, false
	}
	attr := mappingAttribute{
		element: a.tagNameFromTagNode(tag),
		name:    a.attributeName(attrNode),
		value:   string(a.content[start:end]),
		start:   start,
		end:     end,
	}

	for el := a.nearestAncestorElement(tag); !el.IsNull(); el = a.nearestAncestorElement(el.Parent()) {
		if slices.Contains(entityElements, a.elementName(el)) {
			attr.owner = strings.TrimPrefix(a.tagAttribute(a.elementTag(el), "name"), `\`)
			break
		}
	}
	return attr, true
}

func (a *xmlAnalyzer) ascendToType(n sitter.Node, typ string) sitter.Node {
	for cur := n; !cur.IsNull(); cur = cur.Parent() {
		if cur.Type() == typ {
			return cur
		}
	}
	return sitter.Node{}
}

func (a *xmlAnalyzer) ascendToAny(n sitter.Node, types ...string) sitter.Node {
	for cur := n; !cur.IsNull(); cur = cur.Parent() {
		if slices.Contains(types, cur.Type()) {
			return cur
		}
	}
	return sitter.Node{}
}

func (a *xmlAnalyzer) nearestAncestorElement(n sitter.Node) sitter.Node {
	for cur := n; !cur.IsNull(); cur = cur.Parent() {
		if cur.Type() == "element" {
			return cur
		}
	}
	return sitter.Node{}
}

func (a *xmlAnalyzer) elementTag(el sitter.Node) sitter.Node {
	if el.IsNull() {
		return sitter.Node{}
	}
	for i := uint32(0); i < el.NamedChildCount(); i++ {
		child := el.NamedChild(i)
		if !child.IsNull() {
			switch child.Type() {
			case "STag", "EmptyElemTag":
				return child
			}
		}
	}
	return sitter.Node{}
}

func (a *xmlAnalyzer) elementName(el sitter.Node) string {
	tag := a.elementTag(el)
	if tag.IsNull() {
		return ""
	}
	return a.tagNameFromTagNode(tag)
}

// tagAttribute returns the value of the named attribute on a start tag.
func (a *xmlAnalyzer) tagAttribute(tag sitter.Node, name string) string {
	if tag.IsNull() {
		return ""
	}
	for i := uint32(0); i < tag.NamedChildCount(); i++ {
		child := tag.NamedChild(i)
		if child.IsNull() || child.Type() != "Attribute" || a.attributeName(child) != name {
			continue
		}
		if start, end, ok := a.attributeValueSpan(child); ok {
			return string(a.content[start:end])
		}
	}
	return ""
}

func (a *xmlAnalyzer) attributeName(attr sitter.Node) string {
	for i := uint32(0); i < attr.NamedChildCount(); i++ {
		child := attr.NamedChild(i)
		if !child.IsNull() && child.Type() == "Name" {
			return child.Content(a.content)
		}
	}
	text := a.content[attr.StartByte():attr.EndByte()]
	text = bytes.TrimSpace(text)
	i := 0
	for i < len(text) && !unicode.IsSpace(rune(text[i])) && text[i] != '=' {
		i++
	}
	return string(text[:i])
}

func (a *xmlAnalyzer) tagNameFromTagNode(tag sitter.Node) string {
	for i := uint32(0); i < tag.NamedChildCount(); i++ {
		child := tag.NamedChild(i)
		if !child.IsNull() && child.Type() == "Name" {
			return child.Content(a.content)
		}
	}
	raw := []byte(tag.Content(a.content))
	j := 0
	for j < len(raw) && raw[j] != '<' {
		j++
	}
	for j < len(raw) && (raw[j] == '<' || raw[j] == '/') {
		j++
	}
	k := j
	for k < len(raw) && isXMLNameChar(raw[k]) {
		k++
	}
	return string(raw[j:k])
}

func isXMLNameChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z':
		return true
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '_', '.', ':':
		return true
	default:
		return false
	}
}

// attributeValueSpan returns the byte span of the quoted value. An
// unterminated value runs to the end of the attribute.
func (a *xmlAnalyzer) attributeValueSpan(attr sitter.Node) (int, int, bool) {
	start := int(attr.StartByte())
	end := int(attr.EndByte())
	if start >= end || start >= len(a.content) {
		return 0, 0, false
	}
	end = min(end, len(a.content))
	segment := a.content[start:end]
	eq := bytes.IndexByte(segment, '=')
	if eq == -1 {
		return 0, 0, false
	}
	i := eq + 1
	for i < len(segment) && (segment[i] == ' ' || segment[i] == '\t' || segment[i] == '\n' || segment[i] == '\r') {
		i++
	}
	if i >= len(segment) {
		return 0, 0, false
	}
	q := segment[i]
	if q != '"' && q != '\'' {
		return 0, 0, false
	}
	valStart := start + i + 1
	valEnd := end
	if jrel := bytes.IndexByte(segment[i+1:], q); jrel != -1 {
		valEnd = valStart + jrel
	}
	return valStart, valEnd, true
}
