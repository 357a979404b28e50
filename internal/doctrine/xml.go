package doctrine

import (
	"context"
	"os"
	"strings"

	tsxml "github.com/alexaandru/go-sitter-forest/xml"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/pkg/errors"
	"github.com/shinyvision/twiglens/internal/dql"
)

var xmlRelations = map[string]bool{
	"many-to-one":  false,
	"one-to-one":   false,
	"one-to-many":  true,
	"many-to-many": true,
}

// LoadXML reads *.orm.xml mapping files below dirs.
func LoadXML(dirs []string) (dql.EntityTable, error) {
	table := dql.EntityTable{}
	err := walkFiles(dirs, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "could not read file")
		}
		entities, err := ParseXMLMapping(data)
		if err != nil {
			return err
		}
		for _, e := range entities {
			table.Add(e)
		}
		return nil
	}, ".orm.xml")
	return table, err
}

// ParseXMLMapping reads the <entity> elements of a Doctrine XML mapping.
func ParseXMLMapping(content []byte) ([]*dql.Entity, error) {
	p := sitter.NewParser()
	_ = p.SetLanguage(sitter.NewLanguage(tsxml.GetLanguage()))
	tree, err := p.ParseString(context.Background(), nil, content)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse xml")
	}
	defer tree.Close()

	doc := xmlDocument{content: content}
	var out []*dql.Entity
	stack := []sitter.Node{tree.RootNode()}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Type() == "element" && doc.elementName(node) == "entity" {
			if e := doc.entity(node); e != nil {
				out = append(out, e)
			}
			continue
		}
		for i := node.NamedChildCount(); i > 0; i-- {
			stack = append(stack, node.NamedChild(i-1))
		}
	}
	return out, nil
}

type xmlDocument struct {
	content []byte
}

func (d xmlDocument) entity(el sitter.Node) *dql.Entity {
	attrs := d.attributes(el)
	class := strings.TrimPrefix(attrs["name"], `\`)
	if class == "" {
		return nil
	}
	entity := &dql.Entity{Class: class, Repository: attrs["repository-class"]}

	for _, child := range d.childElements(el) {
		name := d.elementName(child)
		childAttrs := d.attributes(child)
		switch {
		case name == "id" || name == "field":
			if childAttrs["name"] == "" {
				continue
			}
			entity.Fields = append(entity.Fields, dql.Field{Name: childAttrs["name"], Type: childAttrs["type"]})
		case name == "embedded":
			if childAttrs["name"] == "" {
				continue
			}
			entity.Fields = append(entity.Fields, dql.Field{Name: childAttrs["name"], Type: childAttrs["class"]})
		default:
			toMany, ok := xmlRelations[name]
			if !ok || childAttrs["field"] == "" {
				continue
			}
			entity.Fields = append(entity.Fields, dql.Field{
				Name:       childAttrs["field"],
				IsRelation: true,
				Target:     Qualify(childAttrs["target-entity"], class),
				ToMany:     toMany,
			})
		}
	}
	return entity
}

// childElements returns the elements nested directly in el, looking through
// the content wrapper nodes the grammar puts between them.
func (d xmlDocument) childElements(el sitter.Node) []sitter.Node {
	var out []sitter.Node
	var stack []sitter.Node
	for i := el.NamedChildCount(); i > 0; i-- {
		stack = append(stack, el.NamedChild(i-1))
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch node.Type() {
		case "element":
			out = append(out, node)
			continue
		case "STag", "EmptyElemTag", "ETag":
			continue
		}
		for i := node.NamedChildCount(); i > 0; i-- {
			stack = append(stack, node.NamedChild(i-1))
		}
	}
	return out
}

func (d xmlDocument) startTag(el sitter.Node) sitter.Node {
	for i := uint32(0); i < el.NamedChildCount(); i++ {
		child := el.NamedChild(i)
		switch child.Type() {
		case "STag", "EmptyElemTag":
			return child
		}
	}
	return sitter.Node{}
}

func (d xmlDocument) elementName(el sitter.Node) string {
	tag := d.startTag(el)
	if tag.IsNull() {
		return ""
	}
	for i := uint32(0); i < tag.NamedChildCount(); i++ {
		if child := tag.NamedChild(i); child.Type() == "Name" {
			return child.Content(d.content)
		}
	}
	return ""
}

// attributes collects the attribute values of the element's start tag with
// their quotes removed. Entities are not expanded.
func (d xmlDocument) attributes(el sitter.Node) map[string]string {
	out := make(map[string]string)
	tag := d.startTag(el)
	if tag.IsNull() {
		return out
	}
	for i := uint32(0); i < tag.NamedChildCount(); i++ {
		attr := tag.NamedChild(i)
		if attr.Type() != "Attribute" {
			continue
		}
		raw := attr.Content(d.content)
		name, value, ok := strings.Cut(raw, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if name != "" {
			out[name] = value
		}
	}
	return out
}
