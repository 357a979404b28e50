package dql

import (
	"sort"
	"strings"
)

// Field is a mapped entity field. Relations carry the class they point to.
type Field struct {
	Name       string
	Type       string
	IsRelation bool
	Target     string
	// ToMany is set for one-to-many and many-to-many relations.
	ToMany bool
}

type Entity struct {
	Class      string
	Repository string
	Fields     []Field
}

// Field looks a field up by name.
func (e *Entity) Field(name string) (Field, bool) {
	if e == nil {
		return Field{}, false
	}
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// EntityTable maps fully qualified class names (no leading backslash) to
// their mapping.
type EntityTable map[string]*Entity

// Get finds an entity, tolerating a leading backslash.
func (t EntityTable) Get(class string) *Entity {
	return t[strings.TrimPrefix(class, `\`)]
}

// Add registers e, merging fields into an existing entry of the same class.
func (t EntityTable) Add(e *Entity) {
	e.Class = strings.TrimPrefix(e.Class, `\`)
	existing, ok := t[e.Class]
	if !ok {
		t[e.Class] = e
		return
	}
	if existing.Repository == "" {
		existing.Repository = e.Repository
	}
	for _, f := range e.Fields {
		if _, ok := existing.Field(f.Name); !ok {
			existing.Fields = append(existing.Fields, f)
		}
	}
}

// Classes returns the entity class names in sorted order.
func (t EntityTable) Classes() []string {
	out := make([]string, 0, len(t))
	for class := range t {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

// ExpandName turns an entity reference from a query into a class name:
// App:Product goes through the namespace alias table, \App\Product loses its
// leading backslash.
func ExpandName(tok Token, namespaces map[string]string) (string, bool) {
	switch tok.Type {
	case AliasedName:
		prefix, short, _ := strings.Cut(tok.Value, ":")
		ns, ok := namespaces[prefix]
		if !ok {
			return "", false
		}
		return strings.TrimSuffix(strings.TrimPrefix(ns, `\`), `\`) + `\` + short, true
	case FullyQualifiedName:
		return strings.TrimPrefix(tok.Value, `\`), true
	case Identifier:
		return tok.Value, true
	}
	return "", false
}
