// Package types holds the small closed type lattice used by template
// inference, the chained scope and the class-member model resolvers return.
package types

import (
	"sort"
	"strings"
)

// Type is one of AnyType, ObjectType, ArrayType, EntityRepositoryType or
// DoctrineQueryType.
type Type interface {
	String() string
	isType()
}

// AnyType is the unknown type.
type AnyType struct{}

// Any is the shared AnyType value.
var Any Type = AnyType{}

// ObjectType is an instance of Class, a fully qualified name without the
// leading backslash.
type ObjectType struct {
	Class string
}

// ArrayType is a list or hash. Fields holds the keys known statically, such
// as the keys of a {...} literal.
type ArrayType struct {
	Value  Type
	Fields map[string]Type
}

// EntityRepositoryType is a Doctrine repository for Entity.
type EntityRepositoryType struct {
	Entity string
}

// DoctrineQueryType is a query or query builder selecting Entity.
type DoctrineQueryType struct {
	Entity string
}

func (AnyType) isType()              {}
func (ObjectType) isType()           {}
func (ArrayType) isType()            {}
func (EntityRepositoryType) isType() {}
func (DoctrineQueryType) isType()    {}

func (AnyType) String() string { return "mixed" }

func (t ObjectType) String() string { return t.Class }

func (t ArrayType) String() string {
	if len(t.Fields) > 0 {
		keys := make([]string, 0, len(t.Fields))
		for k := range t.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+typeString(t.Fields[k]))
		}
		return "array{" + strings.Join(parts, ", ") + "}"
	}
	if t.Value == nil || t.Value == Any {
		return "array"
	}
	return typeString(t.Value) + "[]"
}

func (t EntityRepositoryType) String() string {
	return "EntityRepository<" + t.Entity + ">"
}

func (t DoctrineQueryType) String() string {
	return "Query<" + t.Entity + ">"
}

func typeString(t Type) string {
	if t == nil {
		return Any.String()
	}
	return t.String()
}

// Object returns the object type of class. A leading backslash is dropped.
func Object(class string) Type {
	return ObjectType{Class: strings.TrimPrefix(class, `\`)}
}

// ArrayOf returns a list of value.
func ArrayOf(value Type) Type {
	if value == nil {
		value = Any
	}
	return ArrayType{Value: value}
}

// Hash returns an array of Any with the given known fields.
func Hash(fields map[string]Type) Type {
	return ArrayType{Value: Any, Fields: fields}
}

func Repository(entity string) Type {
	return EntityRepositoryType{Entity: strings.TrimPrefix(entity, `\`)}
}

func Query(entity string) Type {
	return DoctrineQueryType{Entity: strings.TrimPrefix(entity, `\`)}
}

// OrAny returns t, or Any when t is nil.
func OrAny(t Type) Type {
	if t == nil {
		return Any
	}
	return t
}

// Equal compares structurally. Arrays are equal when their value types are
// and every key known on either side is known on both with equal types.
func Equal(a, b Type) bool {
	a, b = OrAny(a), OrAny(b)
	switch x := a.(type) {
	case AnyType:
		_, ok := b.(AnyType)
		return ok
	case ObjectType:
		y, ok := b.(ObjectType)
		return ok && x.Class == y.Class
	case EntityRepositoryType:
		y, ok := b.(EntityRepositoryType)
		return ok && x.Entity == y.Entity
	case DoctrineQueryType:
		y, ok := b.(DoctrineQueryType)
		return ok && x.Entity == y.Entity
	case ArrayType:
		y, ok := b.(ArrayType)
		if !ok || !Equal(x.Value, y.Value) {
			return false
		}
		for k, xv := range x.Fields {
			yv, ok := y.Fields[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		for k := range y.Fields {
			if _, ok := x.Fields[k]; !ok {
				return false
			}
		}
		return true
	}
	return false
}

// Combine merges the types of alternative branches. It is exact only when
// every known member agrees on one array or object type; anything else
// collapses to Any.
func Combine(ts []Type) Type {
	switch len(ts) {
	case 0:
		return Any
	case 1:
		return OrAny(ts[0])
	}
	if t, ok := agree[ArrayType](ts); ok {
		return t
	}
	if t, ok := agree[ObjectType](ts); ok {
		return t
	}
	return Any
}

// agree picks the first member of kind T and checks that every other known
// member equals it.
func agree[T Type](ts []Type) (Type, bool) {
	var candidate Type
	for _, t := range ts {
		if c, ok := t.(T); ok {
			candidate = c
			break
		}
	}
	if candidate == nil {
		return nil, false
	}
	for _, t := range ts {
		if t == nil {
			continue
		}
		if _, ok := t.(AnyType); ok {
			continue
		}
		if !Equal(candidate, t) {
			return nil, false
		}
	}
	return candidate, true
}

// ElementType returns the value type of an array, Any otherwise.
func ElementType(t Type) Type {
	if arr, ok := t.(ArrayType); ok {
		return OrAny(arr.Value)
	}
	return Any
}
