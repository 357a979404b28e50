package types

import "strings"

// Property is a class property as seen from templates. Class is the class
// that declares it, which differs from the owner for inherited members.
type Property struct {
	Name   string
	Public bool
	Type   Type
	Class  string
}

type Method struct {
	Name       string
	Public     bool
	ReturnType Type
	Class      string
}

type Constant struct {
	Name   string
	Public bool
	Class  string
}

// ClassInfo is the member summary of a class. A nil *ClassInfo means the
// class is unknown; an empty one is a class without members.
type ClassInfo struct {
	Name       string
	Parent     string
	Properties []Property
	Methods    []Method
	Constants  []Constant
}

// PublicProperty looks a public property up by exact name.
func (c *ClassInfo) PublicProperty(name string) (Property, bool) {
	if c == nil {
		return Property{}, false
	}
	for _, p := range c.Properties {
		if p.Public && p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// PublicMethod looks a public method up. PHP method names are case-insensitive.
func (c *ClassInfo) PublicMethod(name string) (Method, bool) {
	if c == nil {
		return Method{}, false
	}
	for _, m := range c.Methods {
		if m.Public && strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Method{}, false
}

// PublicMembers returns the names of public properties and methods, in
// declaration order and without duplicates.
func (c *ClassInfo) PublicMembers() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	for _, p := range c.Properties {
		if p.Public {
			add(p.Name)
		}
	}
	for _, m := range c.Methods {
		if m.Public && !strings.HasPrefix(m.Name, "__") {
			add(m.Name)
		}
	}
	return out
}
