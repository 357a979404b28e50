package php

import (
	"strings"

	"github.com/shinyvision/twiglens/internal/types"
)

// LineColumnRange captures a range using 1-based lines and 0-based columns.
type LineColumnRange struct {
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// Attribute is a PHP 8 attribute. Name is fully qualified; argument values
// are unquoted strings, X::class is expanded to the class name and anything
// else is kept as written.
type Attribute struct {
	Name       string
	Args       map[string]string
	Positional []string
}

// Arg returns a named argument, falling back to the positional argument at
// index when index >= 0.
func (a Attribute) Arg(name string, index int) (string, bool) {
	if v, ok := a.Args[name]; ok {
		return v, true
	}
	if index >= 0 && index < len(a.Positional) {
		return a.Positional[index], true
	}
	return "", false
}

type PropertySummary struct {
	Name       string
	Visibility string
	Type       types.Type
	// TypeName is the first class named by the declared type, if any.
	TypeName   string
	Range      LineColumnRange
	Attributes []Attribute
}

type MethodSummary struct {
	Name       string
	Visibility string
	ReturnType types.Type
	Range      LineColumnRange
}

type ConstantSummary struct {
	Name       string
	Visibility string
	Range      LineColumnRange
}

// ClassSummary describes a class, interface, trait or enum declaration.
type ClassSummary struct {
	Kind       string
	Name       string
	Namespace  string
	FQN        string
	Parent     string
	Traits     []string
	Range      LineColumnRange
	Attributes []Attribute
	Properties []PropertySummary
	Methods    []MethodSummary
	Constants  []ConstantSummary
}

// Attribute finds an attribute by fully qualified name.
func (c ClassSummary) Attribute(fqn string) (Attribute, bool) {
	return findAttribute(c.Attributes, fqn)
}

func (p PropertySummary) Attribute(fqn string) (Attribute, bool) {
	return findAttribute(p.Attributes, fqn)
}

func findAttribute(attrs []Attribute, fqn string) (Attribute, bool) {
	fqn = normalizeFQN(fqn)
	for _, a := range attrs {
		if strings.EqualFold(a.Name, fqn) {
			return a, true
		}
	}
	return Attribute{}, false
}

// FileSummary is the declaration index of one PHP file.
type FileSummary struct {
	Namespace string
	// Uses maps lowercased aliases and names to the imported FQN.
	Uses    map[string]string
	Classes []ClassSummary
}

// Class finds a declared class by fully qualified name, case-insensitively.
func (f FileSummary) Class(fqn string) (ClassSummary, bool) {
	fqn = normalizeFQN(fqn)
	for _, c := range f.Classes {
		if strings.EqualFold(c.FQN, fqn) {
			return c, true
		}
	}
	return ClassSummary{}, false
}
