package php

import (
	"strings"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Resolve locates the file defining the given class and returns its path and the range of the class name.
func Resolve(store *DocumentStore, className string) (string, protocol.Range, bool) {
	path, summary, ok := findClass(store, className, commonlog.GetLoggerf("twiglens.php"))
	if !ok {
		return "", protocol.Range{}, false
	}
	return path, ToProtocolRange(summary.Range), true
}

// FindMethodRange locates the definition of a method of className within a file.
func FindMethodRange(store *DocumentStore, path, className, methodName string) (protocol.Range, bool) {
	summary, ok := classInFile(store, path, className)
	if !ok {
		return protocol.Range{}, false
	}
	for _, m := range summary.Methods {
		if strings.EqualFold(m.Name, methodName) {
			return ToProtocolRange(m.Range), true
		}
	}
	return protocol.Range{}, false
}

// FindPropertyRange locates the definition of a property of className within a file.
func FindPropertyRange(store *DocumentStore, path, className, propertyName string) (protocol.Range, bool) {
	summary, ok := classInFile(store, path, className)
	if !ok {
		return protocol.Range{}, false
	}
	for _, p := range summary.Properties {
		if p.Name == propertyName {
			return ToProtocolRange(p.Range), true
		}
	}
	return protocol.Range{}, false
}

func classInFile(store *DocumentStore, path, className string) (ClassSummary, bool) {
	if store == nil {
		return ClassSummary{}, false
	}
	file, err := store.Summary(path)
	if err != nil {
		return ClassSummary{}, false
	}
	return file.Class(className)
}

// ToProtocolRange converts a 1-based line range to an LSP range.
func ToProtocolRange(r LineColumnRange) protocol.Range {
	if r.StartLine == 0 {
		return protocol.Range{}
	}
	return protocol.Range{
		Start: protocol.Position{Line: uint32(r.StartLine - 1), Character: uint32(r.StartColumn)},
		End:   protocol.Position{Line: uint32(r.EndLine - 1), Character: uint32(r.EndColumn)},
	}
}
