package analyzer

import (
	"strings"
	"unicode/utf8"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/shinyvision/twiglens/internal/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Shortens a PHP FQN to its base class name
func shortName(qualified string) string {
	if i := strings.LastIndexByte(qualified, '\\'); i >= 0 && i+1 < len(qualified) {
		return qualified[i+1:]
	}
	return qualified
}

// Byte offset to LSP position, counting columns in UTF-16 units.
func offsetToPosition(content string, offset int) protocol.Position {
	if offset > len(content) {
		offset = len(content)
	}
	var line uint32
	lineStart := 0
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}

	var character uint32
	for i := lineStart; i < offset; {
		r, size := utf8.DecodeRuneInString(content[i:])
		if r > 0xFFFF {
			character += 2
		} else {
			character++
		}
		i += size
	}
	return protocol.Position{Line: line, Character: character}
}

// offsetToPoint converts a byte offset to a tree-sitter point.
func offsetToPoint(content []byte, offset int) sitter.Point {
	offset = min(max(offset, 0), len(content))
	var row, lineStart uint
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			row++
			lineStart = uint(i + 1)
		}
	}
	return sitter.Point{Row: row, Column: uint(offset) - lineStart}
}

func spanRange(content string, start, end int) protocol.Range {
	return protocol.Range{
		Start: offsetToPosition(content, start),
		End:   offsetToPosition(content, end),
	}
}

func typeLabel(t types.Type) string {
	return types.OrAny(t).String()
}

func markdown(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

// phpBlock wraps a signature in a fenced php block.
func phpBlock(lines ...string) string {
	return "```php\n" + strings.Join(lines, "\n") + "\n```"
}

func completionItem(label string, kind protocol.CompletionItemKind, detail string) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label: label,
		Kind:  &kind,
	}
	if detail != "" {
		item.Detail = &detail
	}
	return item
}
