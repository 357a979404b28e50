package dql

import "strings"

// Words that follow an entity without being its alias.
var reserved = map[string]bool{
	"AS": true, "WHERE": true, "JOIN": true, "LEFT": true, "INNER": true, "OUTER": true,
	"ON": true, "WITH": true, "ORDER": true, "GROUP": true, "HAVING": true, "SELECT": true,
	"FROM": true, "AND": true, "OR": true, "INDEX": true, "BY": true, "SET": true,
}

// CollectAliases maps query aliases to entity classes. It understands
// FROM <entity> [AS] <alias>, JOIN <entity> [AS] <alias> and
// JOIN <alias>.<relation> [AS] <alias>. Joins it cannot resolve are skipped.
func CollectAliases(tokens []Token, entities EntityTable, namespaces map[string]string) map[string]string {
	aliases := make(map[string]string)
	for i, tok := range tokens {
		if tok.Type != From && tok.Type != Join {
			continue
		}
		if i+1 >= len(tokens) {
			continue
		}

		target := i + 1
		if tok.Type == Join && isRelationJoin(tokens, target) {
			alias, ok := aliasAt(tokens, target+3)
			if !ok {
				continue
			}
			parent, ok := aliases[tokens[target].Value]
			if !ok {
				continue
			}
			field, ok := entities.Get(parent).Field(tokens[target+2].Value)
			if !ok || !field.IsRelation {
				continue
			}
			aliases[alias] = field.Target
			continue
		}

		class, ok := ExpandName(tokens[target], namespaces)
		if !ok {
			continue
		}
		if alias, ok := aliasAt(tokens, target+1); ok {
			aliases[alias] = class
		}
	}
	return aliases
}

func isRelationJoin(tokens []Token, i int) bool {
	return i+2 < len(tokens) &&
		tokens[i].Type == Identifier &&
		tokens[i+1].Type == Dot &&
		tokens[i+2].Type == Identifier &&
		TouchEachOther(tokens[i], tokens[i+1], tokens[i+2])
}

// aliasAt reads the alias at i, stepping over an optional AS.
func aliasAt(tokens []Token, i int) (string, bool) {
	if i < len(tokens) && tokens[i].Type == Identifier && strings.EqualFold(tokens[i].Value, "AS") {
		i++
	}
	if i >= len(tokens) || tokens[i].Type != Identifier || reserved[strings.ToUpper(tokens[i].Value)] {
		return "", false
	}
	return tokens[i].Value, true
}

// TouchEachOther reports whether every token ends where the next begins.
// Zero or one token always touch.
func TouchEachOther(tokens ...Token) bool {
	for i := 1; i < len(tokens); i++ {
		if tokens[i-1].End() != tokens[i].Position {
			return false
		}
	}
	return true
}

// TokenAt returns the index of the token covering offset, counting the
// position right after a token as on it. It returns -1 when none does.
func TokenAt(tokens []Token, offset int) int {
	for i, tok := range tokens {
		if tok.Position <= offset && offset < tok.End() {
			return i
		}
	}
	for i, tok := range tokens {
		if tok.End() == offset {
			return i
		}
	}
	return -1
}

// Reference is what a token of an alias.field chain points to. Field is
// empty when the token is the alias itself.
type Reference struct {
	Class string
	Field string
}

// ResolveChain resolves the token at index within its alias.field[.field]
// chain. Relations are followed from one link to the next.
func ResolveChain(tokens []Token, index int, aliases map[string]string, entities EntityTable) (Reference, bool) {
	if index < 0 || index >= len(tokens) || tokens[index].Type != Identifier {
		return Reference{}, false
	}

	start := index
	for start >= 2 &&
		tokens[start-1].Type == Dot &&
		tokens[start-2].Type == Identifier &&
		TouchEachOther(tokens[start-2], tokens[start-1], tokens[start]) {
		start -= 2
	}

	class, ok := aliases[tokens[start].Value]
	if !ok {
		return Reference{}, false
	}
	if start == index {
		return Reference{Class: class}, true
	}

	for i := start + 2; i <= index; i += 2 {
		field, ok := entities.Get(class).Field(tokens[i].Value)
		if !ok {
			return Reference{}, false
		}
		if i == index {
			return Reference{Class: class, Field: field.Name}, true
		}
		if !field.IsRelation {
			return Reference{}, false
		}
		class = field.Target
	}
	return Reference{}, false
}
