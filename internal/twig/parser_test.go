package twig

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPieces(t *testing.T) {
	code := "{{ a }}{% if x\n{# c #}"
	tokens := Tokenize(code)
	pieces := FindPieces(tokens)

	expected := []Piece{
		{Type: PieceVar, Start: 0, End: 7, StartToken: 0, EndToken: 2},
		{Type: PieceBlock, Start: 7, End: 14, StartToken: 3, EndToken: 5},
		{Type: PieceComment, Start: 15, End: 22, StartToken: 7, EndToken: 9},
	}
	if diff := cmp.Diff(expected, pieces); diff != "" {
		t.Fatalf("pieces mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, pieces[0].Closed(tokens))
	assert.False(t, pieces[1].Closed(tokens))
	first, last := pieces[1].Inner(tokens)
	assert.Equal(t, 4, first)
	assert.Equal(t, 5, last)
}

func TestFindPiecesWellFormed(t *testing.T) {
	inputs := []string{
		"{# abc",
		"{{}}{{--}}",
		"{% if %}{% endif",
		"a {{ b\n}} {% c %} {# d\n #} {{",
		"{% for x in 'unterminated\n%}{{ y }}",
	}
	for _, code := range inputs {
		tokens := Tokenize(code)
		prevEnd := 0
		for _, p := range FindPieces(tokens) {
			assert.LessOrEqual(t, p.Start, p.End)
			assert.LessOrEqual(t, p.StartToken, p.EndToken)
			assert.GreaterOrEqual(t, p.Start, prevEnd, "pieces overlap in %q", code)
			assert.Less(t, p.EndToken, len(tokens))
			prevEnd = p.End
		}
	}
}

// outline renders a statement tree compactly: out for output, the tag name for
// tags, name{...} for bodies and a trailing ? when the end tag is missing.
func outline(code string, tokens []Token, stmts []Statement) string {
	var parts []string
	for _, stmt := range stmts {
		var b strings.Builder
		switch s := stmt.(type) {
		case *OutputStatement:
			b.WriteString("out")
		case *TagStatement:
			b.WriteString(s.Name)
		case *BodyStatement:
			b.WriteString(s.Name + "{" + outline(code, tokens, s.Body) + "}")
			if s.End == nil {
				b.WriteString("?")
			}
		case *IfStatement:
			b.WriteString("if{" + outline(code, tokens, s.Body) + "}")
			for _, br := range s.ElseIfs {
				b.WriteString(" elseif{" + outline(code, tokens, br.Body) + "}")
			}
			if s.Else != nil {
				b.WriteString(" else{" + outline(code, tokens, s.Else.Body) + "}")
			}
			if s.End == nil {
				b.WriteString("?")
			}
		case *ForStatement:
			b.WriteString("for{" + outline(code, tokens, s.Body) + "}")
			if s.Else != nil {
				b.WriteString(" else{" + outline(code, tokens, s.Else.Body) + "}")
			}
			if s.End == nil {
				b.WriteString("?")
			}
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " ")
}

func parseOutline(code string) string {
	tokens := Tokenize(code)
	return outline(code, tokens, Parse(code, tokens, FindPieces(tokens)))
}

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		code     string
		expected string
	}{
		{"if_chain", "{% if a %}{{ a }}{% elseif b %}{% else %}x{% endif %}", "if{out} elseif{} else{}"},
		{"for_else", "{% for x in xs %}{{ x }}{% else %}{% endfor %}{{ y }}", "for{out} else{} out"},
		{"one_line_block", `{% block title "Home" %}`, "block"},
		{"body_block", "{% block body %}{{ a }}{% endblock %}", "block{out}"},
		{"set_forms", "{% set x %}abc{% endset %}{% set y = 1 %}", "set{} set"},
		{"unterminated", "{% if a %}{% for b in c %}{{ b }}", "if{for{out}?}?"},
		{"ancestor_closer_closes_inner", "{% if a %}{% block b %}{% endif %}", "if{block{}?}"},
		{"second_else_ends_the_if", "{% if a %}{% else %}{% else %}{% endif %}", "if{} else{}?"},
		{"elseif_after_else_ends_the_if", "{% if a %}{% else %}{% elseif b %}{{ c }}", "if{} else{}? out"},
		{"nested_else_belongs_to_inner", "{% if a %}{% for x in y %}{% else %}{% endfor %}{% else %}{% endif %}", "if{for{} else{}} else{}"},
		{"second_else_of_for", "{% for a in b %}{% else %}{% else %}{% endfor %}", "for{} else{}?"},
		{"other_tags", "{% include 'a.twig' %}{% verbatim %}{{ x }}{% endverbatim %}", "include verbatim{out}"},
		{"noise", "{# c #}{% endfor %}{% endblock %}{%  %}", ""},
		{"nested_bodies", "{% block a %}{% block b %}{% endblock %}{% endblock %}", "block{block{}}"},
		{"apply_and_macro", "{% apply upper %}{% macro m(x) %}{% endmacro %}{% endapply %}", "apply{macro{}}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseOutline(tc.code))
		})
	}
}

func TestParseStructure(t *testing.T) {
	code := "{% if a %}{{ b }}{% endif %}"
	tokens := Tokenize(code)
	pieces := FindPieces(tokens)
	require.Len(t, pieces, 3)

	stmts := Parse(code, tokens, pieces)
	expected := []Statement{
		&IfStatement{
			Start: pieces[0],
			Body:  []Statement{&OutputStatement{Piece: pieces[1]}},
			End:   &pieces[2],
		},
	}
	if diff := cmp.Diff(expected, stmts); diff != "" {
		t.Fatalf("statements mismatch (-want +got):\n%s", diff)
	}

	start, end := stmts[0].Span()
	assert.Equal(t, 0, start)
	assert.Equal(t, len(code), end)
}

func TestPieceName(t *testing.T) {
	code := "{% endif %}{{ x }}{% 'a' %}"
	tokens := Tokenize(code)
	pieces := FindPieces(tokens)
	require.Len(t, pieces, 3)

	assert.Equal(t, "endif", PieceName(code, tokens, pieces[0]))
	assert.Equal(t, "x", PieceName(code, tokens, pieces[1]))
	assert.Equal(t, "", PieceName(code, tokens, pieces[2]))
}

func TestWalkStatements(t *testing.T) {
	code := "{% for a in b %}{% if c %}{{ d }}{% endif %}{% else %}{{ e }}{% endfor %}"
	tokens := Tokenize(code)
	stmts := Parse(code, tokens, FindPieces(tokens))

	outputs := 0
	Walk(stmts, func(s Statement) bool {
		if _, ok := s.(*OutputStatement); ok {
			outputs++
		}
		return true
	})
	assert.Equal(t, 2, outputs)

	visited := 0
	Walk(stmts, func(s Statement) bool {
		visited++
		_, isIf := s.(*IfStatement)
		return !isIf
	})
	// for, if, output in else
	assert.Equal(t, 3, visited)
}
