package analyzer

import (
	"testing"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/stretchr/testify/assert"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestOffsetToPosition(t *testing.T) {
	content := "{{ a }}\n{{ 'é😀' ~ b }}"

	testCases := []struct {
		offset   int
		expected protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{7, protocol.Position{Line: 0, Character: 7}},
		{8, protocol.Position{Line: 1, Character: 0}},
		// é is one UTF-16 unit and two bytes, the emoji two units and four bytes.
		{14, protocol.Position{Line: 1, Character: 5}},
		{18, protocol.Position{Line: 1, Character: 7}},
		{100, protocol.Position{Line: 1, Character: 15}},
	}
	for _, tc := range testCases {
		pos := offsetToPosition(content, tc.offset)
		assert.Equal(t, tc.expected, pos, "offset %d", tc.offset)
		if tc.offset <= len(content) {
			assert.Equal(t, tc.offset, pos.IndexIn(content), "offset %d", tc.offset)
		}
	}
}

func TestOffsetToPoint(t *testing.T) {
	content := []byte("<a>\n  <b x=\"1\"/>")
	assert.Equal(t, sitter.Point{Row: 1, Column: 3}, offsetToPoint(content, 7))
	assert.Equal(t, sitter.Point{Row: 0, Column: 0}, offsetToPoint(content, -1))
	assert.Equal(t, sitter.Point{Row: 1, Column: 12}, offsetToPoint(content, 100))
}

func TestShortName(t *testing.T) {
	assert.Equal(t, "Post", shortName(`App\Entity\Post`))
	assert.Equal(t, "Post", shortName("Post"))
	assert.Equal(t, `App\`, shortName(`App\`))
}
