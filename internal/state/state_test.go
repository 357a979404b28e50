package state

import (
	"testing"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

type recordingAnalyzer struct {
	changes []string
	closed  bool
}

func (r *recordingAnalyzer) Changed(code []byte, _ *sitter.InputEdit) error {
	r.changes = append(r.changes, string(code))
	return nil
}

func (r *recordingAnalyzer) Close() { r.closed = true }

func TestStateNotifiesAnalyzer(t *testing.T) {
	s := NewState()
	uri := protocol.DocumentUri("file:///app/templates/index.html.twig")
	a := &recordingAnalyzer{}

	s.SetDocument(uri, &Document{Text: "{{ a }}", LanguageID: "twig", Analyzer: a})
	s.SetDocument(uri, &Document{Text: "{{ b }}", LanguageID: "twig"})

	doc, ok := s.GetDocument(uri)
	require.True(t, ok)
	assert.Equal(t, "{{ b }}", doc.Text)
	assert.Same(t, a, doc.Analyzer)
	assert.Equal(t, []string{"{{ a }}", "{{ b }}"}, a.changes)
	assert.Equal(t, 1, s.Len())

	s.DeleteDocument(uri)
	assert.True(t, a.closed)
	_, ok = s.GetDocument(uri)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestLanguageFor(t *testing.T) {
	testCases := []struct {
		path       string
		languageID string
		expected   string
	}{
		{"/app/templates/base.html.twig", "html", "twig"},
		{"/app/templates/mail.txt", "twig", "twig"},
		{"/app/src/Entity/Post.php", "", "php"},
		{"/app/config/services.yaml", "", "yaml"},
		{"/app/config/doctrine/Post.orm.xml", "", "xml"},
		{"/app/README.md", "markdown", "markdown"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, LanguageFor(tc.path, tc.languageID), tc.path)
	}
}

func TestIsMapping(t *testing.T) {
	assert.True(t, IsMapping("/app/config/doctrine/Post.orm.xml"))
	assert.True(t, IsMapping("/app/config/doctrine/Post.orm.YML"))
	assert.False(t, IsMapping("/app/config/services.yaml"))
	assert.False(t, IsMapping("/app/src/Entity/Post.php"))
}
