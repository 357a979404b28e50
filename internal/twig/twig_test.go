package twig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateNameAt(t *testing.T) {
	code := `{% include 'parts/nav.html.twig' with {title: "Home"} %}{{ '@Admin/list.html.twig' }}`
	tokens := Tokenize(code)

	testCases := []struct {
		name     string
		offset   int
		expected string
		found    bool
	}{
		{name: "inside_path", offset: strings.Index(code, "nav"), expected: "parts/nav.html.twig", found: true},
		{name: "namespaced", offset: strings.Index(code, "Admin"), expected: "@Admin/list.html.twig", found: true},
		{name: "plain_string", offset: strings.Index(code, "Home"), found: false},
		{name: "tag_name", offset: strings.Index(code, "include"), found: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			name, tok, ok := TemplateNameAt(code, tokens, tc.offset)
			assert.Equal(t, tc.found, ok)
			if tc.found {
				assert.Equal(t, tc.expected, name)
				assert.Equal(t, TokenString, tok.Type)
			}
		})
	}
}

func TestResolveTemplate(t *testing.T) {
	root := t.TempDir()
	templates := filepath.Join(root, "templates")
	admin := filepath.Join(root, "vendor", "acme", "admin", "templates")
	for _, p := range []string{
		filepath.Join(templates, "parts", "nav.html.twig"),
		filepath.Join(admin, "list.html.twig"),
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("{{ x }}"), 0o644))
	}
	dirs := []string{filepath.Join(root, "missing"), templates}
	namespaces := map[string]string{"Admin": admin}

	path, tried, ok := ResolveTemplate("parts/nav.html.twig", dirs, namespaces)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(templates, "parts", "nav.html.twig"), path)
	assert.Len(t, tried, 2)

	path, _, ok = ResolveTemplate("@Admin/list.html.twig", dirs, namespaces)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(admin, "list.html.twig"), path)

	path, _, ok = ResolveTemplate("@AdminBundle/list.html.twig", dirs, namespaces)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(admin, "list.html.twig"), path)

	_, tried, ok = ResolveTemplate("nope.html.twig", dirs, namespaces)
	assert.False(t, ok)
	assert.Len(t, tried, 2)
}
