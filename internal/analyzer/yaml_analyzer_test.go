package analyzer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shinyvision/twiglens/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const postYAMLMapping = `App\Entity\Post:
  type: entity
  repositoryClass: App\Repository\PostRepository
  id:
    id:
      type: integer
  fields:
    title:
      type: string
  manyToOne:
    author:
      targetEntity: User
`

func newTestYamlAnalyzer(t *testing.T) (*yamlAnalyzer, string) {
	t.Helper()
	ws, root := newTestWorkspace(t)
	a := NewYamlAnalyzer(ws).(*yamlAnalyzer)
	require.NoError(t, a.Changed([]byte(postYAMLMapping), nil))
	t.Cleanup(a.Close)
	return a, root
}

func TestYamlMappingHover(t *testing.T) {
	a, _ := newTestYamlAnalyzer(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		pos      protocol.Position
		expected string
	}{
		{
			name:     "entity",
			pos:      positionOf(t, postYAMLMapping, "Post:", 1),
			expected: "(entity) App\\Entity\\Post\nrepository: App\\Repository\\PostRepository",
		},
		{
			name:     "repository",
			pos:      positionOf(t, postYAMLMapping, "PostRepository", 1),
			expected: `(repository) App\Repository\PostRepository`,
		},
		{
			name:     "field",
			pos:      positionOf(t, postYAMLMapping, "title:", 1),
			expected: `(field) App\Entity\Post::$title: string`,
		},
		{
			name:     "relation",
			pos:      positionOf(t, postYAMLMapping, "author:", 1),
			expected: `(relation) App\Entity\Post::$author: App\Entity\User`,
		},
		{
			name:     "relative_target",
			pos:      positionOf(t, postYAMLMapping, "User", 1),
			expected: `(entity) App\Entity\User`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hover, err := a.OnHover(ctx, tc.pos)
			require.NoError(t, err)
			assert.Contains(t, hoverText(t, hover), tc.expected)
		})
	}

	for _, needle := range []string{"type: entity", "type: string", "targetEntity:"} {
		hover, err := a.OnHover(ctx, positionOf(t, postYAMLMapping, needle, 1))
		require.NoError(t, err)
		assert.Nil(t, hover, needle)
	}
}

func TestYamlMappingDefinition(t *testing.T) {
	a, root := newTestYamlAnalyzer(t)
	ctx := context.Background()
	postURI := protocol.DocumentUri(utils.PathToURI(filepath.Join(root, "src", "Entity", "Post.php")))
	userURI := protocol.DocumentUri(utils.PathToURI(filepath.Join(root, "src", "Entity", "User.php")))

	locations, err := a.OnDefinition(ctx, positionOf(t, postYAMLMapping, "User", 1))
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, userURI, locations[0].URI)
	assert.Equal(t, uint32(7), locations[0].Range.Start.Line)

	locations, err = a.OnDefinition(ctx, positionOf(t, postYAMLMapping, "author:", 1))
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, postURI, locations[0].URI)
	assert.Equal(t, uint32(18), locations[0].Range.Start.Line)
}

func TestYamlMappingCompletion(t *testing.T) {
	a, _ := newTestYamlAnalyzer(t)
	ctx := context.Background()

	items, err := a.OnCompletion(ctx, positionOf(t, postYAMLMapping, "User", 1))
	require.NoError(t, err)
	assert.Equal(t, []string{`App\Entity\User`}, labels(items))

	items, err = a.OnCompletion(ctx, positionOf(t, postYAMLMapping, "User", 0))
	require.NoError(t, err)
	assert.Equal(t, []string{`App\Entity\Post`, `App\Entity\User`}, labels(items))

	items, err = a.OnCompletion(ctx, positionOf(t, postYAMLMapping, "title:", 1))
	require.NoError(t, err)
	assert.Nil(t, items)
}
