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

func newTestPHPAnalyzer(t *testing.T) (*phpAnalyzer, *Workspace, string) {
	t.Helper()
	ws, root := newTestWorkspace(t)
	path := filepath.Join(root, "src", "Repository", "PostRepository.php")
	a := NewPHPAnalyzer(ws, path).(*phpAnalyzer)
	require.NoError(t, a.Changed([]byte(postRepository), nil))
	t.Cleanup(a.Close)
	return a, ws, root
}

func TestPHPQueryHover(t *testing.T) {
	a, _, _ := newTestPHPAnalyzer(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		pos      protocol.Position
		expected string
	}{
		{
			name:     "entity",
			pos:      positionOf(t, postRepository, `Entity\Post p`, 8),
			expected: "(entity) App\\Entity\\Post\nrepository: App\\Repository\\PostRepository",
		},
		{
			name:     "relation",
			pos:      positionOf(t, postRepository, "p.author", 3),
			expected: `(relation) App\Entity\Post::$author: App\Entity\User`,
		},
		{
			name:     "joined_alias",
			pos:      positionOf(t, postRepository, "a.name", 0),
			expected: `(alias) a: App\Entity\User`,
		},
		{
			name:     "field",
			pos:      positionOf(t, postRepository, "a.name", 3),
			expected: `(field) App\Entity\User::$name: string`,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hover, err := a.OnHover(ctx, tc.pos)
			require.NoError(t, err)
			assert.Contains(t, hoverText(t, hover), tc.expected)
		})
	}

	hover, err := a.OnHover(ctx, positionOf(t, postRepository, "getEntityManager", 2))
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestPHPQueryDefinition(t *testing.T) {
	a, _, root := newTestPHPAnalyzer(t)
	ctx := context.Background()
	userURI := protocol.DocumentUri(utils.PathToURI(filepath.Join(root, "src", "Entity", "User.php")))
	postURI := protocol.DocumentUri(utils.PathToURI(filepath.Join(root, "src", "Entity", "Post.php")))

	locations, err := a.OnDefinition(ctx, positionOf(t, postRepository, "a.name", 3))
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, userURI, locations[0].URI)
	assert.Equal(t, uint32(10), locations[0].Range.Start.Line)

	locations, err = a.OnDefinition(ctx, positionOf(t, postRepository, `Entity\Post p`, 8))
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, postURI, locations[0].URI)
	assert.Equal(t, uint32(8), locations[0].Range.Start.Line)
}

func TestPHPQueryCompletion(t *testing.T) {
	a, _, _ := newTestPHPAnalyzer(t)
	ctx := context.Background()

	items, err := a.OnCompletion(ctx, positionOf(t, postRepository, "AND p.", 6))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title", "author"}, labels(items))
	require.NotNil(t, items[2].Kind)
	assert.Equal(t, protocol.CompletionItemKindReference, *items[2].Kind)

	items, err = a.OnCompletion(ctx, positionOf(t, postRepository, "a.name", 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, labels(items))

	items, err = a.OnCompletion(ctx, positionOf(t, postRepository, "WHERE", 2))
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = a.OnCompletion(ctx, positionOf(t, postRepository, "getResult", 0))
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestPHPAnalyzerRegistersOpenDocument(t *testing.T) {
	_, ws, _ := newTestPHPAnalyzer(t)

	info := ws.Resolver.ResolveClass(context.Background(), `App\Repository\PostRepository`)
	require.NotNil(t, info)
	_, ok := info.PublicMethod("findByAuthorName")
	assert.True(t, ok)

	finder, ok := info.PublicMethod("findAll")
	require.True(t, ok, "repository finders come from the entity mapping")
	assert.Equal(t, `App\Entity\Post[]`, finder.ReturnType.String())
}
