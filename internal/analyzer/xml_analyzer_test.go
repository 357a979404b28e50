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

const postXMLMapping = `<?xml version="1.0" encoding="UTF-8"?>
<doctrine-mapping xmlns="http://doctrine-project.org/schemas/orm/doctrine-mapping">
    <entity name="App\Entity\Post" repository-class="App\Repository\PostRepository">
        <id name="id" type="integer"/>
        <field name="title" type="string"/>
        <many-to-one field="author" target-entity="User"/>
    </entity>
</doctrine-mapping>
`

func newTestXMLAnalyzer(t *testing.T) (*xmlAnalyzer, string) {
	t.Helper()
	ws, root := newTestWorkspace(t)
	a := NewXMLAnalyzer(ws).(*xmlAnalyzer)
	require.NoError(t, a.Changed([]byte(postXMLMapping), nil))
	t.Cleanup(a.Close)
	return a, root
}

func TestXMLMappingHover(t *testing.T) {
	a, _ := newTestXMLAnalyzer(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		pos      protocol.Position
		expected string
	}{
		{
			name:     "entity",
			pos:      positionOf(t, postXMLMapping, `"App\Entity\Post"`, 3),
			expected: "(entity) App\\Entity\\Post\nrepository: App\\Repository\\PostRepository",
		},
		{
			name:     "repository",
			pos:      positionOf(t, postXMLMapping, `"App\Repository`, 3),
			expected: `(repository) App\Repository\PostRepository`,
		},
		{
			name:     "field",
			pos:      positionOf(t, postXMLMapping, `"title"`, 2),
			expected: `(field) App\Entity\Post::$title: string`,
		},
		{
			name:     "relation",
			pos:      positionOf(t, postXMLMapping, `"author"`, 2),
			expected: `(relation) App\Entity\Post::$author: App\Entity\User`,
		},
		{
			name:     "relative_target",
			pos:      positionOf(t, postXMLMapping, `"User"`, 2),
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

	hover, err := a.OnHover(ctx, positionOf(t, postXMLMapping, `type="string"`, 7))
	require.NoError(t, err)
	assert.Nil(t, hover)

	hover, err = a.OnHover(ctx, positionOf(t, postXMLMapping, "<field", 2))
	require.NoError(t, err)
	assert.Nil(t, hover)
}

func TestXMLMappingDefinition(t *testing.T) {
	a, root := newTestXMLAnalyzer(t)
	ctx := context.Background()
	postURI := protocol.DocumentUri(utils.PathToURI(filepath.Join(root, "src", "Entity", "Post.php")))
	userURI := protocol.DocumentUri(utils.PathToURI(filepath.Join(root, "src", "Entity", "User.php")))

	testCases := []struct {
		name string
		pos  protocol.Position
		uri  protocol.DocumentUri
		line uint32
	}{
		{
			name: "target_entity",
			pos:  positionOf(t, postXMLMapping, `"User"`, 2),
			uri:  userURI,
			line: 7,
		},
		{
			name: "field",
			pos:  positionOf(t, postXMLMapping, `"title"`, 2),
			uri:  postURI,
			line: 15,
		},
		{
			name: "relation_field",
			pos:  positionOf(t, postXMLMapping, `"author"`, 2),
			uri:  postURI,
			line: 18,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			locations, err := a.OnDefinition(ctx, tc.pos)
			require.NoError(t, err)
			require.Len(t, locations, 1)
			assert.Equal(t, tc.uri, locations[0].URI)
			assert.Equal(t, tc.line, locations[0].Range.Start.Line)
		})
	}
}

func TestXMLMappingCompletion(t *testing.T) {
	a, _ := newTestXMLAnalyzer(t)
	ctx := context.Background()

	items, err := a.OnCompletion(ctx, positionOf(t, postXMLMapping, `"User"`, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{`App\Entity\Post`, `App\Entity\User`}, labels(items))

	items, err = a.OnCompletion(ctx, positionOf(t, postXMLMapping, `"User"`, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{`App\Entity\User`}, labels(items))

	items, err = a.OnCompletion(ctx, positionOf(t, postXMLMapping, `"title"`, 2))
	require.NoError(t, err)
	assert.Nil(t, items)
}
