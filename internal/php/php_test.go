package php

import (
	"path/filepath"
	"strings"
	"testing"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestResolve(t *testing.T) {
	store, root := newTestStore(t)

	path, rng, ok := Resolve(store, `App\Entity\Post`)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "Entity", "Post.php"), path)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 8, Character: 6},
		End:   protocol.Position{Line: 8, Character: 10},
	}, rng)

	_, _, ok = Resolve(store, `App\Entity\NonExistent`)
	assert.False(t, ok)
	_, _, ok = Resolve(nil, `App\Entity\Post`)
	assert.False(t, ok)
}

func TestFindMemberRanges(t *testing.T) {
	store, _ := newTestStore(t)
	path, _, ok := Resolve(store, `App\Entity\Post`)
	require.True(t, ok)

	rng, ok := FindMethodRange(store, path, `App\Entity\Post`, "GetComments")
	require.True(t, ok)
	assert.Equal(t, uint32(32), rng.Start.Line)

	rng, ok = FindPropertyRange(store, path, `App\Entity\Post`, "title")
	require.True(t, ok)
	assert.Equal(t, uint32(16), rng.Start.Line)

	rng, ok = FindPropertyRange(store, path, `App\Entity\Post`, "slug")
	require.True(t, ok)
	assert.Equal(t, uint32(25), rng.Start.Line)

	_, ok = FindMethodRange(store, path, `App\Entity\Post`, "nonExistentMethod")
	assert.False(t, ok)
	_, ok = FindPropertyRange(store, path, `App\Entity\Other`, "title")
	assert.False(t, ok)
}

func TestQueryStringAt(t *testing.T) {
	doc := NewDocument()
	t.Cleanup(doc.Close)
	require.NoError(t, doc.Update([]byte(repositorySource), nil))

	inQuery := strings.Index(repositorySource, "p.title")
	outside := strings.Index(repositorySource, "SELECT nothing")

	doc.Read(func(tree *sitter.Tree, content []byte, _ FileSummary) {
		qs, ok := QueryStringAt(tree, content, inQuery)
		require.True(t, ok)
		assert.Equal(t, `SELECT p FROM App\Entity\Post p WHERE p.title = :title`, qs.Query)
		assert.Equal(t, strings.Index(repositorySource, "SELECT p"), qs.Offset)

		_, ok = QueryStringAt(tree, content, outside)
		assert.False(t, ok)
		_, ok = QueryStringAt(tree, content, 3)
		assert.False(t, ok)
		_, ok = QueryStringAt(tree, content, len(content)+10)
		assert.False(t, ok)

		all := QueryStrings(tree, content)
		require.Len(t, all, 1)
		assert.Equal(t, qs, all[0])
	})
}

func TestDocumentStoreEviction(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.php": "<?php class A {}",
		"b.php": "<?php class B {}",
		"c.php": "<?php class C {}",
	})
	store := NewDocumentStore(2)

	open := NewDocument()
	t.Cleanup(open.Close)
	require.NoError(t, open.Update([]byte("<?php class Open {}"), nil))
	store.RegisterOpen(filepath.Join(root, "open.php"), open)

	for _, name := range []string{"a.php", "b.php", "c.php"} {
		doc, err := store.Get(filepath.Join(root, name))
		require.NoError(t, err)
		assert.NotEmpty(t, doc.Summary().Classes)
	}
	assert.Equal(t, 2, store.Len())

	got, err := store.Get(filepath.Join(root, "open.php"))
	require.NoError(t, err)
	assert.Same(t, open, got)

	_, err = store.Get(filepath.Join(root, "missing.php"))
	assert.Error(t, err)
	_, err = store.Get("")
	assert.Error(t, err)

	store.Close(filepath.Join(root, "open.php"))
	summary, err := store.Summary(filepath.Join(root, "a.php"))
	require.NoError(t, err)
	_, ok := summary.Class("A")
	assert.True(t, ok)
	assert.Equal(t, 2, store.Len(), "closed buffers become evictable")
}

func TestDocumentDebouncedSummary(t *testing.T) {
	doc := NewDocument()
	t.Cleanup(doc.Close)
	require.NoError(t, doc.Update([]byte("<?php class A {}"), nil))
	require.Len(t, doc.Summary().Classes, 1)

	done := make(chan struct{}, 1)
	doc.OnAnalyzed(func() { done <- struct{}{} })

	code := []byte("<?php class A {} class B {}")
	require.Len(t, code, 27)
	require.NoError(t, doc.Update(code, &sitter.InputEdit{
		StartIndex:  16,
		OldEndIndex: 16,
		NewEndIndex: 27,
		StartPoint:  sitter.Point{Row: 0, Column: 16},
		OldEndPoint: sitter.Point{Row: 0, Column: 16},
		NewEndPoint: sitter.Point{Row: 0, Column: 27},
	}))
	assert.Len(t, doc.Summary().Classes, 1)

	<-done
	assert.Len(t, doc.Summary().Classes, 2)
}
