package extensions_test

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero/extensions"
	"github.com/peterckelly/zotero/pkg/pathrouter"
)

const libraryYAML = `
items:
  - id: 1
    key: AAAA2222
    itemType: book
    title: Dune
    fields: {date: "1965"}
  - id: 2
    key: BBBB2222
    itemType: note
    parentID: 1
    note: "<p>spice</p>"
  - id: 3
    key: CCCC2222
    itemType: journalArticle
    title: Arrakis
  - id: 4
    key: DDDD2222
    libraryID: 7
    itemType: book
    title: Group Book
collections:
  - id: 10
    key: COLL2222
    name: Reading
    items: [AAAA2222, BBBB2222]
searches:
  - id: 20
    key: SRCH2222
    name: Unread
    items: [CCCC2222]
groups:
  "4521": "7"
`

func staticLibrary(t *testing.T) *extensions.StaticLibrary {
	t.Helper()
	lib, err := extensions.ParseStaticLibrary(strings.NewReader(libraryYAML))
	require.NoError(t, err)
	return lib
}

func params(kv ...string) pathrouter.Params {
	p := pathrouter.Params{}
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

func keys(items []extensions.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key)
	}
	return out
}

func TestStaticLibrary(t *testing.T) {
	t.Parallel()
	lib := staticLibrary(t)

	t.Run("child counts", func(t *testing.T) {
		t.Parallel()
		it, err := lib.Item(t.Context(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, it.NumChildren)
		assert.Equal(t, "1965", it.Field("date"))

		_, err = lib.Item(t.Context(), 99)
		require.ErrorIs(t, err, extensions.ErrItemNotFound)
	})

	t.Run("results", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name   string
			params pathrouter.Params
			want   []string
		}{
			{name: "user library", params: params("libraryID", "0"), want: []string{"AAAA2222", "BBBB2222", "CCCC2222"}},
			{name: "top level", params: params("libraryID", "0", "subset", "top"), want: []string{"AAAA2222", "CCCC2222"}},
			{name: "group library", params: params("libraryID", "7"), want: []string{"DDDD2222"}},
			{name: "collection by key", params: params("libraryID", "0", "scopeObject", "collections", "scopeObjectKey", "COLL2222"), want: []string{"AAAA2222", "BBBB2222"}},
			{name: "search by id", params: params("scopeObject", "searches", "scopeObjectID", "20"), want: []string{"CCCC2222"}},
			{name: "object key", params: params("objectKey", "CCCC2222"), want: []string{"CCCC2222"}},
			{name: "object id", params: params("objectID", "4"), want: []string{"DDDD2222"}},
		}
		for _, tt := range tests {
			items, err := lib.Results(t.Context(), tt.params)
			require.NoError(t, err, tt.name)
			assert.Equal(t, tt.want, keys(items), tt.name)
		}

		p := pathrouter.Params{}
		p.SetValues("itemKey", []string{"DDDD2222", "AAAA2222"})
		items, err := lib.Results(t.Context(), p)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAAA2222", "DDDD2222"}, keys(items))
	})

	t.Run("scope errors", func(t *testing.T) {
		t.Parallel()
		_, err := lib.Results(t.Context(), params("scopeObject", "collections", "scopeObjectKey", "NOPE2222"))
		require.ErrorIs(t, err, extensions.ErrCollectionNotFound)

		_, err = lib.ScopeName(t.Context(), params("scopeObject", "searches", "scopeObjectID", "1"))
		require.ErrorIs(t, err, extensions.ErrSearchNotFound)

		var scopeErr *extensions.InvalidScopeError
		_, err = lib.Results(t.Context(), params("scopeObject", "tags"))
		require.ErrorAs(t, err, &scopeErr)
		assert.Equal(t, "Invalid scope object 'tags'", scopeErr.Error())

		name, err := lib.ScopeName(t.Context(), params("scopeObject", "collections", "scopeObjectKey", "COLL2222"))
		require.NoError(t, err)
		assert.Equal(t, "Reading", name)
	})

	t.Run("groups", func(t *testing.T) {
		t.Parallel()
		id, err := lib.LibraryIDFromGroupID(t.Context(), "4521")
		require.NoError(t, err)
		assert.Equal(t, "7", id)

		gid, err := lib.GroupIDFromLibraryID(t.Context(), "7")
		require.NoError(t, err)
		assert.Equal(t, "4521", gid)

		_, err = lib.LibraryIDFromGroupID(t.Context(), "1")
		require.Error(t, err)
	})

	t.Run("data", func(t *testing.T) {
		t.Parallel()
		r, err := lib.Data(t.Context(), params("objectType", "item", "objectKey", "AAAA2222"))
		require.NoError(t, err)
		var items []extensions.Item
		require.NoError(t, json.NewDecoder(r).Decode(&items))
		require.Len(t, items, 1)
		assert.Equal(t, "Dune", items[0].Title)

		r, err = lib.Data(t.Context(), params("objectType", "collection", "libraryID", "0"))
		require.NoError(t, err)
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"name": "Reading"`)

		_, err = lib.Data(t.Context(), params("objectType", "tag"))
		require.Error(t, err)
	})

	t.Run("load from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "library.yaml")
		require.NoError(t, os.WriteFile(path, []byte(libraryYAML), 0o644))
		loaded, err := extensions.LoadStaticLibrary(path)
		require.NoError(t, err)
		assert.Len(t, loaded.Items, 4)

		_, err = extensions.LoadStaticLibrary(filepath.Join(t.TempDir(), "missing.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		t.Parallel()
		_, err := extensions.ParseStaticLibrary(strings.NewReader("itemz: []\n"))
		require.Error(t, err)
	})
}

func TestStaticLibraryEndToEnd(t *testing.T) {
	t.Parallel()
	lib := staticLibrary(t)
	h := newHandler(t)
	require.NoError(t, extensions.Register(h, extensions.Deps{Library: lib, Groups: lib, Data: lib}))

	res := fetchFrom(t, h, "zotero://data/groups/4521/items")
	require.NoError(t, res.openErr)
	assert.Contains(t, res.body, `"title": "Group Book"`)
	assert.NotContains(t, res.body, "Dune")

	res = fetchFrom(t, h, "zotero://timeline/library/collections/COLL2222")
	require.NoError(t, res.openErr)
	assert.Contains(t, res.body, `document.write("<title>Reading - `)
}
