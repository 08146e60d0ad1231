package extensions_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/extensions"
	"github.com/peterckelly/zotero/pkg/logger"
)

type recordingSelector struct {
	mu       sync.Mutex
	selected []extensions.Item
	err      error
}

func (s *recordingSelector) Select(_ context.Context, item extensions.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = append(s.selected, item)
	return s.err
}

func TestSelect(t *testing.T) {
	t.Parallel()

	items := []extensions.Item{
		{ID: 1, Key: "ABCD2345", ItemType: "book", Title: "First"},
		{ID: 2, Key: "EFGH6789", ItemType: "book", Title: "Second"},
	}

	t.Run("routes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			uri  string
			want map[string]string
		}{
			{
				uri:  "zotero://select/library/items/ABCD2345",
				want: map[string]string{"libraryID": "0", "objectKey": "ABCD2345", "objectType": "item"},
			},
			{
				uri:  "zotero://select/groups/4521/items/ABCD2345",
				want: map[string]string{"libraryID": "7", "objectKey": "ABCD2345"},
			},
			{
				uri: "zotero://select/library/collections/QRST2345/items/ABCD2345",
				want: map[string]string{
					"libraryID": "0", "scopeObject": "collections", "scopeObjectKey": "QRST2345", "objectKey": "ABCD2345",
				},
			},
			{
				uri:  "zotero://select/groups/4521/searches/QRST2345/items/ABCD2345",
				want: map[string]string{"libraryID": "7", "scopeObject": "searches", "objectKey": "ABCD2345"},
			},
			{
				uri:  "zotero://select/item/3_ABCD2345",
				want: map[string]string{"libraryID": "3", "objectKey": "ABCD2345"},
			},
			{
				uri:  "zotero://select/item/1234",
				want: map[string]string{"objectID": "1234"},
			},
		}
		for _, tt := range tests {
			lib := &fakeLibrary{items: items, scopes: map[string]string{"QRST2345": "Scope"}}
			sel := &recordingSelector{}
			res := fetch(t, extensions.NewSelect(lib, fakeGroups{"4521": "7"}, sel, nil), tt.uri)

			require.NoError(t, res.openErr, tt.uri)
			assert.Equal(t, zotero.StatusBindingAborted, res.status, tt.uri)
			assert.False(t, res.started, tt.uri)
			params := lib.lastCall(t)
			for k, v := range tt.want {
				assert.Equal(t, v, params.Get(k), "%s: %s", tt.uri, k)
			}
			require.Len(t, sel.selected, 1, tt.uri)
			assert.Equal(t, "First", sel.selected[0].Title)
		}
	})

	t.Run("nothing found is logged", func(t *testing.T) {
		t.Parallel()
		rec := logger.NewRecorder(16, slog.LevelDebug)
		sel := &recordingSelector{}
		ext := extensions.NewSelect(&fakeLibrary{}, nil, sel, slog.New(rec))
		res := fetch(t, ext, "zotero://select/library/items/ABCD2345")

		require.NoError(t, res.openErr)
		assert.Equal(t, zotero.StatusBindingAborted, res.status)
		assert.Empty(t, sel.selected)
		assert.Contains(t, rec.Text(), "Selected items not found")
	})

	t.Run("lookup error is shown", func(t *testing.T) {
		t.Parallel()
		lib := &fakeLibrary{items: items}
		res := fetch(t, extensions.NewSelect(lib, nil, &recordingSelector{}, nil), "zotero://select/library/collections/NOPE2345/items/ABCD2345")

		require.NoError(t, res.openErr)
		assert.Equal(t, "Invalid collection ID or key", res.body)
	})

	t.Run("selector error fails the channel", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("no window")
		sel := &recordingSelector{err: boom}
		res := fetch(t, extensions.NewSelect(&fakeLibrary{items: items}, nil, sel, nil), "zotero://select/library/items/ABCD2345")

		require.ErrorIs(t, res.openErr, boom)
		assert.Equal(t, zotero.StatusFailure, res.status)
	})

	t.Run("empty path", func(t *testing.T) {
		t.Parallel()
		res := fetch(t, extensions.NewSelect(&fakeLibrary{}, nil, &recordingSelector{}, nil), "zotero://select")
		assert.Equal(t, "Invalid URL", res.body)
	})
}
