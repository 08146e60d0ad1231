package extensions

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/pathrouter"
)

// Selector shows an item in the running application.
type Selector interface {
	Select(ctx context.Context, item Item) error
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, item Item) error

func (f SelectorFunc) Select(ctx context.Context, item Item) error { return f(ctx, item) }

// Select handles item links:
//
//	zotero://select/library/items/ABCD1234
//	zotero://select/groups/4521/collections/EFGH5678/items/ABCD1234
//	zotero://select/item/0_ABCD1234
//	zotero://select/item/1234 (not stable across synced machines)
//
// Only the first matching item is selected.
type Select struct {
	library  Library
	groups   Groups
	selector Selector
	logger   *slog.Logger
}

// NewSelect returns the select extension.
func NewSelect(library Library, groups Groups, selector Selector, l *slog.Logger) *Select {
	if l == nil {
		l = logger.NewNope()
	}
	return &Select{library: library, groups: groups, selector: selector, logger: l}
}

func (e *Select) NewChannel(_ context.Context, u *url.URL) (zotero.Channel, error) {
	return zotero.NewAsyncChannel(u, func(ctx context.Context, ch *zotero.AsyncChannel) (zotero.Result, error) {
		path := requestPath(u)
		if path == "" {
			return zotero.Text("Invalid URL"), nil
		}

		params := pathrouter.Params{}
		params.Set("objectType", "item")
		r := pathrouter.New(params)

		// Item within a collection or search
		r.Add("library/:scopeObject/:scopeObjectKey/items/:objectKey", func(p pathrouter.Params) {
			p.Set("libraryID", "0")
		})
		r.Add("groups/:groupID/:scopeObject/:scopeObjectKey/items/:objectKey")

		// All items
		r.Add("library/items/:objectKey", func(p pathrouter.Params) {
			p.Set("libraryID", "0")
		})
		r.Add("groups/:groupID/items/:objectKey")

		// Old-style URLs
		r.Add("item/:id", func(p pathrouter.Params) {
			id := p.Get("id")
			if libraryID, key, ok := ParseLibraryKeyHash(id); ok {
				p.Set("libraryID", libraryID)
				p.Set("objectKey", key)
			} else {
				p.Set("objectID", id)
			}
			p.Del("id")
		})

		// An unmatched path selects by query parameters alone.
		r.Run(strings.TrimPrefix(path, "/"))

		if err := ParseParams(ctx, params, e.groups); err != nil {
			e.logger.ErrorContext(ctx, "select failed", slog.String("error", err.Error()))
			return zotero.Text(userMessage(err)), nil
		}
		results, err := e.library.Results(ctx, params)
		if err != nil {
			e.logger.ErrorContext(ctx, "select failed", slog.String("error", err.Error()))
			return zotero.Text(userMessage(err)), nil
		}
		if len(results) == 0 {
			e.logger.WarnContext(ctx, "Selected items not found", slog.String("uri", u.String()))
			return zotero.Empty{}, nil
		}

		if err := e.selector.Select(ctx, results[0]); err != nil {
			return nil, err
		}
		return zotero.Empty{}, nil
	}), nil
}
