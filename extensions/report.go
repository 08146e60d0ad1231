package extensions

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/pathrouter"
)

const reportErrorHTML = `<span style="color: red; font-weight: bold">Error generating report</span>`

// ReportEntry is one top-level row of a report. Child notes and
// attachments that matched are listed under their parent.
type ReportEntry struct {
	Item
	Notes       []Item
	Attachments []Item
	SearchMatch bool
}

// ReportOption configures the report extension.
type ReportOption func(*Report)

// WithReportLanguage sets the collation language for sorting.
// Default: English.
func WithReportLanguage(tag language.Tag) ReportOption {
	return func(r *Report) { r.lang = tag }
}

// WithReportLogger sets the logger.
func WithReportLogger(l *slog.Logger) ReportOption {
	return func(r *Report) {
		if l != nil {
			r.logger = l
		}
	}
}

// Report serves item reports:
//
//	zotero://report/library/items/report.html?sort=date/d
//	zotero://report/groups/4521/collections/ABCD1234/items/report.html
//	zotero://report/items/0_ABCD1234-0_EFGH5678/html/report.html
type Report struct {
	library  Library
	groups   Groups
	renderer ReportRenderer
	logger   *slog.Logger
	lang     language.Tag
}

// NewReport returns the report extension. A nil renderer selects the
// built-in HTML renderer.
func NewReport(library Library, groups Groups, renderer ReportRenderer, opts ...ReportOption) *Report {
	if renderer == nil {
		renderer = HTMLReport{}
	}
	r := &Report{
		library:  library,
		groups:   groups,
		renderer: renderer,
		logger:   logger.NewNope(),
		lang:     language.English,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (e *Report) NewChannel(_ context.Context, u *url.URL) (zotero.Channel, error) {
	return zotero.NewAsyncChannel(u, func(ctx context.Context, ch *zotero.AsyncChannel) (zotero.Result, error) {
		return e.produce(ctx, ch, u)
	}), nil
}

func (e *Report) produce(ctx context.Context, ch *zotero.AsyncChannel, u *url.URL) (zotero.Result, error) {
	if u.Path == "" {
		return zotero.Text("Invalid URL"), nil
	}
	path := strings.TrimPrefix(u.EscapedPath(), "/")

	// Stylesheets come from the skin.
	if strings.HasSuffix(path, ".css") {
		return zotero.Location(&url.URL{Scheme: "chrome", Host: "zotero", Path: "/skin/report/" + strings.TrimPrefix(u.Path, "/")}), nil
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	params := pathrouter.Params{}
	params.Set("objectType", "item")
	params.Set("format", "html")
	params.Set("sort", "title")
	r := pathrouter.New(params)

	// Items within a collection or search
	r.Add("library/:scopeObject/:scopeObjectKey/items/report.html", func(p pathrouter.Params) {
		p.Set("libraryID", "0")
	})
	r.Add("groups/:groupID/:scopeObject/:scopeObjectKey/items/report.html")

	// All items
	r.Add("library/items/report.html", func(p pathrouter.Params) {
		p.Set("libraryID", "0")
	})
	r.Add("groups/:groupID/items/report.html")

	// Old-style URLs
	r.Add("collection/:id/html/report.html", func(p pathrouter.Params) {
		setScopeFromID(p, "collections")
	})
	r.Add("search/:id/html/report.html", func(p pathrouter.Params) {
		setScopeFromID(p, "searches")
	})
	r.Add("items/:ids/html/report.html", func(p pathrouter.Params) {
		ids := strings.Split(p.Get("ids"), "-")
		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			_, key, _ := strings.Cut(id, "_")
			keys = append(keys, key)
		}
		libraryID, _, _ := strings.Cut(ids[0], "_")
		p.Set("libraryID", libraryID)
		p.SetValues("itemKey", keys)
		p.Del("ids")
	})

	if !r.Run(path) {
		return zotero.Text("URL could not be parsed"), nil
	}

	if field, dir, ok := strings.Cut(params.Get("sort"), "/"); ok {
		params.Set("sort", field)
		if dir == "d" {
			params.Set("direction", "desc")
		} else {
			params.Set("direction", "asc")
		}
	}

	entries, err := e.entries(ctx, params)
	if err != nil {
		e.logger.DebugContext(ctx, "report lookup failed", slog.String("error", err.Error()))
		return zotero.Text(userMessage(err)), nil
	}
	sortEntries(entries, params.Get("sort"), params.Get("direction") == "desc", e.lang)

	switch params.Get("format") {
	case "rtf":
		ch.SetContentType("text/rtf")
		return zotero.Text(""), nil
	case "csv":
		ch.SetContentType("text/plain")
		return zotero.Text(""), nil
	}

	ch.SetContentType("text/html")
	body, err := e.renderer.Render(ctx, entries)
	if err != nil {
		e.logger.ErrorContext(ctx, "report rendering failed", slog.String("error", err.Error()))
		return zotero.Text(reportErrorHTML), nil
	}
	return zotero.Stream(withFallback(body, reportErrorHTML, func(err error) {
		e.logger.ErrorContext(ctx, "report rendering failed", slog.String("error", err.Error()))
	})), nil
}

// entries looks up the items and groups matching children under their
// parents. Parents of matching children are fetched when they did not
// match themselves.
func (e *Report) entries(ctx context.Context, params pathrouter.Params) ([]*ReportEntry, error) {
	if err := ParseParams(ctx, params, e.groups); err != nil {
		return nil, err
	}
	if err := checkScope(params); err != nil {
		return nil, err
	}
	results, err := e.library.Results(ctx, params)
	if err != nil {
		return nil, err
	}

	var (
		entries  []*ReportEntry
		index    = make(map[int64]*ReportEntry)
		children []Item
		parents  []int64
	)
	for _, it := range results {
		if it.ParentID != 0 {
			children = append(children, it)
			if !slices.Contains(parents, it.ParentID) {
				parents = append(parents, it.ParentID)
			}
			continue
		}
		entry := &ReportEntry{Item: it, SearchMatch: true}
		index[it.ID] = entry
		entries = append(entries, entry)
	}

	for _, id := range parents {
		if _, ok := index[id]; ok {
			continue
		}
		parent, err := e.library.Item(ctx, id)
		if err != nil {
			return nil, err
		}
		entry := &ReportEntry{Item: parent}
		index[id] = entry
		entries = append(entries, entry)
	}

	for _, child := range children {
		parent := index[child.ParentID]
		switch {
		case child.IsNote():
			parent.Notes = append(parent.Notes, child)
		case child.IsAttachment():
			parent.Attachments = append(parent.Attachments, child)
		}
	}
	return entries, nil
}

// sortEntries orders entries and their children by field. Empty values
// sort last in ascending order; desc reverses the whole order.
func sortEntries(entries []*ReportEntry, field string, desc bool, lang language.Tag) {
	coll := collate.New(lang, collate.Loose)
	order := 1
	if desc {
		order = -1
	}
	cmp := func(a, b Item) int {
		va, vb := sortValue(a, field), sortValue(b, field)
		var c int
		switch {
		case va == "" && vb != "":
			c = 1
		case va != "" && vb == "":
			c = -1
		default:
			c = coll.CompareString(va, vb)
		}
		return c * order
	}

	slices.SortStableFunc(entries, func(a, b *ReportEntry) int { return cmp(a.Item, b.Item) })
	for _, e := range entries {
		slices.SortStableFunc(e.Notes, cmp)
		slices.SortStableFunc(e.Attachments, cmp)
	}
}

func sortValue(it Item, field string) string {
	if field != "title" {
		return it.Field(field)
	}
	if it.IsNote() {
		return sortTitle(it.Note)
	}
	return sortTitle(it.Title)
}

// sortTitle drops leading punctuation and quotes so "[Untitled]" and
// "\"Quoted\"" sort by their first letter.
func sortTitle(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), "[]'\"“”‘’«»¿¡(")
}
