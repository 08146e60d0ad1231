package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/logger"
	"github.com/peterckelly/zotero/pkg/pathrouter"
	"github.com/peterckelly/zotero/pkg/sanitizer"
)

// TimelinePage is the page template the HTML controller fills in.
const TimelinePage = "chrome://zotero/skin/timeline/timeline.html"

// Markers in the timeline page. Each is followed by the value spliced in
// after its first occurrence.
const (
	timelineOnLoadMarker = `<body onload="onLoad(`
	timelineTitleMarker  = `document.write("<title>`
	timelineDataMarker   = `Timeline.loadXML("zotero://timeline/data/`
)

const defaultLibraryName = "My Library"

var timelineIntervals = map[byte]string{
	'd': "Timeline.DateTime.DAY",
	'm': "Timeline.DateTime.MONTH",
	'y': "Timeline.DateTime.YEAR",
	'e': "Timeline.DateTime.DECADE",
	'c': "Timeline.DateTime.CENTURY",
	'i': "Timeline.DateTime.MILLENNIUM",
}

var timelineDefaultIntervals = [3]string{
	"Timeline.DateTime.MONTH",
	"Timeline.DateTime.YEAR",
	"Timeline.DateTime.DECADE",
}

var timelineDateTypes = map[string]string{
	"d":  "date",
	"da": "dateAdded",
	"dm": "dateModified",
}

// TimelineRenderer writes the event data for a timeline. dateField names
// the item field events are placed by.
type TimelineRenderer interface {
	Render(ctx context.Context, items []Item, dateField string) (io.Reader, error)
}

// TimelineOption configures the timeline extension.
type TimelineOption func(*Timeline)

// WithTimelineClock sets the clock used for the default focus date.
func WithTimelineClock(now func() time.Time) TimelineOption {
	return func(t *Timeline) {
		if now != nil {
			t.now = now
		}
	}
}

// WithTimelineLibraryName sets the title used when no collection or search
// is selected. Default: "My Library".
func WithTimelineLibraryName(name string) TimelineOption {
	return func(t *Timeline) { t.libraryName = name }
}

// WithTimelineLogger sets the logger.
func WithTimelineLogger(l *slog.Logger) TimelineOption {
	return func(t *Timeline) {
		if l != nil {
			t.logger = l
		}
	}
}

// Timeline serves SIMILE timeline pages and their event data.
//
//	zotero://timeline/library/collections/ABCD1234?i=mye&d=Jan.01.2020
//	zotero://timeline/data/library/collections/ABCD1234?t=da
//
// Query parameters: i picks up to three band intervals (d, m, y, e, c,
// i), d is the focus date as "Jan.02.2006" and t is the date field
// (d, da, dm). The page loads its data from zotero://timeline/data, so
// the extension must be registered with zotero.WithPrivilegedContext.
type Timeline struct {
	library     Library
	renderer    TimelineRenderer
	groups      Groups
	loader      zotero.Loader
	logger      *slog.Logger
	now         func() time.Time
	libraryName string
}

// NewTimeline returns the timeline extension. loader fetches the page
// template; a nil renderer selects XMLTimeline.
func NewTimeline(library Library, renderer TimelineRenderer, groups Groups, loader zotero.Loader, opts ...TimelineOption) *Timeline {
	if renderer == nil {
		renderer = XMLTimeline{}
	}
	t := &Timeline{
		library:     library,
		renderer:    renderer,
		groups:      groups,
		loader:      loader,
		logger:      logger.NewNope(),
		now:         time.Now,
		libraryName: defaultLibraryName,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (e *Timeline) NewChannel(_ context.Context, u *url.URL) (zotero.Channel, error) {
	return zotero.NewAsyncChannel(u, func(ctx context.Context, ch *zotero.AsyncChannel) (zotero.Result, error) {
		return e.produce(ctx, ch, u)
	}), nil
}

func (e *Timeline) produce(ctx context.Context, ch *zotero.AsyncChannel, u *url.URL) (zotero.Result, error) {
	path := requestPath(u)
	if path == "" {
		ch.SetContentType("text/html")
		return zotero.Text("Invalid URL"), nil
	}

	params, ok := parseTimelinePath(path)
	if !ok {
		ch.SetContentType("text/html")
		return zotero.Text("URL could not be parsed"), nil
	}
	if err := ParseParams(ctx, params, e.groups); err != nil {
		return nil, err
	}

	if params.Get("controller") == "data" {
		return e.data(ctx, ch, params)
	}
	return e.page(ctx, ch, params)
}

func parseTimelinePath(path string) (pathrouter.Params, bool) {
	params := pathrouter.Params{}
	r := pathrouter.New(params)

	user := func(controller string) func(pathrouter.Params) {
		return func(p pathrouter.Params) {
			p.Set("libraryID", "0")
			p.Set("controller", controller)
		}
	}
	group := func(controller string) func(pathrouter.Params) {
		return func(p pathrouter.Params) { p.Set("controller", controller) }
	}

	// HTML
	r.Add("library/:scopeObject/:scopeObjectKey", user("html"))
	r.Add("groups/:groupID/:scopeObject/:scopeObjectKey", group("html"))
	r.Add("library", user("html"))
	r.Add("groups/:groupID", group("html"))

	// Data
	r.Add("data/library/:scopeObject/:scopeObjectKey", user("data"))
	r.Add("data/groups/:groupID/:scopeObject/:scopeObjectKey", group("data"))
	r.Add("data/library", user("data"))
	r.Add("data/groups/:groupID", group("data"))

	// Old-style HTML URLs
	r.Add("collection/:id", func(p pathrouter.Params) {
		p.Set("controller", "html")
		setScopeFromID(p, "collections")
	})
	r.Add("search/:id", func(p pathrouter.Params) {
		p.Set("controller", "html")
		setScopeFromID(p, "searches")
	})
	r.Add("/", user("html"))

	return params, r.Run(path)
}

func (e *Timeline) data(ctx context.Context, ch *zotero.AsyncChannel, params pathrouter.Params) (zotero.Result, error) {
	if err := checkScope(params); err != nil {
		return zotero.Text(err.Error()), nil
	}
	results, err := e.library.Results(ctx, params)
	if err != nil {
		return zotero.Text(userMessage(err)), nil
	}

	items := make([]Item, 0, len(results))
	for _, it := range results {
		if it.ParentID == 0 {
			items = append(items, it)
		}
	}

	dateField, ok := timelineDateTypes[params.Get("t")]
	if !ok {
		dateField = timelineDateTypes["d"]
	}

	r, err := e.renderer.Render(ctx, items, dateField)
	if err != nil {
		return nil, fmt.Errorf("timeline data: %w", err)
	}
	ch.SetContentType("application/xml")
	return zotero.Stream(r), nil
}

func (e *Timeline) page(ctx context.Context, ch *zotero.AsyncChannel, params pathrouter.Params) (zotero.Result, error) {
	title := e.libraryName
	if params.Get("scopeObject") != "" {
		name, err := e.library.ScopeName(ctx, params)
		if err != nil {
			ch.SetContentType("text/html")
			return zotero.Text(userMessage(err)), nil
		}
		title = name
	}

	content, err := e.loadPage(ctx)
	if err != nil {
		return nil, err
	}
	ch.SetContentType("text/html")

	focus := params.Get("d")
	if focus == "" {
		focus = e.now().Format("Jan.02.2006")
	}
	bands := timelineBands(params.Get("i"))
	content = insertAfter(content, timelineOnLoadMarker,
		fmt.Sprintf("%s,%s,%s,'%s'", bands[0], bands[1], bands[2], sanitizer.Text(focus)))

	content = insertAfter(content, timelineTitleMarker, sanitizer.Title(title)+" - ")

	var data strings.Builder
	if params.Get("groupID") != "" {
		data.WriteString("groups/" + url.PathEscape(params.Get("groupID")) + "/")
	} else {
		data.WriteString("library/")
	}
	if scope := params.Get("scopeObject"); scope != "" {
		data.WriteString(scope + "/" + url.PathEscape(params.Get("scopeObjectKey")))
	}
	if t := params.Get("t"); t != "" {
		data.WriteString("?t=" + url.QueryEscape(t))
	}
	content = insertAfter(content, timelineDataMarker, data.String())

	return zotero.Text(content), nil
}

func (e *Timeline) loadPage(ctx context.Context) (string, error) {
	if e.loader == nil {
		return "", fmt.Errorf("timeline page: %w", zotero.ErrNoInterface)
	}
	u, _ := url.Parse(TimelinePage)
	rc, err := e.loader.Load(ctx, u)
	if err != nil {
		return "", fmt.Errorf("timeline page: %w", err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("timeline page: %w", err)
	}
	return string(b), nil
}

// timelineBands pads codes with "mye" to three bands and maps each code
// to a SIMILE interval, falling back to month, year and decade.
func timelineBands(codes string) [3]string {
	if len(codes) < 3 {
		codes += "mye"[len(codes):]
	}
	bands := timelineDefaultIntervals
	for i := range bands {
		if v, ok := timelineIntervals[codes[i]]; ok {
			bands[i] = v
		}
	}
	return bands
}

// insertAfter splices value in after the first occurrence of marker.
func insertAfter(s, marker, value string) string {
	return strings.Replace(s, marker, marker+value, 1)
}
