package extensions

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/pagecache"
)

// Deps are the collaborators of the built-in extensions. Extensions whose
// collaborator is nil are not registered.
type Deps struct {
	Library     Library
	Groups      Groups
	Data        DataSource
	Report      ReportRenderer
	Timeline    TimelineRenderer
	Attachments AttachmentStore
	Selector    Selector
	Windows     WindowOpener
	Debug       DebugOutput
	Pages       pagecache.Store
	Logger      *slog.Logger

	// Now overrides the timeline clock.
	Now func() time.Time
}

// Register adds the built-in extensions to h in dispatch order: data,
// report, timeline, attachment, select, fullscreen, debug, connector.
// The timeline page is loaded through h's loader.
func Register(h *zotero.Handler, deps Deps) error {
	type entry struct {
		ext        zotero.ChannelFactory
		name       string
		privileged bool
	}

	var entries []entry
	add := func(name string, ext zotero.ChannelFactory, privileged bool) {
		entries = append(entries, entry{name: name, ext: ext, privileged: privileged})
	}

	if deps.Data != nil {
		add("data", NewData(deps.Data, deps.Groups), false)
	}
	if deps.Library != nil {
		add("report", NewReport(deps.Library, deps.Groups, deps.Report, WithReportLogger(deps.Logger)), false)
		add("timeline", NewTimeline(deps.Library, deps.Timeline, deps.Groups, h.Loader(),
			WithTimelineClock(deps.Now),
			WithTimelineLogger(deps.Logger),
		), true)
	}
	if deps.Attachments != nil {
		add("attachment", NewAttachment(deps.Attachments, deps.Logger), false)
	}
	if deps.Library != nil && deps.Selector != nil {
		add("select", NewSelect(deps.Library, deps.Groups, deps.Selector, deps.Logger), false)
	}
	if deps.Windows != nil {
		add("fullscreen", NewFullscreen(deps.Windows, deps.Logger), false)
	}
	if deps.Debug != nil {
		add("debug", NewDebug(deps.Debug), false)
	}
	if deps.Pages != nil {
		add("connector", NewConnector(deps.Pages), false)
	}

	for _, e := range entries {
		var opts []zotero.RegisterOption
		if e.privileged {
			opts = append(opts, zotero.WithPrivilegedContext())
		}
		if err := h.Register(zotero.Scheme+"://"+e.name, e.ext, opts...); err != nil {
			return fmt.Errorf("register %s: %w", e.name, err)
		}
	}
	return nil
}
