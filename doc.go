// Package zotero serves zotero:// URIs: it dispatches each URI to the
// extension registered for its prefix and adapts the extension's producer
// into an asynchronous channel that streams content to a listener.
//
// # Quick Start
//
// Create a handler, register extensions under their prefixes, and open
// channels:
//
//	h := zotero.NewHandler(
//	    zotero.WithHost(zotero.NewFSHost(os.DirFS("chrome"))),
//	    zotero.WithLogger(log),
//	)
//	_ = h.Register("zotero://data", extensions.NewData(source))
//
//	ch, err := h.NewChannel(ctx, u)
//	if err != nil {
//	    // errors.Is(err, zotero.ErrNoInterface)
//	}
//	var body zotero.BufferListener
//	_ = ch.Open(ctx, &body)
//
// # Extensions
//
// An extension is a ChannelFactory. Most return an AsyncChannel whose
// producer yields one of Text, ByteStream, FileRef or Empty:
//
//	func (e *Debug) NewChannel(_ context.Context, u *url.URL) (zotero.Channel, error) {
//	    return zotero.NewAsyncChannel(u, func(context.Context, *zotero.AsyncChannel) (zotero.Result, error) {
//	        return zotero.Text(e.recorder.Text()), nil
//	    }), nil
//	}
//
// Prefixes are matched case-insensitively in registration order. URIs no
// extension claims are passed to the host with the scheme replaced by
// chrome. Extensions registered WithPrivilegedContext receive the host's
// principal, acquired once and cached.
//
// # HTTP
//
// NewBridge exposes the handler over HTTP: GET /data/library/items serves
// zotero://data/library/items. RunServer runs it with graceful shutdown.
package zotero
