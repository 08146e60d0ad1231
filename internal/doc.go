// Package internal provides the core types and implementation of the
// zotero:// protocol handler.
//
// This package is internal and should not be used directly. Import
// "github.com/peterckelly/zotero" instead, which re-exports the public API.
//
// # Core Types
//
//   - Handler: dispatches zotero:// URIs to extensions by prefix and hands
//     unclaimed URIs to the host as chrome:// URIs
//   - Channel: one request; pending until its listener receives OnStopRequest
//   - AsyncChannel: runs a ProducerFunc once and turns its Result into
//     start, data and stop notifications
//   - PrebuiltChannel: delivers a fixed payload synchronously
//   - StreamListener: receives a channel's notifications
//   - Principal: the security identity attached to a channel
//   - Bridge: serves zotero:// content over HTTP
//
// # Results
//
// A producer returns one of four results:
//
//	internal.Text("<html>...</html>")        // encoded in the channel charset
//	internal.Stream(r)                       // pumped as r yields data
//	internal.File("/path/to/report.css")     // loaded through the bound Loader
//	internal.Empty{}                         // abort, no content
//
// # Notification Order
//
// A listener sees at most one OnStartRequest, then zero or more
// OnDataAvailable calls, then exactly one OnStopRequest. No data follows a
// cancel. Errors raised before OnStartRequest are returned from Open;
// after it, failures surface only as the stop status.
//
// # Privileged Extensions
//
// Extensions registered WithPrivilegedContext run with the host's
// principal. It is obtained once, by opening and cancelling the host's
// DummyChromeURL, and cached for the life of the Handler.
//
// # Proxy
//
// Any URI whose path starts with /proxy/ is served by loading
// zotero://<host>/<rest> instead of running the producer. Proxies do not
// nest.
package internal
