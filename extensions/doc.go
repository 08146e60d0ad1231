// Package extensions implements the zotero:// extensions: data, report,
// timeline, attachment, select, fullscreen, debug and connector.
//
// Each extension is a zotero.ChannelFactory built over narrow collaborator
// interfaces (Library, DataSource, ReportRenderer, ...), so the library
// database, the window system and the report templates stay outside this
// module. Register wires every extension whose collaborators are present:
//
//	err := extensions.Register(h, extensions.Deps{
//	    Library:     lib,
//	    Groups:      lib,
//	    Data:        lib,
//	    Attachments: extensions.NewDirAttachments("/var/lib/zotero/storage"),
//	    Debug:       recorder,
//	    Pages:       pages,
//	})
package extensions
