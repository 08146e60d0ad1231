package internal

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/peterckelly/zotero/pkg/storage"
)

// DummyChromeURL is the host location opened, and immediately cancelled,
// to obtain the host's privileged principal and to build aborted channels.
const DummyChromeURL = "chrome://mozapps/content/xpinstall/xpinstallConfirm.xul"

var dummyChromeURL = mustParseURL(DummyChromeURL)

// FSHost serves chrome://<package>/<path> from <package>/<path> in an
// fs.FS. Every channel it creates is owned by the host's system principal.
type FSHost struct {
	fsys      fs.FS
	principal *SystemPrincipal
}

// NewFSHost returns a host over fsys.
func NewFSHost(fsys fs.FS) *FSHost {
	return &FSHost{fsys: fsys, principal: NewSystemPrincipal("chrome")}
}

// Principal returns the principal granted to the host's channels.
func (h *FSHost) Principal() Principal { return h.principal }

func (h *FSHost) NewChannel(_ context.Context, u *url.URL) (Channel, error) {
	if u == nil || !strings.EqualFold(u.Scheme, "chrome") {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedScheme, u)
	}
	name := path.Clean(strings.ToLower(u.Host) + "/" + strings.TrimPrefix(u.Path, "/"))
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("%w: %s", ErrNoInterface, u)
	}

	ch := NewAsyncChannel(u, func(_ context.Context, ch *AsyncChannel) (Result, error) {
		f, err := h.fsys.Open(name)
		if err != nil {
			return nil, err
		}
		if ct := storage.MIMEFromExt(path.Ext(name)); ct != "" {
			ch.SetContentType(ct)
		}
		if st, err := f.Stat(); err == nil {
			ch.setContentLength(st.Size())
		}
		return Stream(f), nil
	})
	ch.SetOwner(h.principal)
	return ch, nil
}

func mustParseURL(s string) *url.URL {
	u, err := url.Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}
