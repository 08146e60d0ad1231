package extensions

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/logger"
)

// AttachmentStore locates attachment files. With an empty fileName it
// returns the item's primary file; otherwise the named file beside it.
// It reports ErrItemNotFound and ErrFileNotFound.
type AttachmentStore interface {
	Locate(ctx context.Context, itemID int64, fileName string) (zotero.FileRef, error)
}

var annotationAsset = regexp.MustCompile(`^annotation.*\.(png|html|css|gif)$`)

// Attachment serves attachment files:
//
//	zotero://attachment/1234/
//	zotero://attachment/1234/images/figure1.png
//	zotero://attachment/annotation-note.png
//
// Content is served under the zotero:// URI so relative links inside
// HTML snapshots resolve against it.
type Attachment struct {
	store  AttachmentStore
	logger *slog.Logger
}

// NewAttachment returns the attachment extension.
func NewAttachment(store AttachmentStore, l *slog.Logger) *Attachment {
	if l == nil {
		l = logger.NewNope()
	}
	return &Attachment{store: store, logger: l}
}

func (e *Attachment) NewChannel(_ context.Context, u *url.URL) (zotero.Channel, error) {
	return zotero.NewAsyncChannel(u, func(ctx context.Context, ch *zotero.AsyncChannel) (zotero.Result, error) {
		id, fileName, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")

		itemID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			if !annotationAsset.MatchString(id) {
				return attachmentError(ch, "Attachment id not an integer"), nil
			}
			ch.SetOriginalURI(u)
			return zotero.Location(&url.URL{Scheme: "chrome", Host: "zotero", Path: "/skin/" + id}), nil
		}

		ref, err := e.store.Locate(ctx, itemID, fileName)
		switch {
		case errors.Is(err, ErrItemNotFound):
			return attachmentError(ch, "Item not found"), nil
		case errors.Is(err, ErrFileNotFound):
			return attachmentError(ch, "File not found"), nil
		case err != nil:
			e.logger.ErrorContext(ctx, "attachment lookup failed",
				slog.Int64("item_id", itemID),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		ch.SetOriginalURI(u)
		return ref, nil
	}), nil
}

func attachmentError(ch *zotero.AsyncChannel, msg string) zotero.Result {
	ch.SetStatus(zotero.StatusFailure)
	ch.SetContentType("text/plain")
	return zotero.Text(msg)
}
