package extensions

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/peterckelly/zotero"
	"github.com/peterckelly/zotero/pkg/storage"
)

// DirAttachments stores each item's files in <Root>/<itemID>/. The
// primary file is the first visible regular file in name order.
type DirAttachments struct {
	Root string
}

func (d DirAttachments) Locate(_ context.Context, itemID int64, fileName string) (zotero.FileRef, error) {
	dir := filepath.Join(d.Root, strconv.FormatInt(itemID, 10))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return zotero.FileRef{}, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	if err != nil {
		return zotero.FileRef{}, fmt.Errorf("attachments: read %s: %w", dir, err)
	}

	if fileName != "" {
		rel, ok := cleanRelative(fileName)
		if !ok {
			return zotero.FileRef{}, fmt.Errorf("%w: %s", ErrFileNotFound, fileName)
		}
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			return zotero.FileRef{}, fmt.Errorf("%w: %s", ErrFileNotFound, fileName)
		}
		return zotero.File(p), nil
	}

	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			return zotero.File(filepath.Join(dir, e.Name())), nil
		}
	}
	return zotero.FileRef{}, fmt.Errorf("%w: item %d has no file", ErrFileNotFound, itemID)
}

// ObjectStore is the part of storage.S3 S3Attachments needs.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]storage.Object, error)
	Location(key string) *url.URL
}

// S3Attachments stores each item's files under the "<itemID>/" prefix.
// Files are served through the loader registered for s3:// URLs.
type S3Attachments struct {
	Store ObjectStore
}

func (s S3Attachments) Locate(ctx context.Context, itemID int64, fileName string) (zotero.FileRef, error) {
	prefix := strconv.FormatInt(itemID, 10) + "/"
	objects, err := s.Store.List(ctx, prefix)
	if err != nil {
		return zotero.FileRef{}, fmt.Errorf("attachments: list %s: %w", prefix, err)
	}
	if len(objects) == 0 {
		return zotero.FileRef{}, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}

	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	slices.Sort(keys)

	if fileName != "" {
		rel, ok := cleanRelative(fileName)
		if !ok || !slices.Contains(keys, prefix+rel) {
			return zotero.FileRef{}, fmt.Errorf("%w: %s", ErrFileNotFound, fileName)
		}
		return zotero.Location(s.Store.Location(prefix + rel)), nil
	}

	for _, key := range keys {
		name := strings.TrimPrefix(key, prefix)
		if !strings.Contains(name, "/") && !strings.HasPrefix(name, ".") {
			return zotero.Location(s.Store.Location(key)), nil
		}
	}
	return zotero.FileRef{}, fmt.Errorf("%w: item %d has no file", ErrFileNotFound, itemID)
}

// cleanRelative cleans a slash-separated relative name and rejects names
// that leave the item directory.
func cleanRelative(name string) (string, bool) {
	rel := path.Clean("/" + name)[1:]
	if rel == "" || rel != strings.TrimPrefix(path.Clean(name), "/") {
		return "", false
	}
	return rel, true
}
