package extensions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/peterckelly/zotero/pkg/pathrouter"
)

// Item is a library item as the extensions see it.
type Item struct {
	Fields      map[string]string `yaml:"fields" json:"fields,omitempty"`
	Key         string            `yaml:"key" json:"key"`
	ItemType    string            `yaml:"itemType" json:"itemType"`
	Title       string            `yaml:"title" json:"title,omitempty"`
	Note        string            `yaml:"note" json:"note,omitempty"`
	ID          int64             `yaml:"id" json:"id"`
	LibraryID   int64             `yaml:"libraryID" json:"libraryID"`
	ParentID    int64             `yaml:"parentID" json:"parentID,omitempty"`
	NumChildren int               `yaml:"numChildren" json:"numChildren,omitempty"`
}

// IsNote reports whether the item is a note.
func (it Item) IsNote() bool { return it.ItemType == "note" }

// IsAttachment reports whether the item is an attachment.
func (it Item) IsAttachment() bool { return it.ItemType == "attachment" }

// IsRegular reports whether the item is neither a note nor an attachment.
func (it Item) IsRegular() bool { return !it.IsNote() && !it.IsAttachment() }

// Field returns a field value. title, note, key and itemType read the
// dedicated struct fields.
func (it Item) Field(name string) string {
	switch name {
	case "title":
		return it.Title
	case "note":
		return it.Note
	case "key":
		return it.Key
	case "itemType":
		return it.ItemType
	}
	return it.Fields[name]
}

// Groups maps group IDs to library IDs and back.
type Groups interface {
	LibraryIDFromGroupID(ctx context.Context, groupID string) (string, error)
	GroupIDFromLibraryID(ctx context.Context, libraryID string) (string, error)
}

// Library resolves request parameters to items.
//
// Results honours libraryID, scopeObject (collections or searches) with
// scopeObjectKey or scopeObjectID, objectKey, objectID and the itemKey
// list. A missing scope is reported with ErrCollectionNotFound or
// ErrSearchNotFound.
type Library interface {
	Results(ctx context.Context, params pathrouter.Params) ([]Item, error)
	Item(ctx context.Context, id int64) (Item, error)
	// ScopeName returns the name of the collection or search the params
	// refer to.
	ScopeName(ctx context.Context, params pathrouter.Params) (string, error)
}

var (
	ErrCollectionNotFound = errors.New("extensions: collection not found")
	ErrSearchNotFound     = errors.New("extensions: search not found")
	ErrItemNotFound       = errors.New("extensions: item not found")
	ErrFileNotFound       = errors.New("extensions: file not found")
	ErrNoGroups           = errors.New("extensions: group lookup unavailable")
)

// InvalidScopeError reports a scopeObject other than collections or
// searches.
type InvalidScopeError struct {
	Scope string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("Invalid scope object '%s'", e.Scope)
}

// checkScope rejects unknown scope objects.
func checkScope(params pathrouter.Params) error {
	switch s := params.Get("scopeObject"); s {
	case "", "collections", "searches":
		return nil
	default:
		return &InvalidScopeError{Scope: s}
	}
}

// userMessage is the text shown in place of content when a lookup fails.
func userMessage(err error) string {
	var scopeErr *InvalidScopeError
	switch {
	case errors.As(err, &scopeErr):
		return scopeErr.Error()
	case errors.Is(err, ErrCollectionNotFound):
		return "Invalid collection ID or key"
	case errors.Is(err, ErrSearchNotFound):
		return "Invalid search ID or key"
	case errors.Is(err, ErrItemNotFound):
		return "Item not found"
	}
	return err.Error()
}

// ParseParams resolves groupID to libraryID through groups and splits a
// comma-separated itemKey into a list.
func ParseParams(ctx context.Context, params pathrouter.Params, groups Groups) error {
	if params.Has("groupID") {
		if groups == nil {
			return ErrNoGroups
		}
		libraryID, err := groups.LibraryIDFromGroupID(ctx, params.Get("groupID"))
		if err != nil {
			return fmt.Errorf("extensions: group %s: %w", params.Get("groupID"), err)
		}
		params.Set("libraryID", libraryID)
	}
	params.Split("itemKey")
	return nil
}

// ParseDataPath parses a zotero://data path into request parameters.
// The controller is converted to a singular objectType.
func ParseDataPath(path string) (pathrouter.Params, error) {
	params := pathrouter.Params{}
	r := pathrouter.New(params)

	// Top-level objects
	r.Add("library/:controller/top", func(p pathrouter.Params) {
		p.Set("libraryID", "0")
		p.Set("subset", "top")
	})
	r.Add("groups/:groupID/:controller/top", func(p pathrouter.Params) {
		p.Set("subset", "top")
	})

	r.Add("library/:scopeObject/:scopeObjectKey/items/:objectKey/:subset", func(p pathrouter.Params) {
		p.Set("libraryID", "0")
		p.Set("controller", "items")
	})
	r.Add("groups/:groupID/:scopeObject/:scopeObjectKey/items/:objectKey/:subset", func(p pathrouter.Params) {
		p.Set("controller", "items")
	})

	// All objects
	r.Add("library/:controller", func(p pathrouter.Params) {
		p.Set("libraryID", "0")
	})
	r.Add("groups/:groupID/:controller")

	if err := r.Parse(path); err != nil {
		return nil, err
	}
	if !params.Has("controller") {
		return nil, &pathrouter.InvalidPathError{Path: path}
	}
	convertControllerToObjectType(params)
	return params, nil
}

var singularObjectTypes = map[string]string{
	"items":       "item",
	"collections": "collection",
	"searches":    "search",
	"groups":      "group",
	"tags":        "tag",
	"creators":    "creator",
	"relations":   "relation",
	"settings":    "setting",
}

func convertControllerToObjectType(params pathrouter.Params) {
	c, ok := params["controller"]
	if !ok {
		return
	}
	name := ""
	if len(c) > 0 {
		name = c[0]
	}
	objectType, ok := singularObjectTypes[name]
	if !ok {
		objectType = strings.TrimSuffix(name, "s")
	}
	params.Set("objectType", objectType)
	params.Del("controller")
}

// LibraryPrefix returns the path prefix for a library: "library" for the
// user library, "groups/<groupID>" otherwise.
func LibraryPrefix(libraryID, groupID string) string {
	if libraryID == "" || libraryID == "0" {
		return "library"
	}
	return "groups/" + groupID
}

var libraryKeyHash = regexp.MustCompile(`^(\d+)_([23456789ABCDEFGHIJKLMNPQRSTUVWXYZ]{8})$`)

// ParseLibraryKeyHash splits "<libraryID>_<key>" into its parts.
func ParseLibraryKeyHash(s string) (libraryID, key string, ok bool) {
	m := libraryKeyHash.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// setScopeFromID sets the scope for an old-style collection or search URL,
// where id is either a library key hash or a numeric ID.
func setScopeFromID(p pathrouter.Params, scope string) {
	p.Set("scopeObject", scope)
	id := p.Get("id")
	if libraryID, key, ok := ParseLibraryKeyHash(id); ok {
		p.Set("libraryID", libraryID)
		p.Set("scopeObjectKey", key)
	} else {
		p.Set("scopeObjectID", id)
	}
	p.Del("id")
}

// requestPath returns everything after the authority: the escaped path and
// the query, if any.
func requestPath(u *url.URL) string {
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
