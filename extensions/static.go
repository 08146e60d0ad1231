package extensions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/peterckelly/zotero/pkg/pathrouter"
)

// Scope is a collection or saved search in a StaticLibrary.
type Scope struct {
	Key       string   `yaml:"key" json:"key"`
	Name      string   `yaml:"name" json:"name"`
	Items     []string `yaml:"items" json:"items"`
	ID        int64    `yaml:"id" json:"id"`
	LibraryID int64    `yaml:"libraryID" json:"libraryID"`
}

// StaticLibrary is a read-only library held in memory, usually loaded
// from a YAML export. It implements Library, Groups and DataSource.
type StaticLibrary struct {
	Items       []Item  `yaml:"items"`
	Collections []Scope `yaml:"collections"`
	Searches    []Scope `yaml:"searches"`
	// Groups maps group IDs to library IDs.
	Groups map[string]string `yaml:"groups"`
}

// LoadStaticLibrary reads a YAML library export.
func LoadStaticLibrary(path string) (*StaticLibrary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}
	defer f.Close()
	return ParseStaticLibrary(f)
}

// ParseStaticLibrary decodes a YAML library export. Child counts are
// derived from parent links.
func ParseStaticLibrary(r io.Reader) (*StaticLibrary, error) {
	lib := &StaticLibrary{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(lib); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("library: decode: %w", err)
	}

	children := make(map[int64]int)
	for _, it := range lib.Items {
		if it.ParentID != 0 {
			children[it.ParentID]++
		}
	}
	for i := range lib.Items {
		lib.Items[i].NumChildren = children[lib.Items[i].ID]
	}
	return lib, nil
}

func (l *StaticLibrary) Results(_ context.Context, params pathrouter.Params) ([]Item, error) {
	if err := checkScope(params); err != nil {
		return nil, err
	}

	var inScope []string
	if params.Get("scopeObject") != "" {
		scope, err := l.scope(params)
		if err != nil {
			return nil, err
		}
		inScope = scope.Items
	}

	libraryID, hasLibrary := int64Param(params, "libraryID")
	objectID, hasObjectID := int64Param(params, "objectID")
	objectKey := params.Get("objectKey")
	itemKeys := params.Values("itemKey")
	top := params.Get("subset") == "top"

	var out []Item
	for _, it := range l.Items {
		switch {
		case hasLibrary && it.LibraryID != libraryID:
		case inScope != nil && !slices.Contains(inScope, it.Key):
		case hasObjectID && it.ID != objectID:
		case objectKey != "" && it.Key != objectKey:
		case len(itemKeys) > 0 && !slices.Contains(itemKeys, it.Key):
		case top && it.ParentID != 0:
		default:
			out = append(out, it)
		}
	}
	return out, nil
}

func (l *StaticLibrary) Item(_ context.Context, id int64) (Item, error) {
	for _, it := range l.Items {
		if it.ID == id {
			return it, nil
		}
	}
	return Item{}, fmt.Errorf("%w: %d", ErrItemNotFound, id)
}

func (l *StaticLibrary) ScopeName(_ context.Context, params pathrouter.Params) (string, error) {
	if err := checkScope(params); err != nil {
		return "", err
	}
	scope, err := l.scope(params)
	if err != nil {
		return "", err
	}
	return scope.Name, nil
}

func (l *StaticLibrary) scope(params pathrouter.Params) (Scope, error) {
	scopes, notFound := l.Collections, ErrCollectionNotFound
	if params.Get("scopeObject") == "searches" {
		scopes, notFound = l.Searches, ErrSearchNotFound
	}

	libraryID, hasLibrary := int64Param(params, "libraryID")
	key := params.Get("scopeObjectKey")
	id, hasID := int64Param(params, "scopeObjectID")
	for _, s := range scopes {
		if key != "" && s.Key == key && (!hasLibrary || s.LibraryID == libraryID) {
			return s, nil
		}
		if key == "" && hasID && s.ID == id {
			return s, nil
		}
	}
	return Scope{}, notFound
}

func (l *StaticLibrary) LibraryIDFromGroupID(_ context.Context, groupID string) (string, error) {
	if id, ok := l.Groups[groupID]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: group %s", ErrItemNotFound, groupID)
}

func (l *StaticLibrary) GroupIDFromLibraryID(_ context.Context, libraryID string) (string, error) {
	for gid, lid := range l.Groups {
		if lid == libraryID {
			return gid, nil
		}
	}
	return "", fmt.Errorf("%w: library %s", ErrItemNotFound, libraryID)
}

// Data writes the selected objects as indented JSON.
func (l *StaticLibrary) Data(ctx context.Context, params pathrouter.Params) (io.Reader, error) {
	var v any
	switch objectType := params.Get("objectType"); objectType {
	case "item":
		items, err := l.Results(ctx, params)
		if err != nil {
			return nil, err
		}
		v = items
	case "collection":
		v = l.inLibrary(l.Collections, params)
	case "search":
		v = l.inLibrary(l.Searches, params)
	default:
		return nil, fmt.Errorf("library: unsupported object type %q", objectType)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("library: encode: %w", err)
	}
	return &buf, nil
}

func (l *StaticLibrary) inLibrary(scopes []Scope, params pathrouter.Params) []Scope {
	libraryID, ok := int64Param(params, "libraryID")
	out := make([]Scope, 0, len(scopes))
	for _, s := range scopes {
		if !ok || s.LibraryID == libraryID {
			out = append(out, s)
		}
	}
	return out
}

func int64Param(params pathrouter.Params, name string) (int64, bool) {
	v := params.Get(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}
