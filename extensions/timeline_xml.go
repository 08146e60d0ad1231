package extensions

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// XMLTimeline renders SIMILE event XML. Items without a value in the date
// field are left out. Each event links to zotero://select for its item.
type XMLTimeline struct{}

type timelineData struct {
	XMLName xml.Name        `xml:"data"`
	Events  []timelineEvent `xml:"event"`
}

type timelineEvent struct {
	ID    string `xml:"id,attr"`
	Start string `xml:"start,attr"`
	Title string `xml:"title,attr"`
	Icon  string `xml:"icon,attr,omitempty"`
	Link  string `xml:"link,attr"`
}

func (XMLTimeline) Render(ctx context.Context, items []Item, dateField string) (io.Reader, error) {
	data := timelineData{Events: make([]timelineEvent, 0, len(items))}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := it.Field(dateField)
		if start == "" {
			continue
		}
		data.Events = append(data.Events, timelineEvent{
			ID:    strconv.FormatInt(it.ID, 10),
			Start: start,
			Title: it.Title,
			Icon:  itemIcon(it.ItemType),
			Link:  fmt.Sprintf("zotero://select/item/%d_%s", it.LibraryID, it.Key),
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(data); err != nil {
		return nil, fmt.Errorf("encode timeline: %w", err)
	}
	return &buf, nil
}

func itemIcon(itemType string) string {
	if itemType == "" {
		return ""
	}
	return "chrome://zotero/skin/treeitem-" + itemType + ".png"
}
