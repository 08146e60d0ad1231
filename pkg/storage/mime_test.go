package storage_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/peterckelly/zotero/pkg/storage"
)

func TestMIMEFromExt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{ext: ".css", want: "text/css"},
		{ext: "css", want: "text/css"},
		{ext: ".HTML", want: "text/html"},
		{ext: ".htm", want: "text/html"},
		{ext: ".png", want: "image/png"},
		{ext: ".gif", want: "image/gif"},
		{ext: ".pdf", want: "application/pdf"},
		{ext: ".xml", want: "application/xml"},
		{ext: ".xul", want: "application/vnd.mozilla.xul+xml"},
		{ext: ".jpeg", want: "image/jpeg"},
		{ext: ".unknown", want: ""},
		{ext: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, storage.MIMEFromExt(tt.ext))
		})
	}
}

func TestExtFromMIME(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".html", storage.ExtFromMIME("text/html; charset=utf-8"))
	require.Equal(t, ".pdf", storage.ExtFromMIME("Application/PDF"))
	require.Empty(t, storage.ExtFromMIME("application/x-unknown"))
}
