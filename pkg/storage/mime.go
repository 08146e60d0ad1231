package storage

import "strings"

// MIMEOctetStream is the fallback content type.
const MIMEOctetStream = "application/octet-stream"

// mimeExtensions maps MIME types to preferred file extensions.
var mimeExtensions = map[string]string{
	"image/jpeg":                      ".jpg",
	"image/png":                       ".png",
	"image/gif":                       ".gif",
	"image/webp":                      ".webp",
	"image/svg+xml":                   ".svg",
	"image/x-icon":                    ".ico",
	"application/pdf":                 ".pdf",
	"application/epub+zip":            ".epub",
	"application/msword":              ".doc",
	"text/plain":                      ".txt",
	"text/csv":                        ".csv",
	"text/html":                       ".html",
	"text/css":                        ".css",
	"text/rtf":                        ".rtf",
	"application/json":                ".json",
	"application/xml":                 ".xml",
	"application/javascript":          ".js",
	"application/xhtml+xml":           ".xhtml",
	"application/vnd.mozilla.xul+xml": ".xul",
	"video/mp4":                       ".mp4",
	"audio/mpeg":                      ".mp3",
	"application/zip":                 ".zip",
}

// extensionMIMEs maps file extensions to MIME types, including aliases
// that have no entry in mimeExtensions.
var extensionMIMEs = func() map[string]string {
	m := make(map[string]string, len(mimeExtensions)+8)
	for mime, ext := range mimeExtensions {
		m[ext] = mime
	}
	for ext, mime := range map[string]string{
		".jpeg": "image/jpeg",
		".htm":  "text/html",
		".xht":  "application/xhtml+xml",
		".mjs":  "application/javascript",
		".text": "text/plain",
		".tif":  "image/tiff",
		".tiff": "image/tiff",
		".rdf":  "application/rdf+xml",
	} {
		m[ext] = mime
	}
	return m
}()

// MIMEFromExt returns the MIME type for a file extension such as ".css" or
// "css". Returns "" if the extension is unknown.
func MIMEFromExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return extensionMIMEs[ext]
}

// ExtFromMIME returns the file extension for a MIME type.
// Returns empty string if MIME type is unknown.
func ExtFromMIME(mimeType string) string {
	return mimeExtensions[normalizeMIME(mimeType)]
}

// normalizeMIME strips parameters like charset and lower-cases the type.
func normalizeMIME(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.TrimSpace(strings.ToLower(mimeType))
}
