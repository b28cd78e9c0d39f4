// Package preview classifies attachments and materializes PDF bytes for viewing.
package preview

import (
	"net/url"
	"path"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
	KindOther Kind = "other"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".svg": true,
}

// Classify looks at the last extension only, case-insensitively. Only absolute http(s) URLs
// lose their query and fragment; a plain filename may contain '#' or '?'.
func Classify(filename string) Kind {
	name := filename
	if u, err := url.Parse(filename); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Path != "" {
		name = u.Path
	}
	ext := strings.ToLower(path.Ext(name))
	switch {
	case imageExts[ext]:
		return KindImage
	case ext == ".pdf":
		return KindPDF
	default:
		return KindOther
	}
}

// URL resolves a file path from the backend against the API origin. Absolute http(s) URLs are
// returned unchanged.
func URL(apiOrigin, file string) string {
	if file == "" {
		return ""
	}
	if u, err := url.Parse(file); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return file
	}
	base, err := url.Parse(strings.TrimRight(apiOrigin, "/") + "/")
	if err != nil {
		return file
	}
	ref, err := url.Parse(strings.TrimLeft(file, "/"))
	if err != nil {
		return file
	}
	return base.ResolveReference(ref).String()
}
