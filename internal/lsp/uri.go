package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// SourceExt is the extension of tadpole source files.
const SourceExt = ".tp"

func UriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return ""
	}
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	pth, err := url.PathUnescape(u.Path)
	if err != nil {
		return ""
	}
	return filepath.FromSlash(pth)
}

func PathToURI(absPath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(absPath)}
	return u.String()
}

// IsSourceURI reports whether uri names a tadpole source file.
func IsSourceURI(uri string) bool {
	return strings.HasSuffix(strings.ToLower(uri), SourceExt)
}

// DisplayName is the file name used in compiler messages for uri.
func DisplayName(uri string) string {
	if p := UriToPath(uri); p != "" {
		return filepath.Base(p)
	}
	return uri
}
