package lsp

import (
	"net/url"
	"path/filepath"
	"strings"
)

// documentID normalises a client URI into a document store key.
func documentID(uri string) string {
	return strings.TrimSpace(uri)
}

func uriToPath(uri string) string {
	if uri == "" {
		return ""
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "" && parsed.Scheme != "file" {
		return ""
	}
	path := parsed.Path
	if parsed.Scheme == "" {
		path = uri
	}
	return filepath.FromSlash(path)
}

// displayName returns a short label for messages shown to the user.
func displayName(uri string) string {
	if path := uriToPath(uri); path != "" {
		return filepath.Base(path)
	}
	return uri
}
