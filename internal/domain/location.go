package domain

import (
	"net/url"
	"path/filepath"
	"strings"
)

// FileScheme is the only destination scheme a fetch writes to
const FileScheme = "file"

// Destination is a parsed destination URI
type Destination struct {
	// Scheme is the URI scheme, lowercased
	Scheme string

	// Path is the local file path
	Path string
}

// IsLocal reports whether the destination is a local file
func (d Destination) IsLocal() bool {
	return d.Scheme == FileScheme
}

// ParseDestination splits a destination URI into scheme and path
func ParseDestination(uri string) (Destination, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Destination{}, UnsupportedScheme(uri, err)
	}
	if u.Path == "" {
		return Destination{}, UnsupportedScheme(uri, nil)
	}
	return Destination{
		Scheme: strings.ToLower(u.Scheme),
		Path:   filepath.FromSlash(u.Path),
	}, nil
}

// FileURI returns the file:// URI for a local path
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: FileScheme, Path: filepath.ToSlash(path)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return u.String()
}

// DirURI returns the file:// URI for a directory, with a trailing slash
func DirURI(path string) string {
	uri := FileURI(path)
	if !strings.HasSuffix(uri, "/") {
		uri += "/"
	}
	return uri
}

// Directories are the process-wide managed directories.
// The value is fixed once the module has initialized.
type Directories struct {
	Document string
	Cache    string

	// Bundle is set only when bundled resources live in a local directory
	Bundle string
}

// Constants returns the directory constants exposed to callers
func (d Directories) Constants() map[string]string {
	constants := map[string]string{
		"documentDirectory": DirURI(d.Document),
		"cacheDirectory":    DirURI(d.Cache),
	}
	if d.Bundle != "" {
		constants["bundleDirectory"] = DirURI(d.Bundle)
	}
	return constants
}
