package domain

import (
	"errors"
	"testing"
)

func TestParseDestination(t *testing.T) {
	tests := []struct {
		name      string
		uri       string
		wantPath  string
		wantLocal bool
		wantErr   error
	}{
		{name: "file uri", uri: "file:///data/docs/a.txt", wantPath: "/data/docs/a.txt", wantLocal: true},
		{name: "escaped", uri: "file:///data/my%20docs/a.txt", wantPath: "/data/my docs/a.txt", wantLocal: true},
		{name: "upper scheme", uri: "FILE:///data/a.txt", wantPath: "/data/a.txt", wantLocal: true},
		{name: "content scheme", uri: "content://media/a.txt", wantPath: "/a.txt", wantLocal: false},
		{name: "bare path", uri: "/data/a.txt", wantPath: "/data/a.txt", wantLocal: false},
		{name: "opaque", uri: "file:a.txt", wantErr: ErrUnsupportedScheme},
		{name: "unparsable", uri: "file://%zz/a", wantErr: ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDestination(tt.uri)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseDestination() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDestination() error = %v", err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
			if got.IsLocal() != tt.wantLocal {
				t.Errorf("IsLocal() = %v, want %v", got.IsLocal(), tt.wantLocal)
			}
		})
	}
}

func TestFileURI(t *testing.T) {
	if got := FileURI("/data/my docs/a.txt"); got != "file:///data/my%20docs/a.txt" {
		t.Errorf("FileURI() = %q", got)
	}
}

func TestDirectories_Constants(t *testing.T) {
	dirs := Directories{Document: "/app/files", Cache: "/app/cache/"}
	got := dirs.Constants()

	if got["documentDirectory"] != "file:///app/files/" {
		t.Errorf("documentDirectory = %q", got["documentDirectory"])
	}
	if got["cacheDirectory"] != "file:///app/cache/" {
		t.Errorf("cacheDirectory = %q", got["cacheDirectory"])
	}
	if _, ok := got["bundleDirectory"]; ok {
		t.Error("bundleDirectory present without a bundle dir")
	}

	dirs.Bundle = "/app/assets"
	if got := dirs.Constants()["bundleDirectory"]; got != "file:///app/assets/" {
		t.Errorf("bundleDirectory = %q", got)
	}
}
