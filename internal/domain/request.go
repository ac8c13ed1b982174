package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DownloadRequest describes a single fetch
type DownloadRequest struct {
	// Source is either a bundled resource name or a URL
	Source string

	// Destination is the file:// URI the bytes are written to
	Destination string

	Options DownloadOptions
}

// DownloadOptions are the optional knobs of a fetch
type DownloadOptions struct {
	// MD5 requests a digest of the written file
	MD5 bool `json:"md5"`

	// Headers are extra request headers for remote fetches, sent in order
	Headers HeaderList `json:"headers,omitempty"`
}

// HeaderField is one extra request header
type HeaderField struct {
	Name  string
	Value string
}

// HeaderList is an ordered set of request headers.
// It decodes from a JSON object, keeping the object's key order and
// coercing scalar values to their string form.
type HeaderList []HeaderField

// Add appends a header
func (h *HeaderList) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// UnmarshalJSON implements json.Unmarshaler
func (h *HeaderList) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*h = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("headers must be a JSON object")
	}

	var list HeaderList
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("header %q: %w", name, err)
		}
		value, err := headerValue(raw)
		if err != nil {
			return fmt.Errorf("header %q: %w", name, err)
		}
		list = append(list, HeaderField{Name: name, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*h = list
	return nil
}

// MarshalJSON implements json.Marshaler
func (h HeaderList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func headerValue(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("value must be a scalar")
	case 'n':
		return "null", nil
	default:
		// numbers and booleans keep their literal form
		return string(trimmed), nil
	}
}

// SourceKind tells how a source is resolved
type SourceKind int

const (
	// SourceBundled is a resource packaged with the application
	SourceBundled SourceKind = iota
	// SourceRemote is a URL fetched over HTTP
	SourceRemote
)

// String returns the kind name
func (k SourceKind) String() string {
	switch k {
	case SourceBundled:
		return "bundled"
	case SourceRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// ClassifySource treats any source without a scheme delimiter as a
// bundled resource name and everything else as a URL.
func ClassifySource(source string) SourceKind {
	if strings.Contains(source, ":") {
		return SourceRemote
	}
	return SourceBundled
}
