package domain

import (
	"encoding/json"
	"net/http"
	"strings"
)

// DownloadResult represents the result of a fetch
type DownloadResult struct {
	// URI is the file:// URI of the written file
	URI string

	// MD5 is the lowercase hex digest, empty unless requested
	MD5 string

	// Remote is true when the bytes came from a URL
	Remote bool

	// Status is the HTTP status code of a remote fetch
	Status int

	// Headers are the merged response headers of a remote fetch
	Headers map[string]string

	// BytesWritten is the size of the destination file
	BytesWritten int64
}

type resultJSON struct {
	URI     string            `json:"uri"`
	MD5     string            `json:"md5,omitempty"`
	Status  *int              `json:"status,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// MarshalJSON renders the bridge payload: uri always, md5 when requested,
// status and headers for remote fetches only.
func (r DownloadResult) MarshalJSON() ([]byte, error) {
	out := resultJSON{URI: r.URI, MD5: r.MD5}
	if r.Remote {
		status := r.Status
		out.Status = &status
		out.Headers = r.Headers
		if out.Headers == nil {
			out.Headers = map[string]string{}
		}
	}
	return json.Marshal(out)
}

// MergeHeaders flattens response headers, joining repeated values of one
// name with ", " in the order they were received.
func MergeHeaders(h http.Header) map[string]string {
	merged := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		merged[name] = strings.Join(values, ", ")
	}
	return merged
}
