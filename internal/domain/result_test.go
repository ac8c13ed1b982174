package domain

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestMergeHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("X-A", "1")
	h.Add("Content-Type", "text/plain")
	h.Add("X-A", "2")
	h.Add("X-A", "3")

	got := MergeHeaders(h)

	if got["X-A"] != "1, 2, 3" {
		t.Errorf("X-A = %q, want %q", got["X-A"], "1, 2, 3")
	}
	if got["Content-Type"] != "text/plain" {
		t.Errorf("Content-Type = %q, want %q", got["Content-Type"], "text/plain")
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestDownloadResult_MarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		result DownloadResult
		want   string
	}{
		{
			name:   "local without md5",
			result: DownloadResult{URI: "file:///tmp/a"},
			want:   `{"uri":"file:///tmp/a"}`,
		},
		{
			name:   "local with md5",
			result: DownloadResult{URI: "file:///tmp/a", MD5: "abc"},
			want:   `{"uri":"file:///tmp/a","md5":"abc"}`,
		},
		{
			name:   "remote",
			result: DownloadResult{URI: "file:///tmp/a", Remote: true, Status: 404, Headers: map[string]string{"X-A": "1, 2"}},
			want:   `{"uri":"file:///tmp/a","status":404,"headers":{"X-A":"1, 2"}}`,
		},
		{
			name:   "remote without headers",
			result: DownloadResult{URI: "file:///tmp/a", Remote: true, Status: 204},
			want:   `{"uri":"file:///tmp/a","status":204,"headers":{}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}
