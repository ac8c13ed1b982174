package fetcher

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/blob/memblob"

	"github.com/vertextoedge/easy-file-system/internal/adapter/bundle"
	"github.com/vertextoedge/easy-file-system/internal/adapter/filesystem"
	"github.com/vertextoedge/easy-file-system/internal/domain"
	"github.com/vertextoedge/easy-file-system/internal/domain/event"
	"github.com/vertextoedge/easy-file-system/internal/port"
)

var logoBytes = []byte("\x89PNG\r\n\x1a\nnot really a png but close enough")

type testEnv struct {
	fetcher    *Fetcher
	fs         *filesystem.Manager
	dispatcher *event.InMemoryDispatcher
	events     *eventRecorder
	docDir     string
}

type eventRecorder struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (r *eventRecorder) Handle(e event.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) HandledEvents() []string { return []string{"*"} }

func (r *eventRecorder) all() []event.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.DomainEvent(nil), r.events...)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	fs, err := filesystem.NewManager(domain.Directories{
		Document: filepath.Join(root, "files"),
		Cache:    filepath.Join(root, "cache"),
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	if err := bucket.WriteAll(ctx, "logo", logoBytes, nil); err != nil {
		t.Fatal(err)
	}
	if err := bucket.WriteAll(ctx, "empty", []byte{}, nil); err != nil {
		t.Fatal(err)
	}
	b := bundle.New(bucket)
	t.Cleanup(func() { b.Close() })

	dispatcher := event.NewInMemoryDispatcher(false)
	recorder := &eventRecorder{}
	dispatcher.Subscribe(recorder)

	return &testEnv{
		fetcher:    New(fs, b, nil, dispatcher, zap.NewNop()),
		fs:         fs,
		dispatcher: dispatcher,
		events:     recorder,
		docDir:     fs.Directories().Document,
	}
}

func (e *testEnv) dest(name string) (string, string) {
	path := filepath.Join(e.docDir, name)
	return path, domain.FileURI(path)
}

func md5Hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return b
}

func TestFetch_BundledResource(t *testing.T) {
	env := newTestEnv(t)
	path, uri := env.dest("logo.png")

	result, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
		Source:      "logo",
		Destination: uri,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if result.URI != uri {
		t.Errorf("URI = %q, want %q", result.URI, uri)
	}
	if result.Remote || result.Status != 0 || result.Headers != nil {
		t.Errorf("local fetch carries remote fields: %+v", result)
	}
	if result.MD5 != "" {
		t.Errorf("MD5 = %q without being requested", result.MD5)
	}
	if got := readFile(t, path); !bytes.Equal(got, logoBytes) {
		t.Errorf("file content = %q, want %q", got, logoBytes)
	}
	if result.BytesWritten != int64(len(logoBytes)) {
		t.Errorf("BytesWritten = %d, want %d", result.BytesWritten, len(logoBytes))
	}
}

func TestFetch_BundledResourceWithDigest(t *testing.T) {
	env := newTestEnv(t)
	path, uri := env.dest("logo.png")

	result, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
		Source:      "logo",
		Destination: uri,
		Options:     domain.DownloadOptions{MD5: true},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if want := md5Hex(readFile(t, path)); result.MD5 != want {
		t.Errorf("MD5 = %s, want %s", result.MD5, want)
	}
	if len(result.MD5) != 32 {
		t.Errorf("MD5 length = %d, want 32", len(result.MD5))
	}
}

func TestFetch_BundledResourceEmpty(t *testing.T) {
	env := newTestEnv(t)
	path, uri := env.dest("empty")

	result, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
		Source:      "empty",
		Destination: uri,
		Options:     domain.DownloadOptions{MD5: true},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(readFile(t, path)) != 0 {
		t.Error("empty resource produced a non-empty file")
	}
	if result.MD5 != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("MD5 = %s, want md5 of empty input", result.MD5)
	}
}

func TestFetch_BundledResourceNotFound(t *testing.T) {
	env := newTestEnv(t)
	path, uri := env.dest("nope")

	_, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
		Source:      "does-not-exist",
		Destination: uri,
	})
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Fatalf("Fetch() error = %v, want ErrResourceNotFound", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("destination created for a missing resource")
	}
}

func TestFetch_NoBundle(t *testing.T) {
	env := newTestEnv(t)
	f := New(env.fs, nil, nil, nil, nil)
	_, uri := env.dest("logo.png")

	_, err := f.Fetch(context.Background(), domain.DownloadRequest{Source: "logo", Destination: uri})
	if !errors.Is(err, domain.ErrResourceNotFound) {
		t.Errorf("Fetch() error = %v, want ErrResourceNotFound", err)
	}
}

func TestFetch_RemoteOK(t *testing.T) {
	body := bytes.Repeat([]byte("remote-bytes|"), 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(body)
	}))
	defer srv.Close()

	env := newTestEnv(t)
	path, uri := env.dest("remote.bin")

	result, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
		Source:      srv.URL + "/file.bin",
		Destination: uri,
		Options:     domain.DownloadOptions{MD5: true},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if result.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", result.Status)
	}
	if !result.Remote {
		t.Error("Remote = false")
	}
	if result.Headers["Content-Type"] != "application/octet-stream" {
		t.Errorf("Content-Type = %q", result.Headers["Content-Type"])
	}

	written := readFile(t, path)
	if !bytes.Equal(written, body) {
		t.Errorf("written %d bytes, want %d matching bytes", len(written), len(body))
	}
	if result.MD5 != md5Hex(written) {
		t.Errorf("MD5 = %s, want %s", result.MD5, md5Hex(written))
	}
}

func TestFetch_RemoteNotFoundStillWritten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such thing"))
	}))
	defer srv.Close()

	env := newTestEnv(t)
	path, uri := env.dest("missing.html")

	result, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
		Source:      srv.URL,
		Destination: uri,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v, want success for 404", err)
	}
	if result.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", result.Status)
	}
	if got := readFile(t, path); string(got) != "no such thing" {
		t.Errorf("body = %q", got)
	}
}

func TestFetch_RemoteServerErrorEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	env := newTestEnv(t)
	path, uri := env.dest("err.txt")

	result, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{Source: srv.URL, Destination: uri})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Status != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", result.Status)
	}
	if got := readFile(t, path); len(got) != 0 {
		t.Errorf("body = %q, want empty", got)
	}
}

func TestFetch_RemoteDuplicateHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("X-A", "1")
		w.Header().Add("X-A", "2")
		w.Header().Add("X-B", "only")
	}))
	defer srv.Close()

	env := newTestEnv(t)
	_, uri := env.dest("h")

	result, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{Source: srv.URL, Destination: uri})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := result.Headers["X-A"]; got != "1, 2" {
		t.Errorf("X-A = %q, want %q", got, "1, 2")
	}
	if got := result.Headers["X-B"]; got != "only" {
		t.Errorf("X-B = %q, want only", got)
	}
}

func TestFetch_RemoteRequestHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	env := newTestEnv(t)
	_, uri := env.dest("h")

	var headers domain.HeaderList
	headers.Add("Authorization", "Bearer secret")
	headers.Add("X-Trace", "a")
	headers.Add("X-Trace", "b")

	_, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
		Source:      srv.URL,
		Destination: uri,
		Options:     domain.DownloadOptions{Headers: headers},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got.Get("Authorization") != "Bearer secret" {
		t.Errorf("Authorization = %q", got.Get("Authorization"))
	}
	if trace := got.Values("X-Trace"); len(trace) != 2 || trace[0] != "a" || trace[1] != "b" {
		t.Errorf("X-Trace = %v, want [a b]", trace)
	}
}

func TestFetch_ReplacesExistingFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new"))
	}))
	defer srv.Close()

	env := newTestEnv(t)
	path, uri := env.dest("replace.txt")

	old := bytes.Repeat([]byte("old content "), 1024)
	if err := os.WriteFile(path, old, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{Source: srv.URL, Destination: uri}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	got := readFile(t, path)
	if string(got) != "new" {
		t.Errorf("content = %q (len %d), want %q", got[:min(len(got), 32)], len(got), "new")
	}

	// the same holds for bundled resources
	if err := os.WriteFile(path, old, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{Source: "logo", Destination: uri}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := readFile(t, path); !bytes.Equal(got, logoBytes) {
		t.Errorf("content after bundled fetch has %d bytes, want %d", len(got), len(logoBytes))
	}
}

func TestFetch_DirectoryNotFound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	env := newTestEnv(t)
	missingDir := filepath.Join(env.docDir, "no", "such", "dir")
	path := filepath.Join(missingDir, "out.bin")

	for _, source := range []string{srv.URL, "logo"} {
		_, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
			Source:      source,
			Destination: domain.FileURI(path),
		})
		if !errors.Is(err, domain.ErrDirectoryNotFound) {
			t.Errorf("Fetch(%s) error = %v, want ErrDirectoryNotFound", source, err)
		}
	}

	if hits.Load() != 0 {
		t.Errorf("server received %d requests, want 0", hits.Load())
	}
	if _, err := os.Stat(missingDir); !os.IsNotExist(err) {
		t.Error("missing parent directory was created")
	}
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	env := newTestEnv(t)
	path, uri := env.dest("out.bin")

	tests := []struct {
		name        string
		source      string
		destination string
	}{
		{"remote to bare path", srv.URL, path},
		{"remote to content uri", srv.URL, "content://media" + path},
		{"bundled to bare path", "logo", path},
		{"ftp source", "ftp://example.com/file", uri},
		{"mailto source", "mailto:someone@example.com", uri},
		{"unparsable source", "http://[::1", uri},
		{"unparsable destination", srv.URL, "file://%zz/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
				Source:      tt.source,
				Destination: tt.destination,
			})
			if !errors.Is(err, domain.ErrUnsupportedScheme) {
				t.Fatalf("Fetch() error = %v, want ErrUnsupportedScheme", err)
			}
			if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
				t.Error("destination file was created")
			}
		})
	}

	if hits.Load() != 0 {
		t.Errorf("server received %d requests, want 0", hits.Load())
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	env := newTestEnv(t)
	path, uri := env.dest("out.bin")

	_, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{Source: url, Destination: uri})
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("Fetch() error = %v, want ErrNetwork", err)
	}

	var fe *domain.FetchError
	if !errors.As(err, &fe) || fe.Cause == nil {
		t.Errorf("network error carries no cause: %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("destination created after a transport failure")
	}
}

func TestFetch_TruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("only a few bytes"))
	}))
	defer srv.Close()

	env := newTestEnv(t)
	_, uri := env.dest("partial.bin")

	_, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{Source: srv.URL, Destination: uri})
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("Fetch() error = %v, want ErrNetwork", err)
	}
}

func TestFetch_WriteError(t *testing.T) {
	env := newTestEnv(t)

	// a non-empty directory at the destination cannot be removed
	path := filepath.Join(env.docDir, "occupied")
	if err := os.MkdirAll(filepath.Join(path, "child"), 0755); err != nil {
		t.Fatal(err)
	}

	_, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
		Source:      "logo",
		Destination: domain.FileURI(path),
	})
	if !errors.Is(err, domain.ErrIO) {
		t.Errorf("Fetch() error = %v, want ErrIO", err)
	}
}

func TestFetch_ManagedDirectoryAsDestination(t *testing.T) {
	env := newTestEnv(t)
	constants := env.fs.Directories().Constants()

	for _, key := range []string{"documentDirectory", "cacheDirectory"} {
		t.Run(key, func(t *testing.T) {
			_, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{
				Source:      "logo",
				Destination: constants[key],
			})
			if !errors.Is(err, domain.ErrIO) {
				t.Errorf("Fetch() error = %v, want ErrIO", err)
			}
		})
	}

	for _, dir := range []string{env.fs.Directories().Document, env.fs.Directories().Cache} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("managed directory %s gone: %v", dir, err)
		}
	}
}

type brokenDigestFS struct {
	port.FileSystem
}

func (brokenDigestFS) MD5(string) (string, error) {
	return "", errors.New("disk went away")
}

func TestFetch_DigestError(t *testing.T) {
	env := newTestEnv(t)
	f := New(brokenDigestFS{env.fs}, env.fetcher.bundle, nil, nil, zap.NewNop())
	_, uri := env.dest("logo.png")

	_, err := f.Fetch(context.Background(), domain.DownloadRequest{
		Source:      "logo",
		Destination: uri,
		Options:     domain.DownloadOptions{MD5: true},
	})
	if !errors.Is(err, domain.ErrDigest) {
		t.Errorf("Fetch() error = %v, want ErrDigest", err)
	}
}

func TestFetch_DispatchesEvents(t *testing.T) {
	env := newTestEnv(t)
	_, uri := env.dest("logo.png")

	if _, err := env.fetcher.Fetch(context.Background(), domain.DownloadRequest{Source: "logo", Destination: uri}); err != nil {
		t.Fatal(err)
	}
	_, _ = env.fetcher.Fetch(context.Background(), domain.DownloadRequest{Source: "missing", Destination: uri})

	events := env.events.all()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	completed, ok := events[0].(event.FetchCompleted)
	if !ok {
		t.Fatalf("first event = %T, want FetchCompleted", events[0])
	}
	if completed.RequestID == "" || completed.Result.URI != uri || completed.Kind != domain.SourceBundled {
		t.Errorf("unexpected completed event: %+v", completed)
	}

	failed, ok := events[1].(event.FetchFailed)
	if !ok {
		t.Fatalf("second event = %T, want FetchFailed", events[1])
	}
	if !errors.Is(failed.Err, domain.ErrResourceNotFound) {
		t.Errorf("failed event error = %v", failed.Err)
	}
	if failed.RequestID == completed.RequestID {
		t.Error("request IDs are not unique")
	}
}

func TestDownloadAsync(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	env := newTestEnv(t)
	remotePath, remoteURI := env.dest("remote")
	_, localURI := env.dest("local")

	remote := env.fetcher.DownloadAsync(context.Background(), domain.DownloadRequest{Source: srv.URL, Destination: remoteURI})
	local := env.fetcher.DownloadAsync(context.Background(), domain.DownloadRequest{Source: "logo", Destination: localURI})

	if _, err := local.Wait(); err != nil {
		t.Fatalf("local Wait() error = %v", err)
	}

	select {
	case <-remote.Done():
		t.Fatal("remote task resolved before the server answered")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	result, err := remote.Wait()
	if err != nil {
		t.Fatalf("remote Wait() error = %v", err)
	}
	if result.Status != http.StatusOK {
		t.Errorf("Status = %d", result.Status)
	}
	if got := readFile(t, remotePath); string(got) != "late" {
		t.Errorf("content = %q", got)
	}

	// resolving twice returns the same outcome
	again, err := remote.Wait()
	if err != nil || again != result {
		t.Errorf("second Wait() = %v, %v", again, err)
	}
}

func TestDownloadAsync_ConcurrentDestinations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	env := newTestEnv(t)

	const n = 8
	tasks := make([]*Task, n)
	paths := make([]string, n)
	for i := range tasks {
		var uri string
		paths[i], uri = env.dest(string(rune('a' + i)))
		tasks[i] = env.fetcher.DownloadAsync(context.Background(), domain.DownloadRequest{
			Source:      srv.URL + "/" + string(rune('a'+i)),
			Destination: uri,
		})
	}

	for i, task := range tasks {
		if _, err := task.Wait(); err != nil {
			t.Fatalf("task %d error = %v", i, err)
		}
		if got := readFile(t, paths[i]); string(got) != "/"+string(rune('a'+i)) {
			t.Errorf("task %d content = %q", i, got)
		}
	}
}
