package event

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/easy-file-system/internal/domain"
)

type recordingHandler struct {
	mu     sync.Mutex
	names  []string
	events []DomainEvent
}

func (h *recordingHandler) Handle(event DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) HandledEvents() []string { return h.names }

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestInMemoryDispatcher_Dispatch(t *testing.T) {
	d := NewInMemoryDispatcher(false)

	completed := &recordingHandler{names: []string{NameFetchCompleted}}
	all := &recordingHandler{names: []string{"*"}}
	d.Subscribe(completed)
	d.Subscribe(all)

	req := domain.DownloadRequest{Source: "logo", Destination: "file:///tmp/logo"}
	d.Dispatch(NewFetchCompleted("id-1", req, domain.SourceBundled, domain.DownloadResult{URI: "file:///tmp/logo"}, time.Millisecond))
	d.Dispatch(NewFetchFailed("id-2", req, domain.SourceBundled, errors.New("boom"), time.Millisecond))

	if got := completed.count(); got != 1 {
		t.Errorf("completed handler got %d events, want 1", got)
	}
	if got := all.count(); got != 2 {
		t.Errorf("wildcard handler got %d events, want 2", got)
	}

	d.Unsubscribe(completed)
	d.Dispatch(NewFetchCompleted("id-3", req, domain.SourceBundled, domain.DownloadResult{}, 0))
	if got := completed.count(); got != 1 {
		t.Errorf("unsubscribed handler got %d events, want 1", got)
	}
}

func TestInMemoryDispatcher_Async(t *testing.T) {
	d := NewInMemoryDispatcher(true)
	h := &recordingHandler{names: []string{"*"}}
	d.Subscribe(h)

	req := domain.DownloadRequest{Source: "https://example.com/a"}
	for i := 0; i < 10; i++ {
		d.Dispatch(NewFetchCompleted("id", req, domain.SourceRemote, domain.DownloadResult{}, 0))
	}
	d.Wait()

	if got := h.count(); got != 10 {
		t.Errorf("handler got %d events, want 10", got)
	}
}

type mockJournal struct {
	entries []*domain.JournalEntry
	err     error
}

func (m *mockJournal) Record(entry *domain.JournalEntry) error {
	m.entries = append(m.entries, entry)
	return m.err
}

func TestJournalHandler_Handle(t *testing.T) {
	journal := &mockJournal{}
	h := NewJournalHandler(journal, zap.NewNop())

	req := domain.DownloadRequest{Source: "https://example.com/a", Destination: "file:///tmp/a"}
	result := domain.DownloadResult{URI: "file:///tmp/a", Remote: true, Status: 404, MD5: "d41d8cd98f00b204e9800998ecf8427e"}

	if err := h.Handle(NewFetchCompleted("ok", req, domain.SourceRemote, result, 0)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if err := h.Handle(NewFetchFailed("bad", req, domain.SourceRemote, domain.NetworkError(req.Source, errors.New("refused")), 0)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(journal.entries) != 2 {
		t.Fatalf("recorded %d entries, want 2", len(journal.entries))
	}

	ok := journal.entries[0]
	if !ok.Succeeded() || ok.HTTPStatus != 404 || ok.MD5 != result.MD5 || ok.Kind != "remote" {
		t.Errorf("unexpected success entry: %+v", ok)
	}

	bad := journal.entries[1]
	if bad.Succeeded() || bad.ErrorCode != domain.CodeNetwork {
		t.Errorf("unexpected failure entry: %+v", bad)
	}
}

func TestJournalHandler_RecordError(t *testing.T) {
	journal := &mockJournal{err: errors.New("disk full")}
	h := NewJournalHandler(journal, zap.NewNop())

	err := h.Handle(NewFetchCompleted("id", domain.DownloadRequest{}, domain.SourceBundled, domain.DownloadResult{}, 0))
	if err == nil {
		t.Error("Handle() error = nil, want journal error")
	}
}
