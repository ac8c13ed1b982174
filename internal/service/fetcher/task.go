package fetcher

import (
	"context"

	"github.com/vertextoedge/easy-file-system/internal/domain"
)

// Task is a fetch running in the background. It resolves exactly once.
type Task struct {
	done   chan struct{}
	result *domain.DownloadResult
	err    error
}

// Done is closed once the task has resolved
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task resolves and returns its outcome
func (t *Task) Wait() (*domain.DownloadResult, error) {
	<-t.done
	return t.result, t.err
}

// DownloadAsync starts a fetch on its own goroutine. Bundled and remote
// sources look the same from here.
func (f *Fetcher) DownloadAsync(ctx context.Context, req domain.DownloadRequest) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.result, t.err = f.Fetch(ctx, req)
	}()
	return t
}
