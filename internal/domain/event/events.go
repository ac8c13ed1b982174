package event

import (
	"time"

	"github.com/vertextoedge/easy-file-system/internal/domain"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// Event names
const (
	NameFetchCompleted = "fetch.completed"
	NameFetchFailed    = "fetch.failed"
)

// FetchCompleted is raised when a fetch has written its destination file
type FetchCompleted struct {
	BaseEvent
	RequestID   string
	Source      string
	Destination string
	Kind        domain.SourceKind
	Result      domain.DownloadResult
	Duration    time.Duration
}

// EventName returns the event name
func (e FetchCompleted) EventName() string {
	return NameFetchCompleted
}

// NewFetchCompleted creates a new FetchCompleted event
func NewFetchCompleted(requestID string, req domain.DownloadRequest, kind domain.SourceKind, result domain.DownloadResult, took time.Duration) FetchCompleted {
	return FetchCompleted{
		BaseEvent:   BaseEvent{Timestamp: time.Now()},
		RequestID:   requestID,
		Source:      req.Source,
		Destination: req.Destination,
		Kind:        kind,
		Result:      result,
		Duration:    took,
	}
}

// FetchFailed is raised when a fetch is rejected
type FetchFailed struct {
	BaseEvent
	RequestID   string
	Source      string
	Destination string
	Kind        domain.SourceKind
	Err         error
	Duration    time.Duration
}

// EventName returns the event name
func (e FetchFailed) EventName() string {
	return NameFetchFailed
}

// NewFetchFailed creates a new FetchFailed event
func NewFetchFailed(requestID string, req domain.DownloadRequest, kind domain.SourceKind, err error, took time.Duration) FetchFailed {
	return FetchFailed{
		BaseEvent:   BaseEvent{Timestamp: time.Now()},
		RequestID:   requestID,
		Source:      req.Source,
		Destination: req.Destination,
		Kind:        kind,
		Err:         err,
		Duration:    took,
	}
}
