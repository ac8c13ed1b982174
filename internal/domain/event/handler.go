package event

import (
	"go.uber.org/zap"

	"github.com/vertextoedge/easy-file-system/internal/domain"
)

// LoggingHandler logs all events
type LoggingHandler struct {
	logger *zap.Logger
}

// NewLoggingHandler creates a new LoggingHandler
func NewLoggingHandler(logger *zap.Logger) *LoggingHandler {
	return &LoggingHandler{logger: logger}
}

// Handle logs the event
func (h *LoggingHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case FetchCompleted:
		fields := []zap.Field{
			zap.String("request_id", e.RequestID),
			zap.String("source", e.Source),
			zap.String("kind", e.Kind.String()),
			zap.String("uri", e.Result.URI),
			zap.Int64("size", e.Result.BytesWritten),
			zap.Duration("took", e.Duration),
		}
		if e.Result.Remote {
			fields = append(fields, zap.Int("status", e.Result.Status))
		}
		if e.Result.MD5 != "" {
			fields = append(fields, zap.String("md5", e.Result.MD5))
		}
		h.logger.Info("fetch completed", fields...)
	case FetchFailed:
		h.logger.Warn("fetch failed",
			zap.String("request_id", e.RequestID),
			zap.String("source", e.Source),
			zap.String("destination", e.Destination),
			zap.String("kind", e.Kind.String()),
			zap.String("code", domain.ErrorCode(e.Err)),
			zap.Error(e.Err),
			zap.Duration("took", e.Duration),
		)
	default:
		h.logger.Debug("unknown event", zap.String("name", event.EventName()))
	}
	return nil
}

// HandledEvents returns all event names
func (h *LoggingHandler) HandledEvents() []string {
	return []string{"*"}
}

// JournalWriter persists journal entries
type JournalWriter interface {
	Record(entry *domain.JournalEntry) error
}

// JournalHandler writes finished fetches to the journal.
// Write failures are logged and never reach the fetch caller.
type JournalHandler struct {
	journal JournalWriter
	logger  *zap.Logger
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journal JournalWriter, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{journal: journal, logger: logger}
}

// Handle records the event
func (h *JournalHandler) Handle(event DomainEvent) error {
	var entry *domain.JournalEntry

	switch e := event.(type) {
	case FetchCompleted:
		entry = &domain.JournalEntry{
			ID:           e.RequestID,
			Source:       e.Source,
			Destination:  e.Destination,
			Kind:         e.Kind.String(),
			HTTPStatus:   e.Result.Status,
			MD5:          e.Result.MD5,
			BytesWritten: e.Result.BytesWritten,
			DurationMs:   e.Duration.Milliseconds(),
			CreatedAt:    e.OccurredAt(),
		}
	case FetchFailed:
		entry = &domain.JournalEntry{
			ID:           e.RequestID,
			Source:       e.Source,
			Destination:  e.Destination,
			Kind:         e.Kind.String(),
			ErrorCode:    domain.ErrorCode(e.Err),
			ErrorMessage: e.Err.Error(),
			DurationMs:   e.Duration.Milliseconds(),
			CreatedAt:    e.OccurredAt(),
		}
	default:
		return nil
	}

	if err := h.journal.Record(entry); err != nil {
		h.logger.Warn("failed to record fetch in journal",
			zap.String("request_id", entry.ID),
			zap.Error(err))
		return err
	}
	return nil
}

// HandledEvents returns the fetch event names
func (h *JournalHandler) HandledEvents() []string {
	return []string{NameFetchCompleted, NameFetchFailed}
}
