package port

import (
	"errors"
	"time"

	"github.com/vertextoedge/easy-file-system/internal/domain"
)

// ErrEntryNotFound is returned by Get for an unknown request ID
var ErrEntryNotFound = errors.New("journal entry not found")

// JournalRepository stores finished fetches
type JournalRepository interface {
	// Record stores one entry
	Record(entry *domain.JournalEntry) error

	// Recent returns up to limit entries, newest first
	Recent(limit int) ([]*domain.JournalEntry, error)

	// Get returns the entry with the given request ID, or ErrEntryNotFound
	Get(id string) (*domain.JournalEntry, error)

	// Prune deletes entries older than olderThan and returns how many were removed
	Prune(olderThan time.Duration) (int, error)

	// Close closes the database connection
	Close() error

	// Ping checks database connectivity
	Ping() error
}
