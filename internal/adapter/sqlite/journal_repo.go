package sqlite

import (
	"database/sql"
	"time"

	"github.com/vertextoedge/easy-file-system/internal/domain"
	"github.com/vertextoedge/easy-file-system/internal/port"
)

// ErrEntryNotFound is returned by Get for an unknown request ID
var ErrEntryNotFound = port.ErrEntryNotFound

// Record stores a finished fetch
func (s *Store) Record(entry *domain.JournalEntry) error {
	query := `
		INSERT INTO fetches (
			id, source, destination, kind, http_status, md5, bytes_written,
			error_code, error_message, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.Exec(query,
		entry.ID, entry.Source, entry.Destination, entry.Kind, entry.HTTPStatus,
		nullString(entry.MD5), entry.BytesWritten,
		nullString(entry.ErrorCode), nullString(entry.ErrorMessage),
		entry.DurationMs, createdAt.UTC())
	return err
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, source, destination, kind, http_status, md5, bytes_written,
			   error_code, error_message, duration_ms, created_at
		FROM fetches
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Get returns the entry with the given request ID
func (s *Store) Get(id string) (*domain.JournalEntry, error) {
	query := `
		SELECT id, source, destination, kind, http_status, md5, bytes_written,
			   error_code, error_message, duration_ms, created_at
		FROM fetches
		WHERE id = ?
	`

	entry, err := scanEntry(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	return entry, err
}

// Prune deletes entries older than olderThan
func (s *Store) Prune(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC()

	result, err := s.db.Exec(`DELETE FROM fetches WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*domain.JournalEntry, error) {
	entry := &domain.JournalEntry{}
	var md5, errorCode, errorMessage sql.NullString

	err := row.Scan(
		&entry.ID, &entry.Source, &entry.Destination, &entry.Kind,
		&entry.HTTPStatus, &md5, &entry.BytesWritten,
		&errorCode, &errorMessage, &entry.DurationMs, &entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.MD5 = md5.String
	entry.ErrorCode = errorCode.String
	entry.ErrorMessage = errorMessage.String

	return entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
