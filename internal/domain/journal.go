package domain

import "time"

// JournalEntry is one finished fetch as kept in the journal
type JournalEntry struct {
	ID           string
	Source       string
	Destination  string
	Kind         string
	HTTPStatus   int
	MD5          string
	BytesWritten int64
	ErrorCode    string
	ErrorMessage string
	DurationMs   int64
	CreatedAt    time.Time
}

// Succeeded reports whether the fetch resolved successfully
func (e *JournalEntry) Succeeded() bool {
	return e.ErrorCode == ""
}
