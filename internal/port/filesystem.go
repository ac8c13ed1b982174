package port

import (
	"io"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total   uint64  // Total disk space in bytes
	Used    uint64  // Used disk space in bytes
	Free    uint64  // Free disk space in bytes
	UsedPct float64 // Used percentage (0-100)
}

// Permission flags for a local path
type Permission uint

const (
	PermissionNone  Permission = 0
	PermissionRead  Permission = 1 << 1
	PermissionWrite Permission = 1 << 2
)

// CanRead reports whether the read flag is set
func (p Permission) CanRead() bool { return p&PermissionRead != 0 }

// CanWrite reports whether the write flag is set
func (p Permission) CanWrite() bool { return p&PermissionWrite != 0 }

// FileSystem defines the destination side of a fetch
type FileSystem interface {
	// ParentExists reports whether the parent directory of path exists
	ParentExists(path string) bool

	// Replace removes any file at path, then writes all of reader to a new file.
	// Returns bytes written. On error a partial file may be left behind.
	Replace(path string, reader io.Reader) (int64, error)

	// MD5 returns the lowercase hex MD5 of the file at path
	MD5(path string) (string, error)
}
