package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vertextoedge/easy-file-system/internal/domain"
	"github.com/vertextoedge/easy-file-system/internal/port"
)

// DefaultBufferSize is the copy buffer used when none is configured
const DefaultBufferSize = 256 * 1024

// Manager handles local filesystem operations for fetches and owns the
// managed directories.
type Manager struct {
	dirs       domain.Directories
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager
func NewManager(dirs domain.Directories) (*Manager, error) {
	return NewManagerWithBufferSize(dirs, DefaultBufferSize)
}

// NewManagerWithBufferSize creates a new filesystem manager with custom buffer size.
// The document and cache directories are created if absent; the bundle
// directory is never created.
func NewManagerWithBufferSize(dirs domain.Directories, bufferSize int) (*Manager, error) {
	var err error
	if dirs.Document, err = ensureDir(dirs.Document); err != nil {
		return nil, err
	}
	if dirs.Cache, err = ensureDir(dirs.Cache); err != nil {
		return nil, err
	}
	if dirs.Bundle != "" {
		if abs, err := filepath.Abs(dirs.Bundle); err == nil {
			dirs.Bundle = abs
		}
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Manager{
		dirs:       dirs,
		bufferSize: bufferSize,
	}, nil
}

func ensureDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("managed directory path is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory '%s': %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("couldn't create directory '%s': %w", abs, err)
	}
	return abs, nil
}

// Directories returns the managed directories
func (m *Manager) Directories() domain.Directories {
	return m.dirs
}

// ParentExists reports whether the parent directory of path exists
func (m *Manager) ParentExists(path string) bool {
	info, err := os.Stat(filepath.Dir(path))
	return err == nil && info.IsDir()
}

// ErrIsDirectory is returned by Replace when path names a directory
var ErrIsDirectory = errors.New("destination is a directory")

// Replace removes any existing file at path and writes reader to a fresh file.
// A directory at path is left untouched.
func (m *Manager) Replace(path string, reader io.Reader) (int64, error) {
	if info, err := os.Lstat(path); err == nil && info.IsDir() {
		return 0, fmt.Errorf("%s: %w", path, ErrIsDirectory)
	}

	if err := m.DeleteFile(path); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(onlyWriter{f}, reader, buf)
	if err != nil {
		f.Close()
		return written, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return written, fmt.Errorf("failed to close file: %w", err)
	}

	return written, nil
}

// onlyWriter hides ReadFrom so CopyBuffer actually uses the buffer
type onlyWriter struct {
	w io.Writer
}

func (o onlyWriter) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// DeleteFile removes a file, ignoring a missing one
func (m *Manager) DeleteFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Permissions returns the access flags for path.
// Paths inside the document or cache directory are read-write, paths inside
// the bundle directory are read-only; anything else is checked on disk.
func (m *Manager) Permissions(path string) port.Permission {
	abs, err := filepath.Abs(path)
	if err != nil {
		return port.PermissionNone
	}

	switch {
	case within(m.dirs.Document, abs), within(m.dirs.Cache, abs):
		return port.PermissionRead | port.PermissionWrite
	case m.dirs.Bundle != "" && within(m.dirs.Bundle, abs):
		return port.PermissionRead
	}

	return accessPermissions(abs)
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
