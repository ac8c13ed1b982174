package domain

import (
	"errors"
	"fmt"
)

// Fetch error kinds. Every failed fetch carries exactly one of these.
var (
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrResourceNotFound  = errors.New("resource not found")
	ErrNetwork           = errors.New("network error")
	ErrIO                = errors.New("io error")
	ErrDigest            = errors.New("digest error")
)

// FetchError is the single terminal failure of a fetch.
type FetchError struct {
	// Kind is one of the Err* sentinels above
	Kind error

	// Message is a human-readable description
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error returns the error message
func (e *FetchError) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		if msg == "" {
			return e.Cause.Error()
		}
		return msg + ": " + e.Cause.Error()
	}
	if msg == "" {
		return "fetch failed"
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *FetchError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NewFetchError creates a new fetch error
func NewFetchError(kind error, cause error, format string, args ...any) *FetchError {
	return &FetchError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// DirectoryNotFound reports a destination whose parent directory is missing
func DirectoryNotFound(path string) *FetchError {
	return NewFetchError(ErrDirectoryNotFound, nil, "directory for %s doesn't exist", path)
}

// UnsupportedScheme reports a source or destination that cannot be handled
func UnsupportedScheme(location string, cause error) *FetchError {
	return NewFetchError(ErrUnsupportedScheme, cause, "unsupported scheme for location '%s'", location)
}

// ResourceNotFound reports a bundled resource that does not exist
func ResourceNotFound(name string, cause error) *FetchError {
	return NewFetchError(ErrResourceNotFound, cause, "bundled resource '%s' not found", name)
}

// NetworkError reports a transport failure talking to a remote URL
func NetworkError(url string, cause error) *FetchError {
	return NewFetchError(ErrNetwork, cause, "request to %s failed", url)
}

// IOError reports a local read, write or delete failure
func IOError(op, path string, cause error) *FetchError {
	return NewFetchError(ErrIO, cause, "%s %s", op, path)
}

// DigestError reports a failure while hashing the written file
func DigestError(path string, cause error) *FetchError {
	return NewFetchError(ErrDigest, cause, "computing md5 of %s", path)
}

// Error codes used on the bridge
const (
	CodeDirectoryNotFound = "ERR_DIRECTORY_NOT_FOUND"
	CodeUnsupportedScheme = "ERR_UNSUPPORTED_SCHEME"
	CodeResourceNotFound  = "ERR_RESOURCE_NOT_FOUND"
	CodeNetwork           = "ERR_NETWORK"
	CodeIO                = "ERR_IO"
	CodeDigest            = "ERR_DIGEST"
	CodeUnknown           = "ERR_UNKNOWN"
)

// ErrorCode returns the bridge error code for err
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDirectoryNotFound):
		return CodeDirectoryNotFound
	case errors.Is(err, ErrUnsupportedScheme):
		return CodeUnsupportedScheme
	case errors.Is(err, ErrResourceNotFound):
		return CodeResourceNotFound
	case errors.Is(err, ErrNetwork):
		return CodeNetwork
	case errors.Is(err, ErrIO):
		return CodeIO
	case errors.Is(err, ErrDigest):
		return CodeDigest
	default:
		return CodeUnknown
	}
}
