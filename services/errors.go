package services

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

var (
	// ErrInvalidPath is returned for traversal attempts and malformed paths
	ErrInvalidPath = errors.New("invalid path")
	// ErrNotFound is returned when a directory or regular file does not exist
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied is returned on filesystem permission errors
	ErrAccessDenied = errors.New("access denied")
	// ErrRangeNotSatisfiable is returned when a byte range falls outside the file
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	// ErrTransientIO is returned for read failures after a response has started
	ErrTransientIO = errors.New("transient i/o error")
)

// classifyFSError maps an os error onto the package taxonomy, keeping the original as context
func classifyFSError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	default:
		return err
	}
}
