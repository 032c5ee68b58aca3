package services

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathResolver maps client-supplied relative paths onto the media root
type PathResolver struct {
	root string
}

// NewPathResolver creates a resolver for root. The root is made absolute and cleaned.
func NewPathResolver(root string) (*PathResolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("media root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	return &PathResolver{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute media root
func (p *PathResolver) Root() string {
	return p.root
}

// Resolve validates rel and returns the absolute path together with the cleaned,
// slash separated relative path ("" for the root).
func (p *PathResolver) Resolve(rel string) (string, string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", "", fmt.Errorf("%w: contains NUL byte", ErrInvalidPath)
	}

	// The client addresses the root as "/" so leading separators are not absolute paths here.
	rel = strings.TrimLeft(filepath.ToSlash(rel), "/")

	for _, segment := range strings.Split(rel, "/") {
		if segment == ".." {
			return "", "", fmt.Errorf("%w: %q escapes the media root", ErrInvalidPath, rel)
		}
	}

	clean := filepath.ToSlash(filepath.Clean("/" + rel))
	clean = strings.TrimPrefix(clean, "/")

	abs := filepath.Join(p.root, filepath.FromSlash(clean))
	if !p.Contains(abs) {
		return "", "", fmt.Errorf("%w: %q escapes the media root", ErrInvalidPath, rel)
	}
	return abs, clean, nil
}

// Contains reports whether abs is the root itself or lies below it on a separator boundary,
// so that "/media2" is not accepted for the root "/media".
func (p *PathResolver) Contains(abs string) bool {
	abs = filepath.Clean(abs)
	if abs == p.root {
		return true
	}
	prefix := p.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(abs, prefix)
}
