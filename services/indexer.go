package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"webplayer/types"
)

// Temporary files written under the media root before an atomic rename
const (
	syncTempPrefix     = ".sync-"
	settingsTempPrefix = ".settings-"
)

// isTempFile reports in-progress writes that must not show up in listings
func isTempFile(name string) bool {
	return strings.HasPrefix(name, syncTempPrefix) || strings.HasPrefix(name, settingsTempPrefix)
}

// DirectoryIndexer lists the direct children of a resolved directory
type DirectoryIndexer struct {
	lang language.Tag
}

// NewDirectoryIndexer creates an indexer sorting names with the collation rules of lang
func NewDirectoryIndexer(lang language.Tag) *DirectoryIndexer {
	return &DirectoryIndexer{lang: lang}
}

// List reads abs once and returns its subdirectories and files as two sorted name lists.
// rel is echoed back as the listing path.
func (d *DirectoryIndexer) List(abs, rel string) (types.DirectoryListing, error) {
	listing := types.DirectoryListing{
		Path:        rel,
		Directories: []string{},
		Files:       []string{},
	}

	info, err := os.Stat(abs)
	if err != nil {
		return listing, classifyFSError(err)
	}
	if !info.IsDir() {
		return listing, fmt.Errorf("%w: %s is not a directory", ErrNotFound, rel)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return listing, classifyFSError(err)
	}

	for _, e := range entries {
		if isTempFile(e.Name()) {
			continue
		}
		if isDirEntry(abs, e) {
			listing.Directories = append(listing.Directories, e.Name())
		} else {
			listing.Files = append(listing.Files, e.Name())
		}
	}

	d.sortNames(listing.Directories)
	d.sortNames(listing.Files)
	return listing, nil
}

// isDirEntry follows symlinks so that linked folders are browsable; broken links count as files.
func isDirEntry(dir string, e os.DirEntry) bool {
	if e.Type()&os.ModeSymlink == 0 {
		return e.IsDir()
	}
	target, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && target.IsDir()
}

// sortNames orders names by locale collation and breaks ties by byte order.
// A collator is not safe for concurrent use, so each call builds its own.
func (d *DirectoryIndexer) sortNames(names []string) {
	c := collate.New(d.lang)
	var buf collate.Buffer
	keys := make(map[string][]byte, len(names))
	for _, n := range names {
		keys[n] = bytes.Clone(c.KeyFromString(&buf, n))
		buf.Reset()
	}
	slices.SortFunc(names, func(a, b string) int {
		if cmp := bytes.Compare(keys[a], keys[b]); cmp != 0 {
			return cmp
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})
}
