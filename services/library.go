package services

import (
	"golang.org/x/text/language"

	"webplayer/types"
)

// MediaLibrary is the server-side view of the media root
type MediaLibrary interface {
	Root() string
	List(rel string) (types.DirectoryListing, error)
	Open(rel string) (*MediaFile, error)
	Metadata(rel string) (*types.AudioMetadata, error)
}

// mediaLibrary composes path resolution, indexing and streaming
type mediaLibrary struct {
	resolver *PathResolver
	indexer  *DirectoryIndexer
	streamer *MediaStreamer
}

// NewMediaLibrary creates a library rooted at root
func NewMediaLibrary(root string) (MediaLibrary, error) {
	resolver, err := NewPathResolver(root)
	if err != nil {
		return nil, err
	}
	return &mediaLibrary{
		resolver: resolver,
		indexer:  NewDirectoryIndexer(language.English),
		streamer: NewMediaStreamer(resolver),
	}, nil
}

func (l *mediaLibrary) Root() string {
	return l.resolver.Root()
}

// List resolves rel and lists its direct children
func (l *mediaLibrary) List(rel string) (types.DirectoryListing, error) {
	abs, clean, err := l.resolver.Resolve(rel)
	if err != nil {
		return types.DirectoryListing{Path: "", Directories: []string{}, Files: []string{}}, err
	}
	return l.indexer.List(abs, clean)
}

// Open resolves rel and opens it for streaming
func (l *mediaLibrary) Open(rel string) (*MediaFile, error) {
	abs, _, err := l.resolver.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return l.streamer.Open(abs)
}

// Metadata resolves rel and reads its tags
func (l *mediaLibrary) Metadata(rel string) (*types.AudioMetadata, error) {
	abs, clean, err := l.resolver.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return ReadMetadata(abs, clean)
}
