package services

import (
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"webplayer/logger"
	"webplayer/types"
)

var trackPrefix = regexp.MustCompile(`^(\d+)[\.\-\s]+(.+)`)

// ReadMetadata extracts embedded tags from the file at abs. Missing fields are filled
// from the relative path (Artist/Album/NN - Title.ext).
func ReadMetadata(abs, rel string) (*types.AudioMetadata, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return nil, classifyFSError(err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrNotFound
	}

	fallback := metadataFromPath(rel)
	fallback.Size = info.Size()

	file, err := os.Open(abs)
	if err != nil {
		return nil, classifyFSError(err)
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		logger.Debug("no readable tags, using path metadata",
			logger.String("path", rel),
			logger.ErrorField(err))
		return fallback, nil
	}

	metadata := &types.AudioMetadata{
		Path:   rel,
		Title:  meta.Title(),
		Artist: meta.Artist(),
		Album:  meta.Album(),
		Format: strings.ToLower(string(meta.FileType())),
		Size:   info.Size(),
	}
	metadata.TrackNumber, _ = meta.Track()

	if metadata.Title == "" {
		metadata.Title = fallback.Title
	}
	if metadata.Artist == "" {
		metadata.Artist = fallback.Artist
	}
	if metadata.Album == "" {
		metadata.Album = fallback.Album
	}
	if metadata.TrackNumber == 0 {
		metadata.TrackNumber = fallback.TrackNumber
	}
	if metadata.Format == "" {
		metadata.Format = fallback.Format
	}
	return metadata, nil
}

// metadataFromPath derives metadata from a slash separated relative path
func metadataFromPath(rel string) *types.AudioMetadata {
	metadata := &types.AudioMetadata{Path: rel}

	parts := strings.Split(rel, "/")
	if len(parts) >= 3 {
		metadata.Artist = parts[len(parts)-3]
	}
	if len(parts) >= 2 {
		metadata.Album = parts[len(parts)-2]
	}

	filename := path.Base(rel)
	ext := path.Ext(filename)
	metadata.Format = strings.TrimPrefix(strings.ToLower(ext), ".")

	title := strings.TrimSuffix(filename, ext)
	if matches := trackPrefix.FindStringSubmatch(title); len(matches) > 2 {
		title = matches[2]
		if n, err := strconv.Atoi(matches[1]); err == nil {
			metadata.TrackNumber = n
		}
	}
	metadata.Title = title
	return metadata
}
