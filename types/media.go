package types

import (
	"path"
	"strings"
)

// MediaKind classifies a file by its extension
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
	KindOther MediaKind = "other"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".wav":  true,
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".webm": true,
	".mov":  true,
	".mkv":  true,
	".ogv":  true,
}

// KindOf returns the media kind for a file name, matching the extension case-insensitively
func KindOf(name string) MediaKind {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case audioExtensions[ext]:
		return KindAudio
	case videoExtensions[ext]:
		return KindVideo
	default:
		return KindOther
	}
}

// Playable reports whether the kind can be put in a playlist
func (k MediaKind) Playable() bool {
	return k == KindAudio || k == KindVideo
}

// MediaEntry is a playable file identified by its path relative to the media root
type MediaEntry struct {
	Path string    `json:"path"`
	Name string    `json:"name"`
	Kind MediaKind `json:"kind"`
}

// JoinRel qualifies name with a slash separated relative directory ("" is the root)
func JoinRel(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
