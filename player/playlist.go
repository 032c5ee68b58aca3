// Package player drives continuous playback of a directory listing.
package player

import "webplayer/types"

// BuildPlaylist returns the playable files of listing in listing order,
// qualified with the listing path.
func BuildPlaylist(listing types.DirectoryListing) []types.MediaEntry {
	entries := make([]types.MediaEntry, 0, len(listing.Files))
	for _, name := range listing.Files {
		kind := types.KindOf(name)
		if !kind.Playable() {
			continue
		}
		entries = append(entries, types.MediaEntry{
			Path: types.JoinRel(listing.Path, name),
			Name: name,
			Kind: kind,
		})
	}
	return entries
}
