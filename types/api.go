package types

// DirectoryListing is the JSON shape returned by the media listing endpoint
type DirectoryListing struct {
	Path        string   `json:"path"`
	Directories []string `json:"directories"`
	Files       []string `json:"files"`
}

// IsEmpty reports whether the folder has neither subfolders nor files
func (l DirectoryListing) IsEmpty() bool {
	return len(l.Directories) == 0 && len(l.Files) == 0
}

// ErrorResponse is the body sent with every non-2xx API response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AudioMetadata represents embedded tag metadata for a media file
type AudioMetadata struct {
	Path        string `json:"path"`
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	Format      string `json:"format,omitempty"`
	TrackNumber int    `json:"trackNumber,omitempty"`
	Size        int64  `json:"size"`
}
