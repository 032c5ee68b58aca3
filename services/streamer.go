package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// copyChunkSize bounds the work done after a client disconnects
const copyChunkSize = 32 * 1024

// ByteRange is an inclusive byte window of a file of Size bytes
type ByteRange struct {
	Start int64
	End   int64
	Size  int64
}

// FullRange covers the whole file
func FullRange(size int64) ByteRange {
	return ByteRange{Start: 0, End: size - 1, Size: size}
}

// Length returns the number of bytes in the window
func (r ByteRange) Length() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a partial response
func (r ByteRange) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

// UnsatisfiedRange formats the Content-Range header value for a 416 response
func UnsatisfiedRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// ParseRange parses a single "bytes=start-end" Range header against a file of size bytes.
// The end is optional and defaults to size-1; the suffix form "bytes=-n" selects the last n bytes.
// Multi-range headers are served as their first sub-range.
func ParseRange(header string, size int64) (ByteRange, error) {
	unit, spec, ok := strings.Cut(strings.TrimSpace(header), "=")
	if !ok || strings.TrimSpace(unit) != "bytes" {
		return ByteRange{}, fmt.Errorf("%w: unsupported range %q", ErrRangeNotSatisfiable, header)
	}

	spec, _, _ = strings.Cut(spec, ",")
	first, last, ok := strings.Cut(strings.TrimSpace(spec), "-")
	if !ok {
		return ByteRange{}, fmt.Errorf("%w: malformed range %q", ErrRangeNotSatisfiable, header)
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	r := ByteRange{Size: size}
	switch {
	case first == "" && last == "":
		return ByteRange{}, fmt.Errorf("%w: malformed range %q", ErrRangeNotSatisfiable, header)
	case first == "":
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 || size == 0 {
			return ByteRange{}, fmt.Errorf("%w: invalid suffix range %q", ErrRangeNotSatisfiable, header)
		}
		r.Start = max(size-n, 0)
		r.End = size - 1
		return r, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, fmt.Errorf("%w: invalid range start %q", ErrRangeNotSatisfiable, header)
	}
	r.Start = start
	r.End = size - 1
	if last != "" {
		end, err := strconv.ParseInt(last, 10, 64)
		if err != nil {
			return ByteRange{}, fmt.Errorf("%w: invalid range end %q", ErrRangeNotSatisfiable, header)
		}
		r.End = end
	}

	if r.Start >= size || r.End >= size || r.End < r.Start {
		return ByteRange{}, fmt.Errorf("%w: %d-%d outside 0-%d", ErrRangeNotSatisfiable, r.Start, r.End, size-1)
	}
	return r, nil
}

// contentTypes covers the media containers browsers play; other types use the mime table
var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/opus",
	".wav":  "audio/wav",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".ogv":  "video/ogg",
}

// ContentType returns the MIME type for a file name based on its extension
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// MediaStreamer opens media files below the media root for ranged reads
type MediaStreamer struct {
	resolver *PathResolver
}

// NewMediaStreamer creates a streamer bound to the resolver's root
func NewMediaStreamer(resolver *PathResolver) *MediaStreamer {
	return &MediaStreamer{resolver: resolver}
}

// MediaFile is an open regular file. Callers must Close it on every path.
type MediaFile struct {
	file *os.File
	name string
	size int64
	mod  time.Time
}

// Open opens abs for streaming. abs must already be resolved; the root check is repeated here.
func (s *MediaStreamer) Open(abs string) (*MediaFile, error) {
	if !s.resolver.Contains(abs) {
		return nil, fmt.Errorf("%w: %s is outside the media root", ErrInvalidPath, abs)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, classifyFSError(err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, filepath.Base(abs))
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, classifyFSError(err)
	}
	return &MediaFile{file: f, name: info.Name(), size: info.Size(), mod: info.ModTime()}, nil
}

// Name returns the base name of the file
func (m *MediaFile) Name() string { return m.name }

// Size returns the size in bytes at open time
func (m *MediaFile) Size() int64 { return m.size }

// ModTime returns the modification time at open time
func (m *MediaFile) ModTime() time.Time { return m.mod }

// ContentType returns the MIME type inferred from the file extension
func (m *MediaFile) ContentType() string { return ContentType(m.name) }

// Close releases the file handle
func (m *MediaFile) Close() error {
	return m.file.Close()
}

// CopyRange writes exactly r.Length() bytes starting at r.Start to w.
// ctx is checked between chunks so a disconnected client stops further reads.
func (m *MediaFile) CopyRange(ctx context.Context, w io.Writer, r ByteRange) (int64, error) {
	if r.Length() == 0 {
		return 0, nil
	}
	if _, err := m.file.Seek(r.Start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: seek to %d: %w", ErrTransientIO, r.Start, err)
	}

	src := &contextReader{ctx: ctx, r: io.LimitReader(m.file, r.Length())}
	n, err := io.CopyBuffer(w, src, make([]byte, copyChunkSize))
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return n, err
	case err != nil:
		return n, fmt.Errorf("%w: copied %d of %d bytes: %w", ErrTransientIO, n, r.Length(), err)
	case n < r.Length():
		return n, fmt.Errorf("%w: file shrank, copied %d of %d bytes", ErrTransientIO, n, r.Length())
	}
	return n, nil
}

// contextReader fails the next Read once its context is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	if len(p) > copyChunkSize {
		p = p[:copyChunkSize]
	}
	return c.r.Read(p)
}
