package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	const size = 10 * 1024 * 1024

	tests := []struct {
		header    string
		wantStart int64
		wantEnd   int64
	}{
		{"bytes=0-", 0, size - 1},
		{"bytes=0-0", 0, 0},
		{"bytes=1048576-2097151", 1048576, 2097151},
		{"bytes=100-", 100, size - 1},
		{"bytes=-500", size - 500, size - 1},
		{"bytes=-20000000", 0, size - 1},
		{"bytes=0-99, 200-299", 0, 99},
		{" bytes = 5-9 ", 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			r, err := ParseRange(tt.header, size)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, r.Start)
			assert.Equal(t, tt.wantEnd, r.End)
			assert.Equal(t, int64(size), r.Size)
		})
	}
}

func TestParseRangeUnsatisfiable(t *testing.T) {
	const size = 1000

	for _, header := range []string{
		"bytes=1000-1010",
		"bytes=1000-",
		"bytes=0-1000",
		"bytes=5-4",
		"bytes=-0",
		"bytes=-",
		"bytes=abc-",
		"bytes=1-x",
		"bytes=-1-2",
		"items=0-10",
		"bytes",
		"",
	} {
		t.Run(header, func(t *testing.T) {
			_, err := ParseRange(header, size)
			assert.ErrorIs(t, err, ErrRangeNotSatisfiable)
		})
	}

	_, err := ParseRange("bytes=0-", 0)
	assert.ErrorIs(t, err, ErrRangeNotSatisfiable)
}

func TestByteRangeHeaders(t *testing.T) {
	r := ByteRange{Start: 1048576, End: 2097151, Size: 10485760}
	assert.Equal(t, int64(1048576), r.Length())
	assert.Equal(t, "bytes 1048576-2097151/10485760", r.ContentRange())
	assert.Equal(t, "bytes */10485760", UnsatisfiedRange(10485760))
	assert.Equal(t, int64(0), FullRange(0).Length())
}

func TestContentType(t *testing.T) {
	tests := []struct {
		filePath     string
		expectedType string
	}{
		{"test.flac", "audio/flac"},
		{"test.FLAC", "audio/flac"},
		{"test.mp3", "audio/mpeg"},
		{"test.MP3", "audio/mpeg"},
		{"test.m4a", "audio/mp4"},
		{"clip.mp4", "video/mp4"},
		{"clip.webm", "video/webm"},
		{"test", "application/octet-stream"},
		{"Artist/Album/Song.mp3", "audio/mpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.filePath, func(t *testing.T) {
			assert.Equal(t, tt.expectedType, ContentType(tt.filePath))
		})
	}
}

func newTestStreamer(t *testing.T) (*MediaStreamer, string) {
	t.Helper()
	resolver, err := NewPathResolver(t.TempDir())
	require.NoError(t, err)
	return NewMediaStreamer(resolver), resolver.Root()
}

func TestOpenAndCopyRange(t *testing.T) {
	streamer, root := newTestStreamer(t)
	content := make([]byte, 200*1024)
	_, err := rand.Read(content)
	require.NoError(t, err)
	writeFile(t, filepath.Join(root, "song.mp3"), content)

	file, err := streamer.Open(filepath.Join(root, "song.mp3"))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, "song.mp3", file.Name())
	assert.Equal(t, int64(len(content)), file.Size())
	assert.Equal(t, "audio/mpeg", file.ContentType())

	// Contiguous ranges concatenate to the whole file
	var joined bytes.Buffer
	for _, r := range []ByteRange{
		{Start: 0, End: 99999, Size: file.Size()},
		{Start: 100000, End: 150000, Size: file.Size()},
		{Start: 150001, End: file.Size() - 1, Size: file.Size()},
	} {
		n, err := file.CopyRange(context.Background(), &joined, r)
		require.NoError(t, err)
		assert.Equal(t, r.Length(), n)
	}
	assert.Equal(t, content, joined.Bytes())

	var full bytes.Buffer
	n, err := file.CopyRange(context.Background(), &full, FullRange(file.Size()))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, content, full.Bytes())
}

func TestOpenErrors(t *testing.T) {
	streamer, root := newTestStreamer(t)
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir"), 0755))

	_, err := streamer.Open(filepath.Join(root, "missing.mp3"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = streamer.Open(filepath.Join(root, "dir"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = streamer.Open(filepath.Join(filepath.Dir(root), "outside.mp3"))
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestCopyRangeStopsOnCancel(t *testing.T) {
	streamer, root := newTestStreamer(t)
	writeFile(t, filepath.Join(root, "big.mp3"), make([]byte, 1024*1024))

	file, err := streamer.Open(filepath.Join(root, "big.mp3"))
	require.NoError(t, err)
	defer file.Close()

	ctx, cancel := context.WithCancel(context.Background())
	w := &cancelAfterWriter{cancel: cancel}
	n, err := file.CopyRange(ctx, w, FullRange(file.Size()))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(copyChunkSize), n, "only the chunk before cancellation is copied")
}

func TestCopyRangeShortFile(t *testing.T) {
	streamer, root := newTestStreamer(t)
	writeFile(t, filepath.Join(root, "short.mp3"), make([]byte, 10))

	file, err := streamer.Open(filepath.Join(root, "short.mp3"))
	require.NoError(t, err)
	defer file.Close()

	n, err := file.CopyRange(context.Background(), io.Discard, ByteRange{Start: 0, End: 99, Size: 100})
	assert.ErrorIs(t, err, ErrTransientIO)
	assert.Equal(t, int64(10), n)
}

// cancelAfterWriter cancels its context after the first write
type cancelAfterWriter struct {
	cancel context.CancelFunc
	n      int
}

func (w *cancelAfterWriter) Write(p []byte) (int, error) {
	w.n += len(p)
	w.cancel()
	return len(p), nil
}
