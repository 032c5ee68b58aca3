package player

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webplayer/types"
)

// gatedSource answers each path once its gate is released
type gatedSource struct {
	mu       sync.Mutex
	listings map[string]types.DirectoryListing
	errs     map[string]error
	gates    map[string]chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		listings: make(map[string]types.DirectoryListing),
		errs:     make(map[string]error),
		gates:    make(map[string]chan struct{}),
	}
}

func (s *gatedSource) gate(path string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := make(chan struct{})
	s.gates[path] = g
	return g
}

func (s *gatedSource) List(ctx context.Context, path string) (types.DirectoryListing, error) {
	s.mu.Lock()
	g := s.gates[path]
	s.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return types.DirectoryListing{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[path]; err != nil {
		return types.DirectoryListing{}, err
	}
	return s.listings[path], nil
}

func TestLoaderAppliesListing(t *testing.T) {
	source := newGatedSource()
	source.listings["Rock"] = types.DirectoryListing{Path: "Rock", Files: []string{"a.mp3", "b.mp4", "c.txt"}}
	c := NewController(&fakeOutput{})
	l := NewLoader(source, c)

	require.NoError(t, l.Load(context.Background(), "Rock"))

	state := l.State()
	assert.False(t, state.Loading)
	assert.True(t, state.Loaded)
	assert.False(t, state.Empty())
	assert.Equal(t, "Rock", state.Listing.Path)

	playback := c.State()
	require.Len(t, playback.Playlist, 2)
	assert.Equal(t, "Rock/a.mp3", playback.Playlist[0].Path)
	assert.Equal(t, "Rock/b.mp4", playback.Playlist[1].Path)
	assert.Equal(t, StatusReady, playback.Status)
}

func TestLoaderEmptyFolder(t *testing.T) {
	source := newGatedSource()
	source.listings["Empty"] = types.DirectoryListing{Path: "Empty", Directories: []string{}, Files: []string{}}
	l := NewLoader(source, NewController(&fakeOutput{}))

	require.NoError(t, l.Load(context.Background(), "Empty"))
	assert.True(t, l.State().Empty())
}

func TestLoaderErrorKeepsLastListing(t *testing.T) {
	source := newGatedSource()
	source.listings[""] = types.DirectoryListing{Files: []string{"a.mp3"}}
	source.errs["gone"] = errors.New("HTTP 404")
	c := NewController(&fakeOutput{})
	l := NewLoader(source, c)

	require.NoError(t, l.Load(context.Background(), ""))
	err := l.Load(context.Background(), "gone")
	require.Error(t, err)

	state := l.State()
	assert.Equal(t, "gone", state.Path)
	assert.EqualError(t, state.Err, "HTTP 404")
	assert.False(t, state.Empty())
	assert.Equal(t, []string{"a.mp3"}, state.Listing.Files)
}

func TestLoaderStopsPlaybackOnNavigation(t *testing.T) {
	source := newGatedSource()
	source.listings[""] = types.DirectoryListing{Files: []string{"a.mp3"}}
	source.listings["Jazz"] = types.DirectoryListing{Path: "Jazz", Files: []string{"b.mp3"}}
	out := &fakeOutput{}
	c := NewController(out)
	l := NewLoader(source, c)

	require.NoError(t, l.Load(context.Background(), ""))
	require.NoError(t, c.Select(0))
	require.Equal(t, StatusPlaying, c.State().Status)

	require.NoError(t, l.Load(context.Background(), "Jazz"))
	state := c.State()
	assert.Equal(t, StatusReady, state.Status)
	assert.False(t, state.UserInitiated)
	assert.Equal(t, "Jazz/b.mp3", state.Playlist[0].Path)
}

func TestLoaderDiscardsStaleResponse(t *testing.T) {
	source := newGatedSource()
	source.listings["slow"] = types.DirectoryListing{Path: "slow", Files: []string{"old.mp3"}}
	source.listings["fast"] = types.DirectoryListing{Path: "fast", Files: []string{"new.mp3"}}
	slow := source.gate("slow")
	c := NewController(&fakeOutput{})
	l := NewLoader(source, c)

	slowErr := make(chan error, 1)
	go func() { slowErr <- l.Load(context.Background(), "slow") }()

	// wait until the slow request is in flight
	require.Eventually(t, func() bool { return l.State().Path == "slow" }, testTimeout, testTick)

	require.NoError(t, l.Load(context.Background(), "fast"))
	close(slow)
	assert.ErrorIs(t, <-slowErr, ErrSuperseded)

	state := l.State()
	assert.Equal(t, "fast", state.Listing.Path)
	assert.Equal(t, "fast/new.mp3", c.State().Playlist[0].Path)
}
