package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"webplayer/logger"
	"webplayer/types"
)

// ErrSuperseded is returned by Load when a newer Load started before the response arrived
var ErrSuperseded = errors.New("listing request superseded")

// ListingSource fetches directory listings; *client.API implements it
type ListingSource interface {
	List(ctx context.Context, path string) (types.DirectoryListing, error)
}

// LoaderState is what the folder view renders
type LoaderState struct {
	// Path is the most recently requested path
	Path    string
	Listing types.DirectoryListing
	Loading bool
	// Loaded is set once any listing has been applied
	Loaded bool
	// Err is the failure of the most recent request; Listing keeps the last good one
	Err error
}

// Empty reports a successfully loaded folder with nothing in it, as opposed to a load error
func (s LoaderState) Empty() bool {
	return s.Loaded && s.Err == nil && s.Listing.IsEmpty()
}

// Loader fetches listings for navigation. Only the most recent request is applied.
type Loader struct {
	source     ListingSource
	controller *Controller

	seq     atomic.Uint64
	applyMu sync.Mutex

	mu    sync.RWMutex
	state LoaderState
}

// NewLoader creates a loader feeding controller
func NewLoader(source ListingSource, controller *Controller) *Loader {
	return &Loader{source: source, controller: controller}
}

// Load stops playback and navigates to path
func (l *Loader) Load(ctx context.Context, path string) error {
	seq := l.seq.Add(1)

	l.mu.Lock()
	l.state.Path = path
	l.state.Loading = true
	l.mu.Unlock()

	l.controller.Stop()

	listing, err := l.source.List(ctx, path)

	l.applyMu.Lock()
	defer l.applyMu.Unlock()

	if l.seq.Load() != seq {
		logger.Debug("discarding stale listing", logger.String("path", path))
		return ErrSuperseded
	}

	l.mu.Lock()
	l.state.Loading = false
	if err != nil {
		l.state.Err = err
		l.mu.Unlock()
		logger.Warn("failed to load listing", logger.String("path", path), logger.ErrorField(err))
		return err
	}
	l.state.Err = nil
	l.state.Loaded = true
	l.state.Listing = listing
	l.mu.Unlock()

	l.controller.SetListing(listing)
	return nil
}

// State returns the current view state
func (l *Loader) State() LoaderState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}
