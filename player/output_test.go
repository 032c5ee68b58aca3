package player

import (
	"sync"
	"time"

	"webplayer/types"
)

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

// fakeOutput records calls and can refuse to play
type fakeOutput struct {
	mu      sync.Mutex
	loaded  []string
	plays   int
	rewinds int
	stops   int
	playErr error
}

func (o *fakeOutput) Load(entry types.MediaEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = append(o.loaded, entry.Path)
	return nil
}

func (o *fakeOutput) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playErr != nil {
		return o.playErr
	}
	o.plays++
	return nil
}

func (o *fakeOutput) Rewind() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rewinds++
	return nil
}

func (o *fakeOutput) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stops++
}

func (o *fakeOutput) setPlayErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.playErr = err
}

func entries(names ...string) []types.MediaEntry {
	out := make([]types.MediaEntry, len(names))
	for i, n := range names {
		out[i] = types.MediaEntry{Path: n, Name: n, Kind: types.KindOf(n)}
	}
	return out
}

// callbackOutput calls back into its controller from Stop and Play
type callbackOutput struct {
	fakeOutput
	c *Controller

	// endsOn makes Play report an immediate end for that path, like a zero-length track
	endsOn  string
	current string
	seen    []PlaybackState
}

func (o *callbackOutput) Load(entry types.MediaEntry) error {
	o.current = entry.Path
	return o.fakeOutput.Load(entry)
}

func (o *callbackOutput) Play() error {
	if err := o.fakeOutput.Play(); err != nil {
		return err
	}
	if o.current == o.endsOn {
		o.endsOn = ""
		o.c.TrackEnded()
	}
	return nil
}

func (o *callbackOutput) Stop() {
	o.fakeOutput.Stop()
	o.seen = append(o.seen, o.c.State())
}
