package player

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"webplayer/logger"
	"webplayer/types"
)

var (
	// ErrAutoplayBlocked is reported by an Output when the platform refuses to start playback
	ErrAutoplayBlocked = errors.New("autoplay blocked")
	// ErrIndexOutOfRange is returned by Select for an index outside the playlist
	ErrIndexOutOfRange = errors.New("playlist index out of range")
	// ErrInvalidMode is returned for an unknown playback mode
	ErrInvalidMode = errors.New("invalid playback mode")
)

// Mode governs what happens when a track ends
type Mode string

const (
	ModeNone       Mode = "none"
	ModeSequential Mode = "sequential"
	ModeShuffle    Mode = "shuffle"
	ModeRepeatOne  Mode = "repeatOne"
)

// ParseMode validates s as a playback mode
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNone, ModeSequential, ModeShuffle, ModeRepeatOne:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Status is the playback state
type Status string

const (
	StatusIdle          Status = "idle"
	StatusReady         Status = "ready"
	StatusPlaying       Status = "playing"
	StatusTransitioning Status = "transitioning"
	StatusStopped       Status = "stopped"
)

// Output is the playback primitive, e.g. a media element. The controller never
// holds its lock while calling an Output, so implementations may call back into
// the controller; such calls are applied once the current transition finishes.
type Output interface {
	// Load attaches entry without starting it
	Load(entry types.MediaEntry) error
	// Play starts or resumes the loaded entry
	Play() error
	// Rewind seeks the loaded entry to position zero
	Rewind() error
	// Stop halts and detaches the loaded entry
	Stop()
}

// PlaybackState is a snapshot of the controller
type PlaybackState struct {
	Playlist      []types.MediaEntry `json:"playlist"`
	CurrentIndex  int                `json:"currentIndex"`
	Mode          Mode               `json:"mode"`
	UserInitiated bool               `json:"userInitiated"`
	Status        Status             `json:"status"`
}

// Current returns the selected entry, if any
func (s PlaybackState) Current() (types.MediaEntry, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Playlist) {
		return types.MediaEntry{}, false
	}
	return s.Playlist[s.CurrentIndex], true
}

// Controller owns the playlist, the selected index and the playback mode.
// Transitions run one at a time in call order. State is guarded by mu, which is
// never held across Output calls or listeners.
type Controller struct {
	mu  sync.Mutex
	out Output
	rng *rand.Rand

	playlist      []types.MediaEntry
	index         int
	mode          Mode
	userInitiated bool
	status        Status
	lastPlayErr   error

	onChange func(PlaybackState)
	pending  []PlaybackState

	// ops holds transitions waiting for the goroutine that is running one
	ops     []func()
	running bool
}

// Option configures a Controller
type Option func(*Controller)

// WithRand sets the source used by shuffle
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// WithMode sets the initial mode
func WithMode(m Mode) Option {
	return func(c *Controller) { c.mode = m }
}

// NewController creates an idle controller in sequential mode
func NewController(out Output, opts ...Option) *Controller {
	c := &Controller{
		out:    out,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		index:  -1,
		mode:   ModeSequential,
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnChange sets a callback invoked with a snapshot after each transition
func (c *Controller) SetOnChange(callback func(PlaybackState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = callback
}

// do queues op and, unless a transition is already running, drains the queue on
// the calling goroutine. Calls made from an Output or a listener while a
// transition runs are queued and applied by that goroutine before it returns.
func (c *Controller) do(op func()) {
	c.mu.Lock()
	c.ops = append(c.ops, op)
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true

	for len(c.ops) > 0 {
		next := c.ops[0]
		c.ops = c.ops[1:]
		c.mu.Unlock()

		next()

		c.mu.Lock()
		changes := c.pending
		c.pending = nil
		callback := c.onChange
		c.mu.Unlock()

		if callback != nil {
			for _, state := range changes {
				callback(state)
			}
		}
		c.mu.Lock()
	}
	c.running = false
	c.mu.Unlock()
}

// record must be called with the lock held
func (c *Controller) record() {
	c.pending = append(c.pending, c.snapshot())
}

// setStatus must be called with the lock held
func (c *Controller) setStatus(s Status) {
	c.status = s
	c.record()
}

func (c *Controller) snapshot() PlaybackState {
	return PlaybackState{
		Playlist:      slices.Clone(c.playlist),
		CurrentIndex:  c.index,
		Mode:          c.mode,
		UserInitiated: c.userInitiated,
		Status:        c.status,
	}
}

// SetListing replaces the playlist with the playable files of listing
func (c *Controller) SetListing(listing types.DirectoryListing) {
	c.SetPlaylist(BuildPlaylist(listing))
}

// SetPlaylist detaches current playback and selects the first entry without playing it.
// Autoplay is never started without a user action.
func (c *Controller) SetPlaylist(entries []types.MediaEntry) {
	playlist := slices.Clone(entries)
	c.do(func() {
		c.out.Stop()

		c.mu.Lock()
		c.playlist = playlist
		c.userInitiated = false
		c.lastPlayErr = nil
		if len(c.playlist) == 0 {
			c.index = -1
			c.setStatus(StatusIdle)
			c.mu.Unlock()
			return
		}
		c.index = 0
		first := c.playlist[0]
		c.mu.Unlock()

		if err := c.out.Load(first); err != nil {
			logger.Warn("failed to load first entry",
				logger.String("path", first.Path),
				logger.ErrorField(err))
		}

		c.mu.Lock()
		c.setStatus(StatusReady)
		c.mu.Unlock()
	})
}

// Select starts playback of entry i. It is the user action that enables automatic advances.
func (c *Controller) Select(i int) error {
	c.mu.Lock()
	n := len(c.playlist)
	c.mu.Unlock()
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}

	c.do(func() {
		c.mu.Lock()
		// a queued SetPlaylist may have shrunk the playlist
		if i >= len(c.playlist) {
			c.mu.Unlock()
			return
		}
		c.userInitiated = true
		wasPlaying := c.status == StatusPlaying
		c.index = i
		c.mu.Unlock()

		if wasPlaying {
			c.out.Stop()
		}
		c.play(false)
	})
	return nil
}

// TrackEnded applies the current mode to the end of the playing entry
func (c *Controller) TrackEnded() {
	c.do(func() {
		c.mu.Lock()
		if c.status != StatusPlaying || len(c.playlist) == 0 {
			c.mu.Unlock()
			return
		}
		if !c.userInitiated {
			c.setStatus(StatusStopped)
			c.mu.Unlock()
			return
		}

		rewind := false
		switch c.mode {
		case ModeSequential:
			if c.index+1 >= len(c.playlist) {
				c.setStatus(StatusStopped)
				c.mu.Unlock()
				return
			}
			c.setStatus(StatusTransitioning)
			c.index++
		case ModeShuffle:
			c.setStatus(StatusTransitioning)
			c.index = c.rng.Intn(len(c.playlist))
		case ModeRepeatOne:
			c.setStatus(StatusTransitioning)
			rewind = true
		default:
			c.setStatus(StatusStopped)
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.play(rewind)
	})
}

// play starts the entry at c.index. Start failures are recorded and leave the
// controller stopped at that index. Must be called without the lock.
func (c *Controller) play(rewind bool) {
	c.mu.Lock()
	entry := c.playlist[c.index]
	c.mu.Unlock()

	var err error
	if rewind {
		err = c.out.Rewind()
	} else {
		err = c.out.Load(entry)
	}
	if err == nil {
		err = c.out.Play()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastPlayErr = err
		if errors.Is(err, ErrAutoplayBlocked) {
			logger.Debug("playback blocked by autoplay policy", logger.String("path", entry.Path))
		} else {
			logger.Warn("playback failed to start", logger.String("path", entry.Path), logger.ErrorField(err))
		}
		c.setStatus(StatusStopped)
		return
	}
	c.lastPlayErr = nil
	c.setStatus(StatusPlaying)
}

// SetMode changes the mode used at the next track end. Index and status are untouched.
func (c *Controller) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	c.do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.mode != m {
			c.mode = m
			c.record()
		}
	})
	return nil
}

// Stop halts playback, e.g. before navigating to another directory
func (c *Controller) Stop() {
	c.do(func() {
		c.out.Stop()

		c.mu.Lock()
		defer c.mu.Unlock()
		switch c.status {
		case StatusIdle, StatusStopped:
			return
		}
		c.setStatus(StatusStopped)
	})
}

// State returns a snapshot of the controller
func (c *Controller) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// LastPlayError returns the most recent swallowed start failure, nil after a successful start
func (c *Controller) LastPlayError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPlayErr
}
