package visualizer

import (
	"context"
	"image/color"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"webplayer/logger"
	"webplayer/types"
)

// barColor is the client's accent blue
var barColor = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}

// AudioRoute is the audio pipeline the engine taps. Insert is called once with a
// function that wraps the downstream writer; the returned writer must receive the
// decoded PCM from then on.
type AudioRoute interface {
	Insert(wrap func(downstream io.Writer) io.Writer)
}

// Engine runs the render loop while audio is playing and the view is visible and focused
type Engine struct {
	route         AudioRoute
	surface       Surface
	analyzer      *Analyzer
	frameInterval time.Duration

	mu          sync.Mutex
	attached    bool
	audioActive bool
	visible     bool
	focused     bool
	closed      bool
	cancel      context.CancelFunc
	done        chan struct{}

	frames atomic.Int64
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithFrameInterval sets the frame cadence (default 60 fps)
func WithFrameInterval(d time.Duration) EngineOption {
	return func(e *Engine) { e.frameInterval = d }
}

// WithChannels sets the channel count of the tapped PCM (default stereo)
func WithChannels(n int) EngineOption {
	return func(e *Engine) { e.analyzer = NewAnalyzer(n) }
}

// NewEngine creates an engine drawing on surface. The view starts visible and focused.
func NewEngine(route AudioRoute, surface Surface, opts ...EngineOption) *Engine {
	e := &Engine{
		route:         route,
		surface:       surface,
		analyzer:      NewAnalyzer(2),
		frameInterval: time.Second / 60,
		visible:       true,
		focused:       true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyzer exposes the engine's analyzer
func (e *Engine) Analyzer() *Analyzer {
	return e.analyzer
}

// OnPlay is called when entry starts playing. The tap is attached on the first
// audio entry and kept until Close; video entries never attach.
func (e *Engine) OnPlay(entry types.MediaEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if entry.Kind != types.KindAudio {
		e.audioActive = false
		e.reconcile()
		return
	}
	if !e.attached {
		e.route.Insert(func(downstream io.Writer) io.Writer {
			return NewTap(downstream, e.analyzer)
		})
		e.attached = true
		logger.Debug("visualizer attached", logger.String("path", entry.Path))
	}
	e.audioActive = true
	e.reconcile()
}

// OnStop is called when playback fully stops
func (e *Engine) OnStop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audioActive = false
	e.reconcile()
}

// SetVisible pauses the loop while the view is hidden
func (e *Engine) SetVisible(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = visible
	e.reconcile()
}

// SetFocused pauses the loop while the view is not focused
func (e *Engine) SetFocused(focused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focused = focused
	e.reconcile()
}

// Close stops the loop for good
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.reconcile()
}

// Attached reports whether the tap has been inserted
func (e *Engine) Attached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attached
}

// Running reports whether the render loop is active
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// Frames returns the number of frames drawn so far
func (e *Engine) Frames() int64 {
	return e.frames.Load()
}

// reconcile starts or stops the loop to match the current flags. Must hold the lock.
func (e *Engine) reconcile() {
	want := e.audioActive && e.visible && e.focused && !e.closed
	switch {
	case want && e.cancel == nil:
		e.start()
	case !want && e.cancel != nil:
		e.stop()
	}
}

func (e *Engine) start() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	go e.loop(ctx, done)
}

// stop cancels the loop and waits for its last frame; the loop never takes e.mu
func (e *Engine) stop() {
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	bins := make([]byte, e.analyzer.FrequencyBinCount())
	ticker := time.NewTicker(e.frameInterval)
	defer ticker.Stop()

	for {
		e.renderFrame(bins)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// renderFrame sizes the surface for the pixel ratio and draws one bar per bin
func (e *Engine) renderFrame(bins []byte) {
	cssW, cssH := e.surface.CSSSize()
	dpr := e.surface.DevicePixelRatio()

	e.surface.Resize(int(math.Round(cssW*dpr)), int(math.Round(cssH*dpr)))
	e.surface.SetTransform(dpr)

	n := e.analyzer.ByteFrequencyData(bins)
	e.surface.Clear()
	if n > 0 {
		barW := cssW / float64(n)
		for i, v := range bins[:n] {
			h := float64(v) / 255 * cssH
			e.surface.FillRect(float64(i)*barW, cssH-h, barW-1, h, barColor)
		}
	}
	e.frames.Add(1)
}
