package visualizer

import "webplayer/player"

// Observe maps a controller snapshot onto the engine. Audio that is playing runs
// the loop; a video entry or any stopped, ready or idle state stops it. The
// transitioning state between two entries leaves the loop as it is.
func (e *Engine) Observe(state player.PlaybackState) {
	switch state.Status {
	case player.StatusPlaying:
		if entry, ok := state.Current(); ok {
			e.OnPlay(entry)
			return
		}
		e.OnStop()
	case player.StatusTransitioning:
	default:
		e.OnStop()
	}
}

// Follow makes the engine the controller's change listener
func (e *Engine) Follow(c *player.Controller) {
	c.SetOnChange(e.Observe)
	e.Observe(c.State())
}
