package client

import (
	"context"
	"maps"
	"sync"

	"webplayer/logger"
)

// DefaultSettings are used whenever the server cannot be reached
func DefaultSettings() map[string]any {
	return map[string]any{
		"theme":    "boy",
		"mode":     "auto",
		"appTitle": "Web-Player",
		"intro":    "",
	}
}

// SettingsBackend is the part of API the settings object needs
type SettingsBackend interface {
	LoadSettings(ctx context.Context) (map[string]any, error)
	SaveSettings(ctx context.Context, partial map[string]any) (map[string]any, error)
}

// Settings is a client-side cache of the server settings. It is created explicitly
// and passed to whatever needs it.
type Settings struct {
	backend SettingsBackend

	mu     sync.RWMutex
	values map[string]any
}

// NewSettings creates a cache holding the defaults until Load is called
func NewSettings(backend SettingsBackend) *Settings {
	return &Settings{backend: backend, values: DefaultSettings()}
}

// Load refreshes the cache. Any failure leaves the defaults in place and is returned
// for logging only.
func (s *Settings) Load(ctx context.Context) error {
	stored, err := s.backend.LoadSettings(ctx)

	values := DefaultSettings()
	if err == nil {
		maps.Copy(values, stored)
	}

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()

	if err != nil {
		logger.Warn("settings unavailable, using defaults", logger.ErrorField(err))
	}
	return err
}

// Values returns a copy of the cached settings
func (s *Settings) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// String returns the string value of key, or fallback when unset or not a string
func (s *Settings) String(key, fallback string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key].(string); ok {
		return v
	}
	return fallback
}

// AppTitle returns the title shown above listings
func (s *Settings) AppTitle() string { return s.String("appTitle", "Web-Player") }

// Theme returns the selected theme
func (s *Settings) Theme() string { return s.String("theme", "boy") }

// Mode returns the stored colour mode (light, dark or auto)
func (s *Settings) Mode() string { return s.String("mode", "auto") }

// Save applies partial to the cache at once and persists everything except intro.
// The cache keeps the new values even when persisting fails.
func (s *Settings) Save(ctx context.Context, partial map[string]any) error {
	s.mu.Lock()
	maps.Copy(s.values, partial)
	toSave := maps.Clone(s.values)
	s.mu.Unlock()

	delete(toSave, "intro")
	_, err := s.backend.SaveSettings(ctx, toSave)
	return err
}
