package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// Settings is the flat key-value object exchanged with the client
type Settings map[string]any

// introKey is injected from the environment and never persisted
const introKey = "intro"

// DefaultSettings returns the values used when no settings file exists
func DefaultSettings() Settings {
	return Settings{
		"theme":    "boy",
		"mode":     "auto",
		"appTitle": "Web-Player",
	}
}

// SettingsStore persists settings to a single JSON file
type SettingsStore interface {
	Load() (Settings, error)
	Update(partial Settings) (Settings, error)
}

type fileSettingsStore struct {
	mu    sync.Mutex
	path  string
	intro string
}

// NewSettingsStore creates a store backed by path. intro is exposed read-only under "intro".
func NewSettingsStore(path, intro string) SettingsStore {
	return &fileSettingsStore{path: path, intro: intro}
}

// Load returns defaults merged with the stored values
func (s *fileSettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.read()
	if err != nil {
		return nil, err
	}
	return s.withIntro(settings), nil
}

// Update merges partial into the stored settings and writes them back
func (s *fileSettingsStore) Update(partial Settings) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.read()
	if err != nil {
		return nil, err
	}
	maps.Copy(settings, partial)
	delete(settings, introKey)

	if err := s.write(settings); err != nil {
		return nil, err
	}
	return s.withIntro(settings), nil
}

func (s *fileSettingsStore) read() (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var stored Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	maps.Copy(settings, stored)
	delete(settings, introKey)
	return settings, nil
}

// write replaces the file atomically so readers never see a partial document
func (s *fileSettingsStore) write(settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, settingsTempPrefix+"*.json")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *fileSettingsStore) withIntro(settings Settings) Settings {
	out := maps.Clone(settings)
	out[introKey] = s.intro
	return out
}
