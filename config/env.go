package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the process-wide server configuration
type Config struct {
	Port         int
	MediaRoot    string // absolute, cleaned; immutable after startup
	SettingsPath string
	CORSOrigins  []string
	GinMode      string
	IntroText    string

	// Background population job
	DriveFolderID string
	SyncInterval  time.Duration
	SyncWorkers   int
	WatchLibrary  bool

	Log LogConfig
}

// LogConfig configures the zap logger and lumberjack rotation
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load reads configuration from a .env file (if any) and the environment.
// godotenv.Load never overrides variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	corsOrigins := getEnv("CORS_ORIGINS", "*")

	return &Config{
		Port:          getEnvInt("PORT", 8080),
		MediaRoot:     GetMediaRoot(),
		SettingsPath:  getEnv("SETTINGS_PATH", "config.json"),
		CORSOrigins:   splitList(corsOrigins),
		GinMode:       getEnv("GIN_MODE", "release"),
		IntroText:     os.Getenv("INTRO_TEXT"),
		DriveFolderID: os.Getenv("DRIVE_FOLDER_ID"),
		SyncInterval:  getEnvDuration("SYNC_INTERVAL", 10*time.Minute),
		SyncWorkers:   getEnvInt("SYNC_WORKERS", 1),
		WatchLibrary:  getEnvBool("WATCH_LIBRARY", true),
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
			Compress:   getEnvBool("LOG_COMPRESS", false),
		},
	}
}

// GetMediaRoot returns the absolute media root from MEDIA_ROOT, defaulting to ./media
func GetMediaRoot() string {
	root := getEnv("MEDIA_ROOT", "media")
	return AbsPath(root)
}

// AbsPath makes p absolute and clean, falling back to the cleaned input
func AbsPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
