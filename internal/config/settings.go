package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvOptions      = "BARCODE_MCP_OPTIONS"
	EnvLogLevel     = "BARCODE_MCP_LOG_LEVEL"
	EnvSurfaces     = "BARCODE_MCP_SURFACES"
	EnvBadgeClearMs = "BARCODE_MCP_BADGE_CLEAR_MS"
	EnvQueueDepth   = "BARCODE_MCP_QUEUE_DEPTH"
	EnvCacheSize    = "BARCODE_MCP_CACHE_SIZE"
	EnvFetchTimeout = "BARCODE_MCP_FETCH_TIMEOUT_MS"
	EnvAllowFiles   = "BARCODE_MCP_ALLOW_FILES"
)

// Surfaces selects where open and copy requests go.
type Surfaces string

const (
	// SurfacesNotify sends requests to the connected client as notifications.
	SurfacesNotify Surfaces = "notify"
	// SurfacesLocal opens URLs and writes the clipboard on this machine.
	SurfacesLocal Surfaces = "local"
)

// Settings is the process configuration.
type Settings struct {
	OptionsPath  string
	LogLevel     slog.Level
	Surfaces     Surfaces
	BadgeClear   time.Duration
	QueueDepth   int
	CacheSize    int
	FetchTimeout time.Duration // zero means no timeout
	AllowFiles   bool          // read file:// URLs and bare paths from disk
}

// DefaultSettings returns Settings populated with standard defaults.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:   slog.LevelInfo,
		Surfaces:   SurfacesNotify,
		BadgeClear: 2500 * time.Millisecond,
		QueueDepth: 64,
		CacheSize:  32,
	}
}

// FromEnv loads a .env file if present and reads Settings from the
// environment.
func FromEnv() (Settings, error) {
	_ = godotenv.Load()
	return LoadSettings(os.Getenv)
}

// LoadSettings reads Settings through getenv. Empty variables keep their
// defaults; malformed ones are reported.
func LoadSettings(getenv func(string) string) (Settings, error) {
	s := DefaultSettings()
	s.OptionsPath = strings.TrimSpace(getenv(EnvOptions))

	if raw := strings.TrimSpace(getenv(EnvLogLevel)); raw != "" {
		if err := s.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return s, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}

	if raw := strings.TrimSpace(getenv(EnvSurfaces)); raw != "" {
		switch Surfaces(strings.ToLower(raw)) {
		case SurfacesNotify:
			s.Surfaces = SurfacesNotify
		case SurfacesLocal:
			s.Surfaces = SurfacesLocal
		default:
			return s, fmt.Errorf("%s: unknown surfaces %q", EnvSurfaces, raw)
		}
	}

	var err error
	if s.BadgeClear, err = millis(getenv, EnvBadgeClearMs, s.BadgeClear); err != nil {
		return s, err
	}
	if s.FetchTimeout, err = millis(getenv, EnvFetchTimeout, s.FetchTimeout); err != nil {
		return s, err
	}
	if raw := strings.TrimSpace(getenv(EnvAllowFiles)); raw != "" {
		if s.AllowFiles, err = strconv.ParseBool(raw); err != nil {
			return s, fmt.Errorf("%s: expected a boolean, got %q", EnvAllowFiles, raw)
		}
	}
	if s.QueueDepth, err = positiveInt(getenv, EnvQueueDepth, s.QueueDepth); err != nil {
		return s, err
	}
	if s.CacheSize, err = positiveInt(getenv, EnvCacheSize, s.CacheSize); err != nil {
		return s, err
	}
	return s, nil
}

func millis(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def, fmt.Errorf("%s: expected non-negative milliseconds, got %q", key, raw)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func positiveInt(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def, fmt.Errorf("%s: expected a positive integer, got %q", key, raw)
	}
	return n, nil
}
