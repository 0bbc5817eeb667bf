// Package settings persists the user's thresholds under a fixed key in the
// user config directory. Load on start, save on change; a missing or corrupt
// file yields the defaults rather than an error the caller has to handle.
package settings

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drivercopilot/platform/internal/offer"
)

const fileName = "drivercopilot-settings.json"

// Store reads and writes the thresholds file.
type Store struct {
	path string
}

// NewStore creates a store rooted at dir; empty dir means the user config
// directory (falling back to the temp dir when that is unavailable).
func NewStore(dir string) *Store {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			slog.Warn("user config dir unavailable", "error", err)
			base = os.TempDir()
		}
		dir = filepath.Join(base, "drivercopilot")
	}
	return &Store{path: filepath.Join(dir, fileName)}
}

// Load returns the persisted thresholds, or the defaults when the file is
// missing or unreadable.
func (s *Store) Load() offer.Thresholds {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read settings", "path", s.path, "error", err)
		}
		return offer.DefaultThresholds()
	}

	var t offer.Thresholds
	if err := json.Unmarshal(data, &t); err != nil {
		slog.Warn("failed to parse settings, using defaults", "path", s.path, "error", err)
		return offer.DefaultThresholds()
	}
	return t
}

// Save writes the thresholds, creating the directory if needed.
func (s *Store) Save(t offer.Thresholds) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
