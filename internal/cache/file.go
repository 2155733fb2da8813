package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smokyabdulrahman/prayer-companion/internal/geo"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

const (
	timingsFile = "timings_%s.json" // keyed by hash
	geoFile     = "geolocation.json"
	geoTTL      = 24 * time.Hour
)

// FileStore keeps schedules and the last detected location as JSON files.
type FileStore struct {
	dir string
	now func() time.Time
}

type timingsEntry struct {
	Key string     `json:"key"`
	Day prayer.Day `json:"day"`
}

type geoEntry struct {
	Location geo.Location `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}

// NewFileStore creates a FileStore rooted at dir.
// If dir is empty, it defaults to ~/.cache/prayer-companion/.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".cache", "prayer-companion")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) timingsPath(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, fmt.Sprintf(timingsFile, fmt.Sprintf("%x", h[:8])))
}

// Load reads the schedule stored for q. A missing file is not an error.
func (s *FileStore) Load(_ context.Context, q prayer.Query) (prayer.Day, bool, error) {
	key := q.Key()
	data, err := os.ReadFile(s.timingsPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prayer.Day{}, false, nil
		}
		return prayer.Day{}, false, err
	}

	var entry timingsEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return prayer.Day{}, false, fmt.Errorf("corrupt cache file: %w", err)
	}
	// A hash collision or an old file layout must not leak another query's data.
	if entry.Key != key {
		return prayer.Day{}, false, nil
	}
	timings, err := prayer.NewDailyTimings(entry.Day.Timings)
	if err != nil {
		return prayer.Day{}, false, fmt.Errorf("corrupt cache file: %w", err)
	}
	entry.Day.Timings = timings
	return entry.Day, true, nil
}

// Save writes the schedule for q.
func (s *FileStore) Save(_ context.Context, q prayer.Query, day prayer.Day) error {
	key := q.Key()
	data, err := json.Marshal(timingsEntry{Key: key, Day: day})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	if err := os.WriteFile(s.timingsPath(key), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// LoadGeo returns the cached location, or nil when it is missing or older
// than 24 hours.
func (s *FileStore) LoadGeo() *geo.Location {
	data, err := os.ReadFile(filepath.Join(s.dir, geoFile))
	if err != nil {
		return nil
	}

	var entry geoEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}

	if s.now().Sub(entry.CachedAt) > geoTTL {
		return nil
	}

	return &entry.Location
}

// SaveGeo writes a detected location.
func (s *FileStore) SaveGeo(loc *geo.Location) error {
	data, err := json.Marshal(geoEntry{Location: *loc, CachedAt: s.now()})
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, geoFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write geo cache: %w", err)
	}
	return nil
}
