// Package settings persists the learner's display preferences.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/pai-tutor/internal/platform/cache"
)

// Settings is the whole persisted record.
type Settings struct {
	DarkMode bool `json:"dark_mode"`
}

// Default returns the settings used when nothing has been saved.
func Default() Settings {
	return Settings{DarkMode: false}
}

// Store loads and saves Settings. Load never fails for absent or unreadable
// data; it returns Default instead.
type Store interface {
	Load(ctx context.Context) Settings
	Save(ctx context.Context, s Settings) error
}

// FileStore keeps settings in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) Settings {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("reading settings failed, using defaults", "path", f.path, "error", err)
		}
		return Default()
	}

	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("malformed settings file, using defaults", "path", f.path, "error", err)
		return Default()
	}
	return s
}

// Save rewrites the whole file. The new content is written to a temporary
// file in the same directory and renamed over the old one.
func (f *FileStore) Save(_ context.Context, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing settings: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}

// RedisStore keeps one profile's settings in a Redis hash so several
// processes share them.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore returns a store for profile on client.
func NewRedisStore(client redis.Cmdable, profile string) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, key: cache.Key("settings", profile)}
}

// Key returns the hash key the store reads and writes.
func (r *RedisStore) Key() string { return r.key }

func (r *RedisStore) Load(ctx context.Context) Settings {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		slog.Warn("reading settings from cache failed, using defaults", "key", r.key, "error", err)
		return Default()
	}

	s := Default()
	if v, ok := fields["dark_mode"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("malformed dark_mode in cache, using defaults", "key", r.key, "value", v)
			return Default()
		}
		s.DarkMode = b
	}
	return s
}

func (r *RedisStore) Save(ctx context.Context, s Settings) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key)
	pipe.HSet(ctx, r.key, "dark_mode", strconv.FormatBool(s.DarkMode))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}
