// Package local persists day archives as JSON files on the local filesystem and
// keeps a read-through memory cache in front of them.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/archive"
	"github.com/JakeFAU/dawn-archive/internal/metrics"
)

const fileExt = ".json"

// Config captures the parameters for the local archive store.
type Config struct {
	// DataDir is the directory holding one {date}.json file per day.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	// MirrorPrefix is prepended to object paths sent to the mirror.
	MirrorPrefix string `mapstructure:"gcs_prefix" yaml:"gcs_prefix"`
}

// Store implements archive.Store.
type Store struct {
	dir          string
	mirror       archive.Mirror
	mirrorPrefix string
	logger       *zap.Logger

	mu    sync.RWMutex
	cache map[string]archive.DayArchive
}

var _ archive.Store = (*Store)(nil)

// New creates the data directory if needed and verifies it is writable.
// mirror may be nil.
func New(cfg Config, mirror archive.Mirror, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	info, err := os.Stat(cfg.DataDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(cfg.DataDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create data directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat data directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("data directory path %q is not a directory", cfg.DataDir)
	}

	probe := filepath.Join(cfg.DataDir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("data directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}

	return &Store{
		dir:          cfg.DataDir,
		mirror:       mirror,
		mirrorPrefix: cfg.MirrorPrefix,
		logger:       logger,
		cache:        make(map[string]archive.DayArchive),
	}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(date string) string {
	return filepath.Join(s.dir, date+fileExt)
}

// Load reads the archive for date from disk, which is authoritative. A hit
// refreshes the memory cache; a missing or corrupt file reports false and
// evicts any stale cache entry.
func (s *Store) Load(_ context.Context, date string) (archive.DayArchive, bool) {
	if _, err := archive.ParseDate(date); err != nil {
		metrics.ObserveStore("load", "miss")
		return archive.DayArchive{}, false
	}

	// #nosec G304 -- path is built from a validated date inside the data directory.
	raw, err := os.ReadFile(s.path(date))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("read archive failed", zap.String("date", date), zap.Error(err))
		}
		s.evict(date)
		metrics.ObserveStore("load", "miss")
		return archive.DayArchive{}, false
	}

	var day archive.DayArchive
	if err := json.Unmarshal(raw, &day); err != nil {
		s.logger.Warn("archive file is corrupt; treating as missing",
			zap.String("date", date),
			zap.Error(err),
		)
		s.evict(date)
		metrics.ObserveStore("load", "corrupt")
		return archive.DayArchive{}, false
	}
	if day.Sections == nil {
		day.Sections = make(map[string][]archive.Article)
	}

	s.mu.Lock()
	s.cache[date] = day
	s.mu.Unlock()
	metrics.ObserveStore("load", "hit")
	return day, true
}

func (s *Store) evict(date string) {
	s.mu.Lock()
	delete(s.cache, date)
	s.mu.Unlock()
}

// Save caches day and writes it to {date}.json. A failed write leaves a cache
// entry that Load ignores, since Load only trusts the file.
func (s *Store) Save(ctx context.Context, day archive.DayArchive) error {
	if _, err := archive.ParseDate(day.Date); err != nil {
		metrics.ObserveStore("save", "error")
		return fmt.Errorf("%w: %w", archive.ErrPersist, err)
	}

	s.mu.Lock()
	s.cache[day.Date] = day
	s.mu.Unlock()

	payload, err := encode(day)
	if err != nil {
		metrics.ObserveStore("save", "error")
		return fmt.Errorf("%w: encode %s: %w", archive.ErrPersist, day.Date, err)
	}
	if err := s.writeAtomic(day.Date, payload); err != nil {
		metrics.ObserveStore("save", "error")
		return fmt.Errorf("%w: %w", archive.ErrPersist, err)
	}
	metrics.ObserveStore("save", "ok")
	s.logger.Info("archive saved", zap.String("path", s.path(day.Date)))

	if s.mirror != nil {
		objectPath := s.mirrorPrefix + day.Date + fileExt
		uri, err := s.mirror.PutObject(ctx, objectPath, "application/json", bytes.NewReader(payload))
		if err != nil {
			metrics.ObserveStore("mirror", "error")
			s.logger.Warn("mirror upload failed", zap.String("date", day.Date), zap.Error(err))
		} else {
			metrics.ObserveStore("mirror", "ok")
			s.logger.Debug("archive mirrored", zap.String("uri", uri))
		}
	}
	return nil
}

func encode(day archive.DayArchive) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(day); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Store) writeAtomic(date string, payload []byte) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+date+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(date)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Exists reports whether a file for date is on disk.
func (s *Store) Exists(date string) bool {
	if _, err := archive.ParseDate(date); err != nil {
		return false
	}
	_, err := os.Stat(s.path(date))
	return err == nil
}

// Prune deletes every stored file whose date key sorts before the given date
// and evicts the matching cache entries. Individual delete failures are logged
// and skipped.
func (s *Store) Prune(ctx context.Context, before string) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		metrics.ObserveStore("prune", "error")
		return 0, fmt.Errorf("list data directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, fmt.Errorf("prune interrupted: %w", ctx.Err())
		}
		key, ok := dateKey(entry)
		if !ok || key >= before {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			metrics.ObserveStore("prune", "error")
			s.logger.Warn("delete stale archive failed",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		removed++
		metrics.ObserveStore("prune", "ok")
	}

	s.mu.Lock()
	for key := range s.cache {
		if key < before {
			delete(s.cache, key)
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Info("pruned stale archives", zap.Int("removed", removed), zap.String("before", before))
	}
	return removed, nil
}

// CachedDates lists the dates held in memory, sorted.
func (s *Store) CachedDates() []string {
	s.mu.RLock()
	dates := make([]string, 0, len(s.cache))
	for key := range s.cache {
		dates = append(dates, key)
	}
	s.mu.RUnlock()
	sort.Strings(dates)
	return dates
}

// StoredDates lists the date keys of every file on disk, sorted.
func (s *Store) StoredDates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list data directory: %w", err)
	}
	dates := make([]string, 0, len(entries))
	for _, entry := range entries {
		if key, ok := dateKey(entry); ok {
			dates = append(dates, key)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// dateKey returns the stem of a visible *.json file.
func dateKey(entry fs.DirEntry) (string, bool) {
	name := entry.Name()
	if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	return strings.TrimSuffix(name, fileExt), true
}
