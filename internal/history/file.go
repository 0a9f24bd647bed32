package history

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wonny/pricecast/internal/contracts"
)

// FileStore keeps the whole log in one JSON document {"history": [...]}
// ⭐ SSOT: 파일 기반 가격 이력은 여기서만 읽고 씀
type FileStore struct {
	path string
	mu   sync.RWMutex // scopes every read-modify-persist cycle
	log  zerolog.Logger
}

// NewFileStore creates a store backed by the JSON file at path
func NewFileStore(path string, log zerolog.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.With().Str("component", "history.file").Str("path", path).Logger(),
	}
}

// Backend implements contracts.HistoryStore
func (s *FileStore) Backend() string { return "file" }

// Path returns the durable file location
func (s *FileStore) Path() string { return s.path }

// Close implements Store
func (s *FileStore) Close() error { return nil }

// ReadAll returns the full log; a missing or corrupt file reads as empty
func (s *FileStore) ReadAll(ctx context.Context) []contracts.PriceObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		s.log.Warn().Err(err).Msg("history unreadable, treating as empty")
		return []contracts.PriceObservation{}
	}
	return entries
}

// Append adds batch after the existing entries and persists the log
func (s *FileStore) Append(ctx context.Context, batch []contracts.PriceObservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	entries = append(entries, batch...)
	return s.save(entries)
}

// Upsert replaces the price of the first matching slot or appends entry
func (s *FileStore) Upsert(ctx context.Context, entry contracts.PriceObservation) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return false, fmt.Errorf("load history: %w", err)
	}

	inserted := true
	for i := range entries {
		if entries[i].SameSlot(entry) {
			entries[i].Price = entry.Price
			inserted = false
			break
		}
	}
	if inserted {
		entries = append(entries, entry)
	}

	if err := s.save(entries); err != nil {
		return false, err
	}
	return inserted, nil
}

// Compact keeps the newest maxSize entries by date.
// The sort is stable, so among equal dates the later-written entries survive.
func (s *FileStore) Compact(ctx context.Context, maxSize int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return 0, fmt.Errorf("load history: %w", err)
	}

	if len(entries) <= maxSize {
		return 0, nil
	}

	slices.SortStableFunc(entries, func(a, b contracts.PriceObservation) int {
		return cmp.Compare(a.Date, b.Date)
	})
	removed := len(entries) - maxSize
	kept := entries[removed:]

	if err := s.save(kept); err != nil {
		return 0, err
	}

	s.log.Info().Int("removed", removed).Int("kept", len(kept)).Msg("history compacted")
	return removed, nil
}

// Exists reports whether the durable file is present
func (s *FileStore) Exists(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat history file: %w", err)
}

// Seed writes a fresh file containing exactly batch
func (s *FileStore) Seed(ctx context.Context, batch []contracts.PriceObservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(batch)
}

// HasDate reports whether any entry is dated date
func (s *FileStore) HasDate(ctx context.Context, date string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		s.log.Warn().Err(err).Msg("history unreadable, treating as empty")
		return false, nil
	}

	for _, e := range entries {
		if e.Date == date {
			return true, nil
		}
	}
	return false, nil
}

// Reset deletes the durable file
func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove history file: %w", err)
	}
	return nil
}

// load reads the file. A missing file or undecodable JSON is an empty log
// (the next write replaces it); any other I/O failure is returned so a
// mutation never overwrites history it could not read.
func (s *FileStore) load() ([]contracts.PriceObservation, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []contracts.PriceObservation{}, nil
		}
		return nil, err
	}

	var doc contracts.HistoryFile
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn().Err(err).Msg("history file is corrupt, treating as empty")
		return []contracts.PriceObservation{}, nil
	}

	if doc.History == nil {
		return []contracts.PriceObservation{}, nil
	}
	return doc.History, nil
}

// save replaces the file atomically (temp file + rename)
func (s *FileStore) save(entries []contracts.PriceObservation) error {
	if entries == nil {
		entries = []contracts.PriceObservation{}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	data, err := json.MarshalIndent(contracts.HistoryFile{History: entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".price_history-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace history file: %w", err)
	}

	return nil
}
