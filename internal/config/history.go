package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// ErrHistoryCorrupted indicates the history file exists but contains invalid data.
// Callers should abort unless the user explicitly forces a reset.
var ErrHistoryCorrupted = errors.New("run history file corrupted")

// HistoryStoreVersion is the current schema version for the history file.
const HistoryStoreVersion = 1

// DefaultHistoryLimit is the number of runs kept when a store has no explicit limit.
const DefaultHistoryLimit = 50

// RunRecord summarizes one finished batch run, including its retries.
type RunRecord struct {
	RunID      string          `json:"run_id"`
	Kind       string          `json:"kind"`
	Input      string          `json:"input"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Retried    int             `json:"retried"`
	Failures   []FailureRecord `json:"failures,omitempty"`
}

// FailureRecord is one task that was still failed when the run ended.
type FailureRecord struct {
	TaskID  string `json:"task_id"`
	Label   string `json:"label"`
	Error   string `json:"error"`
	Attempt int    `json:"attempt"`

	// Class is the backend error class; empty for tasks that were never invoked.
	Class     string `json:"class,omitempty"`
	Permanent bool   `json:"permanent,omitempty"`
}

// historyStoreData is the serialized form of the history store.
type historyStoreData struct {
	Version int          `json:"version"`
	Runs    []*RunRecord `json:"runs"`
}

// HistoryStore keeps recent run summaries in a JSON file shared between processes.
type HistoryStore struct {
	mu       sync.RWMutex
	filePath string
	limit    int
	runs     []*RunRecord
}

// NewHistoryStore creates a store backed by filePath.
// If filePath is empty, it defaults to <config dir>/history.json.
func NewHistoryStore(filePath string) (*HistoryStore, error) {
	if filePath == "" {
		p, err := GetHistoryPath()
		if err != nil {
			return nil, fmt.Errorf("determining history path: %w", err)
		}
		filePath = p
	}

	return &HistoryStore{
		filePath: filePath,
		limit:    DefaultHistoryLimit,
	}, nil
}

// WithLimit sets how many runs Append keeps.
func (s *HistoryStore) WithLimit(limit int) *HistoryStore {
	if limit > 0 {
		s.limit = limit
	}
	return s
}

// lock acquires the cross-process advisory lock guarding the file.
func (s *HistoryStore) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o750); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	fl := flock.New(s.filePath + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking %s: %w", fl.Path(), err)
	}
	return fl, nil
}

// Load reads the history file. A missing file yields an empty store.
// A corrupted file yields ErrHistoryCorrupted.
func (s *HistoryStore) Load() error {
	fl, err := s.lock()
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *HistoryStore) loadLocked() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.runs = nil
			return nil
		}
		return fmt.Errorf("reading history file: %w", err)
	}

	var stored historyStoreData
	if unmarshalErr := json.Unmarshal(data, &stored); unmarshalErr != nil {
		s.runs = nil
		return fmt.Errorf("%w: %w", ErrHistoryCorrupted, unmarshalErr)
	}
	if stored.Version != HistoryStoreVersion {
		s.runs = nil
		return fmt.Errorf("%w: unsupported version %d (expected %d)",
			ErrHistoryCorrupted, stored.Version, HistoryStoreVersion)
	}

	s.runs = stored.Runs
	return nil
}

func (s *HistoryStore) saveLocked() error {
	data, err := json.MarshalIndent(historyStoreData{
		Version: HistoryStoreVersion,
		Runs:    s.runs,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if writeErr := os.WriteFile(tmpPath, data, 0o600); writeErr != nil {
		return fmt.Errorf("writing history temp file: %w", writeErr)
	}
	if renameErr := os.Rename(tmpPath, s.filePath); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming history temp file: %w", renameErr)
	}
	return nil
}

// Append records a run. It reloads the file under the lock first so concurrent
// processes do not drop each other's records, then keeps the newest runs only.
func (s *HistoryStore) Append(record *RunRecord) error {
	if record == nil {
		return errors.New("run record cannot be nil")
	}
	if record.RunID == "" {
		return errors.New("run ID cannot be empty")
	}

	fl, err := s.lock()
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if loadErr := s.loadLocked(); loadErr != nil {
		return loadErr
	}

	s.runs = append(s.runs, copyRunRecord(record))
	if len(s.runs) > s.limit {
		s.runs = s.runs[len(s.runs)-s.limit:]
	}
	return s.saveLocked()
}

// Clear removes every record from the file.
func (s *HistoryStore) Clear() error {
	fl, err := s.lock()
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = nil
	return s.saveLocked()
}

// Records returns copies of all loaded records, newest first.
func (s *HistoryStore) Records() []*RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, copyRunRecord(r))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Get returns a copy of the record with the given run ID.
func (s *HistoryStore) Get(runID string) (*RunRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.runs {
		if r.RunID == runID {
			return copyRunRecord(r), true
		}
	}
	return nil, false
}

// FilePath returns the file path of the history store.
func (s *HistoryStore) FilePath() string {
	return s.filePath
}

// Count returns the number of loaded records.
func (s *HistoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.runs)
}

// copyRunRecord returns a deep copy of a RunRecord.
func copyRunRecord(r *RunRecord) *RunRecord {
	c := *r
	if r.Failures != nil {
		c.Failures = append([]FailureRecord(nil), r.Failures...)
	}
	return &c
}
