package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// bytesPerMB converts the size cap to bytes.
const bytesPerMB = 1024 * 1024

// cacheFileExtension is the file extension used for cache entries.
const cacheFileExtension = ".json"

// Common cache errors.
var (
	ErrCacheNotFound   = errors.New("cache entry not found")
	ErrCacheExpired    = errors.New("cache entry expired")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrCacheDisabled   = errors.New("cache is disabled")
)

// FileStore provides file-based caching with TTL expiration.
// It stores one JSON file per entry in a flat directory.
// Thread-safe for concurrent access within one process.
type FileStore struct {
	// directory is the cache directory path.
	directory string

	// enabled controls whether caching is active.
	enabled bool

	// ttlSeconds is the default TTL for cache entries.
	ttlSeconds int

	// maxSizeMB is the maximum cache size in megabytes (0 = unlimited).
	maxSizeMB int

	// mu protects concurrent access to file operations.
	mu sync.RWMutex
}

// NewFileStore creates a new file-based cache store.
// The directory will be created if it doesn't exist.
func NewFileStore(directory string, enabled bool, ttlSeconds, maxSizeMB int) (*FileStore, error) {
	if !enabled {
		return &FileStore{enabled: false}, nil
	}

	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	// Create cache directory if it doesn't exist
	if err := os.MkdirAll(directory, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{
		directory:  directory,
		enabled:    true,
		ttlSeconds: ttlSeconds,
		maxSizeMB:  maxSizeMB,
	}, nil
}

// Get retrieves a cache entry by key.
// Returns ErrCacheNotFound if the entry doesn't exist.
// Returns ErrCacheExpired if the entry has expired.
func (s *FileStore) Get(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrCacheDisabled
	}

	if key == "" {
		return nil, ErrInvalidCacheKey
	}

	filePath := s.keyToFilePath(key)
	entry, err := s.read(filePath)
	if err != nil {
		return nil, err
	}

	if entry.IsExpired() {
		s.mu.Lock()
		_ = os.Remove(filePath)
		s.mu.Unlock()
		return nil, ErrCacheExpired
	}

	return entry, nil
}

func (s *FileStore) read(filePath string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry Entry
	if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", unmarshalErr)
	}
	return &entry, nil
}

// Set stores data under key, tagged with the job kind.
// If the entry already exists, it will be overwritten. When the store exceeds its
// size cap afterwards, the oldest entries are evicted.
func (s *FileStore) Set(key, kind string, data json.RawMessage) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := NewEntry(key, kind, data, s.ttlSeconds)
	entryData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	filePath := s.keyToFilePath(key)

	// Write to temporary file first, then rename for atomicity
	tempPath := filePath + ".tmp"
	if writeErr := os.WriteFile(tempPath, entryData, 0600); writeErr != nil {
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}

	if renameErr := os.Rename(tempPath, filePath); renameErr != nil {
		_ = os.Remove(tempPath) // Clean up temp file on error
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}

	return s.evictLocked(filePath)
}

// evictLocked removes the least recently written entries until the store fits its
// size cap. keep is never evicted. Must be called with mu held.
func (s *FileStore) evictLocked(keep string) error {
	if s.maxSizeMB <= 0 {
		return nil
	}
	limit := int64(s.maxSizeMB) * bytesPerMB

	type file struct {
		path    string
		size    int64
		modTime time.Time
	}

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	var files []file
	var total int64
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != cacheFileExtension {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		files = append(files, file{
			path:    filepath.Join(s.directory, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	if total <= limit {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	for _, f := range files {
		if total <= limit {
			break
		}
		if f.path == keep {
			continue
		}
		if removeErr := os.Remove(f.path); removeErr == nil {
			total -= f.size
		}
	}
	return nil
}

// Delete removes a cache entry by key.
// Returns nil if the entry doesn't exist (idempotent).
func (s *FileStore) Delete(key string) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.keyToFilePath(key)
	err := os.Remove(filePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}

	return nil
}

// Clear removes all cache entries from the store.
func (s *FileStore) Clear() error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Only delete cache files
		if filepath.Ext(entry.Name()) == cacheFileExtension {
			filePath := filepath.Join(s.directory, entry.Name())
			if removeErr := os.Remove(filePath); removeErr != nil {
				return fmt.Errorf("failed to remove cache file %s: %w", entry.Name(), removeErr)
			}
		}
	}

	return nil
}

// CleanupExpired removes all expired cache entries and returns how many it removed.
func (s *FileStore) CleanupExpired() (int, error) {
	if !s.enabled {
		return 0, ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.directory)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != cacheFileExtension {
			continue
		}

		filePath := filepath.Join(s.directory, dirEntry.Name())
		data, readErr := os.ReadFile(filePath)
		if readErr != nil {
			continue // Skip files we can't read
		}

		var entry Entry
		if unmarshalErr := json.Unmarshal(data, &entry); unmarshalErr != nil {
			continue // Skip invalid entries
		}

		if entry.IsExpired() {
			if removeErr := os.Remove(filePath); removeErr == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// Stats summarizes the store contents.
type Stats struct {
	Entries   int
	Expired   int
	SizeBytes int64
	ByKind    map[string]int

	// OldestAge is the age of the oldest live entry, NextExpiry the time until the
	// first live entry expires. Both are zero without live entries.
	OldestAge  time.Duration
	NextExpiry time.Duration
}

// Stats scans every entry. Unreadable files count toward size only.
func (s *FileStore) Stats() (Stats, error) {
	if !s.enabled {
		return Stats{}, ErrCacheDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache directory: %w", err)
	}

	stats := Stats{ByKind: make(map[string]int)}
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || filepath.Ext(dirEntry.Name()) != cacheFileExtension {
			continue
		}
		if info, infoErr := dirEntry.Info(); infoErr == nil {
			stats.SizeBytes += info.Size()
		}

		data, readErr := os.ReadFile(filepath.Join(s.directory, dirEntry.Name()))
		if readErr != nil {
			continue
		}
		var entry Entry
		if json.Unmarshal(data, &entry) != nil {
			continue
		}
		stats.Entries++
		stats.ByKind[entry.Kind]++
		if entry.IsExpired() {
			stats.Expired++
			continue
		}
		stats.OldestAge = max(stats.OldestAge, entry.Age())
		if left := entry.TimeUntilExpiration(); stats.NextExpiry == 0 || left < stats.NextExpiry {
			stats.NextExpiry = left
		}
	}
	return stats, nil
}

// GetJSON decodes the entry stored under key into a T.
// The boolean is false on a miss (absent, expired or disabled).
func GetJSON[T any](s *FileStore, key string) (T, bool, error) {
	var zero T
	entry, err := s.Get(key)
	if err != nil {
		if errors.Is(err, ErrCacheNotFound) || errors.Is(err, ErrCacheExpired) || errors.Is(err, ErrCacheDisabled) {
			return zero, false, nil
		}
		return zero, false, err
	}

	var v T
	if err := json.Unmarshal(entry.Data, &v); err != nil {
		return zero, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return v, true, nil
}

// SetJSON encodes v and stores it under key. A disabled store is a no-op.
func SetJSON[T any](s *FileStore, key, kind string, v T) error {
	if !s.enabled {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	return s.Set(key, kind, data)
}

// IsEnabled returns true if caching is enabled.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// GetDirectory returns the cache directory path.
func (s *FileStore) GetDirectory() string {
	return s.directory
}

// GetTTL returns the default TTL in seconds.
func (s *FileStore) GetTTL() int {
	return s.ttlSeconds
}

// keyToFilePath converts a cache key to a file path.
// The key is sanitized to ensure filesystem safety.
func (s *FileStore) keyToFilePath(key string) string {
	// Sanitize key for filesystem safety
	safeKey := strings.ReplaceAll(key, "/", "_")
	safeKey = strings.ReplaceAll(safeKey, "\\", "_")
	safeKey = strings.ReplaceAll(safeKey, ":", "_")
	return filepath.Join(s.directory, safeKey+cacheFileExtension)
}
