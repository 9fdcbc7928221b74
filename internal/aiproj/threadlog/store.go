// Package threadlog keeps a local JSON log of the threads created by agent
// runs, so their history can be fetched later without copying IDs around.
package threadlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ThreadIDPrefix is the prefix of provider thread IDs
const ThreadIDPrefix = "thread_"

// ErrNoRecords is returned when the log holds no matching record
var ErrNoRecords = errors.New("no threads recorded")

// AmbiguousIDError is returned when multiple records match a prefix
type AmbiguousIDError struct {
	Prefix  string
	Matches []Record
}

func (e *AmbiguousIDError) Error() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Ambiguous record ID %q. Multiple matches found:", e.Prefix))
	for _, match := range e.Matches {
		lines = append(lines, fmt.Sprintf("- %s (%s, %s, %s)",
			match.GetShortID(),
			match.Config,
			match.ThreadID,
			match.CreatedAt.Format("2006-01-02")))
	}
	lines = append(lines, "")
	lines = append(lines, "Please use a longer prefix or run 'aiproj threads'.")
	return strings.Join(lines, "\n")
}

// Store reads and writes records under a directory
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory records are stored in
func (s *Store) Dir() string {
	return s.dir
}

// Save writes a record to disk
func (s *Store) Save(rec *Record) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create thread log directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize thread record: %w", err)
	}

	file := filepath.Join(s.dir, rec.ID+".json")
	if err := os.WriteFile(file, data, 0644); err != nil {
		return fmt.Errorf("failed to write thread record: %w", err)
	}
	return nil
}

// Load reads a record by full ID
func (s *Store) Load(id string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("thread record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to read thread record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse thread record: %w", err)
	}
	return &rec, nil
}

// List returns all records sorted by CreatedAt (newest first).
// A missing directory yields an empty list.
func (s *Store) List() ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read thread log directory: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		rec, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// Skip corrupted records
			continue
		}
		records = append(records, *rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Latest returns the newest record. If config is non-empty only records of
// that configuration are considered.
func (s *Store) Latest(config string) (*Record, error) {
	records, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if config == "" || rec.Config == config {
			return &rec, nil
		}
	}
	return nil, ErrNoRecords
}

// Find returns the record whose ID starts with prefix (minimum 4 characters)
func (s *Store) Find(prefix string) (*Record, error) {
	if len(prefix) < 4 {
		return nil, fmt.Errorf("record ID prefix must be at least 4 characters (got %d)", len(prefix))
	}

	records, err := s.List()
	if err != nil {
		return nil, err
	}

	var matches []Record
	for _, rec := range records {
		if strings.HasPrefix(rec.ID, prefix) {
			matches = append(matches, rec)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("thread record not found: %s\n\nRun 'aiproj threads' to see recorded threads.", prefix)
	case 1:
		return &matches[0], nil
	default:
		return nil, &AmbiguousIDError{Prefix: prefix, Matches: matches}
	}
}

// ResolveThreadID turns a user reference into a provider thread ID.
// Provider IDs are returned unchanged, "latest" picks the newest record of
// config, anything else is treated as a record ID prefix.
func (s *Store) ResolveThreadID(config, ref string) (string, error) {
	switch {
	case ref == "":
		return "", errors.New("thread reference is required")
	case strings.HasPrefix(ref, ThreadIDPrefix):
		return ref, nil
	case ref == "latest":
		rec, err := s.Latest(config)
		if err != nil {
			return "", err
		}
		return rec.ThreadID, nil
	default:
		rec, err := s.Find(ref)
		if err != nil {
			return "", err
		}
		return rec.ThreadID, nil
	}
}
