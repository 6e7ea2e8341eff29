package history

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/afero"
)

// Entry records one previously opened document. Remote documents are keyed
// by DataKey instead of Path.
type Entry struct {
	Path      string    `json:"path,omitempty"`
	DataKey   string    `json:"data_key,omitempty"`
	PageIndex int       `json:"page_index"`
	PageCount int       `json:"page_count"`
	FitMode   int       `json:"fit_mode"`
	ZoomScale int       `json:"zoom_scale"`
	PageMode  int       `json:"page_mode"`
	OpenedAt  time.Time `json:"opened_at"`
}

func (e Entry) key() string {
	if e.DataKey != "" {
		return e.DataKey
	}
	return e.Path
}

// Store is the bounded recent-files list, most recent first.
type Store struct {
	fs      afero.Fs
	path    string
	max     int
	entries []Entry
}

// NewStore loads (or initializes) the history file at path.
func NewStore(fs afero.Fs, path string, maxEntries int) *Store {
	if maxEntries < 1 {
		maxEntries = defaultMaxRecentFiles
	}
	s := &Store{fs: fs, path: path, max: maxEntries}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		log.Printf("Warning: invalid history file %s, starting empty: %v", s.path, err)
		s.entries = nil
		return
	}
	if len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
}

// Save writes the list back to disk.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	return afero.WriteFile(s.fs, s.path, data, 0644)
}

// Lookup returns the stored entry for a path or remote data key.
func (s *Store) Lookup(key string) (Entry, bool) {
	for _, e := range s.entries {
		if e.key() == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Commit inserts or updates an entry, moves it to the front, and evicts the
// oldest entries past the bound.
func (s *Store) Commit(entry Entry) {
	entry.OpenedAt = time.Now()
	key := entry.key()
	for i, e := range s.entries {
		if e.key() == key {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.entries = append([]Entry{entry}, s.entries...)
	if len(s.entries) > s.max {
		s.entries = s.entries[:s.max]
	}
}

// Entries returns the list, most recent first.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return len(s.entries)
}
