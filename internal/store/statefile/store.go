package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store reads and writes the shared state document at a fixed path. Writes
// go to a temp file and replace the target atomically, so the agent CLI (or
// our own watcher) never observes a partially written file.
type Store struct {
	path string
	log  zerolog.Logger

	mu        sync.Mutex
	lastWrite time.Time
}

// NewStore creates a store for the document at path.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path: path,
		log:  log.With().Str("component", "statefile").Logger(),
	}
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// Dir returns the directory containing the document.
func (s *Store) Dir() string { return filepath.Dir(s.path) }

// LastWrite returns when this process last wrote the document. The watcher
// uses it to suppress change events triggered by our own writes.
func (s *Store) LastWrite() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWrite
}

// Read loads the document from disk. A missing or unparseable file is
// reported as absent (ok=false), never as an error: the file may not exist
// yet, or the other process may be mid-write.
func (s *Store) Read() (Document, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug().Err(err).Str("path", s.path).Msg("read state file")
		}
		return Document{}, false
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("state file is not valid JSON, treating as absent")
		return Document{}, false
	}
	return doc, true
}

// Write persists the document atomically, stamping the current schema
// version and timestamp. The containing directory is created if absent.
func (s *Store) Write(doc Document) error {
	doc.Version = Version
	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("statefile: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("statefile: create dir: %w", err)
	}

	// Record before the rename lands so a fast watcher event still falls
	// inside the suppression window.
	s.mu.Lock()
	s.lastWrite = time.Now()
	s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("statefile: write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("statefile: replace %s: %w", s.path, err)
	}
	return nil
}
