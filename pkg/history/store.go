// Package history persists handled messages as JSON lines under the
// configured storage path.
package history

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chatdispatch/pkg/chat"

	"github.com/google/uuid"
)

const fileName = "messages.jsonl"

// Entry is one persisted message.
type Entry struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Sender    string    `json:"sender"`
	Content   any       `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store appends entries to <dir>/messages.jsonl.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open creates dir when missing and returns a store writing into it.
func Open(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("history directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	return &Store{path: filepath.Join(dir, fileName)}, nil
}

// Path returns the history file location.
func (s *Store) Path() string {
	return s.path
}

// Record implements chat.Recorder.
func (s *Store) Record(_ context.Context, entry chat.LogEntry) error {
	id := entry.ID
	if id == "" {
		id = uuid.NewString()
	}

	return s.Append(Entry{
		ID:        id,
		Type:      entry.Type,
		Sender:    entry.Context.Sender(),
		Content:   entry.Context.Content(),
		Timestamp: entry.Context.Timestamp().UTC(),
	})
}

// Append writes entry as one JSON line.
func (s *Store) Append(entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write history entry: %w", err)
	}

	return nil
}

// Load reads every entry. A store with no file yet returns no entries.
func (s *Store) Load() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			return nil, fmt.Errorf("parse history line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	return entries, nil
}
