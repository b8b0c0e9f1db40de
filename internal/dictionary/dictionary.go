// Package dictionary holds the user's personal word list.
//
// Words are matched case-sensitively after NFC normalisation. The list is
// backed by a plain text file with one word per line; additions are appended
// to the file as they happen so a crash never loses an accepted word.
package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// ErrPersistence wraps failures to write the backing file. The in-memory
	// state is still updated when it is returned.
	ErrPersistence = errors.New("dictionary persistence failed")
	// ErrInvalidWord is returned for empty words or words containing spaces.
	ErrInvalidWord = errors.New("invalid dictionary word")
)

// Store is a concurrency-safe set of accepted words.
type Store struct {
	mu    sync.RWMutex
	path  string
	words map[string]struct{}
}

// New returns an empty store backed by path. An empty path keeps the
// dictionary in memory only.
func New(path string) *Store {
	return &Store{path: path, words: make(map[string]struct{})}
}

// DefaultPath returns the per-user dictionary location.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = dir
	}
	return filepath.Join(base, "spelgud", "dictionary.txt"), nil
}

// Key returns the normalised form used for lookups.
func Key(word string) string {
	return norm.NFC.String(word)
}

// Path returns the backing file path, or "" for a memory-only store.
func (s *Store) Path() string {
	return s.path
}

// Contains reports whether word has been accepted.
func (s *Store) Contains(word string) bool {
	key := Key(word)
	s.mu.RLock()
	_, ok := s.words[key]
	s.mu.RUnlock()
	return ok
}

// Add inserts word. It reports whether the word was new. Adding a word that
// is already present is a no-op and touches no file.
func (s *Store) Add(word string) (bool, error) {
	if word == "" || strings.IndexFunc(word, unicode.IsSpace) >= 0 {
		return false, fmt.Errorf("%w: %q", ErrInvalidWord, word)
	}
	key := Key(word)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.words[key]; ok {
		return false, nil
	}
	s.words[key] = struct{}{}
	if s.path == "" {
		return true, nil
	}
	if err := s.appendLocked(key); err != nil {
		return true, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return true, nil
}

func (s *Store) appendLocked(word string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(word + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load merges the words of the backing file into the store. A missing file
// is not an error.
func (s *Store) Load() error {
	_, err := s.merge()
	return err
}

// merge reads the backing file and returns how many words were new.
func (s *Store) merge() (int, error) {
	if s.path == "" {
		return 0, nil
	}
	words, err := readWords(s.path)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, w := range words {
		if _, ok := s.words[w]; ok {
			continue
		}
		s.words[w] = struct{}{}
		added++
	}
	return added, nil
}

func readWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, Key(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return words, nil
}

// Persist rewrites the backing file with the current word set, sorted.
func (s *Store) Persist() error {
	if s.path == "" {
		return nil
	}
	words := s.Words()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	f, err := os.CreateTemp(filepath.Dir(s.path), ".dictionary-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	w := bufio.NewWriter(f)
	for _, word := range words {
		if _, err := w.WriteString(word + "\n"); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	// Atomic replace
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Len reports the number of words.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// Words returns a sorted copy of the word set.
func (s *Store) Words() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	s.mu.RUnlock()
	slices.Sort(out)
	return out
}
