// Package docstore keeps the text of open documents keyed by URI.
package docstore

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnknownDocument is returned when an operation names a document that is
// not open.
var ErrUnknownDocument = errors.New("unknown document")

// Snapshot is a consistent copy of a document's state.
type Snapshot struct {
	ID   string
	Text string
	// Version is assigned by the store and grows by one on every mutation.
	Version int
	// ClientVersion is the last version number reported by the editor.
	ClientVersion int
}

type document struct {
	text          string
	version       int
	clientVersion int
}

// Store maps document ids to their latest text.
type Store struct {
	mu   sync.RWMutex
	docs map[string]*document
	// versions survive Close so a reopened document never reuses a version.
	versions map[string]int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		docs:     make(map[string]*document),
		versions: make(map[string]int),
	}
}

// Open registers a document and returns its store version. Opening an
// already open document replaces its text.
func (s *Store) Open(id, text string, clientVersion int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.versions[id] + 1
	s.versions[id] = v
	s.docs[id] = &document{text: text, version: v, clientVersion: clientVersion}
	return v
}

// Change replaces the full text of an open document and returns the new
// version.
func (s *Store) Change(id, text string, clientVersion int) (int, error) {
	return s.Update(id, func(string) string { return text }, clientVersion)
}

// Update applies fn to the current text under the write lock. It is used for
// incremental edits that need the previous text.
func (s *Store) Update(id string, fn func(old string) string, clientVersion int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return 0, fmt.Errorf("change %s: %w", id, ErrUnknownDocument)
	}
	doc.text = fn(doc.text)
	doc.version++
	doc.clientVersion = clientVersion
	s.versions[id] = doc.version
	return doc.version, nil
}

// Close forgets a document.
func (s *Store) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("close %s: %w", id, ErrUnknownDocument)
	}
	delete(s.docs, id)
	return nil
}

// Get returns a snapshot of the document.
func (s *Store) Get(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("get %s: %w", id, ErrUnknownDocument)
	}
	return Snapshot{ID: id, Text: doc.text, Version: doc.version, ClientVersion: doc.clientVersion}, nil
}

// Version returns the current store version of an open document.
func (s *Store) Version(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return 0, false
	}
	return doc.version, true
}

// IDs returns the ids of all open documents in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Len reports the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
