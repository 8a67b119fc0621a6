// Package docstore stages uploaded source material for orchestration runs.
// The store is an explicit dependency of the transport layer; the engine
// itself always receives document text as a parameter.
package docstore

import (
	"strings"
	"sync"
)

// Separator joins multiple uploaded documents into one combined text.
const Separator = "\n\n---\n\n"

// SourceStatus reports how ingesting one source went.
type SourceStatus string

const (
	SourceStatusLoaded SourceStatus = "loaded"
	SourceStatusError  SourceStatus = "error"
)

// Source describes one ingested piece of material.
type Source struct {
	Name   string       `json:"name"`
	Type   string       `json:"type"`
	Size   int          `json:"size"`
	Status SourceStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// Store holds the currently staged document text. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	texts   []string
	sources []Source
}

func New() *Store {
	return &Store{}
}

// SetText replaces all staged content with a single pasted text.
func (s *Store) SetText(name, sourceType, text string) Source {
	src := Source{
		Name:   name,
		Type:   sourceType,
		Size:   len(text),
		Status: SourceStatusLoaded,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = []string{text}
	s.sources = []Source{src}
	return src
}

// Add appends one more document to the staged content.
func (s *Store) Add(name, sourceType, text string) Source {
	src := Source{
		Name:   name,
		Type:   sourceType,
		Size:   len(text),
		Status: SourceStatusLoaded,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	s.sources = append(s.sources, src)
	return src
}

// Text returns the combined staged text and whether anything is staged.
func (s *Store) Text() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.texts) == 0 {
		return "", false
	}
	return strings.Join(s.texts, Separator), true
}

// Sources lists what has been ingested, in order.
func (s *Store) Sources() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// Count returns the number of staged sources.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// Clear drops all staged content.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = nil
	s.sources = nil
}
