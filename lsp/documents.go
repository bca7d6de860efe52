package lsp

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"unicode/utf16"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Store holds the text of open documents keyed by URI.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[protocol.DocumentURI]string)}
}

// Set records the full text of a document.
func (s *Store) Set(doc protocol.DocumentURI, text string) {
	s.mu.Lock()
	s.docs[doc] = text
	s.mu.Unlock()
}

// Delete forgets a closed document.
func (s *Store) Delete(doc protocol.DocumentURI) {
	s.mu.Lock()
	delete(s.docs, doc)
	s.mu.Unlock()
}

// Get returns the text of an open document.
func (s *Store) Get(doc protocol.DocumentURI) (string, bool) {
	s.mu.RLock()
	text, ok := s.docs[doc]
	s.mu.RUnlock()
	return text, ok
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// lineAt returns line n of text without its line ending.
func lineAt(text string, n int) (string, bool) {
	if n < 0 {
		return "", false
	}
	for range n {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			return "", false
		}
		text = text[i+1:]
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSuffix(text, "\r"), true
}

// byteOffset converts a UTF-16 column, as sent by clients, to a byte
// offset in line. Columns past the end clamp to len(line).
func byteOffset(line string, utf16Col int) int {
	units := 0
	for i, r := range line {
		if units >= utf16Col {
			return i
		}
		units += max(utf16.RuneLen(r), 1)
	}
	return len(line)
}

// utf16Column converts a byte offset in line to a UTF-16 column.
func utf16Column(line string, offset int) int {
	offset = max(0, min(offset, len(line)))
	units := 0
	for _, r := range line[:offset] {
		units += max(utf16.RuneLen(r), 1)
	}
	return units
}

// URIs returns the URIs of all open documents.
func (s *Store) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Keys(s.docs))
}

// filename returns the path of a file URI. Other schemes, such as
// untitled:, are returned unchanged.
func filename(doc protocol.DocumentURI) (path string) {
	prefix := uri.FileScheme + "://"
	if !strings.HasPrefix(string(doc), prefix) {
		return string(doc)
	}
	// Filename panics on URIs it cannot parse.
	defer func() {
		if recover() != nil {
			path = strings.TrimPrefix(string(doc), prefix)
		}
	}()
	return doc.Filename()
}
