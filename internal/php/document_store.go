package php

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/shinyvision/twiglens/internal/config"
)

type cachedFile struct {
	path string
	doc  *Document
	// pinned files belong to an open editor buffer and are never evicted.
	pinned bool
}

// DocumentStore caches the parsed PHP files the resolver reads class
// summaries from. Files read from disk are kept in least recently used
// order; editor buffers registered with RegisterOpen shadow the disk copy.
type DocumentStore struct {
	mu         sync.Mutex
	capacity   int
	recent     []*cachedFile
	byPath     map[string]*cachedFile
	autoload   config.AutoloadMap
	root       string
	generation atomic.Int64
}

// NewDocumentStore keeps at most capacity unpinned files.
func NewDocumentStore(capacity int) *DocumentStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &DocumentStore{
		capacity: capacity,
		recent:   make([]*cachedFile, 0, capacity),
		byPath:   make(map[string]*cachedFile),
	}
}

// Configure sets the autoload map class lookups go through.
func (s *DocumentStore) Configure(autoload config.AutoloadMap, workspaceRoot string) {
	s.mu.Lock()
	s.autoload = autoload
	s.root = workspaceRoot
	s.mu.Unlock()
	s.generation.Add(1)
}

// Config returns the autoload context set by Configure.
func (s *DocumentStore) Config() (config.AutoloadMap, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoload, s.root
}

// Generation changes whenever a stored summary or the configuration may have
// changed. Caches built from summaries compare it to know they are stale.
func (s *DocumentStore) Generation() int64 {
	return s.generation.Load()
}

func (s *DocumentStore) track(doc *Document) {
	doc.OnAnalyzed(func() { s.generation.Add(1) })
}

// RegisterOpen makes an editor buffer the source of summaries for path until
// Close is called for it.
func (s *DocumentStore) RegisterOpen(path string, doc *Document) {
	path = normalizePath(path)
	if doc == nil || path == "" {
		return
	}
	s.track(doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation.Add(1)

	if f, ok := s.byPath[path]; ok {
		if f.doc != nil && f.doc != doc {
			f.doc.Close()
		}
		f.doc = doc
		f.pinned = true
		s.touchLocked(f)
		return
	}
	s.insertLocked(&cachedFile{path: path, doc: doc, pinned: true})
}

// Close unpins path. The buffer stays cached until it is evicted.
func (s *DocumentStore) Close(path string) {
	path = normalizePath(path)
	if path == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.byPath[path]; ok {
		f.pinned = false
	}
}

// Get returns the parsed file at path, reading it from disk on a miss.
func (s *DocumentStore) Get(path string) (*Document, error) {
	path = normalizePath(path)
	if path == "" {
		return nil, errors.New("empty path")
	}

	s.mu.Lock()
	if f, ok := s.byPath[path]; ok && f.doc != nil {
		s.touchLocked(f)
		s.mu.Unlock()
		return f.doc, nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	doc := NewDocument()
	if err := doc.Update(data, nil); err != nil {
		return nil, errors.Wrapf(err, "could not parse %s", path)
	}
	s.track(doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another reader may have loaded the file meanwhile.
	if f, ok := s.byPath[path]; ok {
		if f.doc == nil {
			f.doc = doc
		} else {
			doc.Close()
		}
		s.touchLocked(f)
		return f.doc, nil
	}
	s.insertLocked(&cachedFile{path: path, doc: doc})
	return doc, nil
}

// Summary returns the declarations of the file at path.
func (s *DocumentStore) Summary(path string) (FileSummary, error) {
	doc, err := s.Get(path)
	if err != nil {
		return FileSummary{}, err
	}
	return doc.Summary(), nil
}

// Len reports how many files are cached.
func (s *DocumentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recent)
}

func (s *DocumentStore) insertLocked(f *cachedFile) {
	s.recent = append(s.recent, f)
	s.byPath[f.path] = f
	s.evictLocked()
}

func (s *DocumentStore) touchLocked(f *cachedFile) {
	idx := slices.Index(s.recent, f)
	if idx < 0 || idx == len(s.recent)-1 {
		return
	}
	s.recent = append(slices.Delete(s.recent, idx, idx+1), f)
}

// evictLocked drops the least recently used unpinned files until the cache
// fits its capacity. Pinned files may keep it above capacity.
func (s *DocumentStore) evictLocked() {
	for len(s.recent) > s.capacity {
		idx := slices.IndexFunc(s.recent, func(f *cachedFile) bool { return !f.pinned })
		if idx < 0 {
			return
		}
		f := s.recent[idx]
		s.recent = slices.Delete(s.recent, idx, idx+1)
		delete(s.byPath, f.path)
		if f.doc != nil {
			f.doc.Close()
		}
	}
}

func normalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}
