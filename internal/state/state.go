package state

import (
	"sync"

	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

var logger = commonlog.GetLoggerf("twiglens.state")

// State manages the document state for the language server.
type State struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentUri]*Document
}

func NewState() *State {
	return &State{
		docs: make(map[protocol.DocumentUri]*Document),
	}
}

// GetDocument retrieves a document from the state.
func (s *State) GetDocument(uri protocol.DocumentUri) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// SetDocument adds or updates a document in the state and notifies its
// analyzer. The analyzer of a known document is kept.
func (s *State) SetDocument(uri protocol.DocumentUri, doc *Document) {
	s.mu.Lock()
	if old, ok := s.docs[uri]; ok && doc.Analyzer == nil {
		doc.Analyzer = old.Analyzer
	}
	s.docs[uri] = doc
	s.mu.Unlock()

	if doc.Analyzer == nil {
		return
	}
	if err := doc.Analyzer.Changed([]byte(doc.Text), nil); err != nil {
		logger.Warningf("could not analyze %s: %v", uri, err)
	}
}

// DeleteDocument removes a document from the state.
func (s *State) DeleteDocument(uri protocol.DocumentUri) {
	s.mu.Lock()
	doc, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()

	if ok && doc.Analyzer != nil {
		doc.Analyzer.Close()
	}
}

// Len is the number of open documents.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
