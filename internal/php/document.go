package php

import (
	"context"
	"sync"
	"time"

	phpforest "github.com/alexaandru/go-sitter-forest/php"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

const analysisDebounceInterval = 500 * time.Millisecond

// Document maintains a parsed PHP syntax tree together with its declaration summary.
// It owns the tree-sitter parser and decides when the summary should be rebuilt.
type Document struct {
	parser          *sitter.Parser
	mu              sync.RWMutex
	tree            *sitter.Tree
	content         []byte
	summary         FileSummary
	analysisTimer   *time.Timer
	analysisVersion int64
	onAnalyzed      func()
}

// NewDocument constructs a Document ready to track a PHP source file.
func NewDocument() *Document {
	parser := sitter.NewParser()
	lang := sitter.NewLanguage(phpforest.GetLanguage())
	_ = parser.SetLanguage(lang)
	return &Document{
		parser:  parser,
		summary: FileSummary{Uses: make(map[string]string)},
	}
}

// OnAnalyzed registers a callback run after every summary rebuild.
func (d *Document) OnAnalyzed(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onAnalyzed = fn
}

// Update notifies the document about new file contents. If change is nil, the file
// has been replaced entirely and the summary is rebuilt before returning.
// Incremental edits rebuild it after a quiet period.
func (d *Document) Update(code []byte, change *sitter.InputEdit) error {
	d.mu.Lock()

	d.content = code
	if d.tree != nil && change != nil {
		d.tree.Edit(*change)
	}

	newTree, err := d.parser.ParseString(context.Background(), d.tree, code)
	if err != nil {
		d.mu.Unlock()
		return err
	}

	if d.tree != nil {
		d.tree.Close()
	}
	d.tree = newTree

	version := d.analysisVersion + 1
	d.analysisVersion = version

	if d.analysisTimer != nil {
		d.analysisTimer.Stop()
		d.analysisTimer = nil
	}
	immediate := change == nil
	if !immediate {
		d.analysisTimer = time.AfterFunc(analysisDebounceInterval, func() {
			d.runAnalysis(version)
		})
	}

	d.mu.Unlock()

	if immediate {
		d.runAnalysis(version)
	}
	return nil
}

// Close releases resources owned by the document.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.analysisTimer != nil {
		d.analysisTimer.Stop()
		d.analysisTimer = nil
	}
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
	d.content = nil
}

// Read executes the provided function while holding a read lock on the document.
// The callback must not store the tree or content beyond its scope.
func (d *Document) Read(fn func(tree *sitter.Tree, content []byte, summary FileSummary)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.tree, d.content, d.summary)
}

// Summary returns the most recently computed declaration summary.
func (d *Document) Summary() FileSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.summary
}

func (d *Document) runAnalysis(version int64) {
	d.mu.RLock()
	if d.analysisVersion != version || d.tree == nil {
		d.mu.RUnlock()
		return
	}
	treeCopy := d.tree.Copy()
	contentCopy := append([]byte(nil), d.content...)
	d.mu.RUnlock()

	if treeCopy == nil {
		return
	}
	defer treeCopy.Close()

	ctx := newAnalysisContext(contentCopy, treeCopy)
	if ctx == nil {
		return
	}
	summary := ctx.summarize()

	d.mu.Lock()
	if d.analysisVersion != version {
		d.mu.Unlock()
		return
	}
	d.summary = summary
	if d.analysisTimer != nil {
		d.analysisTimer.Stop()
		d.analysisTimer = nil
	}
	notify := d.onAnalyzed
	d.mu.Unlock()

	if notify != nil {
		notify()
	}
}
