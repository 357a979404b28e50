package server

import (
	"context"
	"sync"

	"github.com/shinyvision/twiglens/internal/analyzer"
	"github.com/shinyvision/twiglens/internal/config"
	"github.com/shinyvision/twiglens/internal/state"
	"github.com/shinyvision/twiglens/internal/utils"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
)

const lsName = "twiglens"

var version = "0.1.0"

var logger = commonlog.GetLoggerf("twiglens.server")

// Server is the language server.
type Server struct {
	config *config.Config
	state  *state.State
	h      protocol.Handler

	mu        sync.RWMutex
	workspace *analyzer.Workspace
}

// NewServer creates a new server.
func NewServer() *Server {
	s := &Server{
		config: config.NewConfig(),
		state:  state.NewState(),
	}
	s.h = protocol.Handler{
		Initialize:             s.initialize,
		Initialized:            s.initialized,
		Shutdown:               s.shutdown,
		SetTrace:               s.setTrace,
		TextDocumentDidOpen:    s.didOpen,
		TextDocumentDidChange:  s.didChange,
		TextDocumentDidClose:   s.didClose,
		TextDocumentHover:      s.onHover,
		TextDocumentDefinition: s.onDefinition,
		TextDocumentCompletion: s.onCompletion,
	}
	return s
}

// Run runs the language server.
func (s *Server) Run() {
	server := glspserver.NewServer(&s.h, lsName, false)
	server.RunStdio()
}

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	caps := s.h.CreateServerCapabilities()
	openClose := true
	change := protocol.TextDocumentSyncKindIncremental
	caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &change,
	}
	caps.HoverProvider = true
	caps.DefinitionProvider = true
	caps.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"."},
	}

	if params.RootURI != nil {
		s.config.WorkspaceRoot = utils.UriToPath(*params.RootURI)
	} else if len(params.WorkspaceFolders) > 0 {
		s.config.WorkspaceRoot = utils.UriToPath(params.WorkspaceFolders[0].URI)
	} else {
		s.config.WorkspaceRoot = "."
	}

	if err := s.config.LoadFile(); err != nil {
		logger.Warningf("%v", err)
	}
	if params.InitializationOptions != nil {
		if m, ok := params.InitializationOptions.(map[string]any); ok {
			s.config.ApplyOptions(m)
		}
	}
	s.config.LoadContainer()
	s.config.LoadPsr4Map()

	ws := analyzer.NewWorkspace(s.config)
	s.mu.Lock()
	s.workspace = ws
	s.mu.Unlock()

	logPathStats(s.config, ws, "initialize")

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error { return nil }
func (s *Server) shutdown(_ *glsp.Context) error                                   { return nil }
func (s *Server) setTrace(_ *glsp.Context, p *protocol.SetTraceParams) error {
	protocol.SetTraceValue(p.Value)
	return nil
}

func (s *Server) currentWorkspace() *analyzer.Workspace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workspace
}

func (s *Server) didOpen(_ *glsp.Context, p *protocol.DidOpenTextDocumentParams) error {
	path := utils.UriToPath(p.TextDocument.URI)
	doc := &state.Document{
		Text:       p.TextDocument.Text,
		LanguageID: state.LanguageFor(path, p.TextDocument.LanguageID),
	}
	if ws := s.currentWorkspace(); ws != nil {
		doc.Analyzer = state.NewAnalyzer(ws, path, doc.LanguageID)
	}
	s.state.SetDocument(p.TextDocument.URI, doc)
	return nil
}

func (s *Server) didChange(_ *glsp.Context, p *protocol.DidChangeTextDocumentParams) error {
	doc, ok := s.state.GetDocument(p.TextDocument.URI)
	if !ok {
		return nil
	}

	text := doc.Text
	for _, c := range p.ContentChanges {
		switch ch := c.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = ch.Text
		case protocol.TextDocumentContentChangeEvent:
			start := ch.Range.Start.IndexIn(text)
			end := ch.Range.End.IndexIn(text)
			if start >= 0 && end >= start && end <= len(text) {
				text = text[:start] + ch.Text + text[end:]
			}
		}
	}
	s.state.SetDocument(p.TextDocument.URI, &state.Document{
		Text:       text,
		LanguageID: doc.LanguageID,
		Analyzer:   doc.Analyzer,
	})
	return nil
}

func (s *Server) didClose(_ *glsp.Context, p *protocol.DidCloseTextDocumentParams) error {
	s.state.DeleteDocument(p.TextDocument.URI)
	return nil
}

// requestContext bounds a request. glsp does not cancel handlers, so this is
// only a root for the analyzers.
func requestContext() context.Context {
	return context.Background()
}

func logPathStats(cfg *config.Config, ws *analyzer.Workspace, stage string) {
	logger.Infof("path stats (%s): %d psr-4 prefixes, %d template dirs, %d template namespaces, %d entities",
		stage, len(cfg.Autoload.PSR4), len(cfg.TemplateDirs), len(cfg.TemplateNamespaces), len(ws.Entities.Classes()))
}
