// Package lsp serves spelling diagnostics over the language server protocol.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"spelgud/internal/diagnose"
	"spelgud/internal/dictionary"
	"spelgud/internal/docstore"
	"spelgud/internal/trace"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")

	errTransport = errors.New("lsp transport")
)

const (
	diagnosticSource = "spelgud"
	diagnosticCode   = "spelling"
	severityWarning  = 2

	messageError   = 1
	messageWarning = 2
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Docs       *docstore.Store
	Dictionary *dictionary.Store
	Engine     *diagnose.Engine
	Logger     *slog.Logger
	// Debounce delays a run after the last edit. Zero runs immediately.
	Debounce time.Duration
	Version  string
}

// Server handles stdio JSON-RPC for the spelling language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex

	docs    *docstore.Store
	dict    *dictionary.Store
	engine  *diagnose.Engine
	logger  *slog.Logger
	version string

	mu                sync.Mutex
	tasks             map[string]*docTask
	debounce          time.Duration
	initialized       bool
	shutdownRequested bool
	// closed is set once Run returns; no run starts afterwards.
	closed            bool
	traceLSP          atomic.Bool
	backendWarned     bool
	baseCtx           context.Context
	runs              sync.WaitGroup
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	docs := opts.Docs
	if docs == nil {
		docs = docstore.New()
	}
	dict := opts.Dictionary
	if dict == nil {
		dict = dictionary.New("")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	engine := opts.Engine
	if engine == nil {
		engine = diagnose.NewEngine(docs, dict, nil, logger)
	}
	return &Server{
		in:       bufio.NewReader(in),
		out:      bufio.NewWriter(out),
		docs:     docs,
		dict:     dict,
		engine:   engine,
		logger:   logger,
		version:  opts.Version,
		tasks:    make(map[string]*docTask),
		debounce: opts.Debounce,
		baseCtx:  context.Background(),
	}
}

// Run serves LSP requests until exit or until the input is closed. Pending
// runs are waited for before it returns.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.closed = true
		for _, t := range s.tasks {
			t.stop()
		}
		s.mu.Unlock()
		cancel()
		s.runs.Wait()
	}()

	for {
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %w", errTransport, err)
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("failed to parse message", "error", err)
			if err := s.sendError(nil, codeParseError, "parse error"); err != nil {
				return err
			}
			continue
		}
		if msg.Method == "" {
			continue
		}
		err = s.handleMessage(&msg)
		switch {
		case err == nil:
		case errors.Is(err, ErrExit), errors.Is(err, ErrExitWithoutShutdown), errors.Is(err, errTransport):
			return err
		case len(msg.ID) == 0:
			// notifications have nowhere to report failures but the user
			s.logger.Warn("notification failed", "method", msg.Method, "error", err)
			if err := s.showMessage(messageError, fmt.Sprintf("%s: %v", msg.Method, err)); err != nil {
				return err
			}
		default:
			s.logger.Warn("request failed", "method", msg.Method, "error", err)
			if err := s.sendError(msg.ID, codeInternalError, err.Error()); err != nil {
				return err
			}
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	s.mu.Lock()
	initialized := s.initialized
	shuttingDown := s.shutdownRequested
	s.mu.Unlock()

	switch {
	case msg.Method == "exit":
		if shuttingDown {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case shuttingDown:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeInvalidRequest, "server is shutting down")
		}
		return nil
	case !initialized && msg.Method != "initialize":
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeServerNotInitialized, "server not initialized")
		}
		return nil
	}

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "workspace/executeCommand":
		return s.handleExecuteCommand(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, codeMethodNotFound, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, codeInvalidParams, "invalid params")
		}
	}
	if len(params.InitializationOptions) > 0 {
		s.applySettings(params.InitializationOptions)
	}

	s.mu.Lock()
	alreadyInitialized := s.initialized
	s.initialized = true
	s.mu.Unlock()
	if alreadyInitialized {
		return s.sendError(msg.ID, codeInvalidRequest, "server already initialized")
	}
	trace.Point(trace.FromContext(s.context()), trace.ScopeSession, "initialize", params.RootURI, 0)

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    1,
				Save:      saveOptions{IncludeText: true},
			},
			CodeActionProvider: &codeActionOptions{
				CodeActionKinds: []string{codeActionKindQuickFix},
			},
			ExecuteCommandProvider: &executeCommandOptions{
				Commands: []string{commandAddToDictionary},
			},
		},
		ServerInfo: &serverInfo{Name: diagnosticSource, Version: s.version},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	for _, t := range s.tasks {
		t.stop()
	}
	s.mu.Unlock()
	trace.Point(trace.FromContext(s.context()), trace.ScopeSession, "shutdown", "", 0)
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	id := documentID(params.TextDocument.URI)
	if id == "" {
		return errors.New("missing document uri")
	}
	version := s.docs.Open(id, params.TextDocument.Text, params.TextDocument.Version)
	s.tracef("didOpen: uri=%s version=%d", id, version)
	s.schedule(id)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	id := documentID(params.TextDocument.URI)
	version, err := s.docs.Update(id, func(old string) string {
		return applyChanges(old, params.ContentChanges)
	}, params.TextDocument.Version)
	if err != nil {
		return err
	}
	s.tracef("didChange: uri=%s version=%d client=%d", id, version, params.TextDocument.Version)
	s.schedule(id)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	id := documentID(params.TextDocument.URI)
	snap, err := s.docs.Get(id)
	if err != nil {
		return err
	}
	if params.Text != nil && *params.Text != snap.Text {
		if _, err := s.docs.Change(id, *params.Text, snap.ClientVersion); err != nil {
			return err
		}
	}
	s.tracef("didSave: uri=%s", id)
	s.schedule(id)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	id := documentID(params.TextDocument.URI)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.docs.Close(id); err != nil {
		return err
	}
	t := s.tasks[id]
	delete(s.tasks, id)
	s.tracef("didClose: uri=%s", id)
	if t == nil {
		return nil
	}
	t.stop()
	if t.published {
		return s.sendPublish(id, nil, nil)
	}
	return nil
}

// RecheckAll schedules a run for every open document without changing
// their versions.
func (s *Server) RecheckAll() {
	for _, id := range s.docs.IDs() {
		s.schedule(id)
	}
}

func (s *Server) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendNotification(method string, params any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, version *int, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	return s.sendNotification("textDocument/publishDiagnostics", publishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: list,
	})
}

func (s *Server) showMessage(kind int, message string) error {
	return s.sendNotification("window/showMessage", showMessageParams{
		Type:    kind,
		Message: message,
	})
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return fmt.Errorf("%w: %w", errTransport, err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("%w: %w", errTransport, err)
	}
	return nil
}

// tracef logs scheduling decisions when the client enabled spelgud.trace.
func (s *Server) tracef(format string, args ...any) {
	if !s.traceLSP.Load() {
		return
	}
	s.logger.Info("lsp: " + fmt.Sprintf(format, args...))
}
