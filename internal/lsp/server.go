// Package lsp serves cabal-fmt formatting to editors over the Language Server Protocol.
package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/formatter"
)

const (
	serverName                 = "cabalfmt"
	missingParamsMessage       = "missing params"
	shutdownRequestedMessage   = "server is shutting down"
	readDocumentMessageFormat  = "read %s: %v"
	unsupportedDocumentMessage = "formatting requires a file or an open document"
	notificationPrefix         = "$/"
)

// DocumentFormatter formats document text.
type DocumentFormatter interface {
	Format(ctx context.Context, document formatter.Document) (string, error)
}

// FolderRegistry tracks the workspace folders that may be auto-formatted.
type FolderRegistry interface {
	Add(folder string) error
	Remove(folder string) error
	Refresh() error
	Close() error
}

// SettingsSink receives the editor settings of the session.
type SettingsSink interface {
	Update(settings config.FormatterConfiguration)
}

// Options wires a Server.
type Options struct {
	Formatter DocumentFormatter
	Folders   FolderRegistry
	Settings  SettingsSink
	Notifier  *ClientNotifier
	Logger    *zap.Logger
	Version   string
}

// Server handles one editor session.
type Server struct {
	options   Options
	documents *documentStore

	mutex          sync.Mutex
	initialFolders []string
	shuttingDown   bool
	foldersClosed  bool
	cancelRequests context.CancelFunc
	requests       sync.WaitGroup
	requestContext context.Context
}

// NewServer creates a Server.
func NewServer(options Options) *Server {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Notifier == nil {
		options.Notifier = NewClientNotifier(options.Logger)
	}
	return &Server{options: options, documents: newDocumentStore()}
}

// Serve runs the session over stream until the client disconnects, sends exit,
// or ctx is cancelled.
func (server *Server) Serve(ctx context.Context, stream io.ReadWriteCloser) error {
	requestContext, cancelRequests := context.WithCancel(ctx)
	server.mutex.Lock()
	server.requestContext = requestContext
	server.cancelRequests = cancelRequests
	server.mutex.Unlock()

	conn := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(stream, jsonrpc2.VSCodeObjectCodec{}), server)
	server.options.Notifier.attach(conn)

	select {
	case <-conn.DisconnectNotify():
	case <-ctx.Done():
		_ = conn.Close()
		<-conn.DisconnectNotify()
	}

	server.options.Notifier.detach()
	cancelRequests()
	server.requests.Wait()
	return server.closeFolders()
}

// Handle implements jsonrpc2.Handler. Calls arrive in order on the read loop;
// formatting replies from its own goroutine.
func (server *Server) Handle(ctx context.Context, conn *jsonrpc2.Conn, request *jsonrpc2.Request) {
	if request.Method == methodTextDocumentFormatting && !request.Notif && !server.isShuttingDown() {
		server.startFormatting(conn, request)
		return
	}
	result, handleErr := server.dispatch(ctx, conn, request)
	if request.Notif {
		if handleErr != nil {
			server.options.Logger.Warn("notification failed", zap.String("method", request.Method), zap.Error(handleErr))
		}
		return
	}
	server.reply(ctx, conn, request, result, handleErr)
}

func (server *Server) dispatch(ctx context.Context, conn *jsonrpc2.Conn, request *jsonrpc2.Request) (any, error) {
	if server.isShuttingDown() && request.Method != methodExit {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: shutdownRequestedMessage}
	}
	switch request.Method {
	case methodInitialize:
		var params InitializeParams
		if decodeErr := decodeParams(request, &params); decodeErr != nil {
			return nil, decodeErr
		}
		return server.initialize(params)
	case methodInitialized:
		return nil, server.initialized()
	case methodShutdown:
		return nil, server.shutdown()
	case methodExit:
		return nil, conn.Close()
	case methodTextDocumentDidOpen:
		var params DidOpenTextDocumentParams
		if decodeErr := decodeParams(request, &params); decodeErr != nil {
			return nil, decodeErr
		}
		server.documents.open(params.TextDocument.URI, params.TextDocument.Text)
		return nil, nil
	case methodTextDocumentDidChange:
		var params DidChangeTextDocumentParams
		if decodeErr := decodeParams(request, &params); decodeErr != nil {
			return nil, decodeErr
		}
		return nil, server.documents.change(params.TextDocument.URI, params.ContentChanges)
	case methodTextDocumentDidClose:
		var params DidCloseTextDocumentParams
		if decodeErr := decodeParams(request, &params); decodeErr != nil {
			return nil, decodeErr
		}
		server.documents.close(params.TextDocument.URI)
		return nil, nil
	case methodTextDocumentDidSave:
		return nil, nil
	case methodWorkspaceDidChangeFolders:
		var params DidChangeWorkspaceFoldersParams
		if decodeErr := decodeParams(request, &params); decodeErr != nil {
			return nil, decodeErr
		}
		return nil, server.changeFolders(params.Event)
	case methodWorkspaceDidChangeConfiguration:
		var params DidChangeConfigurationParams
		if decodeErr := decodeParams(request, &params); decodeErr != nil {
			return nil, decodeErr
		}
		return nil, server.changeConfiguration(params.Settings)
	default:
		if request.Notif || strings.HasPrefix(request.Method, notificationPrefix) {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method not supported: %s", request.Method)}
	}
}

func (server *Server) initialize(params InitializeParams) (InitializeResult, error) {
	settings, settingsErr := decodeSettings(params.InitializationOptions)
	if settingsErr != nil {
		server.options.Logger.Warn("ignoring initialization options", zap.Error(settingsErr))
	} else if server.options.Settings != nil {
		server.options.Settings.Update(settings)
	}

	folders := make([]string, 0, len(params.WorkspaceFolders))
	for _, folder := range params.WorkspaceFolders {
		path, pathErr := uriToPath(folder.URI)
		if pathErr != nil {
			return InitializeResult{}, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: pathErr.Error()}
		}
		if path != "" {
			folders = append(folders, path)
		}
	}
	if len(params.WorkspaceFolders) == 0 {
		if rootPath, rootErr := uriToPath(params.RootURI); rootErr == nil && rootPath != "" {
			folders = append(folders, rootPath)
		} else if params.RootPath != "" {
			folders = append(folders, params.RootPath)
		}
	}
	server.mutex.Lock()
	server.initialFolders = folders
	server.mutex.Unlock()

	return InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:           TextDocumentSyncKindFull,
			DocumentFormattingProvider: true,
			Workspace: &WorkspaceServerCapabilities{
				WorkspaceFolders: WorkspaceFoldersServerCapabilities{Supported: true, ChangeNotifications: true},
			},
		},
		ServerInfo: &ServerInfo{Name: serverName, Version: server.options.Version},
	}, nil
}

func (server *Server) initialized() error {
	server.mutex.Lock()
	folders := server.initialFolders
	server.initialFolders = nil
	server.mutex.Unlock()
	if server.options.Folders == nil {
		return nil
	}
	var combined error
	for _, folder := range folders {
		combined = multierr.Append(combined, server.options.Folders.Add(folder))
	}
	return combined
}

func (server *Server) changeFolders(event WorkspaceFoldersChangeEvent) error {
	if server.options.Folders == nil {
		return nil
	}
	var combined error
	for _, folder := range event.Removed {
		path, pathErr := uriToPath(folder.URI)
		if pathErr != nil || path == "" {
			combined = multierr.Append(combined, pathErr)
			continue
		}
		combined = multierr.Append(combined, server.options.Folders.Remove(path))
	}
	for _, folder := range event.Added {
		path, pathErr := uriToPath(folder.URI)
		if pathErr != nil || path == "" {
			combined = multierr.Append(combined, pathErr)
			continue
		}
		combined = multierr.Append(combined, server.options.Folders.Add(path))
	}
	return combined
}

func (server *Server) changeConfiguration(payload json.RawMessage) error {
	settings, settingsErr := decodeSettings(payload)
	if settingsErr != nil {
		server.options.Notifier.Error(fmt.Sprintf("Invalid %s settings: %v", settingsSection, settingsErr))
		return settingsErr
	}
	if server.options.Settings != nil {
		server.options.Settings.Update(settings)
	}
	if server.options.Folders == nil {
		return nil
	}
	return server.options.Folders.Refresh()
}

func (server *Server) shutdown() error {
	server.mutex.Lock()
	server.shuttingDown = true
	server.mutex.Unlock()
	return server.closeFolders()
}

func (server *Server) closeFolders() error {
	server.mutex.Lock()
	if server.foldersClosed || server.options.Folders == nil {
		server.mutex.Unlock()
		return nil
	}
	server.foldersClosed = true
	server.mutex.Unlock()
	return server.options.Folders.Close()
}

func (server *Server) isShuttingDown() bool {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return server.shuttingDown
}

// startFormatting snapshots the document on the read loop so later edits do not race the formatter.
func (server *Server) startFormatting(conn *jsonrpc2.Conn, request *jsonrpc2.Request) {
	var params DocumentFormattingParams
	if decodeErr := decodeParams(request, &params); decodeErr != nil {
		server.reply(context.Background(), conn, request, nil, decodeErr)
		return
	}
	document, original, documentErr := server.snapshot(params.TextDocument.URI)
	if documentErr != nil {
		server.options.Notifier.Error(documentErr.Error())
		server.reply(context.Background(), conn, request, nil, &jsonrpc2.Error{Code: codeRequestFailed, Message: documentErr.Error()})
		return
	}

	server.mutex.Lock()
	requestContext := server.requestContext
	server.mutex.Unlock()
	if requestContext == nil {
		requestContext = context.Background()
	}

	server.requests.Add(1)
	go func() {
		defer server.requests.Done()
		formatted, formatErr := server.options.Formatter.Format(requestContext, document)
		if formatErr != nil {
			server.reply(requestContext, conn, request, nil, &jsonrpc2.Error{Code: codeRequestFailed, Message: formatter.NotificationMessage(formatErr)})
			return
		}
		server.reply(requestContext, conn, request, []TextEdit{fullDocumentEdit(original, formatted)}, nil)
	}()
}

// snapshot returns the open buffer of uri, or the file on disk when the editor has not opened it.
func (server *Server) snapshot(uri DocumentURI) (formatter.Document, string, error) {
	path, pathErr := uriToPath(uri)
	if pathErr != nil {
		return formatter.Document{}, "", pathErr
	}
	if text, open := server.documents.text(uri); open {
		return formatter.Document{Path: path, Text: text}, text, nil
	}
	if path == "" {
		return formatter.Document{}, "", errors.New(unsupportedDocumentMessage)
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return formatter.Document{}, "", fmt.Errorf(readDocumentMessageFormat, path, readErr)
	}
	return formatter.Document{Path: path, Text: string(content)}, string(content), nil
}

func (server *Server) reply(ctx context.Context, conn *jsonrpc2.Conn, request *jsonrpc2.Request, result any, handleErr error) {
	var replyErr error
	if handleErr != nil {
		var rpcError *jsonrpc2.Error
		if !errors.As(handleErr, &rpcError) {
			rpcError = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: handleErr.Error()}
		}
		replyErr = conn.ReplyWithError(ctx, request.ID, rpcError)
	} else {
		replyErr = conn.Reply(ctx, request.ID, result)
	}
	if replyErr != nil && !errors.Is(replyErr, jsonrpc2.ErrClosed) {
		server.options.Logger.Warn("reply failed", zap.String("method", request.Method), zap.Error(replyErr))
	}
}

func decodeParams(request *jsonrpc2.Request, target any) error {
	if request.Params == nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: missingParamsMessage}
	}
	if unmarshalErr := json.Unmarshal(*request.Params, target); unmarshalErr != nil {
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: unmarshalErr.Error()}
	}
	return nil
}
