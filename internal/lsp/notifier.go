package lsp

import (
	"context"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"

	"github.com/temirov/cabalfmt/internal/formatter"
)

// ClientNotifier forwards notifications to the connected editor. Progress goes to
// window/logMessage and failures to window/showMessage. Until a connection is
// attached, or after it is gone, messages are written to the fallback notifier.
type ClientNotifier struct {
	mutex    sync.RWMutex
	conn     *jsonrpc2.Conn
	fallback formatter.Notifier
	logger   *zap.Logger
}

// NewClientNotifier creates a ClientNotifier that logs through logger when no editor is connected.
func NewClientNotifier(logger *zap.Logger) *ClientNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientNotifier{fallback: formatter.NewLogNotifier(logger), logger: logger}
}

func (notifier *ClientNotifier) attach(conn *jsonrpc2.Conn) {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.conn = conn
}

func (notifier *ClientNotifier) detach() {
	notifier.attach(nil)
}

// Info sends message as a log message.
func (notifier *ClientNotifier) Info(message string) {
	if !notifier.send(methodWindowLogMessage, LogMessageParams{Type: MessageTypeInfo, Message: message}) {
		notifier.fallback.Info(message)
	}
}

// Error shows message to the user.
func (notifier *ClientNotifier) Error(message string) {
	if !notifier.send(methodWindowShowMessage, ShowMessageParams{Type: MessageTypeError, Message: message}) {
		notifier.fallback.Error(message)
	}
}

func (notifier *ClientNotifier) send(method string, params any) bool {
	notifier.mutex.RLock()
	conn := notifier.conn
	notifier.mutex.RUnlock()
	if conn == nil {
		return false
	}
	if notifyErr := conn.Notify(context.Background(), method, params); notifyErr != nil {
		notifier.logger.Debug("notify client", zap.String("method", method), zap.Error(notifyErr))
		return false
	}
	return true
}
