package formatter

import "go.uber.org/zap"

// Notifier surfaces user-visible messages.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return LogNotifier{logger: logger}
}

// Info logs message at debug level; format progress is not interesting on a terminal.
func (notifier LogNotifier) Info(message string) {
	notifier.logger.Debug(message)
}

// Error logs message at error level.
func (notifier LogNotifier) Error(message string) {
	notifier.logger.Error(message)
}

type nopNotifier struct{}

func (nopNotifier) Info(string)  {}
func (nopNotifier) Error(string) {}
