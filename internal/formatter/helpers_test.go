package formatter_test

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/formatter"
)

type recordingNotifier struct {
	mutex  sync.Mutex
	infos  []string
	errors []string
}

func (notifier *recordingNotifier) Info(message string) {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.infos = append(notifier.infos, message)
}

func (notifier *recordingNotifier) Error(message string) {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.errors = append(notifier.errors, message)
}

func (notifier *recordingNotifier) errorMessages() []string {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	return append([]string(nil), notifier.errors...)
}

// writeStubFormatter creates an executable shell script standing in for cabal-fmt.
func writeStubFormatter(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub formatter requires a POSIX shell")
	}
	stubPath := filepath.Join(t.TempDir(), "cabal-fmt")
	if err := os.WriteFile(stubPath, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub formatter: %v", err)
	}
	return stubPath
}

func newStubService(binary string, notifier formatter.Notifier, extra config.FormatterConfiguration) *formatter.Service {
	configuration := config.FormatterConfiguration{BinaryPath: config.StringValue(binary)}.Merge(extra)
	return formatter.NewService(formatter.Dependencies{
		Configuration: config.StaticProvider{Configuration: configuration},
		Notifier:      notifier,
	})
}

func documentIn(t *testing.T, name string, text string) formatter.Document {
	t.Helper()
	return formatter.Document{Path: filepath.Join(t.TempDir(), name), Text: text}
}
