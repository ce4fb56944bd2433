// Package clipboard copies formatted manifests to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnavailable reports that no clipboard utility is available on this system.
var ErrUnavailable = errors.New("system clipboard is unavailable")

// Copier copies text to a clipboard.
type Copier interface {
	Copy(text string) error
}

// CopierFunc adapts a function into a Copier.
type CopierFunc func(text string) error

// Copy invokes the underlying function.
func (copier CopierFunc) Copy(text string) error {
	return copier(text)
}

// SystemClipboard writes to the system clipboard through github.com/atotto/clipboard.
type SystemClipboard struct {
	write       func(string) error
	unsupported bool
}

// NewSystemClipboard creates a SystemClipboard.
func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{write: clipboard.WriteAll, unsupported: clipboard.Unsupported}
}

// Copy writes text to the clipboard.
func (systemClipboard *SystemClipboard) Copy(text string) error {
	if systemClipboard.unsupported {
		return ErrUnavailable
	}
	if writeErr := systemClipboard.write(text); writeErr != nil {
		return fmt.Errorf("copy to clipboard: %w", writeErr)
	}
	return nil
}

var _ Copier = (*SystemClipboard)(nil)
