package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"
)

const fileScheme = "file"

// documentStore holds the text of the documents the editor has open.
type documentStore struct {
	mutex     sync.RWMutex
	documents map[DocumentURI]string
}

func newDocumentStore() *documentStore {
	return &documentStore{documents: map[DocumentURI]string{}}
}

func (store *documentStore) open(uri DocumentURI, text string) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.documents[uri] = text
}

func (store *documentStore) change(uri DocumentURI, changes []TextDocumentContentChangeEvent) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	text := store.documents[uri]
	for _, change := range changes {
		updated, applyErr := applyChange(text, change)
		if applyErr != nil {
			return fmt.Errorf("apply change to %s: %w", uri, applyErr)
		}
		text = updated
	}
	store.documents[uri] = text
	return nil
}

func (store *documentStore) close(uri DocumentURI) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.documents, uri)
}

func (store *documentStore) text(uri DocumentURI) (string, bool) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	text, open := store.documents[uri]
	return text, open
}

func applyChange(text string, change TextDocumentContentChangeEvent) (string, error) {
	if change.Range == nil {
		return change.Text, nil
	}
	startOffset, startErr := byteOffset(text, change.Range.Start)
	if startErr != nil {
		return "", startErr
	}
	endOffset, endErr := byteOffset(text, change.Range.End)
	if endErr != nil {
		return "", endErr
	}
	if endOffset < startOffset {
		return "", fmt.Errorf("range end %d:%d precedes start", change.Range.End.Line, change.Range.End.Character)
	}
	return text[:startOffset] + change.Text + text[endOffset:], nil
}

// byteOffset converts an LSP position with UTF-16 columns into a byte offset of text.
// Columns past the end of a line clamp to the line end.
func byteOffset(text string, position Position) (int, error) {
	offset := 0
	for line := 0; line < position.Line; line++ {
		terminator := strings.IndexAny(text[offset:], "\r\n")
		if terminator < 0 {
			return 0, fmt.Errorf("line %d out of range", position.Line)
		}
		offset += terminator + lineTerminatorLength(text[offset+terminator:])
	}
	units := 0
	for offset < len(text) && units < position.Character {
		character, size := utf8.DecodeRuneInString(text[offset:])
		if character == '\n' || character == '\r' {
			break
		}
		units += utf16Length(character)
		offset += size
	}
	return offset, nil
}

// endPosition is the position just after the last character of text.
func endPosition(text string) Position {
	position := Position{}
	for index := 0; index < len(text); {
		character, size := utf8.DecodeRuneInString(text[index:])
		index += size
		switch character {
		case '\n', '\r':
			index += lineTerminatorLength(text[index-size:]) - size
			position.Line++
			position.Character = 0
		default:
			position.Character += utf16Length(character)
		}
	}
	return position
}

// lineTerminatorLength is the byte length of the line break at the start of text:
// 2 for \r\n, 1 for a lone \r or \n and 0 otherwise.
func lineTerminatorLength(text string) int {
	switch {
	case strings.HasPrefix(text, "\r\n"):
		return 2
	case strings.HasPrefix(text, "\r"), strings.HasPrefix(text, "\n"):
		return 1
	default:
		return 0
	}
}

// fullDocumentEdit replaces everything in original with replacement.
func fullDocumentEdit(original, replacement string) TextEdit {
	return TextEdit{
		Range:   Range{Start: Position{}, End: endPosition(original)},
		NewText: replacement,
	}
}

func utf16Length(character rune) int {
	if length := utf16.RuneLen(character); length > 0 {
		return length
	}
	return 1
}

// uriToPath returns the file system path of a file URI and an empty string for other schemes.
func uriToPath(uri DocumentURI) (string, error) {
	parsed, parseErr := url.Parse(string(uri))
	if parseErr != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, parseErr)
	}
	if parsed.Scheme != fileScheme {
		return "", nil
	}
	path := parsed.Path
	if runtime.GOOS == "windows" {
		path = strings.TrimPrefix(path, "/")
	}
	return filepath.FromSlash(path), nil
}

// pathToURI renders an absolute path as a file URI.
func pathToURI(path string) DocumentURI {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return DocumentURI((&url.URL{Scheme: fileScheme, Path: slashed}).String())
}
