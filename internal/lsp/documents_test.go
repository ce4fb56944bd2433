package lsp

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEndPosition(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		text     string
		expected Position
	}{
		{name: "empty", text: "", expected: Position{}},
		{name: "single line", text: "name: foo", expected: Position{Line: 0, Character: 9}},
		{name: "trailing newline", text: "name: foo\n", expected: Position{Line: 1, Character: 0}},
		{name: "crlf", text: "a\r\nbc", expected: Position{Line: 1, Character: 2}},
		{name: "lone carriage return", text: "a\rb", expected: Position{Line: 1, Character: 1}},
		{name: "astral characters count twice", text: "x\nsynopsis: \U0001F600", expected: Position{Line: 1, Character: 12}},
		{name: "bmp characters count once", text: "author: Ærøskøbing", expected: Position{Line: 0, Character: 18}},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(testCase.expected, endPosition(testCase.text)); diff != "" {
				t.Fatalf("endPosition mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyChange(t *testing.T) {
	t.Parallel()
	original := "name: foo\nversion: 0.1\n"

	testCases := []struct {
		name     string
		change   TextDocumentContentChangeEvent
		expected string
	}{
		{
			name:     "full replacement",
			change:   TextDocumentContentChangeEvent{Text: "name: bar\n"},
			expected: "name: bar\n",
		},
		{
			name: "ranged replacement",
			change: TextDocumentContentChangeEvent{
				Range: &Range{Start: Position{Line: 1, Character: 9}, End: Position{Line: 1, Character: 12}},
				Text:  "1.0",
			},
			expected: "name: foo\nversion: 1.0\n",
		},
		{
			name: "insertion past line end clamps",
			change: TextDocumentContentChangeEvent{
				Range: &Range{Start: Position{Line: 0, Character: 40}, End: Position{Line: 0, Character: 40}},
				Text:  "-extra",
			},
			expected: "name: foo-extra\nversion: 0.1\n",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			updated, err := applyChange(original, testCase.change)
			if err != nil {
				t.Fatalf("applyChange error: %v", err)
			}
			if updated != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, updated)
			}
		})
	}
}

func TestApplyChangeLineTerminators(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "line feed", text: "a\nbc", expected: "a\nbXc"},
		{name: "crlf", text: "a\r\nbc", expected: "a\r\nbXc"},
		{name: "lone carriage return", text: "a\rbc", expected: "a\rbXc"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			updated, err := applyChange(testCase.text, TextDocumentContentChangeEvent{
				Range: &Range{Start: Position{Line: 1, Character: 1}, End: Position{Line: 1, Character: 1}},
				Text:  "X",
			})
			if err != nil {
				t.Fatalf("applyChange error: %v", err)
			}
			if updated != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, updated)
			}
			end := endPosition(testCase.text)
			if endOffset, offsetErr := byteOffset(testCase.text, end); offsetErr != nil || endOffset != len(testCase.text) {
				t.Fatalf("expected end position %+v to map to %d, got %d (%v)", end, len(testCase.text), endOffset, offsetErr)
			}
		})
	}
}

func TestApplyChangeRejectsUnknownLine(t *testing.T) {
	t.Parallel()
	_, err := applyChange("one line", TextDocumentContentChangeEvent{
		Range: &Range{Start: Position{Line: 3}, End: Position{Line: 3}},
		Text:  "x",
	})
	if err == nil {
		t.Fatalf("expected an out of range error")
	}
}

func TestDocumentStore(t *testing.T) {
	t.Parallel()
	store := newDocumentStore()
	uri := DocumentURI("file:///work/foo.cabal")

	if _, open := store.text(uri); open {
		t.Fatalf("document should not be open yet")
	}
	store.open(uri, "name: foo\n")
	if err := store.change(uri, []TextDocumentContentChangeEvent{{Text: "name: bar\n"}}); err != nil {
		t.Fatalf("change error: %v", err)
	}
	if text, _ := store.text(uri); text != "name: bar\n" {
		t.Fatalf("unexpected text %q", text)
	}
	store.close(uri)
	if _, open := store.text(uri); open {
		t.Fatalf("document should be closed")
	}
}

func TestURIConversion(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "my package", "foo.cabal")
	converted, err := uriToPath(pathToURI(path))
	if err != nil {
		t.Fatalf("uriToPath error: %v", err)
	}
	if converted != path {
		t.Fatalf("expected %s, got %s", path, converted)
	}

	untitled, err := uriToPath("untitled:Untitled-1")
	if err != nil {
		t.Fatalf("uriToPath error for untitled: %v", err)
	}
	if untitled != "" {
		t.Fatalf("expected no path for untitled documents, got %q", untitled)
	}
}
