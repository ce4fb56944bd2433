package formatter_test

import (
	"errors"
	"testing"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/formatter"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	request := formatter.InvocationRequest{
		InputPath:          "/work/pkg/.foo.cabal-fmt-42.cabal",
		NominalDisplayPath: "/work/pkg/foo.cabal",
	}

	testCases := []struct {
		name          string
		outcome       formatter.Outcome
		expectText    string
		expectMessage string
		expectFailure bool
	}{
		{
			name: "stdout chunks are joined in order",
			outcome: formatter.Outcome{
				StdoutChunks: [][]byte{[]byte("name: "), []byte("foo\n"), []byte("version: 1.0\n")},
				StderrChunks: [][]byte{[]byte("warning: ignored\n")},
			},
			expectText: "name: foo\nversion: 1.0\n",
		},
		{
			name: "non-zero exit with output succeeds",
			outcome: formatter.Outcome{
				StdoutChunks: [][]byte{[]byte("x")},
				ExitCode:     2,
			},
			expectText: "x",
		},
		{
			name: "empty stdout fails with stderr",
			outcome: formatter.Outcome{
				StderrChunks: [][]byte{[]byte("/work/pkg/.foo.cabal-fmt-42.cabal:3: "), []byte("parse error\n")},
				ExitCode:     1,
			},
			expectFailure: true,
			expectMessage: "foo.cabal:3: parse error\n",
		},
		{
			name: "bare temporary name is scrubbed",
			outcome: formatter.Outcome{
				StderrChunks: [][]byte{[]byte("in .foo.cabal-fmt-42.cabal: bad field")},
			},
			expectFailure: true,
			expectMessage: "in foo.cabal: bad field",
		},
		{
			name:          "silent failure",
			outcome:       formatter.Outcome{ExitCode: 1},
			expectFailure: true,
			expectMessage: "",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			text, err := formatter.Reconcile(testCase.outcome, request)
			if !testCase.expectFailure {
				if err != nil {
					t.Fatalf("Reconcile error: %v", err)
				}
				if text != testCase.expectText {
					t.Fatalf("expected %q, got %q", testCase.expectText, text)
				}
				return
			}
			var formatterError *formatter.FormatterError
			if !errors.As(err, &formatterError) {
				t.Fatalf("expected FormatterError, got %v", err)
			}
			if text != "" {
				t.Fatalf("expected no text on failure, got %q", text)
			}
			if formatterError.Message != testCase.expectMessage {
				t.Fatalf("expected message %q, got %q", testCase.expectMessage, formatterError.Message)
			}
			if formatterError.Document != "foo.cabal" {
				t.Fatalf("expected document foo.cabal, got %q", formatterError.Document)
			}
		})
	}
}

func TestInvocationRequestArguments(t *testing.T) {
	t.Parallel()

	request := formatter.InvocationRequest{
		InputPath: "/tmp/copy.cabal",
		ExtraArgs: formatter.FormattingArguments(config.FormatterConfiguration{Indent: config.IntValue(2)}),
	}
	arguments := request.Arguments()
	expected := []string{"--indent", "2", "/tmp/copy.cabal"}
	if len(arguments) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, arguments)
	}
	for index := range expected {
		if arguments[index] != expected[index] {
			t.Fatalf("expected %v, got %v", expected, arguments)
		}
	}

	if extra := formatter.FormattingArguments(config.FormatterConfiguration{}); extra != nil {
		t.Fatalf("expected no formatting arguments without indent, got %v", extra)
	}
}

func TestNotificationMessage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "formatter stderr",
			err:      &formatter.FormatterError{Document: "foo.cabal", Message: "parse error: line 3"},
			expected: "Stderr from cabal-fmt: parse error: line 3",
		},
		{
			name:     "formatter stderr is trimmed for display",
			err:      &formatter.FormatterError{Document: "foo.cabal", Message: "foo.cabal:3: parse error\n"},
			expected: "Stderr from cabal-fmt: foo.cabal:3: parse error",
		},
		{
			name:     "blank formatter stderr falls back to exit code",
			err:      &formatter.FormatterError{Document: "foo.cabal", ExitCode: 1, Message: "\n"},
			expected: "Stderr from cabal-fmt: cabal-fmt produced no output for foo.cabal (exit code 1)",
		},
		{
			name:     "spawn failure",
			err:      &formatter.SpawnError{Binary: "cabal-fmt", Cause: errors.New("permission denied")},
			expected: "Failed to call cabal-fmt: permission denied",
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			expected: "cabal-fmt: boom",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if actual := formatter.NotificationMessage(testCase.err); actual != testCase.expected {
				t.Fatalf("expected %q, got %q", testCase.expected, actual)
			}
		})
	}
}
