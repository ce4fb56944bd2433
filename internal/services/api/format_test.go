package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/temirov/cabalfmt/internal/formatter"
	"github.com/temirov/cabalfmt/internal/resolver"
	"github.com/temirov/cabalfmt/internal/services/api"
)

type formatterFunc func(ctx context.Context, document formatter.Document) (string, error)

func (function formatterFunc) Format(ctx context.Context, document formatter.Document) (string, error) {
	return function(ctx, document)
}

func TestFormatCommandStatusMapping(t *testing.T) {
	t.Parallel()
	workDirectory := t.TempDir()
	manifestPath := filepath.Join(workDirectory, "foo.cabal")
	notADirectory := filepath.Join(workDirectory, "plain")
	if err := os.WriteFile(notADirectory, []byte("x"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	testCases := []struct {
		name           string
		method         string
		path           string
		body           string
		formatErr      error
		expectedStatus int
		expectedOutput string
		expectedError  string
	}{
		{
			name:           "formatted",
			method:         http.MethodPost,
			path:           "/commands/format",
			body:           `{"path": ` + strconv.Quote(manifestPath) + `, "text": "name: foo"}`,
			expectedStatus: http.StatusOK,
			expectedOutput: manifestPath + "|NAME: FOO",
		},
		{
			name:           "relative path",
			method:         http.MethodPost,
			path:           "/commands/format",
			body:           `{"path": "sub/foo.cabal", "text": "name: foo"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "is not absolute",
		},
		{
			name:           "missing directory",
			method:         http.MethodPost,
			path:           "/commands/format",
			body:           `{"path": ` + strconv.Quote(filepath.Join(workDirectory, "missing", "foo.cabal")) + `, "text": "name: foo"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "path directory",
		},
		{
			name:           "directory is a file",
			method:         http.MethodPost,
			path:           "/commands/format",
			body:           `{"path": ` + strconv.Quote(filepath.Join(notADirectory, "foo.cabal")) + `, "text": "name: foo"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "is not a directory",
		},
		{
			name:           "malformed body",
			method:         http.MethodPost,
			path:           "/commands/format",
			body:           `{"text":`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "decode format request",
		},
		{
			name:           "unknown field",
			method:         http.MethodPost,
			path:           "/commands/format",
			body:           `{"txt": "name: foo"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "unknown field",
		},
		{
			name:           "formatter failure",
			method:         http.MethodPost,
			path:           "/commands/format",
			body:           `{"text": "name"}`,
			formatErr:      &formatter.FormatterError{Document: "untitled.cabal", ExitCode: 1, Message: "untitled.cabal:1:5: parse error"},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "Stderr from cabal-fmt: untitled.cabal:1:5: parse error",
		},
		{
			name:           "unknown binary",
			method:         http.MethodPost,
			path:           "/commands/format",
			body:           `{"text": "name: foo"}`,
			formatErr:      &resolver.ConfigurationError{Path: "/nowhere/cabal-fmt", Cause: errors.New("not found")},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Path to cabal-fmt is set to an unknown place: /nowhere/cabal-fmt",
		},
		{
			name:           "unknown command",
			method:         http.MethodPost,
			path:           "/commands/lint",
			body:           `{}`,
			expectedStatus: http.StatusNotFound,
			expectedError:  "command not found",
		},
		{
			name:           "wrong method",
			method:         http.MethodGet,
			path:           "/commands/format",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			server := api.NewServer(api.Config{
				Executors: map[string]api.CommandExecutor{
					api.FormatCommandName: api.NewFormatExecutor(formatterFunc(func(_ context.Context, document formatter.Document) (string, error) {
						if testCase.formatErr != nil {
							return "", testCase.formatErr
						}
						return document.Path + "|" + strings.ToUpper(document.Text), nil
					})),
				},
			})

			request := httptest.NewRequest(testCase.method, testCase.path, strings.NewReader(testCase.body))
			recorder := httptest.NewRecorder()
			server.Handler().ServeHTTP(recorder, request)

			if recorder.Code != testCase.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", testCase.expectedStatus, recorder.Code, recorder.Body.String())
			}
			if testCase.expectedStatus == http.StatusMethodNotAllowed {
				return
			}
			var body map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if testCase.expectedOutput != "" && body["output"] != testCase.expectedOutput {
				t.Fatalf("expected output %q, got %q", testCase.expectedOutput, body["output"])
			}
			if testCase.expectedError != "" && !strings.Contains(body["error"], testCase.expectedError) {
				t.Fatalf("expected error containing %q, got %q", testCase.expectedError, body["error"])
			}
		})
	}
}

func TestRootRespondsOK(t *testing.T) {
	t.Parallel()
	server := api.NewServer(api.Config{})

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 from root, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown paths, got %d", recorder.Code)
	}
}
