package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/temirov/cabalfmt/internal/config"
	"github.com/temirov/cabalfmt/internal/resolver"
	"github.com/temirov/cabalfmt/internal/services/clipboard"
)

const upperCaseFormatterScript = "tr 'a-z' 'A-Z' < \"$1\""

type commandResult struct {
	stdout string
	stderr string
	err    error
}

type recordingCopier struct {
	copied []string
}

func (copier *recordingCopier) Copy(text string) error {
	copier.copied = append(copier.copied, text)
	return nil
}

// isolatedEnvironment points HOME at an empty directory and runs commands from workingDirectory.
func isolatedEnvironment(t *testing.T, workingDirectory string, copier clipboard.Copier) environment {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, variable := range []string{"CABALFMT_BINARY_PATH", "CABALFMT_INDENT", "CABALFMT_AUTO_FORMAT"} {
		t.Setenv(variable, "")
		os.Unsetenv(variable)
	}
	return environment{
		copier:           copier,
		resolver:         resolver.New(),
		workingDirectory: func() (string, error) { return workingDirectory, nil },
	}
}

func executeCommand(env environment, stdin string, arguments ...string) commandResult {
	rootCommand := newRootCommand(env)
	var stdout, stderr bytes.Buffer
	rootCommand.SetIn(strings.NewReader(stdin))
	rootCommand.SetOut(&stdout)
	rootCommand.SetErr(&stderr)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	executeErr := rootCommand.ExecuteContext(context.Background())
	return commandResult{stdout: stdout.String(), stderr: stderr.String(), err: executeErr}
}

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

func writeManifest(t *testing.T, directory string, content string) string {
	t.Helper()
	manifestPath := filepath.Join(directory, "foo.cabal")
	if err := os.WriteFile(manifestPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return manifestPath
}

func TestFormatCommand(t *testing.T) {
	stubPath := writeStubFormatter(t, upperCaseFormatterScript)

	testCases := []struct {
		name           string
		arguments      func(manifestPath string) []string
		stdin          string
		expectedStdout string
		expectedOnDisk string
		expectedCopied []string
	}{
		{
			name:           "prints formatted manifest",
			arguments:      func(manifestPath string) []string { return []string{"format", "--binary", stubPath, manifestPath} },
			expectedStdout: "NAME: FOO\n",
			expectedOnDisk: "name: foo\n",
		},
		{
			name:           "rewrites in place",
			arguments:      func(manifestPath string) []string { return []string{"format", "--write", "--binary", stubPath, manifestPath} },
			expectedOnDisk: "NAME: FOO\n",
		},
		{
			name:           "copies to clipboard",
			arguments:      func(manifestPath string) []string { return []string{"format", "--copy", "yes", "--binary", stubPath, manifestPath} },
			expectedStdout: "NAME: FOO\n",
			expectedOnDisk: "name: foo\n",
			expectedCopied: []string{"NAME: FOO\n"},
		},
		{
			name:           "reads standard input",
			arguments:      func(string) []string { return []string{"format", "--binary", stubPath, "-"} },
			stdin:          "name: bar\n",
			expectedStdout: "NAME: BAR\n",
			expectedOnDisk: "name: foo\n",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			workingDirectory := t.TempDir()
			manifestPath := writeManifest(t, workingDirectory, "name: foo\n")
			copier := &recordingCopier{}
			result := executeCommand(isolatedEnvironment(t, workingDirectory, copier), testCase.stdin, testCase.arguments(manifestPath)...)
			if result.err != nil {
				t.Fatalf("format failed: %v (stderr %q)", result.err, result.stderr)
			}
			if result.stdout != testCase.expectedStdout {
				t.Fatalf("expected stdout %q, got %q", testCase.expectedStdout, result.stdout)
			}
			onDisk, readErr := os.ReadFile(manifestPath)
			if readErr != nil {
				t.Fatalf("read manifest: %v", readErr)
			}
			if string(onDisk) != testCase.expectedOnDisk {
				t.Fatalf("expected file content %q, got %q", testCase.expectedOnDisk, string(onDisk))
			}
			if strings.Join(copier.copied, "|") != strings.Join(testCase.expectedCopied, "|") {
				t.Fatalf("expected clipboard %v, got %v", testCase.expectedCopied, copier.copied)
			}
		})
	}
}

func TestFormatCommandReportsFormatterFailure(t *testing.T) {
	stubPath := writeStubFormatter(t, "echo \"$1:1:1: boom\" >&2\nexit 1")
	workingDirectory := t.TempDir()
	manifestPath := writeManifest(t, workingDirectory, "name: foo\n")

	result := executeCommand(isolatedEnvironment(t, workingDirectory, &recordingCopier{}), "", "format", "--binary", stubPath, manifestPath)
	if result.err == nil {
		t.Fatalf("expected format to fail")
	}
	if !strings.Contains(result.err.Error(), "foo.cabal:1:1: boom") {
		t.Fatalf("expected scrubbed stderr in error, got %v", result.err)
	}
	if result.stdout != "" {
		t.Fatalf("expected no output, got %q", result.stdout)
	}
}

func TestFormatCommandRejectsWriteToStandardInput(t *testing.T) {
	result := executeCommand(isolatedEnvironment(t, t.TempDir(), &recordingCopier{}), "name: foo\n", "format", "--write", "-")
	if result.err == nil || result.err.Error() != writeStandardInputMessage {
		t.Fatalf("expected %q, got %v", writeStandardInputMessage, result.err)
	}
}

func TestConfigCommandPrintsEffectiveConfiguration(t *testing.T) {
	workingDirectory := t.TempDir()
	env := isolatedEnvironment(t, workingDirectory, &recordingCopier{})
	env.resolver = resolverFunc(func(configuration config.FormatterConfiguration) (string, error) {
		return configuration.OverridePath(), nil
	})
	if err := os.WriteFile(filepath.Join(workingDirectory, ".cabalfmt.yaml"), []byte("indent: 2\nbinary_path: /usr/bin/cabal-fmt\n"), 0o600); err != nil {
		t.Fatalf("write configuration: %v", err)
	}
	t.Setenv("CABALFMT_AUTO_FORMAT", "true")

	result := executeCommand(env, "", "config", "--indent", "4")
	if result.err != nil {
		t.Fatalf("config failed: %v", result.err)
	}
	expected := "binary_path: /usr/bin/cabal-fmt\nindent: 4\nauto_format: true\nresolved_binary: /usr/bin/cabal-fmt\n"
	if result.stdout != expected {
		t.Fatalf("expected\n%s\ngot\n%s", expected, result.stdout)
	}
}

func TestConfigCommandReportsResolutionFailure(t *testing.T) {
	env := isolatedEnvironment(t, t.TempDir(), &recordingCopier{})
	env.resolver = resolverFunc(func(config.FormatterConfiguration) (string, error) {
		return "", resolver.ErrFormatterNotFound
	})

	result := executeCommand(env, "", "config")
	if result.err != nil {
		t.Fatalf("config failed: %v", result.err)
	}
	if !strings.Contains(result.stdout, "resolve_error: "+resolver.ErrFormatterNotFound.Error()) {
		t.Fatalf("expected resolve error in output, got %q", result.stdout)
	}
}

func TestInitCommand(t *testing.T) {
	workingDirectory := t.TempDir()
	env := isolatedEnvironment(t, workingDirectory, &recordingCopier{})
	expectedPath := filepath.Join(workingDirectory, ".cabalfmt.yaml")

	first := executeCommand(env, "", "init")
	if first.err != nil {
		t.Fatalf("init failed: %v", first.err)
	}
	if first.stdout != "wrote "+expectedPath+"\n" {
		t.Fatalf("unexpected output %q", first.stdout)
	}

	second := executeCommand(env, "", "init")
	if second.err == nil {
		t.Fatalf("expected init to refuse overwriting")
	}

	forced := executeCommand(env, "", "init", "--force")
	if forced.err != nil {
		t.Fatalf("forced init failed: %v", forced.err)
	}
}

func TestWatchCommandRequiresEligibleFolder(t *testing.T) {
	workingDirectory := t.TempDir()
	if err := os.WriteFile(filepath.Join(workingDirectory, "package.yaml"), []byte("name: foo\n"), 0o644); err != nil {
		t.Fatalf("write package.yaml: %v", err)
	}
	writeManifest(t, workingDirectory, "name: foo\n")

	result := executeCommand(isolatedEnvironment(t, workingDirectory, &recordingCopier{}), "", "watch", workingDirectory)
	if result.err == nil || !strings.Contains(result.err.Error(), noEligibleFoldersMessage) {
		t.Fatalf("expected %q, got %v", noEligibleFoldersMessage, result.err)
	}
}

func TestVersionFlag(t *testing.T) {
	result := executeCommand(isolatedEnvironment(t, t.TempDir(), &recordingCopier{}), "", "--version")
	if result.err != nil {
		t.Fatalf("--version failed: %v", result.err)
	}
	if !strings.HasPrefix(result.stdout, "cabalfmt version: ") {
		t.Fatalf("unexpected version output %q", result.stdout)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	result := executeCommand(isolatedEnvironment(t, t.TempDir(), &recordingCopier{}), "", "config", "--log-level", "loud")
	if result.err == nil || !strings.Contains(result.err.Error(), "invalid log level") {
		t.Fatalf("expected log level error, got %v", result.err)
	}
}

func TestStdioStreamClosesBothEnds(t *testing.T) {
	reader := &closeRecorder{}
	writer := &closeRecorder{err: errors.New("broken pipe")}
	stream := stdioStream{Reader: reader, Writer: writer}
	if err := stream.Close(); err == nil || err.Error() != "broken pipe" {
		t.Fatalf("expected writer close error, got %v", err)
	}
	if !reader.closed || !writer.closed {
		t.Fatalf("expected both ends closed")
	}
}

type resolverFunc func(config.FormatterConfiguration) (string, error)

func (function resolverFunc) Resolve(configuration config.FormatterConfiguration) (string, error) {
	return function(configuration)
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
	err    error
}

func (recorder *closeRecorder) Close() error {
	recorder.closed = true
	return recorder.err
}
