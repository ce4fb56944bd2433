package formatter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
)

// Invocation describes one formatter process.
type Invocation struct {
	Binary    string
	Arguments []string
	Directory string
}

// Outcome is what a finished process left behind. Each stream is kept as the
// ordered list of chunks it emitted and is only concatenated on demand.
type Outcome struct {
	StdoutChunks [][]byte
	StderrChunks [][]byte
	ExitCode     int
}

// Stdout returns the concatenated standard output.
func (outcome Outcome) Stdout() []byte {
	return bytes.Join(outcome.StdoutChunks, nil)
}

// Stderr returns the concatenated standard error.
func (outcome Outcome) Stderr() []byte {
	return bytes.Join(outcome.StderrChunks, nil)
}

// Runner executes a formatter process to completion.
type Runner interface {
	Run(ctx context.Context, invocation Invocation) (Outcome, error)
}

// RunnerFunc adapts a function into a Runner.
type RunnerFunc func(context.Context, Invocation) (Outcome, error)

// Run invokes the underlying function.
func (runner RunnerFunc) Run(ctx context.Context, invocation Invocation) (Outcome, error) {
	return runner(ctx, invocation)
}

// ProcessRunner runs invocations as operating system processes.
// A non-zero exit status is recorded in the Outcome and is not an error;
// only start failures, cancellation and stream failures are.
type ProcessRunner struct{}

// Run starts the process and waits until it exited and both streams are drained.
func (ProcessRunner) Run(ctx context.Context, invocation Invocation) (Outcome, error) {
	command := exec.CommandContext(ctx, invocation.Binary, invocation.Arguments...)
	command.Dir = invocation.Directory
	stdout := &chunkBuffer{}
	stderr := &chunkBuffer{}
	command.Stdout = stdout
	command.Stderr = stderr

	if startErr := command.Start(); startErr != nil {
		return Outcome{}, &SpawnError{Binary: invocation.Binary, Cause: startErr}
	}
	waitErr := command.Wait()

	outcome := Outcome{
		StdoutChunks: stdout.snapshot(),
		StderrChunks: stderr.snapshot(),
		ExitCode:     -1,
	}
	if command.ProcessState != nil {
		outcome.ExitCode = command.ProcessState.ExitCode()
	}
	if ctx.Err() != nil {
		return outcome, fmt.Errorf("%s interrupted: %w", invocation.Binary, ctx.Err())
	}
	if waitErr != nil {
		var exitError *exec.ExitError
		if !errors.As(waitErr, &exitError) {
			return outcome, fmt.Errorf("wait for %s: %w", invocation.Binary, waitErr)
		}
	}
	return outcome, nil
}

// chunkBuffer is an append-only list of copied writes.
type chunkBuffer struct {
	mutex  sync.Mutex
	chunks [][]byte
}

func (buffer *chunkBuffer) Write(data []byte) (int, error) {
	chunk := make([]byte, len(data))
	copy(chunk, data)
	buffer.mutex.Lock()
	buffer.chunks = append(buffer.chunks, chunk)
	buffer.mutex.Unlock()
	return len(data), nil
}

func (buffer *chunkBuffer) snapshot() [][]byte {
	buffer.mutex.Lock()
	defer buffer.mutex.Unlock()
	return append([][]byte(nil), buffer.chunks...)
}
