// Package shelltest provides a recording shell.Runner for tests.
package shelltest

import (
	"context"
	"sync"

	"github.com/goplus/pasys/internal/shell"
)

// Recorder records every command it is asked to run. Handle, when set,
// decides the outcome of each command; otherwise every command succeeds
// with empty output.
type Recorder struct {
	Handle func(cmd shell.Cmd) ([]byte, error)

	mu    sync.Mutex
	calls []shell.Cmd
}

var _ shell.Runner = (*Recorder)(nil)

func (r *Recorder) Run(ctx context.Context, cmd shell.Cmd) error {
	_, err := r.invoke(cmd)
	return err
}

func (r *Recorder) Output(ctx context.Context, cmd shell.Cmd) ([]byte, error) {
	return r.invoke(cmd)
}

func (r *Recorder) invoke(cmd shell.Cmd) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()
	if r.Handle == nil {
		return nil, nil
	}
	out, err := r.Handle(cmd)
	if err != nil {
		if _, ok := err.(*shell.CommandError); !ok {
			err = &shell.CommandError{Cmd: cmd, Err: err}
		}
	}
	return out, err
}

// Calls returns the recorded commands in order.
func (r *Recorder) Calls() []shell.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shell.Cmd(nil), r.calls...)
}

// Lines returns the recorded command lines in order.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}
