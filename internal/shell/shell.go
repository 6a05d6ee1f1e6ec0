// Package shell runs the external tools pasys depends on (curl, tar,
// configure, make, pkg-config) with an explicit working directory.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// Cmd describes a single subprocess invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env overrides entries of the inherited environment.
	Env map[string]string
}

// Command returns a Cmd running name with args inside dir.
func Command(dir, name string, args ...string) Cmd {
	return Cmd{Name: name, Args: args, Dir: dir}
}

// String renders the command line, quoting arguments that need it.
func (c Cmd) String() string {
	parts := make([]string, 0, 1+len(c.Args))
	for _, s := range append([]string{c.Name}, c.Args...) {
		if s == "" || strings.ContainsAny(s, " \t\"'") {
			s = strconv.Quote(s)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// CommandError reports a subprocess that could not start or exited non-zero.
type CommandError struct {
	Cmd Cmd
	Err error
	// Stderr holds captured standard error for Output calls.
	Stderr string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("`%s` did not execute successfully: %v", e.Cmd, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner executes commands.
type Runner interface {
	// Run executes cmd, streaming its output.
	Run(ctx context.Context, cmd Cmd) error
	// Output executes cmd and returns its standard output.
	Output(ctx context.Context, cmd Cmd) ([]byte, error)
}

// Exec is the Runner backed by os/exec.
//
// Subprocess stdout goes to Stdout, which defaults to os.Stderr: the
// process's own stdout is reserved for linker directives.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

var _ Runner = (*Exec)(nil)

func (e *Exec) Run(ctx context.Context, c Cmd) error {
	cmd := e.command(ctx, c)
	cmd.Stdout = e.stdout()
	cmd.Stderr = e.stderr()
	if err := cmd.Run(); err != nil {
		return &CommandError{Cmd: c, Err: err}
	}
	return nil
}

func (e *Exec) Output(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := e.command(ctx, c)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, &CommandError{Cmd: c, Err: err, Stderr: strings.TrimSpace(stderr.String())}
	}
	return out, nil
}

func (e *Exec) command(ctx context.Context, c Cmd) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = MergeEnv(os.Environ(), c.Env)
	}
	return cmd
}

func (e *Exec) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stderr
}

func (e *Exec) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

// MergeEnv returns base with every key in overrides replaced or appended,
// sorted by key.
func MergeEnv(base []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(base)+len(overrides))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range overrides {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}
