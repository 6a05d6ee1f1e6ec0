// Package autotools wraps the classic configure/make/make-install workflow.
package autotools

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/pasys/internal/shell"
	"github.com/goplus/pasys/pkgs/buildsys"
)

// AutoTools drives Autotools-style builds.
type AutoTools struct {
	runner     shell.Runner
	sourceDir  string
	buildDir   string
	installDir string
	env        map[string]string
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New returns a ready-to-use AutoTools. An empty buildDir builds inside
// the source tree.
func New(runner shell.Runner, sourceDir, buildDir, installDir string) *AutoTools {
	return &AutoTools{
		runner:     runner,
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		env:        make(map[string]string),
	}
}

// Env sets key=value for every command spawned later. The process
// environment is left alone.
func (a *AutoTools) Env(key, value string) {
	a.env[key] = value
}

// Configure runs <sourceDir>/configure inside the build directory.
// --prefix is prepended automatically when installDir is set.
// Extra flags are appended after --prefix.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	dir := a.workDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	exe := "./configure"
	if dir != a.sourceDir {
		exe = filepath.Join(a.sourceDir, "configure")
	}
	flags := make([]string, 0, 1+len(args))
	if a.installDir != "" {
		flags = append(flags, "--prefix="+a.installDir)
	}
	return a.run(ctx, exe, append(flags, args...))
}

// Build runs "make" with optional extra arguments.
func (a *AutoTools) Build(ctx context.Context, args ...string) error {
	return a.run(ctx, "make", args)
}

// Install runs "make install" with optional extra arguments appended.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	return a.run(ctx, "make", append([]string{"install"}, args...))
}

// OutputDir returns installDir if set, otherwise the build directory.
func (a *AutoTools) OutputDir() string {
	if a.installDir != "" {
		return a.installDir
	}
	return a.workDir()
}

func (a *AutoTools) workDir() string {
	if a.buildDir == "" {
		return a.sourceDir
	}
	return a.buildDir
}

func (a *AutoTools) run(ctx context.Context, name string, args []string) error {
	cmd := shell.Command(a.workDir(), name, args...)
	if len(a.env) > 0 {
		cmd.Env = a.env
	}
	return a.runner.Run(ctx, cmd)
}
