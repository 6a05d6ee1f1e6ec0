// Package build runs the detect, acquire, build and emit pipeline against
// one output directory.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/pasys/internal/linkflags"
	"github.com/goplus/pasys/internal/lockedfile"
	"github.com/goplus/pasys/internal/pkgconfig"
	"github.com/goplus/pasys/internal/platform"
)

// ErrNoOutDir is returned when no output directory was supplied.
var ErrNoOutDir = errors.New("output directory not set (use --out-dir or OUT_DIR)")

const lockFile = ".pasys.lock"

// Detector finds an installed library.
type Detector interface {
	Detect(ctx context.Context) (*pkgconfig.Match, error)
}

// Outcome says how a Result was obtained.
type Outcome int

const (
	// Detected means an installed library was found.
	Detected Outcome = iota
	// Cached means a previous build in the output directory was reused.
	Cached
	// Built means the library was downloaded and built by this run.
	Built
)

func (o Outcome) String() string {
	switch o {
	case Detected:
		return "detected"
	case Cached:
		return "cached"
	case Built:
		return "built"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is what a run produced.
type Result struct {
	Outcome Outcome
	Version string
	// Artifact is the static library path; empty when Detected.
	Artifact string
	Flags    linkflags.Flags
}

// Builder drives one output directory.
type Builder struct {
	OutDir string
	// WorkDir receives downloads and extracted sources. Defaults to the
	// current directory.
	WorkDir string
	// OnlyStatic skips detection.
	OnlyStatic bool
	// Verify checks the artifact against the digest recorded when it was
	// built, instead of trusting its presence.
	Verify bool

	Detector Detector
	Strategy platform.Strategy
	Logger   *slog.Logger
}

// Run detects an installed library and falls back to Ensure.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	if b.OutDir == "" {
		return nil, ErrNoOutDir
	}
	if b.OnlyStatic || b.Detector == nil {
		b.logger().Debug("detection skipped")
		return b.Ensure(ctx)
	}
	m, err := b.Detector.Detect(ctx)
	if err == nil {
		return &Result{Outcome: Detected, Version: m.Version, Flags: m.Flags}, nil
	}
	if !errors.Is(err, pkgconfig.ErrNotFound) {
		return nil, err
	}
	b.logger().Info("system library not usable, building from release", "reason", err)
	return b.Ensure(ctx)
}

// Ensure makes sure the static library exists in OutDir, building it when
// missing, and returns the directives linking it.
func (b *Builder) Ensure(ctx context.Context) (*Result, error) {
	if b.OutDir == "" {
		return nil, ErrNoOutDir
	}
	log := b.logger()
	artifact := b.Strategy.Artifact(b.OutDir)
	rel := b.Strategy.Release()

	outcome := Cached
	if !b.complete(artifact) {
		if err := os.MkdirAll(b.OutDir, 0o755); err != nil {
			return nil, err
		}
		unlock, err := lockedfile.MutexAt(filepath.Join(b.OutDir, lockFile)).Lock()
		if err != nil {
			return nil, err
		}
		defer unlock()

		// Check again after acquiring the lock; another process may have
		// finished the build meanwhile.
		if !b.complete(artifact) {
			if err := b.build(ctx, artifact); err != nil {
				b.discard(artifact)
				return nil, err
			}
			outcome = Built
		}
	}
	if outcome == Cached {
		log.Info("reusing static library", "artifact", artifact)
	}

	flags, err := b.Strategy.Emit(ctx, b.OutDir)
	if err != nil {
		return nil, err
	}
	return &Result{Outcome: outcome, Version: rel.Version, Artifact: artifact, Flags: flags}, nil
}

func (b *Builder) build(ctx context.Context, artifact string) error {
	workDir := b.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		workDir = wd
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return err
	}

	start := time.Now()
	archive, err := b.Strategy.Download(ctx, workDir)
	if err != nil {
		return err
	}
	if err := b.Strategy.Build(ctx, archive, workDir, b.OutDir); err != nil {
		return err
	}
	if _, err := os.Stat(artifact); err != nil {
		return fmt.Errorf("build finished without producing %s: %w", artifact, err)
	}

	st, err := newStamp(b.Strategy, b.OutDir, artifact)
	if err != nil {
		return err
	}
	if err := saveStamp(b.OutDir, st); err != nil {
		return err
	}
	b.logger().Info("built static library", "artifact", artifact, "version", st.Version, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// complete reports whether artifact marks a finished build.
func (b *Builder) complete(artifact string) bool {
	if _, err := os.Stat(artifact); err != nil {
		return false
	}
	if !b.Verify {
		return true
	}
	st, err := loadStamp(b.OutDir)
	if err != nil {
		b.logger().Warn("no usable build stamp, rebuilding", "error", err)
		return false
	}
	if err := st.verify(b.OutDir); err != nil {
		b.logger().Warn("artifact does not match build stamp, rebuilding", "error", err)
		return false
	}
	return true
}

// discard removes what a failed build may have left behind so it is never
// mistaken for a finished one.
func (b *Builder) discard(artifact string) {
	for _, p := range []string{artifact, filepath.Join(b.OutDir, stampFile)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			b.logger().Warn("cleanup failed", "path", p, "error", err)
		}
	}
}

// Clean removes the artifact and build stamp from OutDir.
func (b *Builder) Clean() error {
	if b.OutDir == "" {
		return ErrNoOutDir
	}
	unlock, err := lockedfile.MutexAt(filepath.Join(b.OutDir, lockFile)).Lock()
	if err != nil {
		return err
	}
	defer unlock()
	for _, p := range []string{b.Strategy.Artifact(b.OutDir), filepath.Join(b.OutDir, stampFile)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
