// Package platform selects how PortAudio is acquired, built and linked on
// a target platform. Each platform family is one Strategy, chosen once by
// For.
package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/goplus/pasys/internal/archive"
	"github.com/goplus/pasys/internal/fetch"
	"github.com/goplus/pasys/internal/linkflags"
	"github.com/goplus/pasys/internal/pkgconfig"
	"github.com/goplus/pasys/internal/release"
	"github.com/goplus/pasys/internal/shell"
)

// Target is a GOOS/GOARCH pair.
type Target struct {
	OS   string
	Arch string
}

// Host returns the platform pasys runs on.
func Host() Target {
	return Target{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

func (t Target) String() string {
	return t.OS + "/" + t.Arch
}

// Strategy is the per-platform way of producing and linking the static
// library.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string
	// Release is the archive this strategy acquires.
	Release() release.Release
	// Artifact is the path of the static library under outDir. Its
	// presence marks a completed build.
	Artifact(outDir string) string
	// Download fetches the release archive into workDir.
	Download(ctx context.Context, workDir string) (string, error)
	// Build turns the downloaded archive into the artifact.
	Build(ctx context.Context, archive, workDir, outDir string) error
	// Emit returns the directives linking the artifact in outDir.
	Emit(ctx context.Context, outDir string) (linkflags.Flags, error)
}

// Build systems usable on source platforms.
const (
	Autotools = "autotools"
	CMake     = "cmake"
)

// Options configure a Strategy. Zero values select the defaults.
type Options struct {
	Runner    shell.Runner
	Fetcher   fetch.Fetcher
	Extractor archive.Extractor
	PkgConfig *pkgconfig.Client

	// Version pins a catalogue release; empty picks the newest.
	Version string
	// URL replaces the download location of the selected release.
	URL string
	// BuildSystem is Autotools (default) or CMake.
	BuildSystem string
	// Jobs sets the build parallelism; 0 leaves it to the build tool.
	Jobs int
	// KeepSources keeps the archive and extracted tree after a source
	// build.
	KeepSources bool

	Logger *slog.Logger
}

// For returns the strategy for target. It fails with an error wrapping
// release.ErrUnsupported when nothing can be built for target.
func For(target Target, opts Options) (Strategy, error) {
	rel, err := release.Lookup(target.OS, target.Arch, opts.Version)
	if err != nil {
		return nil, err
	}
	if opts.URL != "" {
		if rel, err = rel.WithURL(opts.URL); err != nil {
			return nil, err
		}
	}

	if opts.Runner == nil {
		opts.Runner = &shell.Exec{}
	}
	if opts.Fetcher == nil {
		opts.Fetcher = &fetch.Tool{Runner: opts.Runner, GOOS: target.OS}
	}
	if opts.Extractor == nil {
		opts.Extractor = &archive.Tool{Runner: opts.Runner}
	}
	if opts.PkgConfig == nil {
		opts.PkgConfig = pkgconfig.New(opts.Runner, "")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	switch rel.Kind {
	case release.Source:
		switch opts.BuildSystem {
		case "", Autotools, CMake:
		default:
			return nil, fmt.Errorf("unknown build system %q (want %q or %q)", opts.BuildSystem, Autotools, CMake)
		}
		s := &sourceStrategy{target: target, rel: rel, opts: opts}
		switch {
		case target.OS == "darwin":
			s.emit = emitDarwin
		case target.OS == "linux":
			s.emit = s.emitManifest
		default:
			s.emit = emitPlain
		}
		return s, nil
	case release.Binary:
		return &binaryStrategy{target: target, rel: rel, opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %s release kind %v", release.ErrUnsupported, target, rel.Kind)
	}
}

// moveFile renames src to dst, copying when they live on different
// filesystems.
func moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// removeAll deletes paths, ignoring ones already gone.
func removeAll(paths ...string) error {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
