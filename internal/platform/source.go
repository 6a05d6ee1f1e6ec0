package platform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/goplus/pasys/internal/linkflags"
	"github.com/goplus/pasys/internal/pkgconfig"
	"github.com/goplus/pasys/internal/release"
	"github.com/goplus/pasys/pkgs/buildsys"
	"github.com/goplus/pasys/x/autotools"
	"github.com/goplus/pasys/x/cmake"
)

// staticLib is the library name every strategy links.
const staticLib = "portaudio"

// darwinFrameworks are the system frameworks PortAudio's CoreAudio host
// API needs.
var darwinFrameworks = []string{"CoreServices", "CoreFoundation", "AudioUnit", "AudioToolbox", "CoreAudio"}

// configureFlags produce a position independent static-only library.
var configureFlags = []string{"--disable-shared", "--enable-static", "--disable-mac-universal", "--with-pic"}

// sourceStrategy builds the library from a source tarball.
type sourceStrategy struct {
	target Target
	rel    release.Release
	opts   Options
	emit   func(ctx context.Context, outDir string) (linkflags.Flags, error)
}

func (s *sourceStrategy) Name() string {
	bs := s.opts.BuildSystem
	if bs == "" {
		bs = Autotools
	}
	return "source/" + bs
}

func (s *sourceStrategy) Release() release.Release { return s.rel }

func (s *sourceStrategy) Artifact(outDir string) string {
	return filepath.Join(outDir, "lib", "lib"+staticLib+".a")
}

func (s *sourceStrategy) Download(ctx context.Context, workDir string) (string, error) {
	s.opts.Logger.Info("downloading", "url", s.rel.URL)
	return s.opts.Fetcher.Fetch(ctx, s.rel, workDir)
}

func (s *sourceStrategy) Build(ctx context.Context, archive, workDir, outDir string) error {
	log := s.opts.Logger
	log.Info("extracting", "archive", archive)
	if err := s.opts.Extractor.Extract(ctx, archive, workDir); err != nil {
		return err
	}

	src := filepath.Join(workDir, s.rel.Folder)
	var err error
	if s.opts.BuildSystem == CMake {
		err = s.buildCMake(ctx, src, outDir)
	} else {
		err = s.buildAutotools(ctx, src, outDir)
	}
	if err != nil {
		return err
	}

	if s.opts.KeepSources {
		return nil
	}
	return removeAll(archive, src)
}

func (s *sourceStrategy) buildAutotools(ctx context.Context, src, outDir string) error {
	at := autotools.New(s.opts.Runner, src, "", outDir)
	if s.opts.Jobs > 0 {
		at.Env("MAKEFLAGS", "-j"+strconv.Itoa(s.opts.Jobs))
	}
	return s.run(ctx, at, configureFlags)
}

func (s *sourceStrategy) buildCMake(ctx context.Context, src, outDir string) error {
	cm := cmake.New(s.opts.Runner, src, filepath.Join(src, "build"), outDir)
	if s.opts.Jobs > 0 {
		cm.Env("CMAKE_BUILD_PARALLEL_LEVEL", strconv.Itoa(s.opts.Jobs))
	}
	cm.BuildType("Release")
	cm.DefineBool("PA_BUILD_SHARED", false)
	cm.DefineBool("PA_BUILD_STATIC", true)
	cm.DefineBool("CMAKE_POSITION_INDEPENDENT_CODE", true)
	cm.Define("CMAKE_INSTALL_LIBDIR", "lib")
	if err := s.run(ctx, cm, nil); err != nil {
		return err
	}

	// Some CMake builds name the archive after the target.
	lib := filepath.Join(outDir, "lib", "lib"+staticLib+"_static.a")
	if _, err := os.Stat(lib); err == nil {
		return os.Rename(lib, s.Artifact(outDir))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *sourceStrategy) run(ctx context.Context, b buildsys.BuildSystem, configure []string) error {
	log := s.opts.Logger
	log.Info("configuring", "dir", b.OutputDir(), "strategy", s.Name())
	if err := b.Configure(ctx, configure...); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	log.Info("building")
	if err := b.Build(ctx); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	log.Info("installing", "prefix", b.OutputDir())
	if err := b.Install(ctx); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	return nil
}

func (s *sourceStrategy) Emit(ctx context.Context, outDir string) (linkflags.Flags, error) {
	return s.emit(ctx, outDir)
}

// emitManifest resolves the pkg-config manifest installed next to the
// library, picking up its private dependencies.
func (s *sourceStrategy) emitManifest(ctx context.Context, outDir string) (linkflags.Flags, error) {
	pc := filepath.Join(outDir, "lib", "pkgconfig", pkgconfig.DefaultPackage+".pc")
	return s.opts.PkgConfig.Resolve(ctx, pc, staticLib)
}

func emitDarwin(ctx context.Context, outDir string) (linkflags.Flags, error) {
	f, err := emitPlain(ctx, outDir)
	if err != nil {
		return f, err
	}
	var system linkflags.Flags
	for _, fw := range darwinFrameworks {
		system.Libs = append(system.Libs, linkflags.Lib{Name: fw, Kind: linkflags.Framework})
	}
	f.Merge(system)
	return f, nil
}

func emitPlain(_ context.Context, outDir string) (linkflags.Flags, error) {
	return linkflags.Flags{
		SearchPaths: []string{filepath.Join(outDir, "lib")},
		Libs:        []linkflags.Lib{{Name: staticLib, Kind: linkflags.Static}},
	}, nil
}
