package internal

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goplus/pasys/internal/archive"
	"github.com/goplus/pasys/internal/build"
	"github.com/goplus/pasys/internal/env"
	"github.com/goplus/pasys/internal/fetch"
	"github.com/goplus/pasys/internal/linkflags"
	"github.com/goplus/pasys/internal/pkgconfig"
	"github.com/goplus/pasys/internal/platform"
	"github.com/goplus/pasys/internal/shell"
)

// newRunner runs subprocesses with their output on stderr, keeping
// stdout for directives.
func newRunner(cmd *cobra.Command) shell.Runner {
	return &shell.Exec{Stdout: cmd.ErrOrStderr(), Stderr: cmd.ErrOrStderr()}
}

func newDetector(runner shell.Runner) *pkgconfig.Detector {
	return &pkgconfig.Detector{
		Client:     pkgconfig.New(runner, opts.PkgConfig),
		Package:    opts.Package,
		MinVersion: opts.MinVersion,
		Logger:     slog.Default(),
	}
}

func newExtractor(runner shell.Runner) (archive.Extractor, error) {
	return archive.New(opts.Extractor, runner)
}

func newStrategy(runner shell.Runner) (platform.Strategy, error) {
	target := env.Target()
	fetcher, err := fetch.New(opts.Fetcher, runner, target.OS)
	if err != nil {
		return nil, err
	}
	extractor, err := newExtractor(runner)
	if err != nil {
		return nil, err
	}
	s, err := platform.For(target, platform.Options{
		Runner:      runner,
		Fetcher:     fetcher,
		Extractor:   extractor,
		PkgConfig:   pkgconfig.New(runner, opts.PkgConfig),
		Version:     opts.Release,
		URL:         opts.URL,
		BuildSystem: opts.BuildSystem,
		Jobs:        opts.Jobs,
		KeepSources: opts.KeepSources,
		Logger:      slog.Default(),
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("selected strategy", "target", target, "strategy", s.Name(), "release", s.Release().Version)
	return s, nil
}

func newBuilder(cmd *cobra.Command) (*build.Builder, error) {
	if opts.OutDir == "" {
		return nil, build.ErrNoOutDir
	}
	runner := newRunner(cmd)
	s, err := newStrategy(runner)
	if err != nil {
		return nil, err
	}
	return &build.Builder{
		OutDir:     opts.OutDir,
		WorkDir:    opts.WorkDir,
		OnlyStatic: opts.OnlyStatic,
		Verify:     opts.Verify,
		Detector:   newDetector(runner),
		Strategy:   s,
		Logger:     slog.Default(),
	}, nil
}

// emit prints f on stdout in the configured format and writes the cgo
// file when one is requested.
func emit(cmd *cobra.Command, f linkflags.Flags) error {
	format, err := linkflags.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	e := linkflags.Emitter{Format: format, RerunIfEnvChanged: []string{env.OnlyStaticVar}}
	if err := e.Emit(cmd.OutOrStdout(), f); err != nil {
		return err
	}
	if opts.CgoFile != "" {
		if err := linkflags.WriteCgoFile(opts.CgoFile, opts.CgoPackage, f); err != nil {
			return fmt.Errorf("write %s: %w", opts.CgoFile, err)
		}
	}
	return nil
}
