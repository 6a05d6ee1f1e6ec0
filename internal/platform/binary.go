package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goplus/pasys/internal/linkflags"
	"github.com/goplus/pasys/internal/release"
)

// binaryStrategy relocates a prebuilt static library out of a binary
// package. The archive is extracted in place inside the output directory.
type binaryStrategy struct {
	target Target
	rel    release.Release
	opts   Options
}

func (b *binaryStrategy) Name() string { return "binary/" + b.target.String() }

func (b *binaryStrategy) Release() release.Release { return b.rel }

func (b *binaryStrategy) Artifact(outDir string) string {
	return filepath.Join(outDir, staticLib, staticLib+".lib")
}

func (b *binaryStrategy) Download(ctx context.Context, workDir string) (string, error) {
	b.opts.Logger.Info("downloading", "url", b.rel.URL)
	return b.opts.Fetcher.Fetch(ctx, b.rel, workDir)
}

func (b *binaryStrategy) Build(ctx context.Context, archive, workDir, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	moved := filepath.Join(outDir, filepath.Base(archive))
	if err := moveFile(archive, moved); err != nil {
		return fmt.Errorf("move %s to %s: %w", archive, outDir, err)
	}

	b.opts.Logger.Info("extracting", "archive", moved)
	if err := b.opts.Extractor.Extract(ctx, moved, outDir); err != nil {
		return err
	}

	artifact := b.Artifact(outDir)
	if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
		return err
	}
	prebuilt := filepath.Join(outDir, filepath.FromSlash(b.rel.Prebuilt))
	if _, err := os.Stat(prebuilt); err != nil {
		return fmt.Errorf("prebuilt library missing from %s: %w", b.rel.Archive, err)
	}
	return os.Rename(prebuilt, artifact)
}

func (b *binaryStrategy) Emit(_ context.Context, outDir string) (linkflags.Flags, error) {
	return linkflags.Flags{
		SearchPaths: []string{filepath.Dir(b.Artifact(outDir))},
		Libs:        []linkflags.Lib{{Name: staticLib, Kind: linkflags.Static}},
	}, nil
}
