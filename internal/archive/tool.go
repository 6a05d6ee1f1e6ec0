package archive

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/goplus/pasys/internal/release"
	"github.com/goplus/pasys/internal/shell"
)

// Tool extracts with the tar command.
type Tool struct {
	Runner shell.Runner
}

var _ Extractor = (*Tool)(nil)

func (t *Tool) Extract(ctx context.Context, archive, dest string) error {
	cmd, err := Command(archive, dest)
	if err != nil {
		return err
	}
	return t.Runner.Run(ctx, cmd)
}

// Command returns the tar invocation unpacking archive into dest. An
// archive already inside dest is named relative to it.
func Command(archive, dest string) (shell.Cmd, error) {
	name := archive
	if filepath.Dir(archive) == filepath.Clean(dest) {
		name = filepath.Base(archive)
	}
	switch c := release.CompressionOf(archive); c {
	case release.Gzip, release.None:
		return shell.Command(dest, "tar", "xvf", name), nil
	case release.Bzip2:
		return shell.Command(dest, "tar", "-xjf", name), nil
	case release.Xz:
		return shell.Command(dest, "tar", "-xJf", name), nil
	default:
		return shell.Cmd{}, fmt.Errorf("unsupported compression %q for %s", c, archive)
	}
}
