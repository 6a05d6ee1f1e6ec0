package fetch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/goplus/pasys/internal/release"
	"github.com/goplus/pasys/internal/shell"
)

// Tool downloads with the platform's usual command line tool: wget on
// linux, curl everywhere else. Both save the file under its remote name.
type Tool struct {
	Runner shell.Runner
	GOOS   string
}

var _ Fetcher = (*Tool)(nil)

func (t *Tool) Fetch(ctx context.Context, rel release.Release, dir string) (string, error) {
	if err := t.Runner.Run(ctx, t.Command(rel, dir)); err != nil {
		return "", fmt.Errorf("download %s: %w", rel.URL, err)
	}
	return filepath.Join(dir, rel.Archive), nil
}

// Command returns the download command for rel.
func (t *Tool) Command(rel release.Release, dir string) shell.Cmd {
	switch t.GOOS {
	case "linux":
		return shell.Command(dir, "wget", rel.URL)
	case "windows":
		return shell.Command(dir, "curl", rel.URL, "-O", "-s", "-L")
	default:
		return shell.Command(dir, "curl", rel.URL, "-O")
	}
}
