// Package fetch downloads release archives.
package fetch

import (
	"context"
	"fmt"

	"github.com/goplus/pasys/internal/release"
	"github.com/goplus/pasys/internal/shell"
)

// Fetcher downloads the archive of a release into dir and returns the
// path of the downloaded file.
type Fetcher interface {
	Fetch(ctx context.Context, rel release.Release, dir string) (string, error)
}

const (
	KindTool = "tool"
	KindHTTP = "http"
)

// New returns the fetcher named by kind. An empty kind selects the tool
// fetcher.
func New(kind string, runner shell.Runner, goos string) (Fetcher, error) {
	switch kind {
	case "", KindTool:
		return &Tool{Runner: runner, GOOS: goos}, nil
	case KindHTTP:
		return NewHTTP(), nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q (want %q or %q)", kind, KindTool, KindHTTP)
	}
}
