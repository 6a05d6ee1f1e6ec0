// Package archive unpacks downloaded release archives.
package archive

import (
	"context"
	"fmt"

	"github.com/goplus/pasys/internal/shell"
)

// Extractor unpacks an archive into a destination directory.
type Extractor interface {
	Extract(ctx context.Context, archive, dest string) error
}

const (
	KindTool   = "tool"
	KindNative = "native"
)

// New returns the extractor named by kind. An empty kind selects the
// tar command line tool.
func New(kind string, runner shell.Runner) (Extractor, error) {
	switch kind {
	case "", KindTool:
		return &Tool{Runner: runner}, nil
	case KindNative:
		return Native{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q (want %q or %q)", kind, KindTool, KindNative)
	}
}
