package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-cleanhttp"

	"github.com/goplus/pasys/internal/release"
)

// HTTP downloads in-process. It does not retry.
type HTTP struct {
	Client *http.Client
}

var _ Fetcher = (*HTTP)(nil)

// NewHTTP returns an HTTP fetcher using a non-shared client.
func NewHTTP() *HTTP {
	return &HTTP{Client: cleanhttp.DefaultClient()}
}

func (h *HTTP) Fetch(ctx context.Context, rel release.Release, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rel.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rel.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", rel.URL, resp.Status)
	}

	dest := filepath.Join(dir, rel.Archive)
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rel.URL, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	slog.Info("downloaded", "archive", rel.Archive, "size", humanize.Bytes(uint64(n)))
	return dest, nil
}
