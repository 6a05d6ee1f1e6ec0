package archive

import (
	"archive/tar"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/goplus/pasys/internal/release"
)

// Native extracts in-process, without requiring a tar binary.
type Native struct{}

var _ Extractor = Native{}

func (Native) Extract(ctx context.Context, archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := decompress(f, release.CompressionOf(archive))
	if err != nil {
		return fmt.Errorf("open %s: %w", archive, err)
	}
	if err := untar(ctx, r, dest); err != nil {
		return fmt.Errorf("extract %s: %w", archive, err)
	}
	return nil
}

func decompress(r io.Reader, c release.Compression) (io.Reader, error) {
	switch c {
	case release.Gzip:
		return gzip.NewReader(r)
	case release.Bzip2:
		return bzip2.NewReader(r), nil
	case release.Xz:
		return xz.NewReader(r)
	case release.None:
		return r, nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", c)
	}
}

func untar(ctx context.Context, r io.Reader, dest string) error {
	dest = filepath.Clean(dest)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		target, err := within(dest, hdr.Name)
		if err != nil {
			return err
		}
		if err := noSymlinkParents(dest, target); err != nil {
			return err
		}
		mode := hdr.FileInfo().Mode()

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if fi, err := os.Lstat(target); err == nil && fi.Mode()&os.ModeSymlink != 0 {
				if err := os.Remove(target); err != nil {
					return err
				}
			}
			if err := writeFile(target, tr, mode.Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) {
				return fmt.Errorf("absolute symlink in archive: %s -> %s", hdr.Name, hdr.Linkname)
			}
			if _, err := within(dest, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			src, err := within(dest, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := noSymlinkParents(dest, src); err != nil {
				return err
			}
			os.Remove(target)
			if err := os.Link(src, target); err != nil {
				return err
			}
		default:
			// pax headers, devices and fifos carry nothing we need
		}
	}
}

// within resolves name under dest and rejects paths escaping it.
func within(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes destination: %s", name)
	}
	return target, nil
}

// noSymlinkParents rejects targets whose parent directories below dest
// are symlinks, so a link extracted earlier cannot redirect later entries.
func noSymlinkParents(dest, target string) error {
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil || rel == "." {
		return err
	}
	p := dest
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		p = filepath.Join(p, part)
		fi, err := os.Lstat(p)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("path traverses symlink: %s", p)
		}
	}
	return nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
