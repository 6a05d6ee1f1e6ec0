// Package pkgconfig queries the pkg-config registry, both to detect an
// installed PortAudio and to resolve the manifest a source build installs.
package pkgconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goplus/pasys/internal/linkflags"
	"github.com/goplus/pasys/internal/shell"
	"github.com/goplus/pasys/pkgs/gnu"
)

const (
	// DefaultPackage is the pkg-config name PortAudio v19 installs.
	DefaultPackage = "portaudio-2.0"
	// DefaultMinVersion is the oldest acceptable installed version.
	DefaultMinVersion = "19"
)

// ErrNotFound reports a detection miss. It is a fallback trigger, not a
// failure.
var ErrNotFound = errors.New("portaudio not found by pkg-config")

// Client runs the pkg-config tool.
type Client struct {
	Runner shell.Runner
	// Path is the pkg-config executable, "pkg-config" by default.
	Path string
	// Env is passed to every invocation (PKG_CONFIG_PATH and friends).
	Env map[string]string
}

// New returns a Client honouring the PKG_CONFIG environment override.
func New(runner shell.Runner, path string) *Client {
	if path == "" {
		path = "pkg-config"
	}
	return &Client{Runner: runner, Path: path}
}

// ModVersion returns the installed version of pkg.
func (c *Client) ModVersion(ctx context.Context, pkg string) (string, error) {
	out, err := c.output(ctx, "--modversion", pkg)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Flags returns the compile and link flags of pkg. pkg may also be the
// path of a .pc file.
func (c *Client) Flags(ctx context.Context, pkg string, static bool) (linkflags.Flags, error) {
	args := []string{"--libs", "--cflags"}
	if static {
		args = append(args, "--static")
	}
	out, err := c.output(ctx, append(args, pkg)...)
	if err != nil {
		return linkflags.Flags{}, err
	}
	return linkflags.Parse(strings.Fields(out)), nil
}

// Resolve resolves the manifest file at pcFile for static linking. The
// library the manifest describes is marked static. Failure is fatal for
// the caller: the manifest was produced by our own build.
func (c *Client) Resolve(ctx context.Context, pcFile, lib string) (linkflags.Flags, error) {
	f, err := c.Flags(ctx, pcFile, true)
	if err != nil {
		return linkflags.Flags{}, fmt.Errorf("resolve %s: %w", pcFile, err)
	}
	if f.Empty() {
		return f, fmt.Errorf("resolve %s: manifest yields no link flags", pcFile)
	}
	f.MarkStatic(lib)
	return f, nil
}

func (c *Client) output(ctx context.Context, args ...string) (string, error) {
	cmd := shell.Command("", c.Path, args...)
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}
	out, err := c.Runner.Output(ctx, cmd)
	return string(out), err
}

// Match describes an installed library found by the Detector.
type Match struct {
	Package string
	Version string
	Flags   linkflags.Flags
}

// Detector looks for an installed PortAudio through pkg-config.
type Detector struct {
	Client     *Client
	Package    string
	MinVersion string
	Logger     *slog.Logger
}

// Detect returns the installed library or an error wrapping ErrNotFound.
func (d *Detector) Detect(ctx context.Context) (*Match, error) {
	pkg := d.Package
	if pkg == "" {
		pkg = DefaultPackage
	}
	floor := d.MinVersion
	if floor == "" {
		floor = DefaultMinVersion
	}

	version, err := d.Client.ModVersion(ctx, pkg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !gnu.AtLeast(version, floor) {
		return nil, fmt.Errorf("%w: %s %s is older than %s", ErrNotFound, pkg, version, floor)
	}
	flags, err := d.Client.Flags(ctx, pkg, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	d.logger().Info("found system library", "package", pkg, "version", version)
	return &Match{Package: pkg, Version: version, Flags: flags}, nil
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
