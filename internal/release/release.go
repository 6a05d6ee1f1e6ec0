// Package release holds the catalogue of pinned PortAudio archives pasys
// knows how to acquire.
package release

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// Kind distinguishes source tarballs from prebuilt binary archives.
type Kind int

const (
	Source Kind = iota
	Binary
)

func (k Kind) String() string {
	switch k {
	case Source:
		return "source"
	case Binary:
		return "binary"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Compression identifies the archive compression format.
type Compression string

const (
	None  Compression = "none"
	Gzip  Compression = "gzip"
	Bzip2 Compression = "bzip2"
	Xz    Compression = "xz"
)

// AnyUnix matches every unix GOOS in Release.OS.
const AnyUnix = "unix"

// Release describes one downloadable archive.
type Release struct {
	Version string `json:"version"`
	// OS is a GOOS value or AnyUnix.
	OS string `json:"os"`
	// Arch is a GOARCH value; empty matches any architecture.
	Arch    string `json:"arch,omitempty"`
	Kind    Kind   `json:"kind"`
	URL     string `json:"url"`
	Archive string `json:"archive,omitempty"`
	// Folder is the top-level directory a source archive extracts to.
	Folder string `json:"folder,omitempty"`
	// Prebuilt is the slash-separated path of the static library inside
	// a binary archive.
	Prebuilt string `json:"prebuilt,omitempty"`
}

// ErrUnsupported is returned when no release exists for a platform.
var ErrUnsupported = errors.New("no portaudio release for platform")

// Catalogue is the list of built-in releases.
var Catalogue = []Release{
	{
		Version: "19.7.0",
		OS:      AnyUnix,
		Kind:    Source,
		URL:     "http://files.portaudio.com/archives/pa_stable_v190700_20210406.tgz",
		Archive: "pa_stable_v190700_20210406.tgz",
		Folder:  "portaudio",
	},
	{
		Version:  "19.6.0",
		OS:       "windows",
		Arch:     "amd64",
		Kind:     Binary,
		URL:      "https://anaconda.org/anaconda/portaudio/19.6.0/download/win-64/portaudio-19.6.0-he774522_4.tar.bz2",
		Archive:  "portaudio-19.6.0-he774522_4.tar.bz2",
		Prebuilt: "Library/lib/portaudio_static.lib",
	},
}

// Compression reports the compression format of the archive.
func (r Release) Compression() Compression {
	return CompressionOf(r.Archive)
}

// Matches reports whether r can be used on goos/goarch.
func (r Release) Matches(goos, goarch string) bool {
	if r.OS != goos && !(r.OS == AnyUnix && IsUnix(goos)) {
		return false
	}
	return r.Arch == "" || r.Arch == goarch
}

// WithURL returns a copy of r downloading from rawURL instead. The
// archive name follows the last path element of the URL.
func (r Release) WithURL(rawURL string) (Release, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Release{}, fmt.Errorf("invalid release url %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if u.Scheme == "" || name == "." || name == "/" {
		return Release{}, fmt.Errorf("invalid release url %q: no archive name", rawURL)
	}
	r.URL = rawURL
	r.Archive = name
	return r, nil
}

// ForPlatform returns the releases usable on goos/goarch, newest first.
func ForPlatform(goos, goarch string) []Release {
	var out []Release
	for _, r := range Catalogue {
		if r.Matches(goos, goarch) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Release) int {
		return semver.Compare(canonical(b.Version), canonical(a.Version))
	})
	return out
}

// Lookup selects the release for goos/goarch. An empty version picks the
// newest one; otherwise the version must match exactly.
func Lookup(goos, goarch, version string) (Release, error) {
	if version != "" && !semver.IsValid(canonical(version)) {
		return Release{}, fmt.Errorf("invalid portaudio version %q", version)
	}
	candidates := ForPlatform(goos, goarch)
	for _, r := range candidates {
		if version == "" || semver.Compare(canonical(r.Version), canonical(version)) == 0 {
			return r, nil
		}
	}
	if version != "" {
		return Release{}, fmt.Errorf("%w: %s/%s version %s", ErrUnsupported, goos, goarch, version)
	}
	return Release{}, fmt.Errorf("%w: %s/%s", ErrUnsupported, goos, goarch)
}

// CompressionOf infers the compression format from an archive name.
func CompressionOf(name string) Compression {
	switch lower := strings.ToLower(name); {
	case strings.HasSuffix(lower, ".tgz"), strings.HasSuffix(lower, ".tar.gz"):
		return Gzip
	case strings.HasSuffix(lower, ".tbz2"), strings.HasSuffix(lower, ".tar.bz2"):
		return Bzip2
	case strings.HasSuffix(lower, ".txz"), strings.HasSuffix(lower, ".tar.xz"):
		return Xz
	default:
		return None
	}
}

// IsUnix reports whether goos is a unix flavour.
func IsUnix(goos string) bool {
	switch goos {
	case "aix", "android", "darwin", "dragonfly", "freebsd", "hurd", "illumos",
		"ios", "linux", "netbsd", "openbsd", "solaris":
		return true
	}
	return false
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
