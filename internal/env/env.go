// Package env reads the environment variables pasys understands.
package env

import (
	"os"
	"strconv"

	"github.com/goplus/pasys/internal/platform"
)

const (
	// OnlyStaticVar disables detection when present, whatever its value.
	OnlyStaticVar = "PORTAUDIO_ONLY_STATIC"
	// CargoOutDirVar is the output directory Cargo hands a build script.
	CargoOutDirVar = "OUT_DIR"
	// OutDirVar overrides CargoOutDirVar outside Cargo.
	OutDirVar = "PASYS_OUT_DIR"
	// DebugVar turns on debug logging.
	DebugVar = "PASYS_DEBUG"

	targetOSVar   = "CARGO_CFG_TARGET_OS"
	targetArchVar = "CARGO_CFG_TARGET_ARCH"
)

// OnlyStatic reports whether OnlyStaticVar is set.
func OnlyStatic() bool {
	_, ok := os.LookupEnv(OnlyStaticVar)
	return ok
}

// OutDir returns the output directory from the environment, preferring
// OutDirVar over CargoOutDirVar. It is empty when neither is set.
func OutDir() string {
	if dir := os.Getenv(OutDirVar); dir != "" {
		return dir
	}
	return os.Getenv(CargoOutDirVar)
}

// Debug reports whether DebugVar holds a true value.
func Debug() bool {
	v, err := strconv.ParseBool(os.Getenv(DebugVar))
	return err == nil && v
}

// Target returns the platform to build for. Cargo's target configuration
// wins over the host so cross builds pick the right release.
func Target() platform.Target {
	t := platform.Host()
	if v := os.Getenv(targetOSVar); v != "" {
		t.OS = goos(v)
	}
	if v := os.Getenv(targetArchVar); v != "" {
		t.Arch = goarch(v)
	}
	return t
}

func goos(rust string) string {
	switch rust {
	case "macos":
		return "darwin"
	default:
		return rust
	}
}

func goarch(rust string) string {
	switch rust {
	case "x86_64":
		return "amd64"
	case "x86":
		return "386"
	case "aarch64":
		return "arm64"
	case "powerpc64":
		return "ppc64"
	default:
		return rust
	}
}
