// Package buildsys defines what pasys needs from a native build system.
package buildsys

import "context"

// BuildSystem captures the shared lifecycle of build helpers (Autotools,
// CMake). Implementations add their own extras.
type BuildSystem interface {
	// Env sets a variable for every command spawned later.
	Env(key, val string)

	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}
