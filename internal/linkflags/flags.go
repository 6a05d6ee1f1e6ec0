// Package linkflags models the linker directives pasys hands to the
// invoking build system and renders them in its dialect.
package linkflags

import (
	"slices"
	"strings"
)

// Kind tells the linker how to link a library.
type Kind string

const (
	Dylib     Kind = ""
	Static    Kind = "static"
	Framework Kind = "framework"
)

// Lib is one library to link.
type Lib struct {
	Name string
	Kind Kind
}

// Flags is the set of directives needed to link a library.
type Flags struct {
	SearchPaths    []string
	FrameworkPaths []string
	Libs           []Lib
	IncludePaths   []string
	// LinkArgs holds linker flags with no structured form (-pthread, -Wl,...).
	LinkArgs []string
	// CFlags holds compiler flags other than include paths.
	CFlags []string
}

// Parse builds Flags from compiler/linker arguments as printed by
// pkg-config --cflags --libs.
func Parse(args []string) Flags {
	var f Flags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-framework" && i+1 < len(args):
			i++
			f.addLib(Lib{Name: args[i], Kind: Framework})
		case strings.HasPrefix(arg, "-L") && len(arg) > 2:
			f.SearchPaths = appendUnique(f.SearchPaths, arg[2:])
		case strings.HasPrefix(arg, "-F") && len(arg) > 2:
			f.FrameworkPaths = appendUnique(f.FrameworkPaths, arg[2:])
		case strings.HasPrefix(arg, "-l") && len(arg) > 2:
			f.addLib(Lib{Name: arg[2:]})
		case strings.HasPrefix(arg, "-I") && len(arg) > 2:
			f.IncludePaths = appendUnique(f.IncludePaths, arg[2:])
		case strings.HasPrefix(arg, "-D"), strings.HasPrefix(arg, "-U"):
			f.CFlags = append(f.CFlags, arg)
		case arg != "":
			f.LinkArgs = append(f.LinkArgs, arg)
		}
	}
	return f
}

// MarkStatic switches the named libraries to static linking.
func (f *Flags) MarkStatic(names ...string) {
	for i, lib := range f.Libs {
		if lib.Kind != Framework && slices.Contains(names, lib.Name) {
			f.Libs[i].Kind = Static
		}
	}
}

// Merge appends the directives of other. Paths and frameworks already
// present in f are skipped; libraries keep their order and repeats.
func (f *Flags) Merge(other Flags) {
	for _, p := range other.SearchPaths {
		f.SearchPaths = appendUnique(f.SearchPaths, p)
	}
	for _, p := range other.FrameworkPaths {
		f.FrameworkPaths = appendUnique(f.FrameworkPaths, p)
	}
	for _, lib := range other.Libs {
		f.addLib(lib)
	}
	for _, p := range other.IncludePaths {
		f.IncludePaths = appendUnique(f.IncludePaths, p)
	}
	f.LinkArgs = append(f.LinkArgs, other.LinkArgs...)
	f.CFlags = append(f.CFlags, other.CFlags...)
}

// LDFlags renders f as linker command line arguments.
func (f Flags) LDFlags() []string {
	var out []string
	for _, p := range f.SearchPaths {
		out = append(out, "-L"+p)
	}
	for _, p := range f.FrameworkPaths {
		out = append(out, "-F"+p)
	}
	for _, lib := range f.Libs {
		if lib.Kind == Framework {
			out = append(out, "-framework", lib.Name)
		} else {
			out = append(out, "-l"+lib.Name)
		}
	}
	return append(out, f.LinkArgs...)
}

// CompileFlags renders the compiler side of f.
func (f Flags) CompileFlags() []string {
	var out []string
	for _, p := range f.IncludePaths {
		out = append(out, "-I"+p)
	}
	return append(out, f.CFlags...)
}

// Empty reports whether f carries no directives at all.
func (f Flags) Empty() bool {
	return len(f.LDFlags()) == 0 && len(f.CompileFlags()) == 0
}

// addLib appends lib. Only frameworks are deduplicated: static link
// lines may repeat a library to satisfy ordering.
func (f *Flags) addLib(lib Lib) {
	if lib.Kind == Framework && slices.Contains(f.Libs, lib) {
		return
	}
	f.Libs = append(f.Libs, lib)
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
