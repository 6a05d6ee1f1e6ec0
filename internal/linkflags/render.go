package linkflags

import (
	"bufio"
	"bytes"
	"fmt"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Format selects the dialect directives are printed in.
type Format string

const (
	// Cargo prints build script directives (cargo:rustc-link-lib=...).
	Cargo Format = "cargo"
	// LDFlags prints one line of linker flags, e.g. for CGO_LDFLAGS.
	LDFlags Format = "ldflags"
	// Cgo prints #cgo CFLAGS/LDFLAGS preamble lines.
	Cgo Format = "cgo"
)

// Formats lists the supported formats.
var Formats = []Format{Cargo, LDFlags, Cgo}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want cargo, ldflags or cgo)", s)
}

// Emitter writes Flags in one Format.
type Emitter struct {
	Format Format
	// RerunIfEnvChanged names variables Cargo should watch. Ignored by
	// the other formats.
	RerunIfEnvChanged []string
}

// Emit writes f to w.
func (e Emitter) Emit(w io.Writer, f Flags) error {
	bw := bufio.NewWriter(w)
	switch e.Format {
	case Cargo, "":
		e.cargo(bw, f)
	case LDFlags:
		if ld := f.LDFlags(); len(ld) > 0 {
			fmt.Fprintln(bw, joinQuoted(ld))
		}
	case Cgo:
		writeCgo(bw, "", f)
	default:
		return fmt.Errorf("unknown output format %q", e.Format)
	}
	return bw.Flush()
}

func (e Emitter) cargo(w io.Writer, f Flags) {
	for _, name := range e.RerunIfEnvChanged {
		fmt.Fprintf(w, "cargo:rerun-if-env-changed=%s\n", name)
	}
	for _, p := range f.SearchPaths {
		fmt.Fprintf(w, "cargo:rustc-link-search=native=%s\n", p)
	}
	for _, p := range f.FrameworkPaths {
		fmt.Fprintf(w, "cargo:rustc-link-search=framework=%s\n", p)
	}
	for _, lib := range f.Libs {
		if lib.Kind == Dylib {
			fmt.Fprintf(w, "cargo:rustc-link-lib=%s\n", lib.Name)
		} else {
			fmt.Fprintf(w, "cargo:rustc-link-lib=%s=%s\n", lib.Kind, lib.Name)
		}
	}
	for _, arg := range f.LinkArgs {
		fmt.Fprintf(w, "cargo:rustc-link-arg=%s\n", arg)
	}
	for _, p := range f.IncludePaths {
		fmt.Fprintf(w, "cargo:include=%s\n", p)
	}
}

func writeCgo(w io.Writer, prefix string, f Flags) {
	if cf := f.CompileFlags(); len(cf) > 0 {
		fmt.Fprintf(w, "%s#cgo CFLAGS: %s\n", prefix, joinQuoted(cf))
	}
	if ld := f.LDFlags(); len(ld) > 0 {
		fmt.Fprintf(w, "%s#cgo LDFLAGS: %s\n", prefix, joinQuoted(ld))
	}
}

// WriteCgoFile writes a Go source file for package pkg whose preamble
// carries f as #cgo directives.
func WriteCgoFile(path, pkg string, f Flags) error {
	if !token.IsIdentifier(pkg) {
		return fmt.Errorf("invalid package name %q", pkg)
	}
	var buf bytes.Buffer
	buf.WriteString("// Code generated by pasys; DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	writeCgo(&buf, "// ", f)
	buf.WriteString("import \"C\"\n")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".cgo-*.go")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func joinQuoted(args []string) string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t'\"") {
			a = strconv.Quote(a)
		}
		out[i] = a
	}
	return strings.Join(out, " ")
}
