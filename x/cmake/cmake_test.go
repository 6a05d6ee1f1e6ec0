package cmake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/pasys/internal/shell/shelltest"
)

func TestDefinesSortedAndTyped(t *testing.T) {
	c := New(nil, "", "", "")
	c.DefineBool("PA_BUILD_SHARED", false)
	c.DefineBool("PA_BUILD_STATIC", true)
	c.Define("CMAKE_INSTALL_LIBDIR", "lib")

	got := strings.Join(c.definesArgs(), " ")
	want := "-DCMAKE_INSTALL_LIBDIR:STRING=lib -DPA_BUILD_SHARED:BOOL=OFF -DPA_BUILD_STATIC:BOOL=ON"
	if got != want {
		t.Fatalf("definesArgs = %q, want %q", got, want)
	}
}

func TestLifecycleCommands(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "portaudio")
	build := filepath.Join(src, "build")
	out := filepath.Join(tmp, "out")

	rec := &shelltest.Recorder{}
	c := New(rec, src, build, out)
	c.BuildType("Release")
	c.Env("CMAKE_BUILD_PARALLEL_LEVEL", "4")
	c.DefineBool("CMAKE_POSITION_INDEPENDENT_CODE", true)
	ctx := context.Background()

	if err := c.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := os.Stat(build); err != nil {
		t.Fatalf("build dir not created: %v", err)
	}
	if err := c.Build(ctx, "--target", "portaudio"); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := c.Install(ctx); err != nil {
		t.Fatalf("install: %v", err)
	}

	want := []string{
		`cmake -S ` + src + ` -B ` + build + ` -DCMAKE_BUILD_TYPE:STRING=Release -DCMAKE_INSTALL_PREFIX:STRING=` + out + ` -DCMAKE_POSITION_INDEPENDENT_CODE:BOOL=ON`,
		`cmake --build ` + build + ` --config Release --target portaudio`,
		`cmake --install ` + build + ` --config Release --prefix ` + out,
	}
	got := rec.Lines()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("commands =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	for _, cmd := range rec.Calls() {
		if cmd.Dir != src || cmd.Env["CMAKE_BUILD_PARALLEL_LEVEL"] != "4" {
			t.Errorf("%s ran in %q with env %v", cmd, cmd.Dir, cmd.Env)
		}
	}
}

func TestOutputDirPrefersInstall(t *testing.T) {
	if got := New(nil, "src", "build", "").OutputDir(); got != "build" {
		t.Fatalf("OutputDir = %q, want build", got)
	}
	if got := New(nil, "src", "build", "install").OutputDir(); got != "install" {
		t.Fatalf("OutputDir = %q, want install", got)
	}
}
