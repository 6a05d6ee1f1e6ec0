package platform

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goplus/pasys/internal/archive"
	"github.com/goplus/pasys/internal/linkflags"
	"github.com/goplus/pasys/internal/release"
	"github.com/goplus/pasys/internal/shell"
	"github.com/goplus/pasys/internal/shell/shelltest"
)

// extractFunc adapts a function to archive.Extractor.
type extractFunc func(ctx context.Context, archive, dest string) error

func (f extractFunc) Extract(ctx context.Context, archive, dest string) error {
	return f(ctx, archive, dest)
}

// fetchFunc adapts a function to fetch.Fetcher.
type fetchFunc func(ctx context.Context, rel release.Release, dir string) (string, error)

func (f fetchFunc) Fetch(ctx context.Context, rel release.Release, dir string) (string, error) {
	return f(ctx, rel, dir)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestForUnsupported(t *testing.T) {
	for _, target := range []Target{{"windows", "arm64"}, {"windows", "386"}, {"plan9", "amd64"}} {
		if _, err := For(target, Options{Runner: &shelltest.Recorder{}}); !errors.Is(err, release.ErrUnsupported) {
			t.Errorf("For(%s) error = %v, want ErrUnsupported", target, err)
		}
	}
}

func TestForUnknownBuildSystem(t *testing.T) {
	_, err := For(Target{"linux", "amd64"}, Options{Runner: &shelltest.Recorder{}, BuildSystem: "meson"})
	if err == nil || !strings.Contains(err.Error(), "meson") {
		t.Fatalf("For error = %v, want unknown build system", err)
	}
}

func TestSourceDownloadCommand(t *testing.T) {
	tests := map[string]string{
		"linux":   "wget http://files.portaudio.com/archives/pa_stable_v190700_20210406.tgz",
		"darwin":  "curl http://files.portaudio.com/archives/pa_stable_v190700_20210406.tgz -O",
		"freebsd": "curl http://files.portaudio.com/archives/pa_stable_v190700_20210406.tgz -O",
	}
	for goos, want := range tests {
		t.Run(goos, func(t *testing.T) {
			rec := &shelltest.Recorder{}
			s, err := For(Target{goos, "arm64"}, Options{Runner: rec})
			if err != nil {
				t.Fatal(err)
			}
			work := t.TempDir()
			got, err := s.Download(context.Background(), work)
			if err != nil {
				t.Fatalf("Download: %v", err)
			}
			if got != filepath.Join(work, "pa_stable_v190700_20210406.tgz") {
				t.Errorf("archive = %q", got)
			}
			calls := rec.Calls()
			if len(calls) != 1 || calls[0].String() != want || calls[0].Dir != work {
				t.Errorf("calls = %v, want %q in %s", rec.Lines(), want, work)
			}
		})
	}
}

func TestSourceBuildAutotools(t *testing.T) {
	work, out := t.TempDir(), t.TempDir()
	archive := filepath.Join(work, "pa_stable_v190700_20210406.tgz")
	writeFile(t, archive, "tarball")
	writeFile(t, filepath.Join(work, "portaudio", "configure"), "#!/bin/sh\n")

	rec := &shelltest.Recorder{}
	s, err := For(Target{"linux", "amd64"}, Options{Runner: rec, Jobs: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Build(context.Background(), archive, work, out); err != nil {
		t.Fatalf("Build: %v", err)
	}

	src := filepath.Join(work, "portaudio")
	want := []struct{ line, dir string }{
		{"tar xvf pa_stable_v190700_20210406.tgz", work},
		{"./configure --prefix=" + out + " --disable-shared --enable-static --disable-mac-universal --with-pic", src},
		{"make", src},
		{"make install", src},
	}
	calls := rec.Calls()
	if len(calls) != len(want) {
		t.Fatalf("calls = %v", rec.Lines())
	}
	for i, w := range want {
		if calls[i].String() != w.line || calls[i].Dir != w.dir {
			t.Errorf("call %d = %q in %s, want %q in %s", i, calls[i].String(), calls[i].Dir, w.line, w.dir)
		}
	}
	for _, c := range calls[1:] {
		if c.Env["MAKEFLAGS"] != "-j4" {
			t.Errorf("%s env MAKEFLAGS = %q, want -j4", c, c.Env["MAKEFLAGS"])
		}
	}
	if exists(archive) || exists(src) {
		t.Error("archive and source tree should be removed after the build")
	}
}

func TestSourceBuildKeepSources(t *testing.T) {
	work, out := t.TempDir(), t.TempDir()
	archive := filepath.Join(work, "pa_stable_v190700_20210406.tgz")
	writeFile(t, archive, "tarball")

	s, err := For(Target{"darwin", "arm64"}, Options{Runner: &shelltest.Recorder{}, KeepSources: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Build(context.Background(), archive, work, out); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !exists(archive) {
		t.Error("archive removed despite KeepSources")
	}
}

func TestSourceBuildFailureNamesStep(t *testing.T) {
	work, out := t.TempDir(), t.TempDir()
	archive := filepath.Join(work, "pa_stable_v190700_20210406.tgz")
	writeFile(t, archive, "tarball")

	rec := &shelltest.Recorder{Handle: func(c shell.Cmd) ([]byte, error) {
		if c.Name == "make" && len(c.Args) == 0 {
			return nil, errors.New("exit status 2")
		}
		return nil, nil
	}}
	s, err := For(Target{"linux", "amd64"}, Options{Runner: rec})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Build(context.Background(), archive, work, out)
	var cmdErr *shell.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Cmd.String() != "make" {
		t.Fatalf("Build error = %v, want CommandError for make", err)
	}
	if !strings.HasPrefix(err.Error(), "build: `make` did not execute successfully") {
		t.Errorf("message = %q", err.Error())
	}
	if lines := rec.Lines(); lines[len(lines)-1] != "make" {
		t.Errorf("commands after failure: %v", lines)
	}
}

func TestSourceBuildCMake(t *testing.T) {
	work, out := t.TempDir(), t.TempDir()
	archive := filepath.Join(work, "pa_stable_v190700_20210406.tgz")
	writeFile(t, archive, "tarball")

	rec := &shelltest.Recorder{Handle: func(c shell.Cmd) ([]byte, error) {
		if c.Name == "cmake" && c.Args[0] == "--install" {
			writeFile(t, filepath.Join(out, "lib", "libportaudio_static.a"), "ar")
		}
		return nil, nil
	}}
	s, err := For(Target{"linux", "amd64"}, Options{Runner: rec, BuildSystem: CMake, Jobs: 2})
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "source/cmake" {
		t.Errorf("Name = %q", s.Name())
	}
	if err := s.Build(context.Background(), archive, work, out); err != nil {
		t.Fatalf("Build: %v", err)
	}

	src := filepath.Join(work, "portaudio")
	bld := filepath.Join(src, "build")
	lines := rec.Lines()
	if len(lines) != 4 {
		t.Fatalf("calls = %v", lines)
	}
	wantConfigure := "cmake -S " + src + " -B " + bld +
		" -DCMAKE_BUILD_TYPE:STRING=Release" +
		" -DCMAKE_INSTALL_LIBDIR:STRING=lib" +
		" -DCMAKE_INSTALL_PREFIX:STRING=" + out +
		" -DCMAKE_POSITION_INDEPENDENT_CODE:BOOL=ON" +
		" -DPA_BUILD_SHARED:BOOL=OFF" +
		" -DPA_BUILD_STATIC:BOOL=ON"
	if lines[1] != wantConfigure {
		t.Errorf("configure = %q\nwant        %q", lines[1], wantConfigure)
	}
	if want := "cmake --build " + bld + " --config Release"; lines[2] != want {
		t.Errorf("build = %q, want %q", lines[2], want)
	}
	if got := rec.Calls()[2].Env["CMAKE_BUILD_PARALLEL_LEVEL"]; got != "2" {
		t.Errorf("CMAKE_BUILD_PARALLEL_LEVEL = %q, want 2", got)
	}
	if want := "cmake --install " + bld + " --config Release --prefix " + out; lines[3] != want {
		t.Errorf("install = %q, want %q", lines[3], want)
	}
	if !exists(s.Artifact(out)) {
		t.Error("libportaudio_static.a was not renamed to libportaudio.a")
	}
}

func TestEmitDarwin(t *testing.T) {
	s, err := For(Target{"darwin", "amd64"}, Options{Runner: &shelltest.Recorder{}})
	if err != nil {
		t.Fatal(err)
	}
	f, err := s.Emit(context.Background(), "/out")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(f.SearchPaths, " ") != filepath.Join("/out", "lib") {
		t.Errorf("SearchPaths = %v", f.SearchPaths)
	}
	want := "-lportaudio -framework CoreServices -framework CoreFoundation -framework AudioUnit -framework AudioToolbox -framework CoreAudio"
	if got := strings.Join(f.LDFlags()[1:], " "); got != want {
		t.Errorf("LDFlags = %q, want %q", got, want)
	}
	if f.Libs[0].Kind != linkflags.Static {
		t.Errorf("portaudio kind = %q, want static", f.Libs[0].Kind)
	}
}

func TestEmitBSDHasNoFrameworks(t *testing.T) {
	s, err := For(Target{"freebsd", "amd64"}, Options{Runner: &shelltest.Recorder{}})
	if err != nil {
		t.Fatal(err)
	}
	f, _ := s.Emit(context.Background(), "/out")
	if len(f.Libs) != 1 || f.Libs[0] != (linkflags.Lib{Name: "portaudio", Kind: linkflags.Static}) {
		t.Errorf("Libs = %v", f.Libs)
	}
}

func TestEmitLinuxResolvesManifest(t *testing.T) {
	pc := filepath.Join("/out", "lib", "pkgconfig", "portaudio-2.0.pc")
	rec := &shelltest.Recorder{Handle: func(c shell.Cmd) ([]byte, error) {
		return []byte("-L/out/lib -lportaudio -lasound -lm -lpthread\n"), nil
	}}
	s, err := For(Target{"linux", "amd64"}, Options{Runner: rec})
	if err != nil {
		t.Fatal(err)
	}
	f, err := s.Emit(context.Background(), "/out")
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if got := rec.Lines(); len(got) != 1 || got[0] != "pkg-config --libs --cflags --static "+pc {
		t.Errorf("calls = %v", got)
	}
	if f.Libs[0].Kind != linkflags.Static || f.Libs[1].Kind != linkflags.Dylib {
		t.Errorf("Libs = %v", f.Libs)
	}

	failing := &shelltest.Recorder{Handle: func(c shell.Cmd) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}}
	s, _ = For(Target{"linux", "amd64"}, Options{Runner: failing})
	if _, err := s.Emit(context.Background(), "/out"); err == nil {
		t.Error("Emit succeeded with a failing manifest resolution")
	}
}

func TestBinaryBuild(t *testing.T) {
	work, out := t.TempDir(), filepath.Join(t.TempDir(), "out")
	archive := filepath.Join(work, "portaudio-19.6.0-he774522_4.tar.bz2")
	writeFile(t, archive, "bz2")

	var extracted string
	ex := extractFunc(func(_ context.Context, a, dest string) error {
		extracted = a
		writeFile(t, filepath.Join(dest, "Library", "lib", "portaudio_static.lib"), "lib")
		return nil
	})
	s, err := For(Target{"windows", "amd64"}, Options{Runner: &shelltest.Recorder{}, Extractor: ex})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Build(context.Background(), archive, work, out); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if extracted != filepath.Join(out, "portaudio-19.6.0-he774522_4.tar.bz2") {
		t.Errorf("extracted %q, want the archive moved into the output dir", extracted)
	}
	if exists(archive) {
		t.Error("archive still in the work dir")
	}
	artifact := s.Artifact(out)
	if artifact != filepath.Join(out, "portaudio", "portaudio.lib") || !exists(artifact) {
		t.Errorf("artifact %q missing", artifact)
	}

	f, _ := s.Emit(context.Background(), out)
	if f.SearchPaths[0] != filepath.Join(out, "portaudio") || f.Libs[0].Kind != linkflags.Static {
		t.Errorf("Emit = %+v", f)
	}
}

// writeTbz2 writes a bzip2 compressed tar holding one file per entry of
// files, skipping t when the bzip2 tool is missing.
func writeTbz2(t *testing.T, path string, files map[string]string) {
	t.Helper()
	bz, err := exec.LookPath("bzip2")
	if err != nil {
		t.Skip("bzip2 not found in PATH")
	}
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(bz, "-c")
	cmd.Stdin = &buf
	data, err := cmd.Output()
	if err != nil {
		t.Fatalf("bzip2: %v", err)
	}
	writeFile(t, path, string(data))
}

func TestBinaryBuildNativeExtractor(t *testing.T) {
	work, out := t.TempDir(), filepath.Join(t.TempDir(), "out")
	tarball := filepath.Join(work, "portaudio-19.6.0-he774522_4.tar.bz2")
	writeTbz2(t, tarball, map[string]string{
		"Library/lib/portaudio_static.lib": "static lib",
		"Library/include/portaudio.h":      "int Pa_Initialize(void);\n",
	})

	s, err := For(Target{"windows", "amd64"}, Options{Runner: &shelltest.Recorder{}, Extractor: archive.Native{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Build(context.Background(), tarball, work, out); err != nil {
		t.Fatalf("Build: %v", err)
	}
	data, err := os.ReadFile(s.Artifact(out))
	if err != nil || string(data) != "static lib" {
		t.Fatalf("artifact = %q, %v", data, err)
	}
	if exists(filepath.Join(out, "Library", "lib", "portaudio_static.lib")) {
		t.Error("prebuilt library was copied instead of moved")
	}
}

func TestBinaryBuildMissingPrebuilt(t *testing.T) {
	work, out := t.TempDir(), t.TempDir()
	archive := filepath.Join(work, "portaudio-19.6.0-he774522_4.tar.bz2")
	writeFile(t, archive, "bz2")

	ex := extractFunc(func(context.Context, string, string) error { return nil })
	s, err := For(Target{"windows", "amd64"}, Options{Runner: &shelltest.Recorder{}, Extractor: ex})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Build(context.Background(), archive, work, out)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Build error = %v, want not exist", err)
	}
	if !strings.Contains(err.Error(), "portaudio_static.lib") {
		t.Errorf("error %q does not name the missing file", err)
	}
}

func TestCustomFetcherAndURL(t *testing.T) {
	var got release.Release
	f := fetchFunc(func(_ context.Context, rel release.Release, dir string) (string, error) {
		got = rel
		return filepath.Join(dir, rel.Archive), nil
	})
	s, err := For(Target{"linux", "amd64"}, Options{
		Runner:  &shelltest.Recorder{},
		Fetcher: f,
		URL:     "https://mirror.example.com/portaudio/pa_stable_v190700_20210406.tar.xz",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Download(context.Background(), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	if got.Archive != "pa_stable_v190700_20210406.tar.xz" || got.Compression() != release.Xz {
		t.Errorf("release = %+v", got)
	}
}
