package release

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_WithData(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    []Release
		wantErr bool
	}{
		{
			name: "source mirror",
			data: `{"releases": [{"version": "19.7.0", "os": "unix", "kind": "source",
				"url": "https://mirror.example.com/pa/pa_stable_v190700_20210406.tgz", "folder": "portaudio"}]}`,
			want: []Release{{
				Version: "19.7.0", OS: "unix", Kind: Source,
				URL:     "https://mirror.example.com/pa/pa_stable_v190700_20210406.tgz",
				Archive: "pa_stable_v190700_20210406.tgz", Folder: "portaudio",
			}},
		},
		{
			name: "binary",
			data: `{"releases": [{"version": "19.7.0", "os": "windows", "arch": "arm64", "kind": "binary",
				"url": "https://example.com/portaudio-arm64.tar.bz2", "prebuilt": "Library/lib/portaudio_static.lib"}]}`,
			want: []Release{{
				Version: "19.7.0", OS: "windows", Arch: "arm64", Kind: Binary,
				URL:      "https://example.com/portaudio-arm64.tar.bz2",
				Archive:  "portaudio-arm64.tar.bz2",
				Prebuilt: "Library/lib/portaudio_static.lib",
			}},
		},
		{
			name: "comments and trailing commas",
			data: `{"releases": [
				// upstream moved
				{"version": "19.7.0", "os": "unix", "kind": "source", /* same tree */
				 "url": "https://files.example.org/pa.tgz", "folder": "portaudio",},
			]}`,
			want: []Release{{
				Version: "19.7.0", OS: "unix", Kind: Source,
				URL: "https://files.example.org/pa.tgz", Archive: "pa.tgz", Folder: "portaudio",
			}},
		},
		{name: "empty", data: `{}`},
		{name: "invalid json", data: `{"releases": invalid}`, wantErr: true},
		{name: "unknown field", data: `{"releases": [], "mirror": "x"}`, wantErr: true},
		{name: "unknown kind", data: `{"releases": [{"version": "19.7.0", "os": "unix", "kind": "docker", "url": "https://e.com/a.tgz"}]}`, wantErr: true},
		{name: "bad version", data: `{"releases": [{"version": "nineteen", "os": "unix", "url": "https://e.com/a.tgz", "folder": "p"}]}`, wantErr: true},
		{name: "no folder", data: `{"releases": [{"version": "19.7.0", "os": "unix", "kind": "source", "url": "https://e.com/a.tgz"}]}`, wantErr: true},
		{name: "no prebuilt", data: `{"releases": [{"version": "19.7.0", "os": "windows", "kind": "binary", "url": "https://e.com/a.tar.bz2"}]}`, wantErr: true},
		{name: "no url", data: `{"releases": [{"version": "19.7.0", "os": "unix", "folder": "portaudio"}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse("", []byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got.Releases) != len(tt.want) {
				t.Fatalf("Parse() got %d releases, want %d", len(got.Releases), len(tt.want))
			}
			for i, r := range got.Releases {
				if r != tt.want[i] {
					t.Errorf("Parse() release %d = %+v, want %+v", i, r, tt.want[i])
				}
			}
		})
	}
}

func TestParse_WithFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		file := filepath.Join(tmpDir, "releases.json")
		content := `{"releases": [{"version": "19.8.0", "os": "linux", "kind": "source", "url": "https://e.com/pa-19.8.0.tar.xz", "folder": "portaudio"}]}`
		if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := Parse(file, nil)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if len(got.Releases) != 1 || got.Releases[0].Compression() != Xz {
			t.Errorf("Parse() = %+v", got.Releases)
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := Parse(filepath.Join(tmpDir, "nonexistent.json"), nil); err == nil {
			t.Error("Parse() expected error for nonexistent file")
		}
	})
}

func TestRegister(t *testing.T) {
	saved := append([]Release(nil), Catalogue...)
	t.Cleanup(func() { Catalogue = saved })

	mirror := Catalogue[0]
	mirror.URL = "https://mirror.example.com/pa_stable_v190700_20210406.tgz"
	newer := Release{Version: "19.8.0", OS: "linux", Kind: Source, URL: "https://e.com/pa.tgz", Archive: "pa.tgz", Folder: "portaudio"}
	Register(mirror, newer)

	if len(Catalogue) != len(saved)+1 {
		t.Fatalf("Catalogue has %d entries, want %d", len(Catalogue), len(saved)+1)
	}
	r, err := Lookup("darwin", "arm64", "19.7.0")
	if err != nil {
		t.Fatal(err)
	}
	if r.URL != mirror.URL {
		t.Errorf("URL = %q, want the registered mirror", r.URL)
	}
	if r, _ := Lookup("linux", "amd64", ""); r.Version != "19.8.0" {
		t.Errorf("newest linux release = %q, want 19.8.0", r.Version)
	}
	if r, _ := Lookup("darwin", "amd64", ""); r.Version != "19.7.0" {
		t.Errorf("newest darwin release = %q, want 19.7.0", r.Version)
	}
}
