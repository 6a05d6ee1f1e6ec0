package build

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/goplus/pasys/internal/platform"
)

// Output directory layout:
//
//	outDir/
//	  .pasys.json          # build stamp, written after a successful build
//	  .pasys.lock          # held while acquiring and building
//	  lib/libportaudio.a   # artifact on source platforms
//	  portaudio/portaudio.lib  # artifact on windows
const stampFile = ".pasys.json"

// stamp records the artifact a build produced.
type stamp struct {
	Version   string    `json:"version"`
	Strategy  string    `json:"strategy"`
	Artifact  string    `json:"artifact"` // relative to outDir, slash separated
	Digest    string    `json:"digest"`   // BLAKE3 of the artifact
	BuildTime time.Time `json:"build_time"`
}

func newStamp(s platform.Strategy, outDir, artifact string) (*stamp, error) {
	rel, err := filepath.Rel(outDir, artifact)
	if err != nil {
		return nil, err
	}
	digest, err := digestFile(artifact)
	if err != nil {
		return nil, err
	}
	return &stamp{
		Version:   s.Release().Version,
		Strategy:  s.Name(),
		Artifact:  filepath.ToSlash(rel),
		Digest:    digest,
		BuildTime: time.Now(),
	}, nil
}

// verify checks the recorded artifact against its digest.
func (s *stamp) verify(outDir string) error {
	path := filepath.Join(outDir, filepath.FromSlash(s.Artifact))
	digest, err := digestFile(path)
	if err != nil {
		return err
	}
	if digest != s.Digest {
		return fmt.Errorf("%s: digest %s, recorded %s", path, digest, s.Digest)
	}
	return nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func loadStamp(outDir string) (*stamp, error) {
	data, err := os.ReadFile(filepath.Join(outDir, stampFile))
	if err != nil {
		return nil, err
	}
	var s stamp
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", stampFile, err)
	}
	return &s, nil
}

func saveStamp(outDir string, s *stamp) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, stampFile), data, 0o644)
}
