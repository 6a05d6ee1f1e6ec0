package release

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
	"golang.org/x/mod/semver"
)

// File is a catalogue file adding releases to the built-in ones. It is
// JSON extended with comments and trailing commas:
//
//	{"releases": [
//	  // internal mirror
//	  {"version": "19.7.0", "os": "unix", "kind": "source",
//	   "url": "https://mirror.example.com/pa_stable_v190700_20210406.tgz",
//	   "folder": "portaudio"},
//	]}
type File struct {
	Releases []Release `json:"releases"`
}

// Parse reads and validates a catalogue file from either provided data or
// a file path. If data is non-nil, it is used directly and the file
// parameter is ignored.
func Parse(file string, data []byte) (*File, error) {
	if data == nil {
		var err error
		if data, err = os.ReadFile(file); err != nil {
			return nil, err
		}
	}

	var cf File
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("parse catalogue %s: %w", file, err)
	}
	for i, r := range cf.Releases {
		r, err := r.normalize()
		if err != nil {
			return nil, fmt.Errorf("catalogue %s: release %d: %w", file, i, err)
		}
		cf.Releases[i] = r
	}
	return &cf, nil
}

// normalize fills the archive name from the URL and checks the fields
// each kind of release needs.
func (r Release) normalize() (Release, error) {
	if !semver.IsValid(canonical(r.Version)) {
		return r, fmt.Errorf("invalid version %q", r.Version)
	}
	if r.OS == "" {
		return r, fmt.Errorf("%s: missing os", r.Version)
	}
	r, err := r.WithURL(r.URL)
	if err != nil {
		return r, err
	}
	switch r.Kind {
	case Source:
		if r.Folder == "" {
			return r, fmt.Errorf("%s: source release needs folder", r.Version)
		}
	case Binary:
		if r.Prebuilt == "" {
			return r, fmt.Errorf("%s: binary release needs prebuilt", r.Version)
		}
	}
	return r, nil
}

// Register adds rels to Catalogue. A release for the same version and
// platform as an existing entry replaces it.
func Register(rels ...Release) {
	for _, r := range rels {
		replaced := false
		for i, c := range Catalogue {
			if c.Version == r.Version && c.OS == r.OS && c.Arch == r.Arch {
				Catalogue[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			Catalogue = append(Catalogue, r)
		}
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case Source, Binary:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("invalid release kind %d", int(k))
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "source":
		*k = Source
	case "binary":
		*k = Binary
	default:
		return fmt.Errorf("unknown release kind %q", text)
	}
	return nil
}
