// Package project locates and reads the filament.toml manifest and
// hashes cache keys.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const ManifestName = "filament.toml"

var ErrNoManifest = errors.New("project: no " + ManifestName + " found")

// Manifest holds per-project defaults. Command-line flags override it.
type Manifest struct {
	Compile CompileConfig `toml:"compile"`
	Trace   TraceConfig   `toml:"trace"`

	// Root is the directory holding the manifest.
	Root string `toml:"-"`
}

type CompileConfig struct {
	Jobs     int    `toml:"jobs"`
	Validate bool   `toml:"validate"`
	Cache    string `toml:"cache"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
	Ring   int    `toml:"ring"`
}

// DefaultManifest is used when no manifest exists.
func DefaultManifest() Manifest {
	return Manifest{
		Compile: CompileConfig{Validate: true},
		Trace:   TraceConfig{Level: "off", Output: "-", Ring: 256},
	}
}

// FindManifest walks up from startDir to the filesystem root.
func FindManifest(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoManifest
		}
		dir = parent
	}
}

// LoadManifest decodes path over DefaultManifest. Unknown keys are an error.
func LoadManifest(path string) (Manifest, error) {
	m := DefaultManifest()
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Manifest{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if m.Compile.Jobs < 0 {
		return Manifest{}, fmt.Errorf("%s: compile.jobs must not be negative", path)
	}
	m.Root = filepath.Dir(path)
	if m.Compile.Cache != "" && !filepath.IsAbs(m.Compile.Cache) {
		m.Compile.Cache = filepath.Join(m.Root, m.Compile.Cache)
	}
	return m, nil
}

// Discover finds and loads the nearest manifest, falling back to defaults.
func Discover(startDir string) (Manifest, error) {
	path, err := FindManifest(startDir)
	if errors.Is(err, ErrNoManifest) {
		return DefaultManifest(), nil
	}
	if err != nil {
		return Manifest{}, err
	}
	return LoadManifest(path)
}
