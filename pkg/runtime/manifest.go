// Package runtime is the Adapter Runtime: it discovers adapter manifests,
// indexes the capabilities they declare, and invokes the resolved binary
// under the CLI contract every adapter honors.
package runtime

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Sandbox declares the constraints an adapter is expected to honor.
// Enforcement beyond the timeout is best-effort; the Runtime does not
// run adapters in a container.
type Sandbox struct {
	Tools     []string `json:"tools,omitempty"`
	TimeoutS  int      `json:"timeout_s"`
	Network   bool     `json:"network"`
}

// Manifest describes one adapter binary and the capabilities it provides.
type Manifest struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Entry        string   `json:"entry"` // path to the binary, relative to the manifest file
	Capabilities []string `json:"capabilities"`
	Sandbox      Sandbox  `json:"sandbox"`

	// dir is the directory the manifest was loaded from, used to resolve
	// Entry when it is a relative path.
	dir string
}

// EntryPath resolves Entry against the manifest's own directory.
func (m Manifest) EntryPath() string {
	if filepath.IsAbs(m.Entry) {
		return m.Entry
	}
	return filepath.Join(m.dir, m.Entry)
}

// loadManifest reads and parses a single manifest.json file.
func loadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("runtime: parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("runtime: manifest %s missing name", path)
	}
	if len(m.Capabilities) == 0 {
		return Manifest{}, fmt.Errorf("runtime: manifest %s declares no capabilities", path)
	}
	return m, nil
}

// discoverManifests scans adapterDir for one manifest.json per immediate
// subdirectory. A directory with no manifest.json is skipped.
func discoverManifests(adapterDir string) ([]Manifest, error) {
	entries, err := os.ReadDir(adapterDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("runtime: read adapter dir %s: %w", adapterDir, err)
	}

	var manifests []Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		manifestPath := filepath.Join(adapterDir, e.Name(), "manifest.json")
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}
		m, err := loadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
