package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mindburn-Labs/verigate/pkg/merkle"
)

// merkleTreeOf builds a Merkle root over path->hash, mirroring the bundle's
// flat SHA-256 index with a single comparable root.
func merkleTreeOf(hashes map[string]interface{}) (string, error) {
	if len(hashes) == 0 {
		return "", nil
	}
	tree, err := merkle.BuildMerkleTree(hashes)
	if err != nil {
		return "", err
	}
	return tree.Root, nil
}

func (s *Store) writeBundleIndex(taskDir string, bundle *Bundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("artifacts: marshal bundle: %w", err)
	}
	tmp := filepath.Join(taskDir, "artifacts.json.tmp")
	dst := filepath.Join(taskDir, "artifacts.json")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("artifacts: write artifacts.json: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("artifacts: commit artifacts.json: %w", err)
	}

	var sb strings.Builder
	for _, e := range bundle.Entries {
		fmt.Fprintf(&sb, "%s  %s\n", e.SHA256, e.Path)
	}
	checksumsPath := filepath.Join(taskDir, "checksums.sha256")
	checksumsTmp := checksumsPath + ".tmp"
	if err := os.WriteFile(checksumsTmp, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("artifacts: write checksums.sha256: %w", err)
	}
	return os.Rename(checksumsTmp, checksumsPath)
}

func (s *Store) readBundleIndex(taskDir string) (*Bundle, error) {
	data, err := os.ReadFile(filepath.Join(taskDir, "artifacts.json"))
	if err != nil {
		return nil, fmt.Errorf("artifacts: read artifacts.json: %w", err)
	}
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("artifacts: parse artifacts.json: %w", err)
	}
	return &bundle, nil
}
