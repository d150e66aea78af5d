package build

import (
	"encoding/json"
	"fmt"
	"os"
)

// Manifest maps logical asset paths (rooted at /) to their hashed paths
type Manifest map[string]string

// LoadManifest reads hashes.json
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	manifest := Manifest{}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return manifest, nil
}

// Save writes the manifest as indented JSON
func (m Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve returns the hashed path of logical, or logical itself when it was
// not hashed
func (m Manifest) Resolve(logical string) string {
	if hashed, ok := m[logical]; ok {
		return hashed
	}
	return logical
}
