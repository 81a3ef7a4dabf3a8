package assets

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
)

// Manifest maps slash-separated file names, relative to the asset root, to
// their blake2b-256 digests.
type Manifest map[string]string

// Digest is the hex blake2b-256 of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify checks data against the recorded digest. Names absent from the
// manifest are accepted.
func (m Manifest) Verify(name string, data []byte) error {
	want, ok := m[name]
	if !ok {
		return nil
	}
	if got := Digest(data); got != want {
		return fmt.Errorf("%w: %s", ErrChecksum, name)
	}
	return nil
}

func ReadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

func WriteManifest(path string, m Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}
