// Package hasher computes content digests in the "sha256:<hex>" form.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/leopaglia/blumen-installer/internal/core/fsys"
)

// CalculateSHA256 streams r through sha256 and returns "sha256:<hex_hash>".
func CalculateSHA256(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to write content to hasher: %w", err)
	}
	return fmt.Sprintf("sha256:%s", hex.EncodeToString(h.Sum(nil))), nil
}

// HashFile digests the file at name on fs.
func HashFile(fs fsys.FS, name string) (string, error) {
	f, err := fs.Open(name)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	return CalculateSHA256(f)
}
