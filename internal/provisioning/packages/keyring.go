package packages

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/openpgp"       //nolint:staticcheck // apt keyrings are plain OpenPGP packets
	"golang.org/x/crypto/openpgp/armor" //nolint:staticcheck
)

// ErrInvalidKey is returned when the downloaded signing key is not an
// armored OpenPGP public key.
var ErrInvalidKey = errors.New("invalid repository signing key")

// Dearmor validates an armored public key and returns its binary form, the
// format apt expects for signed-by keyrings.
func Dearmor(armored []byte) ([]byte, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: no keys found", ErrInvalidKey)
	}

	block, err := armor.Decode(bytes.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if block.Type != openpgp.PublicKeyType {
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidKey, block.Type)
	}
	raw, err := io.ReadAll(block.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return raw, nil
}

// writeFile writes data to path with mode, creating parent directories.
func writeFile(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
