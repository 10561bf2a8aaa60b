package missingfonts

import (
	"fmt"
	"io"
	"os"
	"strings"

	"lukechampine.com/blake3"
)

// b3sumFile returns the hex BLAKE3-256 digest of the file at path.
func b3sumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// verifyB3Sum checks path against want. An empty want always passes.
func verifyB3Sum(path, want string) error {
	if want == "" {
		return nil
	}
	got, err := b3sumFile(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, want) {
		return fmt.Errorf("%w for %s: expected %s, got %s", errChecksumMismatch, path, want, got)
	}
	debugf("Checksum OK for %s\n", path)
	return nil
}
