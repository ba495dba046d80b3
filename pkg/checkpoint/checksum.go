package checkpoint

import (
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/blake2b"
)

// ChecksumSuffix is appended to a checkpoint file's own path to name its
// integrity sidecar (SPEC_FULL.md §3: "a BLAKE2b-256 checksum sidecar per
// evolving-centroid/averages file, checked on load").
const ChecksumSuffix = ".b2"

// writeChecksum (over)writes path+ChecksumSuffix with the hex-encoded
// BLAKE2b-256 digest of data.
func writeChecksum(path string, data []byte) error {
	sum := blake2b.Sum256(data)
	sidecar := path + ChecksumSuffix
	if err := os.WriteFile(sidecar, []byte(hex.EncodeToString(sum[:])+"\n"), 0644); err != nil {
		return fmt.Errorf("checkpoint: writing %s: %w", sidecar, err)
	}
	return nil
}

// verifyChecksum reports whether data matches the digest recorded in
// path+ChecksumSuffix. A missing sidecar is not a mismatch: it means the
// file predates this feature, or was never checksummed, and is trusted
// as-is. Only a sidecar that exists and disagrees counts as corrupt, per
// spec §7.2's missing/corrupt checkpoint handling: the caller treats a
// false return the same as a missing checkpoint file.
func verifyChecksum(path string, data []byte) (bool, error) {
	sidecar := path + ChecksumSuffix
	raw, err := os.ReadFile(sidecar)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("checkpoint: reading %s: %w", sidecar, err)
	}
	want, err := hex.DecodeString(trimNewline(raw))
	if err != nil || len(want) != blake2b.Size256 {
		return false, nil
	}
	got := blake2b.Sum256(data)
	return hex.EncodeToString(got[:]) == hex.EncodeToString(want), nil
}

// removeChecksum deletes a checkpoint file's sidecar, if any. Missing is
// not an error.
func removeChecksum(path string) error {
	sidecar := path + ChecksumSuffix
	if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("checkpoint: removing %s: %w", sidecar, err)
	}
	return nil
}

func trimNewline(raw []byte) string {
	s := string(raw)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
