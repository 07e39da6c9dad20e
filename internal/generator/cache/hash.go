// Package cache decides, per generation unit, whether synthesis can be
// skipped: it fingerprints descriptor inputs and produced outputs, keeps
// the fingerprints in a state file next to the outputs, and serializes
// cross-process access to that directory with an advisory file lock.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"
	"strings"
)

// Hasher computes content fingerprints for cache keys
type Hasher struct{}

// NewHasher creates a new hasher
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashFile computes a SHA-256 hash of the file contents
func (h *Hasher) HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashContent computes a SHA-256 hash of the given content
func (h *Hasher) HashContent(content []byte) string {
	hasher := sha256.New()
	hasher.Write(content)
	return hex.EncodeToString(hasher.Sum(nil))
}

// HashString computes a SHA-256 hash of the given string
func (h *Hasher) HashString(content string) string {
	return h.HashContent([]byte(content))
}

// HashFiles fingerprints a set of contributing files as one value. Paths
// are hashed in sorted order with their individual content hashes, so the
// result is independent of argument order and changes when any file does.
func (h *Hasher) HashFiles(paths []string) (string, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	var b strings.Builder
	for _, p := range sorted {
		fh, err := h.HashFile(p)
		if err != nil {
			return "", err
		}
		b.WriteString(p)
		b.WriteString("\x00")
		b.WriteString(fh)
		b.WriteString("\n")
	}
	return h.HashString(b.String()), nil
}
