// Package hasher computes artifact digests and manages hash sidecar files
package hasher

import (
	"bufio"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/forgekit/forge/pkg/types"
)

// Hasher computes content digests with a configured algorithm
type Hasher struct {
	algorithm types.HashAlgorithm
}

// New creates a hasher for the given algorithm
func New(algorithm types.HashAlgorithm) (*Hasher, error) {
	if !algorithm.Valid() {
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algorithm)
	}
	return &Hasher{algorithm: algorithm}, nil
}

// Algorithm returns the configured algorithm identifier
func (h *Hasher) Algorithm() types.HashAlgorithm {
	return h.algorithm
}

// HashFile computes the hex digest of a file's full content. The file is
// streamed, so artifact size is not bounded by memory.
func (h *Hasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	digest := h.newHash()
	if _, err := io.Copy(digest, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// SidecarPath returns the sidecar file path for an artifact:
// <artifact>.<algorithm>
func (h *Hasher) SidecarPath(artifactPath string) string {
	return artifactPath + "." + string(h.algorithm)
}

// WriteSidecar persists "<digest>  <name>\n" beside the artifact
func (h *Hasher) WriteSidecar(artifactPath, digest, name string) error {
	content := fmt.Sprintf("%s  %s\n", digest, name)
	if err := os.WriteFile(h.SidecarPath(artifactPath), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

// ReadSidecar parses a sidecar file and returns the recorded digest and name
func ReadSidecar(path string) (digest, name string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read sidecar: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", "", fmt.Errorf("sidecar %s is empty", path)
	}

	fields := strings.Fields(scanner.Text())
	if len(fields) < 1 {
		return "", "", fmt.Errorf("sidecar %s is malformed", path)
	}

	digest = fields[0]
	if len(fields) > 1 {
		name = fields[1]
	}
	return digest, name, nil
}

// IsSidecar reports whether a filename looks like a hash sidecar
func IsSidecar(name string) bool {
	return strings.HasSuffix(name, "."+string(types.HashAlgorithmSHA256)) ||
		strings.HasSuffix(name, "."+string(types.HashAlgorithmSHA512))
}

func (h *Hasher) newHash() hash.Hash {
	switch h.algorithm {
	case types.HashAlgorithmSHA512:
		return sha512.New()
	default:
		return sha256.New()
	}
}
