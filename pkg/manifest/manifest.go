// Package manifest persists the single-run record of produced artifacts
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forgekit/forge/pkg/types"
)

// FileName is the manifest file name inside the output directory
const FileName = "build-manifest.json"

// ErrManifestNotFound indicates no manifest exists yet. Callers should
// treat this as a recoverable precondition, not a crash.
var ErrManifestNotFound = errors.New("build manifest not found")

// Store reads and writes the build manifest in one output directory
type Store struct {
	outputDir string
	version   string
}

// NewStore creates a manifest store. version is the tool version recorded
// in every written manifest.
func NewStore(outputDir, version string) *Store {
	return &Store{outputDir: outputDir, version: version}
}

// Path returns the manifest file location
func (s *Store) Path() string {
	return filepath.Join(s.outputDir, FileName)
}

// Write serializes the successful results into a fresh manifest,
// overwriting any previous one. Failed results are skipped.
func (s *Store) Write(results []types.BuildResult) (*types.Manifest, error) {
	m := &types.Manifest{
		Version:   s.version,
		BuildTime: time.Now().UTC(),
	}

	for _, r := range results {
		if !r.Success {
			continue
		}
		m.Builds = append(m.Builds, types.ManifestEntry{
			Name:        r.Job.ArtifactName,
			Platform:    r.Job.Platform,
			NodeVersion: r.Job.NodeVersion,
			Hash:        r.Hash,
			Size:        r.Size,
		})
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}

	if err := os.WriteFile(s.Path(), append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return m, nil
}

// Read loads the manifest, returning ErrManifestNotFound if absent
func (s *Store) Read() (*types.Manifest, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, s.Path())
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m types.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &m, nil
}
