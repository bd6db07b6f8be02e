// Package verifier re-validates artifact digests against sidecars or the
// build manifest
package verifier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgekit/forge/pkg/hasher"
	"github.com/forgekit/forge/pkg/manifest"
	"github.com/forgekit/forge/pkg/types"
)

// FailureReason classifies why a single verification failed
type FailureReason string

const (
	ReasonNone            FailureReason = ""
	ReasonHashMismatch    FailureReason = "hash-mismatch"
	ReasonArtifactMissing FailureReason = "artifact-missing"
	ReasonSidecarMissing  FailureReason = "sidecar-missing"
)

// Result is one artifact's verification outcome
type Result struct {
	Name     string
	Path     string
	Passed   bool
	Reason   FailureReason
	Expected string
	Actual   string
}

// Report aggregates per-artifact results; OK is the logical AND over all
// of them. Every result is retained even after the first failure.
type Report struct {
	Results []Result
}

// OK reports whether every checked artifact passed
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Verifier recomputes digests and compares them to stored values
type Verifier struct {
	hasher *hasher.Hasher
}

// New creates a verifier using the given hasher
func New(h *hasher.Hasher) *Verifier {
	return &Verifier{hasher: h}
}

// VerifyFile checks one artifact against its sidecar file
func (v *Verifier) VerifyFile(artifactPath string) Result {
	name := filepath.Base(artifactPath)

	sidecarPath := v.hasher.SidecarPath(artifactPath)
	expected, _, err := hasher.ReadSidecar(sidecarPath)
	if err != nil {
		return Result{Name: name, Path: artifactPath, Reason: ReasonSidecarMissing}
	}

	return v.VerifyAgainst(artifactPath, expected)
}

// VerifyAgainst checks one artifact against an explicitly supplied digest
func (v *Verifier) VerifyAgainst(artifactPath, expected string) Result {
	name := filepath.Base(artifactPath)

	actual, err := v.hasher.HashFile(artifactPath)
	if err != nil {
		return Result{Name: name, Path: artifactPath, Reason: ReasonArtifactMissing, Expected: expected}
	}

	res := Result{
		Name:     name,
		Path:     artifactPath,
		Expected: expected,
		Actual:   actual,
	}
	if actual == expected {
		res.Passed = true
	} else {
		res.Reason = ReasonHashMismatch
	}
	return res
}

// VerifyDirectory checks every artifact in the output directory against its
// sidecar. Sidecars, archives, and the manifest itself are skipped.
func (v *Verifier) VerifyDirectory(outputDir string) (*Report, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	report := &Report{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if hasher.IsSidecar(name) || name == manifest.FileName || strings.HasSuffix(name, ".zip") {
			continue
		}
		report.Results = append(report.Results, v.VerifyFile(filepath.Join(outputDir, name)))
	}

	return report, nil
}

// VerifyManifest checks every artifact the manifest lists against its
// recorded hash
func (v *Verifier) VerifyManifest(m *types.Manifest, outputDir string) *Report {
	report := &Report{}
	for _, entry := range m.Builds {
		res := v.VerifyAgainst(filepath.Join(outputDir, entry.Name), entry.Hash)
		res.Name = entry.Name
		report.Results = append(report.Results, res)
	}
	return report
}
