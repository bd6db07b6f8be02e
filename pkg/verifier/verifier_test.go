package verifier_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forgekit/forge/pkg/hasher"
	"github.com/forgekit/forge/pkg/types"
	"github.com/forgekit/forge/pkg/verifier"
)

func newHasher(t *testing.T) *hasher.Hasher {
	t.Helper()
	h, err := hasher.New(types.HashAlgorithmSHA256)
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}
	return h
}

// writeArtifact creates an artifact plus its sidecar and returns the path
func writeArtifact(t *testing.T, h *hasher.Hasher, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write artifact: %v", err)
	}
	digest, err := h.HashFile(path)
	if err != nil {
		t.Fatalf("failed to hash artifact: %v", err)
	}
	if err := h.WriteSidecar(path, digest, name); err != nil {
		t.Fatalf("failed to write sidecar: %v", err)
	}
	return path
}

func TestVerifyFile_Pass(t *testing.T) {
	h := newHasher(t)
	v := verifier.New(h)
	path := writeArtifact(t, h, t.TempDir(), "mjml-linux-x64-node20", "binary")

	res := v.VerifyFile(path)
	if !res.Passed {
		t.Errorf("expected pass, got reason %s", res.Reason)
	}
	if res.Expected != res.Actual {
		t.Errorf("digests should match: %s vs %s", res.Expected, res.Actual)
	}
}

func TestVerifyFile_Idempotent(t *testing.T) {
	h := newHasher(t)
	v := verifier.New(h)
	path := writeArtifact(t, h, t.TempDir(), "artifact", "binary")

	first := v.VerifyFile(path)
	second := v.VerifyFile(path)

	if first != second {
		t.Errorf("verification not idempotent: %+v vs %+v", first, second)
	}
}

func TestVerifyFile_SidecarMissing(t *testing.T) {
	h := newHasher(t)
	v := verifier.New(h)

	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")
	os.WriteFile(path, []byte("binary"), 0755)

	res := v.VerifyFile(path)
	if res.Passed {
		t.Error("expected failure without sidecar")
	}
	if res.Reason != verifier.ReasonSidecarMissing {
		t.Errorf("expected sidecar-missing, got %s", res.Reason)
	}
}

func TestVerifyAgainst_ArtifactMissing(t *testing.T) {
	v := verifier.New(newHasher(t))

	res := v.VerifyAgainst(filepath.Join(t.TempDir(), "absent"), "abc")
	if res.Passed {
		t.Error("expected failure for missing artifact")
	}
	// Missing artifact is a distinct reason from a digest mismatch
	if res.Reason != verifier.ReasonArtifactMissing {
		t.Errorf("expected artifact-missing, got %s", res.Reason)
	}
}

func TestVerifyDirectory_MutationFlipsOneResult(t *testing.T) {
	h := newHasher(t)
	v := verifier.New(h)
	dir := t.TempDir()

	good := writeArtifact(t, h, dir, "mjml-linux-x64-node20", "binary-a")
	bad := writeArtifact(t, h, dir, "mjml-linux-x64-node18", "binary-b")
	_ = good

	// Flip one byte of one artifact
	if err := os.WriteFile(bad, []byte("binary-B"), 0755); err != nil {
		t.Fatal(err)
	}

	report, err := v.VerifyDirectory(dir)
	if err != nil {
		t.Fatalf("verify directory failed: %v", err)
	}

	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.OK() {
		t.Error("expected overall failure")
	}

	for _, res := range report.Results {
		switch res.Name {
		case "mjml-linux-x64-node20":
			if !res.Passed {
				t.Errorf("untouched artifact must still pass, got %s", res.Reason)
			}
		case "mjml-linux-x64-node18":
			if res.Passed {
				t.Error("mutated artifact must fail")
			}
			if res.Reason != verifier.ReasonHashMismatch {
				t.Errorf("expected hash-mismatch, got %s", res.Reason)
			}
		default:
			t.Errorf("unexpected result for %s", res.Name)
		}
	}
}

func TestVerifyDirectory_SkipsSidecarsArchivesManifest(t *testing.T) {
	h := newHasher(t)
	v := verifier.New(h)
	dir := t.TempDir()

	writeArtifact(t, h, dir, "mjml-linux-x64-node20", "binary")
	os.WriteFile(filepath.Join(dir, "mjml-linux-x64-node20.zip"), []byte("zip"), 0644)
	os.WriteFile(filepath.Join(dir, "build-manifest.json"), []byte("{}"), 0644)

	report, err := v.VerifyDirectory(dir)
	if err != nil {
		t.Fatalf("verify directory failed: %v", err)
	}

	if len(report.Results) != 1 {
		t.Fatalf("expected only the artifact to be checked, got %d results", len(report.Results))
	}
	if !report.OK() {
		t.Error("expected pass")
	}
}

func TestVerifyManifest_OneBadEntry(t *testing.T) {
	h := newHasher(t)
	v := verifier.New(h)
	dir := t.TempDir()

	goodPath := writeArtifact(t, h, dir, "mjml-linux-x64-node20", "binary-a")
	writeArtifact(t, h, dir, "mjml-linux-x64-node18", "binary-b")

	goodDigest, _ := h.HashFile(goodPath)

	m := &types.Manifest{
		Version:   "1.0.0",
		BuildTime: time.Now(),
		Builds: []types.ManifestEntry{
			{Name: "mjml-linux-x64-node20", Platform: "linux-x64", NodeVersion: "20", Hash: goodDigest},
			{Name: "mjml-linux-x64-node18", Platform: "linux-x64", NodeVersion: "18", Hash: "deadbeef"},
		},
	}

	report := v.VerifyManifest(m, dir)

	if report.OK() {
		t.Error("expected overall failure")
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results even after a failure, got %d", len(report.Results))
	}
	if !report.Results[0].Passed {
		t.Error("correct entry must still pass")
	}
	if report.Results[1].Passed || report.Results[1].Reason != verifier.ReasonHashMismatch {
		t.Errorf("stale entry must fail with hash-mismatch, got %+v", report.Results[1])
	}
}
