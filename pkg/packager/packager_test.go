package packager_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgekit/forge/pkg/hasher"
	"github.com/forgekit/forge/pkg/packager"
	"github.com/forgekit/forge/pkg/types"
)

func newHasher(t *testing.T) *hasher.Hasher {
	t.Helper()
	h, err := hasher.New(types.HashAlgorithmSHA256)
	if err != nil {
		t.Fatalf("failed to create hasher: %v", err)
	}
	return h
}

func archiveNames(t *testing.T, path string) map[string]bool {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive %s: %v", path, err)
	}
	defer r.Close()

	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	return names
}

func TestPackage_IncludesArtifactSidecarAndAux(t *testing.T) {
	h := newHasher(t)
	dir := t.TempDir()
	root := t.TempDir()

	artifact := filepath.Join(dir, "mjml-linux-x64-node20")
	os.WriteFile(artifact, []byte("binary"), 0755)
	digest, _ := h.HashFile(artifact)
	h.WriteSidecar(artifact, digest, "mjml-linux-x64-node20")

	os.WriteFile(filepath.Join(root, "LICENSE"), []byte("MIT"), 0644)
	os.WriteFile(filepath.Join(root, "README.md"), []byte("# mjml"), 0644)

	p := packager.New(h, nil, 6, packager.DefaultAuxiliaryFiles(root))
	res := p.Package(artifact)

	if !res.Success {
		t.Fatalf("packaging failed: %s", res.Error)
	}
	if res.ArchivePath != filepath.Join(dir, "mjml-linux-x64-node20.zip") {
		t.Errorf("unexpected archive path: %s", res.ArchivePath)
	}

	names := archiveNames(t, res.ArchivePath)
	for _, want := range []string{"mjml-linux-x64-node20", "mjml-linux-x64-node20.sha256", "LICENSE", "README.md"} {
		if !names[want] {
			t.Errorf("archive missing %s (has %v)", want, names)
		}
	}
}

func TestPackage_MissingAuxiliaryFilesSkipped(t *testing.T) {
	h := newHasher(t)
	dir := t.TempDir()

	artifact := filepath.Join(dir, "mjml-linux-x64-node20")
	os.WriteFile(artifact, []byte("binary"), 0755)

	// No sidecar, no license, no readme: archive still contains the artifact
	p := packager.New(h, nil, 1, packager.DefaultAuxiliaryFiles(filepath.Join(dir, "nowhere")))
	res := p.Package(artifact)

	if !res.Success {
		t.Fatalf("packaging failed: %s", res.Error)
	}

	names := archiveNames(t, res.ArchivePath)
	if len(names) != 1 || !names["mjml-linux-x64-node20"] {
		t.Errorf("expected artifact only, got %v", names)
	}
}

func TestArchivePath_StripsExecutableExtension(t *testing.T) {
	tests := []struct {
		artifact string
		want     string
	}{
		{"mjml-windows-x64-node20.exe", "mjml-windows-x64-node20.zip"},
		{"mjml-linux-x64-node20", "mjml-linux-x64-node20.zip"},
	}

	for _, tt := range tests {
		if got := packager.ArchivePath(tt.artifact); got != tt.want {
			t.Errorf("ArchivePath(%s) = %s, want %s", tt.artifact, got, tt.want)
		}
	}
}

func TestPackageAll_FailureDoesNotBlockOthers(t *testing.T) {
	h := newHasher(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "mjml-linux-x64-node20")
	os.WriteFile(good, []byte("binary"), 0755)
	missing := filepath.Join(dir, "mjml-macos-arm64-node20")

	p := packager.New(h, nil, 6, nil)
	report := p.PackageAll([]string{missing, good})

	if report.OK() {
		t.Error("expected overall failure")
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Success {
		t.Error("missing artifact must fail")
	}
	if !report.Results[1].Success {
		t.Errorf("good artifact must still package: %s", report.Results[1].Error)
	}
}
