package engine_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgekit/forge/internal/engine"
	"github.com/forgekit/forge/pkg/logger"
	"github.com/forgekit/forge/pkg/manifest"
	"github.com/forgekit/forge/pkg/planner"
	"github.com/forgekit/forge/pkg/types"
)

type scriptedInvoker struct {
	failTargets map[string]bool
}

func (s *scriptedInvoker) Invoke(ctx context.Context, target, outputPath string) error {
	if s.failTargets[target] {
		return errors.New("pkg exited with status 1")
	}
	return os.WriteFile(outputPath, []byte("binary for "+target), 0755)
}

func testConfig(outputDir string) *types.BuildConfig {
	return &types.BuildConfig{
		Version: "1.0",
		Platforms: map[string]types.PlatformSpec{
			"linux-x64": {Enabled: true, PkgTarget: "linux-x64", ArtifactName: "linux-x64"},
		},
		NodeVersions: map[string]types.NodeVersionSpec{
			"20": {Enabled: true, Supported: true, PkgTarget: "node20"},
			"16": {Enabled: true, Supported: true, PkgTarget: "node16"},
		},
		Output: types.OutputConfig{
			Directory:        outputDir,
			BinaryPrefix:     "mjml",
			HashAlgorithm:    types.HashAlgorithmSHA256,
			CompressionLevel: 6,
		},
		Build: types.BuildPolicy{CleanBeforeBuild: true, Parallel: true, MaxConcurrency: 2},
	}
}

func newForge(t *testing.T, cfg *types.BuildConfig, inv *scriptedInvoker) *engine.Forge {
	t.Helper()
	log := logger.CreateLoggerWithOutput("error", io.Discard)
	f, err := engine.New(cfg, inv, log, t.TempDir(), "4.15.3")
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return f
}

func TestBuild_FullPipeline(t *testing.T) {
	outputDir := t.TempDir()
	cfg := testConfig(outputDir)
	f := newForge(t, cfg, &scriptedInvoker{})

	summary, err := f.Build(context.Background(), engine.BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if summary.Total != 2 || summary.Succeeded != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.RunID == "" {
		t.Error("expected a run id")
	}

	// Artifacts, sidecars, and manifest all land in the output directory
	for _, name := range []string{"mjml-linux-x64-node20", "mjml-linux-x64-node16"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("artifact %s missing", name)
		}
		if _, err := os.Stat(filepath.Join(outputDir, name+".sha256")); err != nil {
			t.Errorf("sidecar for %s missing", name)
		}
	}

	store := manifest.NewStore(outputDir, "4.15.3")
	m, err := store.Read()
	if err != nil {
		t.Fatalf("manifest missing after build: %v", err)
	}
	if len(m.Builds) != 2 {
		t.Errorf("expected 2 manifest entries, got %d", len(m.Builds))
	}

	// Verification straight after a build passes in both modes
	report, err := f.VerifyAll()
	if err != nil {
		t.Fatalf("verify all failed: %v", err)
	}
	if !report.OK() {
		t.Error("expected directory verification to pass")
	}

	report, err = f.VerifyManifest()
	if err != nil {
		t.Fatalf("verify manifest failed: %v", err)
	}
	if !report.OK() {
		t.Error("expected manifest verification to pass")
	}
}

func TestBuild_PartialFailure(t *testing.T) {
	outputDir := t.TempDir()
	cfg := testConfig(outputDir)
	inv := &scriptedInvoker{failTargets: map[string]bool{"node16-linux-x64": true}}
	f := newForge(t, cfg, inv)

	summary, err := f.Build(context.Background(), engine.BuildOptions{})
	if err != nil {
		t.Fatalf("build returned phase error for per-job failure: %v", err)
	}

	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.OK() {
		t.Error("summary must report failure")
	}

	// Manifest records only the success
	m, err := manifest.NewStore(outputDir, "").Read()
	if err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	if len(m.Builds) != 1 || m.Builds[0].NodeVersion != "20" {
		t.Errorf("unexpected manifest contents: %+v", m.Builds)
	}
}

func TestBuild_EmptyPlan(t *testing.T) {
	cfg := testConfig(t.TempDir())
	f := newForge(t, cfg, &scriptedInvoker{})

	summary, err := f.Build(context.Background(), engine.BuildOptions{
		Filter: planner.Filter{Platforms: []string{"does-not-exist"}},
	})
	if err != nil {
		t.Fatalf("empty plan must not be an error: %v", err)
	}
	if summary.Total != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}

func TestBuild_DryRun(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "dist")
	cfg := testConfig(outputDir)
	f := newForge(t, cfg, &scriptedInvoker{})

	summary, err := f.Build(context.Background(), engine.BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry run failed: %v", err)
	}
	if summary.Succeeded != 2 {
		t.Errorf("expected synthetic successes, got %+v", summary)
	}
	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Error("dry run must not create the output directory")
	}
}

func TestBuild_CleanBeforeBuild(t *testing.T) {
	outputDir := t.TempDir()
	stale := filepath.Join(outputDir, "stale-artifact")
	os.WriteFile(stale, []byte("old"), 0644)

	cfg := testConfig(outputDir)
	f := newForge(t, cfg, &scriptedInvoker{})

	if _, err := f.Build(context.Background(), engine.BuildOptions{}); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale artifact must be removed before building")
	}
}

func TestPackageAll_FromManifest(t *testing.T) {
	outputDir := t.TempDir()
	cfg := testConfig(outputDir)
	f := newForge(t, cfg, &scriptedInvoker{})

	if _, err := f.Build(context.Background(), engine.BuildOptions{}); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	report, err := f.PackageAll()
	if err != nil {
		t.Fatalf("package failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected packaging to pass: %+v", report.Results)
	}

	for _, name := range []string{"mjml-linux-x64-node20.zip", "mjml-linux-x64-node16.zip"} {
		if _, err := os.Stat(filepath.Join(outputDir, name)); err != nil {
			t.Errorf("archive %s missing", name)
		}
	}
}

func TestPackageAll_WithoutManifest(t *testing.T) {
	cfg := testConfig(t.TempDir())
	f := newForge(t, cfg, &scriptedInvoker{})

	_, err := f.PackageAll()
	if !errors.Is(err, manifest.ErrManifestNotFound) {
		t.Errorf("expected ErrManifestNotFound, got %v", err)
	}
}
