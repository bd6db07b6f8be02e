// Package engine coordinates the plan, build, verify, and package phases
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/forgekit/forge/pkg/executor"
	"github.com/forgekit/forge/pkg/hasher"
	"github.com/forgekit/forge/pkg/logger"
	"github.com/forgekit/forge/pkg/manifest"
	"github.com/forgekit/forge/pkg/packager"
	"github.com/forgekit/forge/pkg/planner"
	"github.com/forgekit/forge/pkg/types"
	"github.com/forgekit/forge/pkg/verifier"
)

// Forge wires the pipeline components around one immutable configuration.
// Phases never overlap: clean completes before the first job starts, and
// verification/packaging run only as separate invocations.
type Forge struct {
	config      *types.BuildConfig
	logger      logger.Logger
	planner     *planner.Planner
	hasher      *hasher.Hasher
	executor    *executor.Executor
	manifests   *manifest.Store
	verifier    *verifier.Verifier
	packager    *packager.Packager
	projectRoot string
}

// BuildOptions control one build run
type BuildOptions struct {
	Filter planner.Filter
	DryRun bool
}

// New assembles a Forge instance. version is recorded in manifests.
func New(cfg *types.BuildConfig, inv executor.Invoker, log logger.Logger, projectRoot, version string) (*Forge, error) {
	h, err := hasher.New(cfg.Output.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	return &Forge{
		config:      cfg,
		logger:      log,
		planner:     planner.New(cfg),
		hasher:      h,
		executor:    executor.New(cfg, inv, h, log),
		manifests:   manifest.NewStore(cfg.Output.Directory, version),
		verifier:    verifier.New(h),
		packager:    packager.New(h, log, cfg.Output.CompressionLevel, packager.DefaultAuxiliaryFiles(projectRoot)),
		projectRoot: projectRoot,
	}, nil
}

// Plan expands the matrix without building
func (f *Forge) Plan(filter planner.Filter) []types.BuildJob {
	return f.planner.Plan(filter)
}

// Build runs the full build phase: optional clean, matrix expansion,
// bounded-concurrency execution, and manifest write. An empty plan is
// reported in the summary, not as an error.
func (f *Forge) Build(ctx context.Context, opts BuildOptions) (*types.RunSummary, error) {
	start := time.Now()

	jobs := f.planner.Plan(opts.Filter)

	summary := &types.RunSummary{
		RunID: uuid.New().String(),
		Total: len(jobs),
	}

	if len(jobs) == 0 {
		f.logger.Warn("No eligible platform/version combinations to build")
		summary.Duration = time.Since(start)
		return summary, nil
	}

	f.logger.Info(fmt.Sprintf("Planned %d build jobs", len(jobs)),
		logger.WithField("run_id", summary.RunID))

	if f.config.Build.CleanBeforeBuild && !opts.DryRun {
		removed, err := f.executor.Clean(true)
		if err != nil {
			return nil, fmt.Errorf("clean before build failed: %w", err)
		}
		if removed > 0 {
			f.logger.Info(fmt.Sprintf("Cleaned %d entries from %s", removed, f.config.Output.Directory))
		}
	}

	summary.Results = f.executor.Run(ctx, jobs, opts.DryRun)
	for _, r := range summary.Results {
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Duration = time.Since(start)

	if !opts.DryRun && summary.Succeeded > 0 {
		if _, err := f.manifests.Write(summary.Results); err != nil {
			return nil, err
		}
		f.logger.Debug("Manifest written", logger.WithField("path", f.manifests.Path()))
	}

	return summary, nil
}

// Clean removes (or with force unset, counts) entries in the output
// directory
func (f *Forge) Clean(force bool) (int, error) {
	return f.executor.Clean(force)
}

// VerifyFile checks one artifact against its sidecar
func (f *Forge) VerifyFile(path string) verifier.Result {
	return f.verifier.VerifyFile(path)
}

// VerifyAgainst checks one artifact against an explicit digest
func (f *Forge) VerifyAgainst(path, expected string) verifier.Result {
	return f.verifier.VerifyAgainst(path, expected)
}

// VerifyAll checks every artifact in the output directory against its
// sidecar
func (f *Forge) VerifyAll() (*verifier.Report, error) {
	return f.verifier.VerifyDirectory(f.config.Output.Directory)
}

// VerifyManifest checks every artifact recorded in the manifest
func (f *Forge) VerifyManifest() (*verifier.Report, error) {
	m, err := f.manifests.Read()
	if err != nil {
		return nil, err
	}
	return f.verifier.VerifyManifest(m, f.config.Output.Directory), nil
}

// PackageAll archives every artifact listed in the manifest. One archive
// per artifact; failures are collected per file.
func (f *Forge) PackageAll() (*packager.Report, error) {
	m, err := f.manifests.Read()
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(m.Builds))
	for _, entry := range m.Builds {
		paths = append(paths, filepath.Join(f.config.Output.Directory, entry.Name))
	}

	return f.packager.PackageAll(paths), nil
}

// PackageArtifact archives a single artifact by path
func (f *Forge) PackageArtifact(path string) *packager.Report {
	return f.packager.PackageAll([]string{path})
}
