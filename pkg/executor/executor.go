// Package executor runs planned build jobs against the external packaging
// tool with bounded concurrency
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgekit/forge/pkg/hasher"
	"github.com/forgekit/forge/pkg/logger"
	"github.com/forgekit/forge/pkg/types"
)

// Executor drains a job list with a bounded worker pool. Jobs are
// independent; a failed job never aborts its siblings.
type Executor struct {
	invoker Invoker
	hasher  *hasher.Hasher
	logger  logger.Logger

	outputDir      string
	parallel       bool
	maxConcurrency int
}

// New creates an executor bound to one configuration
func New(cfg *types.BuildConfig, inv Invoker, h *hasher.Hasher, log logger.Logger) *Executor {
	return &Executor{
		invoker:        inv,
		hasher:         h,
		logger:         log,
		outputDir:      cfg.Output.Directory,
		parallel:       cfg.Build.Parallel,
		maxConcurrency: cfg.Build.MaxConcurrency,
	}
}

// Clean removes all pre-existing entries in the output directory. Without
// force it only reports how many entries would be removed. The count of
// affected entries is returned either way.
func (e *Executor) Clean(force bool) (int, error) {
	entries, err := os.ReadDir(e.outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read output directory: %w", err)
	}

	if !force {
		return len(entries), nil
	}

	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(e.outputDir, entry.Name())); err != nil {
			return 0, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}

	return len(entries), nil
}

// Run executes every job and returns one result per job, in plan order.
// With dryRun set, invocation is skipped and synthetic successes are
// reported without touching the filesystem.
func (e *Executor) Run(ctx context.Context, jobs []types.BuildJob, dryRun bool) []types.BuildResult {
	results := make([]types.BuildResult, len(jobs))

	if dryRun {
		for i, job := range jobs {
			results[i] = types.BuildResult{
				Job:        job,
				Success:    true,
				OutputPath: filepath.Join(e.outputDir, job.ArtifactName),
			}
		}
		return results
	}

	if err := os.MkdirAll(e.outputDir, 0755); err != nil {
		for i, job := range jobs {
			results[i] = types.BuildResult{Job: job, Error: err.Error()}
		}
		return results
	}

	workers := e.workerCount(len(jobs))

	type indexedJob struct {
		idx int
		job types.BuildJob
	}

	queue := make(chan indexedJob)

	g := new(errgroup.Group)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for item := range queue {
				results[item.idx] = e.runJob(ctx, item.job)
			}
			return nil
		})
	}

	for i, job := range jobs {
		queue <- indexedJob{idx: i, job: job}
	}
	close(queue)

	g.Wait() // workers never return errors; per-job failures live in results

	return results
}

// Private methods

func (e *Executor) workerCount(jobCount int) int {
	if !e.parallel {
		return 1
	}
	if jobCount < e.maxConcurrency {
		return jobCount
	}
	return e.maxConcurrency
}

// runJob performs one external invocation, validates the output, and
// delegates digest computation to the hasher. A worker panic is converted
// to a failed result so it cannot take down sibling jobs.
func (e *Executor) runJob(ctx context.Context, job types.BuildJob) (result types.BuildResult) {
	start := time.Now()
	result.Job = job

	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			if e.logger != nil {
				e.logger.Error("Build worker panic recovered",
					logger.WithField("panic", r),
					logger.WithField("stack_trace", string(debug.Stack())))
			}
			result.Success = false
			result.Error = fmt.Sprintf("worker panic: %v", r)
		}
	}()

	log := e.logger
	if log != nil {
		log = log.WithTarget(job.ArtifactName)
		log.Info(fmt.Sprintf("Building for %s", job.PkgTarget))
	}

	outputPath := filepath.Join(e.outputDir, job.ArtifactName)
	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		absPath = outputPath
	}

	if err := e.invoker.Invoke(ctx, job.PkgTarget, absPath); err != nil {
		if log != nil {
			log.Error("Build failed", logger.WithField("error", err))
		}
		result.Error = err.Error()
		return result
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		if log != nil {
			log.Error("Build output missing", logger.WithField("path", outputPath))
		}
		result.Error = fmt.Sprintf("build succeeded but output not found: %s", outputPath)
		return result
	}

	digest, err := e.hasher.HashFile(outputPath)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if err := e.hasher.WriteSidecar(outputPath, digest, job.ArtifactName); err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.OutputPath = outputPath
	result.Size = info.Size()
	result.Hash = digest

	if log != nil {
		log.Success(fmt.Sprintf("Built in %s", time.Since(start).Round(time.Millisecond)),
			logger.WithField("size", info.Size()))
	}

	return result
}
