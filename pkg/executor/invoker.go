package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/forgekit/forge/pkg/logger"
)

// Invoker abstracts the external compiler-packager process. It is handed a
// target identifier and an output path; on success exactly one file exists
// at that path, on failure the returned error carries the diagnostic text.
type Invoker interface {
	Invoke(ctx context.Context, target, outputPath string) error
}

// PkgInvoker invokes the packaging CLI as an external process
type PkgInvoker struct {
	Tool     string
	BaseArgs []string
	WorkDir  string
	Logger   logger.Logger
}

// NewPkgInvoker creates an invoker for the given packaging tool. baseArgs
// come before the target and output flags, e.g. the compiler entry script.
func NewPkgInvoker(tool string, baseArgs []string, workDir string, log logger.Logger) *PkgInvoker {
	return &PkgInvoker{
		Tool:     tool,
		BaseArgs: baseArgs,
		WorkDir:  workDir,
		Logger:   log,
	}
}

// Invoke runs the packaging tool for one target. No timeout is imposed
// here; cancellation comes from the caller's context.
func (p *PkgInvoker) Invoke(ctx context.Context, target, outputPath string) error {
	args := append([]string{}, p.BaseArgs...)
	args = append(args, "--target", target, "--output", outputPath)

	cmd := exec.CommandContext(ctx, p.Tool, args...)
	cmd.Dir = p.WorkDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if p.Logger != nil {
		p.Logger.Debug(fmt.Sprintf("Executing: %s %v", p.Tool, args))
	}

	if err := cmd.Run(); err != nil {
		diag := stderr.String()
		if diag != "" {
			return fmt.Errorf("%s failed: %w: %s", p.Tool, err, diag)
		}
		return fmt.Errorf("%s failed: %w", p.Tool, err)
	}

	return nil
}
