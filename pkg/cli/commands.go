package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forgekit/forge/internal/engine"
	"github.com/forgekit/forge/pkg/config"
	"github.com/forgekit/forge/pkg/executor"
	"github.com/forgekit/forge/pkg/logger"
	"github.com/forgekit/forge/pkg/packager"
	"github.com/forgekit/forge/pkg/planner"
	"github.com/forgekit/forge/pkg/types"
	"github.com/forgekit/forge/pkg/verifier"
)

// toolFlags carry the external packager invocation settings
type toolFlags struct {
	tool  string
	entry string
}

func (t *toolFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.tool, "tool", "pkg", "external packaging tool")
	cmd.Flags().StringVar(&t.entry, "entry", ".", "entry point handed to the packaging tool")
}

func newBuildCmd() *cobra.Command {
	var platforms, nodeVersions []string
	var dryRun, sequential bool
	var tf toolFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the full platform × version matrix",
		Long:  `Expand the configured build matrix, run the packaging tool for every combination, hash each artifact, and write the build manifest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(platforms, nodeVersions, dryRun, sequential, tf)
		},
	}

	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "limit to specific platform ids")
	cmd.Flags().StringSliceVarP(&nodeVersions, "node", "n", nil, "limit to specific node version ids")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan and report without invoking the packaging tool")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "run jobs one at a time regardless of config")
	tf.register(cmd)

	return cmd
}

func newPlanCmd() *cobra.Command {
	var platforms, nodeVersions []string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the expanded build matrix without building",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(platforms, nodeVersions)
		},
	}

	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "limit to specific platform ids")
	cmd.Flags().StringSliceVarP(&nodeVersions, "node", "n", nil, "limit to specific node version ids")

	return cmd
}

func newVerifyCmd() *cobra.Command {
	var expectedHash string
	var all, fromManifest bool

	cmd := &cobra.Command{
		Use:   "verify [artifact]",
		Short: "Verify artifact integrity",
		Long:  `Verify one artifact against its hash sidecar or an explicit digest, or verify every artifact in the output directory or the build manifest.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runVerify(path, expectedHash, all, fromManifest)
		},
	}

	cmd.Flags().StringVar(&expectedHash, "hash", "", "expected hex digest to compare against")
	cmd.Flags().BoolVar(&all, "all", false, "verify every artifact in the output directory")
	cmd.Flags().BoolVar(&fromManifest, "manifest", false, "verify every artifact recorded in the manifest")

	return cmd
}

func newPackageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package [artifact]",
		Short: "Bundle artifacts into compressed archives",
		Long:  `Package each artifact with its hash sidecar and license/readme into a zip archive. Without an argument, every artifact in the manifest is packaged.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runPackage(path)
		},
	}

	return cmd
}

func newCleanCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build artifacts from the output directory",
		Long:  `Without --force, only reports how many entries would be removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "actually delete instead of previewing")

	return cmd
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default forge.config.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("🔨 Forge v%s\n", version)
		},
	}
}

// Command implementations

func runBuild(platforms, nodeVersions []string, dryRun, sequential bool, tf toolFlags) error {
	forge, _, err := setupForge(tf, sequential)
	if err != nil {
		return err
	}

	summary, err := forge.Build(context.Background(), engine.BuildOptions{
		Filter: planner.Filter{Platforms: platforms, NodeVersions: nodeVersions},
		DryRun: dryRun,
	})
	if err != nil {
		return err
	}

	printSummary(summary, dryRun)

	if !summary.OK() {
		return fmt.Errorf("%d of %d jobs failed", summary.Failed, summary.Total)
	}
	return nil
}

func runPlan(platforms, nodeVersions []string) error {
	forge, _, err := setupForge(toolFlags{tool: "pkg"}, false)
	if err != nil {
		return err
	}

	jobs := forge.Plan(planner.Filter{Platforms: platforms, NodeVersions: nodeVersions})
	if len(jobs) == 0 {
		printWarning("No eligible platform/version combinations")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PLATFORM\tNODE\tTARGET\tARTIFACT")
	for _, job := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", job.Platform, job.NodeVersion, job.PkgTarget, job.ArtifactName)
	}
	w.Flush()

	printInfo(fmt.Sprintf("%d jobs planned", len(jobs)))
	return nil
}

func runVerify(path, expectedHash string, all, fromManifest bool) error {
	forge, _, err := setupForge(toolFlags{tool: "pkg"}, false)
	if err != nil {
		return err
	}

	var report *verifier.Report

	switch {
	case fromManifest:
		report, err = forge.VerifyManifest()
		if err != nil {
			return err
		}
	case all:
		report, err = forge.VerifyAll()
		if err != nil {
			return err
		}
	case path != "" && expectedHash != "":
		report = &verifier.Report{Results: []verifier.Result{forge.VerifyAgainst(path, expectedHash)}}
	case path != "":
		report = &verifier.Report{Results: []verifier.Result{forge.VerifyFile(path)}}
	default:
		return fmt.Errorf("specify an artifact path, --all, or --manifest")
	}

	for _, res := range report.Results {
		if res.Passed {
			fmt.Printf("  %s %s\n", color.GreenString("✓"), res.Name)
		} else {
			fmt.Printf("  %s %s (%s)\n", color.RedString("✗"), res.Name, res.Reason)
			if res.Reason == verifier.ReasonHashMismatch {
				fmt.Printf("      expected %s\n      actual   %s\n", res.Expected, res.Actual)
			}
		}
	}

	passed := 0
	for _, res := range report.Results {
		if res.Passed {
			passed++
		}
	}
	printInfo(fmt.Sprintf("Verified %d artifacts: %d passed, %d failed",
		len(report.Results), passed, len(report.Results)-passed))

	if !report.OK() {
		return fmt.Errorf("verification failed for %d artifacts", len(report.Results)-passed)
	}
	printSuccess("All artifacts verified")
	return nil
}

func runPackage(path string) error {
	forge, _, err := setupForge(toolFlags{tool: "pkg"}, false)
	if err != nil {
		return err
	}

	var report *packager.Report
	if path != "" {
		report = forge.PackageArtifact(path)
	} else {
		report, err = forge.PackageAll()
		if err != nil {
			return err
		}
	}

	failed := 0
	for _, res := range report.Results {
		if !res.Success {
			failed++
		}
	}
	printInfo(fmt.Sprintf("Packaged %d artifacts: %d succeeded, %d failed",
		len(report.Results), len(report.Results)-failed, failed))

	if failed > 0 {
		return fmt.Errorf("packaging failed for %d artifacts", failed)
	}
	return nil
}

func runClean(force bool) error {
	forge, cfg, err := setupForge(toolFlags{tool: "pkg"}, false)
	if err != nil {
		return err
	}

	count, err := forge.Clean(force)
	if err != nil {
		return err
	}

	if force {
		printSuccess(fmt.Sprintf("Removed %d entries from %s", count, cfg.Output.Directory))
	} else {
		printInfo(fmt.Sprintf("Would remove %d entries from %s (use --force to delete)", count, cfg.Output.Directory))
	}
	return nil
}

func runInit(force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
	}

	manager := config.NewManager()
	cfg := manager.GetDefaultConfig()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printSuccess(fmt.Sprintf("Created %s", configPath))
	return nil
}

// Shared setup

// setupForge loads the config and assembles the engine. The sequential
// override must be applied before engine construction because the executor
// snapshots the build policy.
func setupForge(tf toolFlags, sequential bool) (*engine.Forge, *types.BuildConfig, error) {
	manager := config.NewManager()
	cfg, err := manager.LoadConfig(getConfigPath())
	if err != nil {
		return nil, nil, err
	}

	if sequential {
		cfg.Build.Parallel = false
	}

	logLevel := verbosity
	if cfg.Logging != nil && verbosity == "info" {
		logLevel = string(cfg.Logging.Level)
	}
	logFile := ""
	if cfg.Logging != nil {
		logFile = cfg.Logging.File
	}
	log := logger.CreateLogger(logFile, logLevel)

	inv := executor.NewPkgInvoker(tf.tool, []string{tf.entry}, projectRoot, log)

	forge, err := engine.New(cfg, inv, log, projectRoot, version)
	if err != nil {
		return nil, nil, err
	}

	return forge, cfg, nil
}

func printSummary(summary *types.RunSummary, dryRun bool) {
	for _, res := range summary.Results {
		if res.Success {
			fmt.Printf("  %s %s (%s)\n", color.GreenString("✓"), res.Job.ArtifactName, res.Job.PkgTarget)
		} else {
			fmt.Printf("  %s %s (%s): %s\n", color.RedString("✗"), res.Job.ArtifactName, res.Job.PkgTarget, res.Error)
		}
	}

	label := "Build"
	if dryRun {
		label = "Dry run"
	}
	printInfo(fmt.Sprintf("%s complete: %d total, %d succeeded, %d failed in %s",
		label, summary.Total, summary.Succeeded, summary.Failed,
		summary.Duration.Round(1e6)))
}
