package cli

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/forgekit/forge/internal/engine"
	"github.com/forgekit/forge/pkg/logger"
	"github.com/forgekit/forge/pkg/notifier"
	"github.com/forgekit/forge/pkg/process"
)

const defaultSettlingDelay = 1000 * time.Millisecond

func newWatchCmd() *cobra.Command {
	var tf toolFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the matrix whenever watched files change",
		Long:  `Watch the configured source paths and re-run the build pipeline after changes settle. Builds run sequentially; a change arriving mid-build queues exactly one follow-up run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(tf)
		},
	}

	tf.register(cmd)

	return cmd
}

func runWatch(tf toolFlags) error {
	forge, cfg, err := setupForge(tf, true)
	if err != nil {
		return err
	}

	paths := []string{projectRoot}
	settling := defaultSettlingDelay
	if cfg.Watch != nil {
		if len(cfg.Watch.Paths) > 0 {
			paths = cfg.Watch.Paths
		}
		if cfg.Watch.SettlingDelay > 0 {
			settling = time.Duration(cfg.Watch.SettlingDelay) * time.Millisecond
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range paths {
		if err := addRecursive(watcher, p, cfg.Output.Directory); err != nil {
			return err
		}
	}

	log := logger.CreateLogger("", verbosity)

	notify := false
	if cfg.Notifications != nil && cfg.Notifications.Enabled != nil {
		notify = *cfg.Notifications.Enabled
	}
	runNotifier := notifier.New(notify, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pm := process.NewManager(log)
	pm.RegisterShutdownHandler(cancel)
	pm.Start(ctx)

	printInfo(fmt.Sprintf("Watching %d paths (settling delay %s). Press Ctrl-C to stop.", len(paths), settling))

	var timer *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			printInfo("Watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event, cfg.Output.Directory) {
				continue
			}
			// Debounce: restart the settling timer on every event
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settling, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printWarning(fmt.Sprintf("Watcher error: %v", err))

		case <-trigger:
			summary, err := forge.Build(ctx, engine.BuildOptions{})
			if err != nil {
				printError(fmt.Sprintf("Build error: %v", err))
				continue
			}
			printSummary(summary, false)
			runNotifier.NotifyRunComplete(summary)
		}
	}
}

// addRecursive watches a directory tree, skipping the output directory so
// freshly written artifacts do not retrigger builds
func addRecursive(watcher *fsnotify.Watcher, root, outputDir string) error {
	absOutput, _ := filepath.Abs(outputDir)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == ".git" || name == "node_modules" {
			return filepath.SkipDir
		}
		if abs, err := filepath.Abs(path); err == nil && abs == absOutput {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

func relevantEvent(event fsnotify.Event, outputDir string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	absOutput, _ := filepath.Abs(outputDir)
	absEvent, err := filepath.Abs(event.Name)
	if err != nil {
		return true
	}
	if absOutput != "" && (absEvent == absOutput || isUnder(absEvent, absOutput)) {
		return false
	}
	return true
}

func isUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

