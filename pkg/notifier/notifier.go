// Package notifier provides desktop notifications for build runs
package notifier

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/forgekit/forge/pkg/logger"
	"github.com/forgekit/forge/pkg/types"
)

// RunNotifier reports build-run completion to the desktop. Used by watch
// mode, where the terminal is usually in the background.
type RunNotifier struct {
	enabled bool
	logger  logger.Logger
}

// New creates a run notifier
func New(enabled bool, log logger.Logger) *RunNotifier {
	return &RunNotifier{enabled: enabled, logger: log}
}

// NotifyRunComplete announces the outcome of a finished build run
func (n *RunNotifier) NotifyRunComplete(summary *types.RunSummary) {
	if !n.enabled {
		return
	}

	var title, message string
	if summary.OK() {
		title = "✅ Forge Build Succeeded"
		message = fmt.Sprintf("%d artifacts built in %s", summary.Succeeded, summary.Duration.Round(1e7))
	} else {
		title = "❌ Forge Build Failed"
		message = fmt.Sprintf("%d of %d jobs failed", summary.Failed, summary.Total)
	}

	if err := beeep.Notify(title, message, ""); err != nil && n.logger != nil {
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}
}
