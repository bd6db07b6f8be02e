// Package types provides core types and configurations for Forge
package types

import (
	"fmt"
	"time"
)

// HashAlgorithm identifies a supported content digest algorithm
type HashAlgorithm string

const (
	HashAlgorithmSHA256 HashAlgorithm = "sha256"
	HashAlgorithmSHA512 HashAlgorithm = "sha512"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// PlatformSpec describes one target platform in the build matrix
type PlatformSpec struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	PkgTarget    string `json:"pkgTarget" yaml:"pkgTarget"`
	ArtifactName string `json:"artifactName" yaml:"artifactName"`
	Extension    string `json:"extension,omitempty" yaml:"extension,omitempty"`
}

// NodeVersionSpec describes one runtime version in the build matrix.
// A version is scheduled only when both Enabled and Supported are true;
// unsupported versions may stay in the config for documentation.
type NodeVersionSpec struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Supported bool   `json:"supported" yaml:"supported"`
	PkgTarget string `json:"pkgTarget" yaml:"pkgTarget"`
}

// OutputConfig represents the artifact output policy
type OutputConfig struct {
	Directory        string        `json:"directory" yaml:"directory"`
	BinaryPrefix     string        `json:"binaryPrefix" yaml:"binaryPrefix"`
	HashAlgorithm    HashAlgorithm `json:"hashAlgorithm" yaml:"hashAlgorithm"`
	CompressionLevel int           `json:"compressionLevel" yaml:"compressionLevel"`
}

// BuildPolicy represents build-phase execution settings
type BuildPolicy struct {
	CleanBeforeBuild bool `json:"cleanBeforeBuild" yaml:"cleanBeforeBuild"`
	Parallel         bool `json:"parallel" yaml:"parallel"`
	MaxConcurrency   int  `json:"maxConcurrency" yaml:"maxConcurrency"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	File  string   `json:"file,omitempty" yaml:"file,omitempty"`
	Level LogLevel `json:"level" yaml:"level"`
}

// NotificationConfig represents desktop notification preferences
type NotificationConfig struct {
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// WatchConfig represents watch-mode settings
type WatchConfig struct {
	Paths         []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	SettlingDelay int      `json:"settlingDelay,omitempty" yaml:"settlingDelay,omitempty"`
}

// BuildConfig represents the main configuration. It is loaded once per
// invocation and treated as immutable afterwards.
type BuildConfig struct {
	Version       string                     `json:"version" yaml:"version"`
	Platforms     map[string]PlatformSpec    `json:"platforms" yaml:"platforms"`
	NodeVersions  map[string]NodeVersionSpec `json:"nodeVersions" yaml:"nodeVersions"`
	Output        OutputConfig               `json:"output" yaml:"output"`
	Build         BuildPolicy                `json:"build" yaml:"build"`
	Logging       *LoggingConfig             `json:"logging,omitempty" yaml:"logging,omitempty"`
	Notifications *NotificationConfig        `json:"notifications,omitempty" yaml:"notifications,omitempty"`
	Watch         *WatchConfig               `json:"watch,omitempty" yaml:"watch,omitempty"`
}

// BuildJob is one (platform, node version) unit of build work. Jobs are
// created by the planner, consumed exactly once by the executor, and never
// mutated.
type BuildJob struct {
	Platform     string `json:"platform"`
	NodeVersion  string `json:"nodeVersion"`
	PkgTarget    string `json:"pkgTarget"`
	ArtifactName string `json:"artifactName"`
}

// BuildResult is the per-job outcome. Exactly one is produced per job;
// failures are collected, never raised.
type BuildResult struct {
	Job        BuildJob      `json:"job"`
	Success    bool          `json:"success"`
	OutputPath string        `json:"outputPath,omitempty"`
	Size       int64         `json:"size,omitempty"`
	Hash       string        `json:"hash,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// RunSummary aggregates the results of one build run
type RunSummary struct {
	RunID     string        `json:"runId"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
	Results   []BuildResult `json:"results"`
}

// OK reports whether every job in the run succeeded
func (s *RunSummary) OK() bool {
	return s.Failed == 0
}

// ManifestEntry records one successfully produced artifact
type ManifestEntry struct {
	Name        string `json:"name"`
	Platform    string `json:"platform"`
	NodeVersion string `json:"nodeVersion"`
	Hash        string `json:"hash"`
	Size        int64  `json:"size"`
}

// Manifest is the single-run aggregate record of successful artifacts.
// It is overwritten wholesale on every build run.
type Manifest struct {
	Version   string          `json:"version"`
	BuildTime time.Time       `json:"buildTime"`
	Builds    []ManifestEntry `json:"builds"`
}

// Valid reports whether the algorithm is one Forge can compute
func (a HashAlgorithm) Valid() bool {
	switch a {
	case HashAlgorithmSHA256, HashAlgorithmSHA512:
		return true
	}
	return false
}

// Eligible reports whether a version may be scheduled
func (v NodeVersionSpec) Eligible() bool {
	return v.Enabled && v.Supported
}

// ArtifactName composes the deterministic output name for a
// (platform, version) pair: prefix-artifactName-nodeVERSION[.ext]
func (c *BuildConfig) ArtifactName(platformID, versionID string) string {
	p := c.Platforms[platformID]
	return fmt.Sprintf("%s-%s-node%s%s", c.Output.BinaryPrefix, p.ArtifactName, versionID, p.Extension)
}

// ComposeTarget builds the target identifier handed to the external
// packaging tool: versionTarget-platformTarget, e.g. "node20-linux-x64"
func ComposeTarget(version NodeVersionSpec, platform PlatformSpec) string {
	return version.PkgTarget + "-" + platform.PkgTarget
}
