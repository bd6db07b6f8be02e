// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/forgekit/forge/pkg/types"
	"gopkg.in/yaml.v3"
)

// ConfigVersion is the only config schema version this build understands
const ConfigVersion = "1.0"

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads configuration from a file
func (m *Manager) LoadConfig(path string) (*types.BuildConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.BuildConfig

	// Try JSON first
	if err := json.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	// Try YAML, going through JSON so both formats share struct tags
	var yamlData map[string]interface{}
	if err := yaml.Unmarshal(data, &yamlData); err == nil {
		jsonData, err := json.Marshal(yamlData)
		if err == nil {
			if err := json.Unmarshal(jsonData, &cfg); err == nil {
				return m.validateConfig(&cfg)
			}
		}
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(cfg *types.BuildConfig) error {
	if cfg.Version != ConfigVersion {
		return fmt.Errorf("unsupported config version: %s", cfg.Version)
	}

	if len(cfg.Platforms) == 0 {
		return fmt.Errorf("no platforms defined")
	}
	for id, p := range cfg.Platforms {
		if p.PkgTarget == "" {
			return fmt.Errorf("platform '%s': missing pkgTarget", id)
		}
		if p.ArtifactName == "" {
			return fmt.Errorf("platform '%s': missing artifactName", id)
		}
	}

	if len(cfg.NodeVersions) == 0 {
		return fmt.Errorf("no node versions defined")
	}
	for id, v := range cfg.NodeVersions {
		if v.PkgTarget == "" {
			return fmt.Errorf("node version '%s': missing pkgTarget", id)
		}
	}

	if cfg.Output.Directory == "" {
		return fmt.Errorf("missing output directory")
	}
	if cfg.Output.BinaryPrefix == "" {
		return fmt.Errorf("missing binary prefix")
	}
	if !cfg.Output.HashAlgorithm.Valid() {
		return fmt.Errorf("unsupported hash algorithm: %s", cfg.Output.HashAlgorithm)
	}
	if cfg.Output.CompressionLevel < 0 || cfg.Output.CompressionLevel > 9 {
		return fmt.Errorf("compression level must be 0-9, got %d", cfg.Output.CompressionLevel)
	}

	if cfg.Build.MaxConcurrency < 1 {
		return fmt.Errorf("maxConcurrency must be at least 1, got %d", cfg.Build.MaxConcurrency)
	}

	return nil
}

// GetDefaultConfig returns the default build configuration
func (m *Manager) GetDefaultConfig() *types.BuildConfig {
	return &types.BuildConfig{
		Version: ConfigVersion,
		Platforms: map[string]types.PlatformSpec{
			"linux-x64": {
				Enabled:      true,
				PkgTarget:    "linux-x64",
				ArtifactName: "linux-x64",
			},
			"linux-arm64": {
				Enabled:      true,
				PkgTarget:    "linux-arm64",
				ArtifactName: "linux-arm64",
			},
			"macos-x64": {
				Enabled:      true,
				PkgTarget:    "macos-x64",
				ArtifactName: "macos-x64",
			},
			"macos-arm64": {
				Enabled:      true,
				PkgTarget:    "macos-arm64",
				ArtifactName: "macos-arm64",
			},
			"windows-x64": {
				Enabled:      true,
				PkgTarget:    "win-x64",
				ArtifactName: "windows-x64",
				Extension:    ".exe",
			},
		},
		NodeVersions: map[string]types.NodeVersionSpec{
			"20": {Enabled: true, Supported: true, PkgTarget: "node20"},
			"18": {Enabled: true, Supported: true, PkgTarget: "node18"},
			"16": {Enabled: false, Supported: true, PkgTarget: "node16"},
			"14": {Enabled: false, Supported: false, PkgTarget: "node14"},
		},
		Output: types.OutputConfig{
			Directory:        "dist",
			BinaryPrefix:     "mjml",
			HashAlgorithm:    types.HashAlgorithmSHA256,
			CompressionLevel: 6,
		},
		Build: types.BuildPolicy{
			CleanBeforeBuild: true,
			Parallel:         true,
			MaxConcurrency:   4,
		},
		Logging: &types.LoggingConfig{
			Level: types.LogLevelInfo,
		},
	}
}

// Private methods

func (m *Manager) validateConfig(cfg *types.BuildConfig) (*types.BuildConfig, error) {
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
