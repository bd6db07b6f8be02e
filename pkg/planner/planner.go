// Package planner expands the build configuration into concrete build jobs
package planner

import (
	"sort"
	"strconv"

	"github.com/forgekit/forge/pkg/types"
)

// Planner expands the platform × node-version matrix into build jobs
type Planner struct {
	config *types.BuildConfig
}

// New creates a planner over an immutable configuration
func New(cfg *types.BuildConfig) *Planner {
	return &Planner{config: cfg}
}

// Filter narrows the matrix to specific platform or version ids.
// Empty slices mean "no filter".
type Filter struct {
	Platforms    []string
	NodeVersions []string
}

// Plan produces the ordered job list for the configured matrix. Platforms
// are ordered lexicographically by id and versions numerically descending,
// so identical config and filters always yield an identical list. An empty
// plan is returned as-is; the caller decides whether that is fatal.
func (p *Planner) Plan(filter Filter) []types.BuildJob {
	platforms := p.eligiblePlatforms(filter.Platforms)
	versions := p.eligibleVersions(filter.NodeVersions)

	jobs := make([]types.BuildJob, 0, len(platforms)*len(versions))
	for _, platformID := range platforms {
		platform := p.config.Platforms[platformID]
		for _, versionID := range versions {
			version := p.config.NodeVersions[versionID]
			jobs = append(jobs, types.BuildJob{
				Platform:     platformID,
				NodeVersion:  versionID,
				PkgTarget:    types.ComposeTarget(version, platform),
				ArtifactName: p.config.ArtifactName(platformID, versionID),
			})
		}
	}

	return jobs
}

// Private methods

func (p *Planner) eligiblePlatforms(filter []string) []string {
	var ids []string
	for id, spec := range p.config.Platforms {
		if !spec.Enabled {
			continue
		}
		if !matches(id, filter) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Planner) eligibleVersions(filter []string) []string {
	var ids []string
	for id, spec := range p.config.NodeVersions {
		if !spec.Eligible() {
			continue
		}
		if !matches(id, filter) {
			continue
		}
		ids = append(ids, id)
	}

	// Newest runtime first; non-numeric ids sort after numeric ones
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a > b
		}
		if errA == nil {
			return true
		}
		if errB == nil {
			return false
		}
		return ids[i] < ids[j]
	})
	return ids
}

func matches(id string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == id {
			return true
		}
	}
	return false
}
