// Package packager bundles artifacts and their sidecars into zip archives
package packager

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgekit/forge/pkg/hasher"
	"github.com/forgekit/forge/pkg/logger"
)

// Result is one artifact's packaging outcome
type Result struct {
	Artifact    string
	ArchivePath string
	Success     bool
	Error       string
}

// Report aggregates per-artifact packaging results
type Report struct {
	Results []Result
}

// OK reports whether every artifact packaged successfully
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if !res.Success {
			return false
		}
	}
	return true
}

// Packager produces one compressed archive per artifact, including the
// hash sidecar and fixed auxiliary files when present
type Packager struct {
	hasher           *hasher.Hasher
	logger           logger.Logger
	compressionLevel int
	auxiliaryFiles   []string
}

// New creates a packager. auxiliaryFiles are paths (license, readme)
// included in every archive when they exist.
func New(h *hasher.Hasher, log logger.Logger, compressionLevel int, auxiliaryFiles []string) *Packager {
	return &Packager{
		hasher:           h,
		logger:           log,
		compressionLevel: compressionLevel,
		auxiliaryFiles:   auxiliaryFiles,
	}
}

// DefaultAuxiliaryFiles returns the conventional license/readme locations
// relative to the project root
func DefaultAuxiliaryFiles(projectRoot string) []string {
	return []string{
		filepath.Join(projectRoot, "LICENSE"),
		filepath.Join(projectRoot, "README.md"),
	}
}

// ArchivePath returns the archive name for an artifact: the platform
// executable extension is stripped and ".zip" appended
func ArchivePath(artifactPath string) string {
	return strings.TrimSuffix(artifactPath, ".exe") + ".zip"
}

// PackageAll packages every artifact, collecting per-file failures.
// One artifact failing never blocks the others.
func (p *Packager) PackageAll(artifactPaths []string) *Report {
	report := &Report{}
	for _, path := range artifactPaths {
		res := p.Package(path)
		report.Results = append(report.Results, res)

		if p.logger != nil {
			if res.Success {
				p.logger.Success(fmt.Sprintf("Packaged %s", filepath.Base(res.ArchivePath)))
			} else {
				p.logger.Error(fmt.Sprintf("Failed to package %s", res.Artifact),
					logger.WithField("error", res.Error))
			}
		}
	}
	return report
}

// Package produces the archive for one artifact
func (p *Packager) Package(artifactPath string) Result {
	name := filepath.Base(artifactPath)
	archivePath := ArchivePath(artifactPath)
	res := Result{Artifact: name, ArchivePath: archivePath}

	if _, err := os.Stat(artifactPath); err != nil {
		res.Error = fmt.Sprintf("artifact not found: %s", artifactPath)
		return res
	}

	out, err := os.Create(archivePath)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	level := p.compressionLevel
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	if err := p.addFile(zw, artifactPath, name); err != nil {
		zw.Close()
		res.Error = err.Error()
		return res
	}

	// Sidecar travels with the artifact when it exists
	sidecarPath := p.hasher.SidecarPath(artifactPath)
	if _, err := os.Stat(sidecarPath); err == nil {
		if err := p.addFile(zw, sidecarPath, filepath.Base(sidecarPath)); err != nil {
			zw.Close()
			res.Error = err.Error()
			return res
		}
	}

	for _, aux := range p.auxiliaryFiles {
		if _, err := os.Stat(aux); err != nil {
			continue
		}
		if err := p.addFile(zw, aux, filepath.Base(aux)); err != nil {
			zw.Close()
			res.Error = err.Error()
			return res
		}
	}

	if err := zw.Close(); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	return res
}

// Private methods

func (p *Packager) addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s into archive: %w", name, err)
	}

	return nil
}
