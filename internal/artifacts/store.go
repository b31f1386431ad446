// Package artifacts owns the run's on-disk output: diagnostic screenshots
// and the exported spreadsheet.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"tmexport.in/cli/internal/core/domain"
	"tmexport.in/cli/internal/core/ports"
)

const timestampLayout = "20060102_150405"

// Store writes screenshots and downloaded files under the configured
// directories, creating them on first use.
type Store struct {
	screenshotDir string
	downloadDir   string
	now           func() time.Time
}

// NewStore creates the screenshot and download directories if absent.
func NewStore(screenshotDir, downloadDir string) (*Store, error) {
	for _, dir := range []string{screenshotDir, downloadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Store{
		screenshotDir: screenshotDir,
		downloadDir:   downloadDir,
		now:           time.Now,
	}, nil
}

// ScreenshotDir returns the directory screenshots are written to.
func (s *Store) ScreenshotDir() string {
	return s.screenshotDir
}

// DownloadDir returns the directory exports are placed in.
func (s *Store) DownloadDir() string {
	return s.downloadDir
}

// SaveScreenshot writes PNG bytes under a collision-free name built from the
// tag, a timestamp and a short unique ID, and returns the path.
func (s *Store) SaveScreenshot(tag string, png []byte) (string, error) {
	name := fmt.Sprintf("%s_%s_%s.png", tag, s.now().Format(timestampLayout), shortID())
	path := filepath.Join(s.screenshotDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}

// PlaceDownload verifies a completed browser download and moves it into the
// download directory under a deterministic timestamped name, so consecutive
// runs never overwrite each other's artifact. The portal's file extension is
// preserved.
func (s *Store) PlaceDownload(dl ports.Download, sourceURL string) (domain.ExportArtifact, error) {
	info, err := os.Stat(dl.Path)
	if err != nil {
		return domain.ExportArtifact{}, &domain.VerificationError{Reason: fmt.Sprintf("downloaded file missing: %v", err)}
	}
	if info.Size() == 0 {
		return domain.ExportArtifact{}, &domain.VerificationError{Reason: fmt.Sprintf("downloaded file %s is empty", dl.Path)}
	}

	ext := filepath.Ext(dl.SuggestedName)
	if ext == "" {
		ext = filepath.Ext(dl.Path)
	}
	if ext == "" {
		ext = ".xls"
	}
	name := fmt.Sprintf("notifications_%s_%s%s", s.now().Format(timestampLayout), shortID(), ext)
	dest := filepath.Join(s.downloadDir, name)

	if err := moveFile(dl.Path, dest); err != nil {
		return domain.ExportArtifact{}, fmt.Errorf("failed to place download: %w", err)
	}

	artifact := domain.ExportArtifact{
		SourceURL:   sourceURL,
		Path:        dest,
		Size:        info.Size(),
		CompletedAt: s.now(),
	}
	if err := artifact.Verify(); err != nil {
		return domain.ExportArtifact{}, err
	}
	return artifact, nil
}

// ListExports returns spreadsheet files currently in the download directory,
// newest first.
func (s *Store) ListExports() ([]string, error) {
	entries, err := os.ReadDir(s.downloadDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".xls") || strings.HasSuffix(name, ".xlsx") {
			files = append(files, filepath.Join(s.downloadDir, name))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

// moveFile renames src to dest, falling back to copy+remove when the two
// paths live on different filesystems.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}

func shortID() string {
	return uuid.NewString()[:8]
}
