package artifacts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tmexport.in/cli/internal/core/domain"
	"tmexport.in/cli/internal/core/ports"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "screens"), filepath.Join(t.TempDir(), "downloads"))
	require.NoError(t, err)
	return store
}

// stagedDownload writes content into a staging file the way the browser
// would, and returns the matching Download record.
func stagedDownload(t *testing.T, name string, content []byte) ports.Download {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged-guid")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return ports.Download{Path: path, SuggestedName: name, Size: int64(len(content))}
}

func TestNewStore_CreatesDirectories(t *testing.T) {
	base := t.TempDir()
	screens := filepath.Join(base, "nested", "screens")
	downloads := filepath.Join(base, "nested", "downloads")

	store, err := NewStore(screens, downloads)
	require.NoError(t, err)

	assert.DirExists(t, screens)
	assert.DirExists(t, downloads)
	assert.Equal(t, screens, store.ScreenshotDir())
	assert.Equal(t, downloads, store.DownloadDir())
}

func TestSaveScreenshot(t *testing.T) {
	store := newTestStore(t)

	path, err := store.SaveScreenshot("failure_exporting", []byte("png-bytes"))
	require.NoError(t, err)

	assert.FileExists(t, path)
	assert.Contains(t, filepath.Base(path), "failure_exporting_")
	assert.Equal(t, ".png", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestSaveScreenshot_NamesNeverCollide(t *testing.T) {
	store := newTestStore(t)
	// Freeze the clock so uniqueness rests entirely on the random suffix.
	store.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	a, err := store.SaveScreenshot("captcha_attempt1", []byte("a"))
	require.NoError(t, err)
	b, err := store.SaveScreenshot("captcha_attempt1", []byte("b"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPlaceDownload_MovesAndVerifies(t *testing.T) {
	store := newTestStore(t)
	dl := stagedDownload(t, "Notifications.xls", []byte("spreadsheet-content"))

	artifact, err := store.PlaceDownload(dl, "https://portal.example/Notification.aspx")
	require.NoError(t, err)

	assert.FileExists(t, artifact.Path)
	assert.NoFileExists(t, dl.Path)
	assert.Equal(t, int64(len("spreadsheet-content")), artifact.Size)
	assert.Equal(t, "https://portal.example/Notification.aspx", artifact.SourceURL)
	assert.Contains(t, filepath.Base(artifact.Path), "notifications_")
	assert.Equal(t, ".xls", filepath.Ext(artifact.Path))
	assert.WithinDuration(t, time.Now(), artifact.CompletedAt, time.Second)
}

func TestPlaceDownload_ExtensionHandling(t *testing.T) {
	tests := []struct {
		name      string
		suggested string
		wantExt   string
	}{
		{"xlsx preserved", "report.xlsx", ".xlsx"},
		{"xls preserved", "report.xls", ".xls"},
		{"no extension defaults to xls", "report", ".xls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			dl := stagedDownload(t, tt.suggested, []byte("content"))

			artifact, err := store.PlaceDownload(dl, "https://portal.example")
			require.NoError(t, err)
			assert.Equal(t, tt.wantExt, filepath.Ext(artifact.Path))
		})
	}
}

func TestPlaceDownload_EmptyFileFailsVerification(t *testing.T) {
	store := newTestStore(t)
	dl := stagedDownload(t, "empty.xls", nil)

	_, err := store.PlaceDownload(dl, "https://portal.example")
	require.Error(t, err)
	assert.True(t, domain.IsVerificationError(err))

	// Nothing must land in the download directory.
	exports, listErr := store.ListExports()
	require.NoError(t, listErr)
	assert.Empty(t, exports)
}

func TestPlaceDownload_MissingFileFailsVerification(t *testing.T) {
	store := newTestStore(t)
	dl := ports.Download{Path: filepath.Join(t.TempDir(), "never-written"), SuggestedName: "x.xls"}

	_, err := store.PlaceDownload(dl, "https://portal.example")
	require.Error(t, err)
	assert.True(t, domain.IsVerificationError(err))
}

func TestPlaceDownload_ConsecutiveRunsKeepDistinctFiles(t *testing.T) {
	store := newTestStore(t)
	store.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	first, err := store.PlaceDownload(stagedDownload(t, "a.xls", []byte("first")), "https://portal.example")
	require.NoError(t, err)
	second, err := store.PlaceDownload(stagedDownload(t, "b.xls", []byte("second")), "https://portal.example")
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.FileExists(t, first.Path)
	assert.FileExists(t, second.Path)
}

func TestListExports(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(store.DownloadDir(), "notifications_20260830_100000_aaaa.xls"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(store.DownloadDir(), "notifications_20260831_100000_bbbb.xlsx"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(store.DownloadDir(), "notes.txt"), []byte("ignored"), 0o644))

	exports, err := store.ListExports()
	require.NoError(t, err)
	require.Len(t, exports, 2)
	// Newest first by the timestamped naming scheme.
	assert.Contains(t, exports[0], "20260831")
	assert.Contains(t, exports[1], "20260830")
}
