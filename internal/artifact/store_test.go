package artifact

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFSStore_Archive(t *testing.T) {
	t.Run("success - file is zipped into the out dir", func(t *testing.T) {
		// arrange
		workDir := t.TempDir()
		outDir := t.TempDir()
		reportPath := filepath.Join(workDir, "reports")
		assert.NoError(t, os.MkdirAll(reportPath, 0o755))
		assert.NoError(t, os.WriteFile(
			filepath.Join(reportPath, "deps.json"), []byte(`{"ok":true}`), 0o644,
		))
		store := NewFSStore(workDir, outDir)

		// act
		archivePath, err := store.Archive("reports/deps.json", false)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, filepath.Join(outDir, "depsjson.zip"), archivePath)
		zr, err := zip.OpenReader(archivePath)
		assert.NoError(t, err)
		defer zr.Close()
		assert.Len(t, zr.File, 1)
		assert.Equal(t, "reports/deps.json", zr.File[0].Name)
	})

	t.Run("success - missing artifact with allowMissing returns empty path", func(t *testing.T) {
		// arrange
		store := NewFSStore(t.TempDir(), t.TempDir())

		// act
		archivePath, err := store.Archive("reports/nope.json", true)

		// assert
		assert.NoError(t, err)
		assert.Equal(t, "", archivePath)
	})

	t.Run("fail - missing artifact without allowMissing", func(t *testing.T) {
		// arrange
		store := NewFSStore(t.TempDir(), t.TempDir())

		// act
		_, err := store.Archive("reports/nope.json", false)

		// assert
		assert.ErrorIs(t, err, ErrArtifactMissing)
	})

	t.Run("success - directory artifacts include every file", func(t *testing.T) {
		// arrange
		workDir := t.TempDir()
		outDir := t.TempDir()
		reportDir := filepath.Join(workDir, "zap-report")
		assert.NoError(t, os.MkdirAll(reportDir, 0o755))
		assert.NoError(t, os.WriteFile(filepath.Join(reportDir, "a.html"), []byte("a"), 0o644))
		assert.NoError(t, os.WriteFile(filepath.Join(reportDir, "b.html"), []byte("b"), 0o644))
		store := NewFSStore(workDir, outDir)

		// act
		archivePath, err := store.Archive("zap-report", false)

		// assert
		assert.NoError(t, err)
		zr, err := zip.OpenReader(archivePath)
		assert.NoError(t, err)
		defer zr.Close()
		assert.Len(t, zr.File, 2)
	})
}
