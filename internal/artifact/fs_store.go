package artifact

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/haatos/secpipe/internal/util"
)

// FSStore zips artifacts from the run's working directory into the run's
// artifacts directory.
type FSStore struct {
	WorkDir string
	OutDir  string
}

func NewFSStore(workDir, outDir string) *FSStore {
	return &FSStore{WorkDir: workDir, OutDir: outDir}
}

func (s *FSStore) Archive(relPath string, allowMissing bool) (string, error) {
	srcPath := filepath.Join(s.WorkDir, relPath)
	if !pathExists(srcPath) {
		if allowMissing {
			return "", nil
		}
		return "", ErrArtifactMissing
	}

	if err := os.MkdirAll(s.OutDir, 0o755); err != nil {
		return "", err
	}

	_, name := path.Split(relPath)
	archivePath := filepath.Join(s.OutDir, util.Slugify(name)+".zip")
	archive, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	defer archive.Close()

	info, err := os.Stat(srcPath)
	if err != nil {
		return "", err
	}

	paths := make([]string, 0)
	if info.IsDir() {
		filepath.WalkDir(srcPath, func(p string, d fs.DirEntry, err error) error {
			if err == nil && !d.IsDir() {
				paths = append(paths, p)
			}
			return nil
		})
	} else {
		paths = append(paths, srcPath)
	}

	zw := zip.NewWriter(archive)
	for _, p := range paths {
		rel, err := filepath.Rel(s.WorkDir, p)
		if err != nil {
			rel = p
		}
		if err := copyToArchive(zw, p, rel); err != nil {
			return "", err
		}
	}

	if err := zw.Close(); err != nil {
		return "", err
	}

	return archivePath, nil
}

func copyToArchive(zw *zip.Writer, srcPath, archiveName string) error {
	// open file to archive
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// open file in archive
	zf, err := zw.Create(filepath.ToSlash(archiveName))
	if err != nil {
		return err
	}

	// copy file to archive
	if _, err := io.Copy(zf, f); err != nil {
		return err
	}
	return nil
}
