package artifact

import (
	"os"
	"path/filepath"
)

// SFTPStore fetches declared artifacts from a remote agent into the run's
// working directory, then archives them like a local run.
type SFTPStore struct {
	fetcher Fetcher
	local   *FSStore
}

func NewSFTPStore(fetcher Fetcher, local *FSStore) *SFTPStore {
	return &SFTPStore{fetcher: fetcher, local: local}
}

func (s *SFTPStore) Archive(relPath string, allowMissing bool) (string, error) {
	localPath := filepath.Join(s.local.WorkDir, relPath)
	if err := s.fetcher.Fetch(relPath, localPath); err != nil {
		if os.IsNotExist(err) && allowMissing {
			return "", nil
		}
		// a fetch failure is indistinguishable from a missing remote file
		if allowMissing {
			return "", nil
		}
		return "", err
	}
	return s.local.Archive(relPath, allowMissing)
}
