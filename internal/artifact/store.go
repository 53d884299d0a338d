package artifact

import (
	"errors"
	"os"
)

// ErrArtifactMissing reports a declared output path absent at collection
// time. Callers archiving with allowMissing never see it; the aggregate
// report records the artifact as absent instead.
var ErrArtifactMissing = errors.New("declared artifact does not exist")

// Store archives declared artifact files. Archive returns the path of the
// produced archive, or "" when the source is missing and allowMissing is set.
type Store interface {
	Archive(path string, allowMissing bool) (string, error)
}

// Fetcher retrieves a remote file to a local path before archival. Satisfied
// by the SSH runner for agent-backed pipelines.
type Fetcher interface {
	Fetch(remotePath, localPath string) error
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
