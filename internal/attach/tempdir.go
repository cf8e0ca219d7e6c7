package attach

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ProcessTempDir creates per-invocation directories under the operating
// system temp directory. Each call yields a unique directory; the resolver
// guarantees at most one call per Resolve.
type ProcessTempDir struct {
	// Base overrides the parent directory. Empty means os.TempDir().
	Base string
}

// TempDir creates and returns a fresh directory.
func (p ProcessTempDir) TempDir() (string, error) {
	base := p.Base
	if base == "" {
		base = os.TempDir()
	}
	dir := filepath.Join(base, "mailsend-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
