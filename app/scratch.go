package app

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// scratchDir stages uploaded, downloaded and synthesized audio before or after
// a remote transfer. Files are request-scoped; callers defer the returned
// cleanup so removal happens on every exit path.
var scratchDir = filepath.Join(os.TempDir(), "voiceclone")

func newScratchFile(prefix string) (string, func(), error) {
	if err := os.MkdirAll(scratchDir, 0o700); err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	path := filepath.Join(scratchDir, fmt.Sprintf("%s_%s.wav", prefix, uuid.NewString()))
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("scratch cleanup failed path=%s err=%v", path, err)
		}
	}
	return path, cleanup, nil
}
