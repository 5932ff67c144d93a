// Package identity manages the stable per-host agent ID the sink uses
// to correlate submissions across restarts.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Filename is the agent ID file inside the data directory.
const Filename = "agent-id"

// Ensure returns the agent ID persisted at path, generating and saving
// a new one on first run. An existing but empty file is replaced.
func Ensure(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("identity: read %s: %w", path, err)
	}

	id := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("identity: create data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("identity: write %s: %w", path, err)
	}
	return id, nil
}
