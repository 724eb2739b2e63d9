package doctor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var networkFilesystems = map[string]struct{}{
	"afpfs":  {},
	"cifs":   {},
	"nfs":    {},
	"smbfs":  {},
	"smb2":   {},
	"webdav": {},
}

// filesystemOf reports the filesystem type holding path, or its nearest
// existing parent when path has not been created yet.
func filesystemOf(path string, detector func(string) (string, error)) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}

	inspectPath, err := nearestExistingPath(path)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", path, err)
	}

	fsType, err := detector(inspectPath)
	if err != nil {
		return "", fmt.Errorf("detect filesystem for %q: %w", inspectPath, err)
	}
	return fsType, nil
}

func nearestExistingPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	candidate := absPath
	for {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}

		parent := filepath.Dir(candidate)
		if parent == candidate {
			return "", fmt.Errorf("no existing parent for %q", absPath)
		}
		candidate = parent
	}
}

func isNetworkFilesystem(fsType string) bool {
	normalized := strings.TrimSpace(strings.ToLower(fsType))
	_, found := networkFilesystems[normalized]
	return found
}
