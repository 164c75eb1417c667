package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates the directory path if it does not exist.
func EnsureDir(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}

// RemoveIfExists deletes the file if present.
func RemoveIfExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	} else if os.IsNotExist(err) {
		return nil
	} else {
		return err
	}
}

// UniquePath returns a path that does not collide with an existing file.
// When the given path already exists, a numeric suffix is appended before
// the extension ("clip (compressed).mp4" becomes
// "clip (compressed)-1.mp4", then "-2", and so on).
//
// Do not use if you *want* to overwrite something.
func UniquePath(path string) string {
	final := path
	ext := filepath.Ext(path)
	root := strings.TrimSuffix(path, ext)

	counter := 0
	for {
		if _, err := os.Stat(final); os.IsNotExist(err) {
			return final
		}
		counter++
		final = fmt.Sprintf("%s-%d%s", root, counter, ext)
	}
}
