// Package deps locates the external binaries the pipeline shells out to.
package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// FindFFmpeg returns the path to the ffmpeg binary. If customPath is
// non-empty, it tries that path or looks it up in PATH.
func FindFFmpeg(customPath string) (string, error) {
	return findTool("ffmpeg", customPath)
}

// FindFFprobe returns the path to the ffprobe binary. If customPath is
// non-empty, it tries that path or looks it up in PATH.
func FindFFprobe(customPath string) (string, error) {
	return findTool("ffprobe", customPath)
}

func findTool(name, customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find %s at %q", name, customPath)
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find %s in PATH. Please install ffmpeg", name)
}
