//go:build windows && amd64

package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// FindRuntime locates an SDR tool binary on PATH, then under bin/ or
// bin/*/windows/x64 next to the executable or the working directory.
func FindRuntime(runtime string) (string, error) {
	name := fmt.Sprintf("%s.exe", runtime)
	if binPath, err := exec.LookPath(name); err == nil {
		return binPath, nil
	}

	var dirs []string
	if exePath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exePath))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}

	for _, dir := range dirs {
		patterns := []string{
			filepath.Join(dir, "bin", name),
			filepath.Join(dir, "bin", "*", "windows", "x64", name),
		}
		for _, pattern := range patterns {
			matches, err := filepath.Glob(pattern)
			if err != nil || len(matches) == 0 {
				continue
			}
			if stat, err := os.Stat(matches[0]); err == nil && !stat.IsDir() {
				return matches[0], nil
			}
		}
	}

	return "", NewRuntimeError(fmt.Sprintf("failed to find binary '%s' on PATH or under %v", name, dirs))
}
