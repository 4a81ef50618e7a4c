//go:build !(windows && amd64)

package driver

import (
	"fmt"
	"os/exec"
)

// FindRuntime locates an SDR tool binary on PATH.
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		return "", NewRuntimeError(fmt.Sprintf("failed to find binary '%s': %s", runtime, err))
	}

	return binPath, nil
}
