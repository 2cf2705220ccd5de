//go:build windows
// +build windows

package symcache

import (
	"os"
	"path/filepath"
)

// DefaultRoots returns the system library directories of the running
// Windows installation, native first.
func DefaultRoots() []string {
	sysRoot := os.Getenv("SystemRoot")
	if sysRoot == "" {
		return fallbackRoots()
	}
	return []string{
		filepath.Join(sysRoot, "System32"),
		filepath.Join(sysRoot, "SysWOW64"),
	}
}
