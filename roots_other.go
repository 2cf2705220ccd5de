//go:build !windows
// +build !windows

package symcache

// DefaultRoots returns the system library directories of a default Windows
// installation, native first. Symbol caches are usually copied off a Windows
// machine, so the roots are expected to be overridden.
func DefaultRoots() []string {
	return fallbackRoots()
}
