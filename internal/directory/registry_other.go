//go:build !windows

package directory

import "errors"

// ErrRegistryUnavailable is returned by NewRegistry off Windows.
var ErrRegistryUnavailable = errors.New("the system component directory is only available on Windows; supply a catalog")

// Registry is unavailable on this platform.
type Registry struct {
	ComponentDirectory
}

// NewRegistry always fails off Windows.
func NewRegistry() (*Registry, error) {
	return nil, ErrRegistryUnavailable
}
