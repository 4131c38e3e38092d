//go:build !cuvslam

package cuvslam

import "github.com/pkg/errors"

// DefaultLibrary returns the linked engine bindings. This build has none:
// pure-Go builds and tests work against fakes, and production binaries are
// built with -tags cuvslam to link the native engine.
func DefaultLibrary() (Library, error) {
	return nil, errors.New("cuvslam engine not linked in this build; rebuild with -tags cuvslam")
}
