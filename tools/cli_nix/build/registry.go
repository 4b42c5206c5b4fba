package build

import "context"

// VersionedTool is a wrapped binary whose version can be probed.
type VersionedTool interface {
	Name() string
	Command() string
	Version(ctx context.Context) (string, error)
}

// Tools returns the build-system helpers in display order.
func Tools(pkgConfig *PkgConfig, conan *Conan) []VersionedTool {
	return []VersionedTool{pkgConfig, conan}
}
