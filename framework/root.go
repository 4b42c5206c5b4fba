package framework

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// DefaultRootMarker identifies the top of a GN source tree.
	DefaultRootMarker = ".gn"
	// FallbackRoot is returned when no ancestor holds the marker.
	FallbackRoot = "./"
)

// Root is the outcome of a project root search.
type Root struct {
	Dir   string
	Found bool
	// Steps counts the upward moves from the start directory.
	Steps int
}

// RootLocator walks parent directories looking for a marker file.
type RootLocator struct {
	Fs     afero.Fs
	Marker string
}

// NewRootLocator builds a locator for marker on fsys.
func NewRootLocator(fsys afero.Fs, marker string) *RootLocator {
	if marker == "" {
		marker = DefaultRootMarker
	}
	return &RootLocator{Fs: fsys, Marker: marker}
}

// Locate checks start and each of its ancestors, the filesystem root
// included, for the marker. Without a hit it returns FallbackRoot with
// Found unset.
func (l *RootLocator) Locate(start string) (Root, error) {
	if l == nil || l.Fs == nil {
		return Root{}, errors.New("root locator missing filesystem")
	}
	current := filepath.Clean(start)
	steps := 0
	for {
		ok, err := l.hasMarker(current)
		if err != nil {
			return Root{}, err
		}
		if ok {
			return Root{Dir: current, Found: true, Steps: steps}, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return Root{Dir: FallbackRoot, Steps: steps}, nil
		}
		current = parent
		steps++
	}
}

func (l *RootLocator) hasMarker(dir string) (bool, error) {
	_, err := l.Fs.Stat(filepath.Join(dir, l.Marker))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("check %s for %s: %w", dir, l.Marker, err)
}
