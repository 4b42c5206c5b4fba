package framework

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Flag markers emitted by compiler-configuration tools.
const (
	defineMarker     = "-D"
	includeMarker    = "-I"
	libraryMarker    = "-l"
	libraryDirMarker = "-L"
)

// ErrUnsupportedFlag reports a compiler flag that is neither a define nor an
// include path.
var ErrUnsupportedFlag = errors.New("operation not supported")

// UnsupportedFlagError names the compiler flag that aborted classification.
type UnsupportedFlagError struct {
	Flag string
}

func (e *UnsupportedFlagError) Error() string {
	return fmt.Sprintf("unsupported compiler flag %q: %v", e.Flag, ErrUnsupportedFlag)
}

func (e *UnsupportedFlagError) Unwrap() error { return ErrUnsupportedFlag }

// FlagSet is the classified form of a package's compiler and linker flags.
// Fields are declared in serialization order.
type FlagSet struct {
	Cflags      []string `json:"cflags" yaml:"cflags"`
	IncludeDirs []string `json:"include_dirs" yaml:"include_dirs"`
	Ldflags     []string `json:"ldflags" yaml:"ldflags"`
	LibDirs     []string `json:"lib_dirs" yaml:"lib_dirs"`
	Libs        []string `json:"libs" yaml:"libs"`
}

// ClassifyCompilerFlags sorts compiler output into defines and include dirs.
// Defines keep their marker; include dirs have it stripped. Any other token
// fails the whole classification.
func ClassifyCompilerFlags(tokens []string) (cflags, includeDirs []string, err error) {
	cflags = []string{}
	includeDirs = []string{}
	for _, token := range tokens {
		switch {
		case strings.HasPrefix(token, defineMarker):
			cflags = append(cflags, token)
		case strings.HasPrefix(token, includeMarker):
			includeDirs = append(includeDirs, token[len(includeMarker):])
		default:
			return nil, nil, &UnsupportedFlagError{Flag: token}
		}
	}
	return cflags, includeDirs, nil
}

// ClassifyLinkerFlags sorts linker output into libraries, library dirs and
// everything else. It never fails.
func ClassifyLinkerFlags(tokens []string) (libs, libDirs, ldflags []string) {
	libs = []string{}
	libDirs = []string{}
	ldflags = []string{}
	for _, token := range tokens {
		switch {
		case strings.HasPrefix(token, libraryMarker):
			libs = append(libs, token[len(libraryMarker):])
		case strings.HasPrefix(token, libraryDirMarker):
			libDirs = append(libDirs, token[len(libraryDirMarker):])
		default:
			ldflags = append(ldflags, token)
		}
	}
	return libs, libDirs, ldflags
}

// Classify builds a FlagSet from compiler and linker tokens.
func Classify(compilerTokens, linkerTokens []string) (FlagSet, error) {
	cflags, includeDirs, err := ClassifyCompilerFlags(compilerTokens)
	if err != nil {
		return FlagSet{}, err
	}
	libs, libDirs, ldflags := ClassifyLinkerFlags(linkerTokens)
	return FlagSet{
		Cflags:      cflags,
		IncludeDirs: includeDirs,
		Ldflags:     ldflags,
		LibDirs:     libDirs,
		Libs:        libs,
	}, nil
}

// MarshalJSON emits the five buckets as an object with sorted keys. Empty
// buckets are written as [] so consumers never see null.
func (f FlagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Record())
}

// Record returns the buckets keyed by their serialized names.
func (f FlagSet) Record() map[string][]string {
	return map[string][]string{
		"cflags":       nonNil(f.Cflags),
		"include_dirs": nonNil(f.IncludeDirs),
		"ldflags":      nonNil(f.Ldflags),
		"lib_dirs":     nonNil(f.LibDirs),
		"libs":         nonNil(f.Libs),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
