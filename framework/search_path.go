package framework

// SearchPathSeparator joins entries of a pkg-config search path.
const SearchPathSeparator = ":"

// DefaultSearchPathVar is the variable pkg-config reads extra .pc directories from.
const DefaultSearchPathVar = "PKG_CONFIG_PATH"

// ResolveSearchPath returns the value the search-path variable should take.
// An unset variable becomes path; a set one, even empty, gets path appended.
func ResolveSearchPath(current string, present bool, path string) string {
	if !present {
		return path
	}
	return current + SearchPathSeparator + path
}
