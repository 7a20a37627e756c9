package common

import (
	"hash/fnv"
	"strings"
)

// GenerateIDFromPath generates an ID from an absolute path.
func GenerateIDFromPath(abspath string) uint64 {
	a := fnv.New64a()
	a.Write([]byte(abspath))
	return a.Sum64()
}

// IsValidIdentifier returns whether or not a given string would be a valid
// identifier (class name, package segment, member name, etc.).
func IsValidIdentifier(idstr string) bool {
	if idstr == "" {
		return false
	}

	if idstr[0] == '_' || idstr[0] == '$' || ('a' <= idstr[0] && idstr[0] <= 'z') || ('A' <= idstr[0] && idstr[0] <= 'Z') {
		for _, c := range idstr[1:] {
			if c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
				continue
			}

			return false
		}

		return true
	}

	return false
}

// IsValidPackageName returns whether a string is a dot-separated sequence of
// identifiers.  The empty string is the unnamed package and is valid.
func IsValidPackageName(pkg string) bool {
	if pkg == "" {
		return true
	}

	for _, seg := range strings.Split(pkg, ".") {
		if !IsValidIdentifier(seg) {
			return false
		}
	}

	return true
}

// PackageToPath converts a package name into a relative directory path.
func PackageToPath(pkg string) string {
	return strings.ReplaceAll(pkg, ".", "/")
}
