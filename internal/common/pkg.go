package common

import "path"

// RuntimePkgPath is the import path of the runtime package generated code
// depends on.
const RuntimePkgPath = "partial-generator/partial"

// RuntimePkgName is the package name of RuntimePkgPath.
const RuntimePkgName = "partial"

// PkgAlias returns the package alias (last element of path) for a given package path.
// Returns empty string if pkgPath is empty.
func PkgAlias(pkgPath string) string {
	if pkgPath == "" {
		return ""
	}

	return path.Base(pkgPath)
}

// SplitQualified splits "import/path.Name" at its last dot. A name without a
// dot yields an empty path.
func SplitQualified(s string) (pkgPath, name string) {
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '.':
			return s[:i], s[i+1:]
		case '/':
			return "", s
		}
	}

	return "", s
}
