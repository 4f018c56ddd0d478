package util

import (
	"path/filepath"
	"strings"
)

// SafeFilePath cleans a relative path and reports whether it stays inside the
// working directory. Absolute paths and paths that still contain ".." after
// cleaning are rejected.
func SafeFilePath(path string) (string, bool) {
	cleaned, ok := SafeFilePathAllowAbsolute(path)
	if !ok || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "/") {
		return "", false
	}
	return cleaned, true
}

// SafeFilePathAllowAbsolute is SafeFilePath for callers that accept absolute
// paths, such as contract files named on the command line.
func SafeFilePathAllowAbsolute(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	cleaned := filepath.Clean(path)
	for _, segment := range strings.FieldsFunc(cleaned, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return "", false
		}
	}
	return cleaned, true
}
