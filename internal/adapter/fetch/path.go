// Package fetch provides the storage-side backends of the download
// manager: a native HTTP client and an external command runner.
package fetch

import (
	"fmt"
	"path/filepath"
	"strings"
)

var illegal = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"?", "",
	"*", "",
	"\"", "'",
	"<", "",
	">", "",
	"|", "-",
)

// SanitizeName makes s safe to use as a single path component.
func SanitizeName(s string) string {
	s = strings.TrimSpace(illegal.Replace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		return "_"
	}
	return s
}

// ClipPath returns <dir>/<course>/<module>/<index> <title>.<ext> with
// every component sanitized.
func ClipPath(dir, courseID, moduleName string, index int, title, ext string) string {
	name := fmt.Sprintf("%d %s", index, SanitizeName(title))
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return filepath.Join(dir, SanitizeName(courseID), SanitizeName(moduleName), name)
}

func partPath(dest string) string {
	return dest + ".part"
}
