package hierarchy

import (
	"path/filepath"
	"strings"
)

// LegacyImageDir names the legacy runtime-image subdirectory of a platform
// installation.
const LegacyImageDir = "jre"

// PlatformRoot normalizes home: a trailing legacy image segment is dropped so
// the installation root is used.
func PlatformRoot(home string) string {
	if home == "" {
		return ""
	}
	home = filepath.Clean(home)
	if filepath.Base(home) == LegacyImageDir {
		home = filepath.Dir(home)
	}
	return home
}

// FilterPlatformPaths keeps paths located at or under the platform
// installation and not under a legacy runtime-image subdirectory. Order is
// preserved.
func FilterPlatformPaths(paths []string, home string) []string {
	root := PlatformRoot(home)
	if root == "" {
		return nil
	}
	var kept []string
	for _, p := range paths {
		if underPlatform(p, root) {
			kept = append(kept, p)
		}
	}
	return kept
}

func underPlatform(path, root string) bool {
	path = strings.TrimPrefix(path, "file://")
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if filepath.IsAbs(path) != filepath.IsAbs(root) {
		return false
	}
	if rel == "." {
		return true
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if seg == LegacyImageDir {
			return false
		}
	}
	return true
}
