package paths

import (
	"os"
	"path"
	"path/filepath"
	"strings"
)

// CanonicalizePath converts a path to a repo-relative path with forward
// slashes. Symlinks are resolved when the target exists.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	resolved, err := evalIfExists(absolutePath)
	if err != nil {
		return "", err
	}
	root, err := evalIfExists(repoRoot)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func evalIfExists(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return "", err
	}
	return resolved, nil
}

// NormalizePath converts separators to forward slashes, cleans the path
// and strips any leading "./" or "/".
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// HasPathPrefix reports whether prefix names p itself or one of its parent
// directories. Both arguments are normalized first, so "src/a" is a prefix
// of "src/a/b.ts" but not of "src/ab/c.ts". The empty prefix matches all.
func HasPathPrefix(p, prefix string) bool {
	p = NormalizePath(p)
	prefix = NormalizePath(prefix)
	if prefix == "" {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix+"/")
}

// UnderAny reports whether p lies under one of dirs.
func UnderAny(p string, dirs []string) bool {
	for _, d := range dirs {
		if NormalizePath(d) != "" && HasPathPrefix(p, d) {
			return true
		}
	}
	return false
}

// JoinRepoPath joins a repo root with a canonical path
func JoinRepoPath(repoRoot string, canonicalPath string) string {
	parts := strings.Split(strings.ReplaceAll(canonicalPath, "\\", "/"), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}

// DisplayPath prefixes a repo-relative path with the repository name, the
// form stored in every indexed document ("kibana/src/plugins/a/b.ts").
func DisplayPath(repoName, rel string) string {
	rel = NormalizePath(rel)
	if repoName == "" {
		return rel
	}
	return repoName + "/" + rel
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
