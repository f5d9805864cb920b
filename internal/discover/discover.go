// Package discover lists the source files of a checkout.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
)

// Options selects files.
type Options struct {
	// Extensions are matched case-insensitively; ".d.ts" files match ".ts".
	Extensions []string
	// Exclude entries without a slash skip directories of that name.
	// Entries with a slash skip any path containing them.
	Exclude []string
	// MaxFileSize skips larger files when positive.
	MaxFileSize int64
	// UseGit lists files with `git ls-files` when the root is a git
	// checkout, falling back to .gitignore matching.
	UseGit bool
}

var alwaysSkip = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Files returns repo-relative, slash-separated paths sorted lexically.
func Files(root string, opts Options) ([]string, error) {
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}
	dirNames := map[string]bool{}
	var substrings []string
	for _, e := range opts.Exclude {
		if strings.Contains(e, "/") {
			substrings = append(substrings, e)
		} else if e != "" {
			dirNames[e] = true
		}
	}

	var tracked map[string]struct{}
	if opts.UseGit {
		tracked = gitLsFiles(root)
	}
	var gi *ignore.GitIgnore
	if tracked == nil {
		gi = loadGitignore(root)
	}

	var results []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if p == root {
				return nil
			}
			if alwaysSkip[name] || dirNames[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !exts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if excluded(rel, substrings) {
			return nil
		}
		if tracked != nil {
			if _, ok := tracked[rel]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if opts.MaxFileSize > 0 {
			info, err := d.Info()
			if err == nil && info.Size() > opts.MaxFileSize {
				return nil
			}
		}
		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(results)
	return results, nil
}

func excluded(rel string, substrings []string) bool {
	for _, s := range substrings {
		if strings.Contains(rel, s) {
			return true
		}
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	if info, err := os.Stat(filepath.Join(root, ".git")); err != nil || !info.IsDir() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}
	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
