package plugins

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"pluginrefs/internal/errors"
	"pluginrefs/internal/ownership"
	"pluginrefs/internal/paths"
)

// Options controls Discover.
type Options struct {
	// Dirs are repo-relative directories searched for manifests.
	Dirs []string
	// Manifests are manifest file names in priority order.
	Manifests []string
	// RestrictedDirs mark commercially restricted subtrees.
	RestrictedDirs []string
	// Declarations is a repo-relative plugins.toml path.
	Declarations string
	// Ignore lists directory names never descended into.
	Ignore []string
}

// DefaultOptions returns options matching the standard Kibana layout.
func DefaultOptions() Options {
	return Options{
		Dirs:           []string{"src/plugins", "x-pack/plugins", "examples", "x-pack/examples", "packages"},
		Manifests:      []string{ManifestJSONC, ManifestJSON},
		RestrictedDirs: []string{"x-pack"},
		Declarations:   "plugins.toml",
		Ignore:         []string{"node_modules", "target", "build"},
	}
}

// Result is the outcome of discovery. Failures are plugins whose metadata
// could not be read; they still appear in Plugins with degraded values.
type Result struct {
	Plugins  []PluginInfo
	Failures []Failure
}

var readmeNames = []string{"README.md", "README.mdx", "README.asciidoc", "readme.md"}

// Discover walks the configured plugin directories of a checkout and
// returns one PluginInfo per manifest, sorted by root path. Unreadable
// manifests never fail discovery.
func Discover(repoRoot string, opts Options, logger *slog.Logger) (*Result, error) {
	if _, err := os.Stat(repoRoot); err != nil {
		return nil, errors.New(errors.DiscoveryFailure, "repository root is not readable", err)
	}
	if len(opts.Manifests) == 0 {
		opts.Manifests = []string{ManifestJSONC, ManifestJSON}
	}

	codeowners, err := ownership.Load(repoRoot)
	if err != nil {
		logger.Warn("Failed to parse CODEOWNERS", "error", err)
	}

	found := make(map[string]*PluginInfo)
	result := &Result{}
	ignore := make(map[string]bool, len(opts.Ignore))
	for _, d := range opts.Ignore {
		ignore[d] = true
	}

	for _, dir := range opts.Dirs {
		base := filepath.Join(repoRoot, filepath.FromSlash(dir))
		if info, err := os.Stat(base); err != nil || !info.IsDir() {
			continue
		}
		walkErr := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Debug("Skipping unreadable path", "path", p, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			name := d.Name()
			if p != base && (ignore[name] || strings.HasPrefix(name, ".")) {
				return fs.SkipDir
			}
			manifestPath := firstExisting(p, opts.Manifests)
			if manifestPath == "" {
				return nil
			}
			rel, err := paths.CanonicalizePath(p, repoRoot)
			if err != nil {
				return nil
			}
			if _, seen := found[rel]; seen {
				return nil
			}
			info, failure := describe(repoRoot, rel, manifestPath, codeowners)
			if failure != nil {
				result.Failures = append(result.Failures, *failure)
				logger.Warn("Plugin metadata unreadable, using degraded record",
					"path", failure.Path,
					"code", errors.DiscoveryFailure,
					"error", failure.Err,
				)
			}
			found[rel] = info
			logger.Debug("Discovered plugin", "name", info.Name, "root", info.RootPath, "team", info.TeamOwner)
			return nil
		})
		if walkErr != nil {
			return nil, errors.New(errors.DiscoveryFailure, "walking "+dir, walkErr)
		}
	}

	decls, err := loadDeclarations(repoRoot, opts.Declarations)
	if err != nil {
		result.Failures = append(result.Failures, Failure{Path: opts.Declarations, Err: err})
		logger.Warn("Ignoring plugin declarations", "file", opts.Declarations, "error", err)
	}
	applyDeclarations(found, decls)

	for _, p := range found {
		p.Restricted = paths.UnderAny(p.RootPath, opts.RestrictedDirs)
		p.HasReadme = firstExisting(paths.JoinRepoPath(repoRoot, p.RootPath), readmeNames) != ""
		result.Plugins = append(result.Plugins, *p)
	}
	sort.Slice(result.Plugins, func(i, j int) bool {
		return result.Plugins[i].RootPath < result.Plugins[j].RootPath
	})

	logger.Info("Plugin discovery completed", "plugins", len(result.Plugins), "failures", len(result.Failures))
	return result, nil
}

// describe builds the record for one manifest. A non-nil failure means the
// returned record is degraded.
func describe(repoRoot, rel, manifestPath string, codeowners *ownership.Codeowners) (*PluginInfo, *Failure) {
	manifestRel := path.Join(rel, filepath.Base(manifestPath))
	info := &PluginInfo{RootPath: rel, ManifestPath: manifestRel, Source: "manifest"}

	name, team, err := readManifest(manifestPath)
	if err != nil {
		info.Name = path.Base(rel)
		info.TeamOwner = NoOwner
		info.Source = "degraded"
		return info, &Failure{Path: manifestRel, Err: err}
	}
	info.Name = name
	if team == "" {
		team = codeowners.TeamFor(rel + "/")
	}
	if team == "" {
		team = NoOwner
	}
	info.TeamOwner = team
	return info, nil
}

func firstExisting(dir string, names []string) string {
	for _, n := range names {
		p := filepath.Join(dir, n)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
