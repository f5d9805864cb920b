package plugins

import (
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"pluginrefs/internal/paths"
)

const resolveCacheSize = 8192

// Registry resolves files to the plugin owning them. A Registry belongs to
// one snapshot; build a new one after every checkout.
type Registry struct {
	root       string
	restricted []string
	// byRoot is ordered by descending root length, then plugin name, so
	// the first match is the longest prefix with a lexicographic tie-break.
	byRoot []PluginInfo
	byName map[string]PluginInfo
	cache  *lru.Cache[string, int]
}

// NewRegistry indexes plugins for resolution. repoRoot, when non-empty, is
// used to make absolute paths repo-relative. restrictedDirs mark the
// restricted tier for IsRestricted.
func NewRegistry(repoRoot string, plugins []PluginInfo, restrictedDirs []string) *Registry {
	r := &Registry{
		root:       repoRoot,
		restricted: restrictedDirs,
		byRoot:     make([]PluginInfo, 0, len(plugins)),
		byName:     make(map[string]PluginInfo, len(plugins)),
	}
	for _, p := range plugins {
		p.RootPath = paths.NormalizePath(p.RootPath)
		r.byRoot = append(r.byRoot, p)
		if prev, dup := r.byName[p.Name]; !dup || p.RootPath < prev.RootPath {
			r.byName[p.Name] = p
		}
	}
	sort.SliceStable(r.byRoot, func(i, j int) bool {
		a, b := r.byRoot[i], r.byRoot[j]
		if len(a.RootPath) != len(b.RootPath) {
			return len(a.RootPath) > len(b.RootPath)
		}
		return a.Name < b.Name
	})
	// lru.New only fails for a non-positive size.
	r.cache, _ = lru.New[string, int](resolveCacheSize)
	return r
}

// Plugins returns the registered plugins sorted by root path.
func (r *Registry) Plugins() []PluginInfo {
	out := make([]PluginInfo, len(r.byRoot))
	copy(out, r.byRoot)
	sort.Slice(out, func(i, j int) bool { return out[i].RootPath < out[j].RootPath })
	return out
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int { return len(r.byRoot) }

// Lookup returns a plugin by name.
func (r *Registry) Lookup(name string) (PluginInfo, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// ResolveOwner returns the plugin whose root is the longest path-segment
// prefix of filePath. Equal-length roots resolve to the lexicographically
// smallest plugin name.
func (r *Registry) ResolveOwner(filePath string) (PluginInfo, bool) {
	key := r.relative(filePath)
	idx, ok := r.cache.Get(key)
	if !ok {
		idx = -1
		for i, p := range r.byRoot {
			if paths.HasPathPrefix(key, p.RootPath) {
				idx = i
				break
			}
		}
		r.cache.Add(key, idx)
	}
	if idx < 0 {
		return PluginInfo{}, false
	}
	return r.byRoot[idx], true
}

// ResolveTeam returns the owning plugin's team, or NoOwner.
func (r *Registry) ResolveTeam(filePath string) string {
	if p, ok := r.ResolveOwner(filePath); ok && p.TeamOwner != "" {
		return p.TeamOwner
	}
	return NoOwner
}

// ResolvePluginName returns the owning plugin's name, or NoPlugin.
func (r *Registry) ResolvePluginName(filePath string) string {
	if p, ok := r.ResolveOwner(filePath); ok {
		return p.Name
	}
	return NoPlugin
}

// IsRestricted reports whether a file lies in the restricted tier.
func (r *Registry) IsRestricted(filePath string) bool {
	return paths.UnderAny(r.relative(filePath), r.restricted)
}

func (r *Registry) relative(filePath string) string {
	if r.root != "" && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(r.root, filePath); err == nil && !strings.HasPrefix(rel, "..") {
			filePath = rel
		}
	}
	return paths.NormalizePath(filePath)
}
