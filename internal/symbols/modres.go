package symbols

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"pluginrefs/internal/jsonc"
	"pluginrefs/internal/paths"
)

// tsconfig holds the compiler options that affect module resolution.
type tsconfig struct {
	Extends         string `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

type pathMapping struct {
	prefix   string
	suffix   string
	wildcard bool
	targets  []string
}

// ModuleResolver maps import specifiers to project files.
type ModuleResolver struct {
	exists   func(rel string) bool
	baseURL  string
	hasBase  bool
	mappings []pathMapping
	tsconfig string
}

// defaultTSConfig is tried when the configured tsconfig is absent.
const defaultTSConfig = "tsconfig.json"

// NewModuleResolver builds a resolver. tsconfigPath is repo-relative and
// optional; its extends chain is followed for baseUrl and paths. When the
// file does not exist, tsconfig.json is tried, and with neither present
// only relative specifiers resolve.
func NewModuleResolver(root, tsconfigPath string, exists func(rel string) bool) (*ModuleResolver, error) {
	r := &ModuleResolver{exists: exists}
	if tsconfigPath == "" {
		return r, nil
	}
	for _, rel := range []string{paths.NormalizePath(tsconfigPath), defaultTSConfig} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := r.loadTSConfig(root, rel, 0); err != nil {
			return nil, err
		}
		r.tsconfig = rel
		break
	}
	return r, nil
}

// TSConfig returns the tsconfig the resolver was built from, or "".
func (r *ModuleResolver) TSConfig() string { return r.tsconfig }

const maxExtendsDepth = 16

func (r *ModuleResolver) loadTSConfig(root, rel string, depth int) error {
	if depth > maxExtendsDepth {
		return fmt.Errorf("tsconfig extends chain too deep at %s", rel)
	}
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("reading %s: %w", rel, err)
	}
	var cfg tsconfig
	if err := jsonc.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", rel, err)
	}
	dir := path.Dir(rel)

	// Parents first so the child overrides.
	if cfg.Extends != "" && strings.HasPrefix(cfg.Extends, ".") {
		parent := paths.NormalizePath(path.Join(dir, cfg.Extends))
		if !strings.HasSuffix(parent, ".json") {
			parent += ".json"
		}
		if err := r.loadTSConfig(root, parent, depth+1); err != nil {
			return err
		}
	}

	if cfg.CompilerOptions.BaseURL != nil {
		r.baseURL = paths.NormalizePath(path.Join(dir, *cfg.CompilerOptions.BaseURL))
		r.hasBase = true
	}
	if cfg.CompilerOptions.Paths != nil {
		base := dir
		if r.hasBase {
			base = r.baseURL
		}
		r.mappings = r.mappings[:0]
		for pattern, targets := range cfg.CompilerOptions.Paths {
			m := pathMapping{prefix: pattern}
			if i := strings.Index(pattern, "*"); i >= 0 {
				m.prefix, m.suffix, m.wildcard = pattern[:i], pattern[i+1:], true
			}
			for _, t := range targets {
				m.targets = append(m.targets, paths.NormalizePath(path.Join(base, t)))
			}
			r.mappings = append(r.mappings, m)
		}
		// Longest prefix first, as the compiler does.
		sort.Slice(r.mappings, func(i, j int) bool {
			if len(r.mappings[i].prefix) != len(r.mappings[j].prefix) {
				return len(r.mappings[i].prefix) > len(r.mappings[j].prefix)
			}
			return r.mappings[i].prefix < r.mappings[j].prefix
		})
	}
	return nil
}

// Resolve returns the project file a specifier imported from fromFile
// points at. relative reports whether the specifier was relative or
// matched a path alias, so a miss is a broken import rather than an
// external package.
func (r *ModuleResolver) Resolve(fromFile, spec string) (resolved string, relative bool) {
	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || spec == "." || spec == ".." {
		base := path.Join(path.Dir(fromFile), spec)
		if strings.HasPrefix(base, "../") || base == ".." {
			return "", true
		}
		f, _ := r.probe(base)
		return f, true
	}

	for _, m := range r.mappings {
		var star string
		if m.wildcard {
			if !strings.HasPrefix(spec, m.prefix) || !strings.HasSuffix(spec, m.suffix) || len(spec) < len(m.prefix)+len(m.suffix) {
				continue
			}
			star = spec[len(m.prefix) : len(spec)-len(m.suffix)]
		} else if spec != m.prefix {
			continue
		}
		for _, t := range m.targets {
			if f, ok := r.probe(strings.Replace(t, "*", star, 1)); ok {
				return f, true
			}
		}
		return "", true
	}

	if r.hasBase {
		if f, ok := r.probe(path.Join(r.baseURL, spec)); ok {
			return f, true
		}
	}
	return "", false
}

var probeSuffixes = []string{
	"",
	".ts", ".tsx", ".d.ts", ".js", ".jsx",
	"/index.ts", "/index.tsx", "/index.d.ts", "/index.js", "/index.jsx",
}

func (r *ModuleResolver) probe(base string) (string, bool) {
	base = paths.NormalizePath(base)
	for _, s := range probeSuffixes {
		if c := base + s; c != "" && r.exists(c) {
			return c, true
		}
	}
	// ESM style imports name the compiled .js file.
	if strings.HasSuffix(base, ".js") {
		stem := strings.TrimSuffix(base, ".js")
		for _, s := range []string{".ts", ".tsx"} {
			if r.exists(stem + s) {
				return stem + s, true
			}
		}
	}
	return "", false
}
