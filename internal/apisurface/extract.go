// Package apisurface enumerates the exported API of plugin entry files.
package apisurface

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"pluginrefs/internal/errors"
	"pluginrefs/internal/paths"
	"pluginrefs/internal/plugins"
	"pluginrefs/internal/symbols"
)

// Entry file filters of the two reference sweeps.
var (
	DefaultAPIEntryFiles      = []string{"public/index.ts", "server/index.ts"}
	DefaultContractEntryFiles = []string{"public/plugin.ts", "server/plugin.ts"}
)

// Failure is an entry file whose surface was dropped.
type Failure struct {
	File   string
	Plugin string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.File, f.Plugin, f.Err)
}

// SelectEntryFiles returns the project files whose path contains one of
// the filters, in path order.
func SelectEntryFiles(project *symbols.Project, filters []string) []string {
	var out []string
	for _, f := range project.Files() {
		for _, filter := range filters {
			if filter != "" && strings.Contains(f.Path, filter) {
				out = append(out, f.Path)
				break
			}
		}
	}
	return out
}

// SurfaceOf classifies an entry file by the first directory under the
// plugin root. Common code is part of the public surface.
func SurfaceOf(file, pluginRoot string) symbols.Surface {
	rel := strings.TrimPrefix(paths.NormalizePath(file), paths.NormalizePath(pluginRoot))
	rel = strings.TrimPrefix(rel, "/")
	first, _, _ := strings.Cut(rel, "/")
	switch first {
	case "server":
		return symbols.SurfaceServer
	case "public", "common":
		return symbols.SurfacePublic
	}
	if strings.Contains("/"+rel, "/server/") {
		return symbols.SurfaceServer
	}
	return symbols.SurfacePublic
}

// Extract builds the API symbols of the given entry files. An entry file
// that failed to load or whose exports cannot be resolved contributes no
// symbols and is reported as a failure. The result is sorted by ID and
// holds no duplicate IDs; the first entry file in path order wins.
func Extract(project *symbols.Project, entryFiles []string, registry *plugins.Registry, logger *slog.Logger) ([]symbols.APISymbol, []Failure) {
	byID := make(map[string]symbols.APISymbol)
	var failures []Failure

	files := append([]string(nil), entryFiles...)
	sort.Strings(files)
	for _, path := range files {
		owner, ok := registry.ResolveOwner(path)
		if !ok {
			logger.Debug("Skipping entry file outside any plugin", "file", path)
			continue
		}
		syms, err := extractFile(project, path, owner)
		if err != nil {
			failures = append(failures, Failure{File: path, Plugin: owner.Name, Err: err})
			logger.Warn("Skipping plugin surface",
				"plugin", owner.Name,
				"file", path,
				"code", string(errors.CodeOf(err)),
				"error", err.Error(),
			)
			continue
		}
		added := 0
		for _, s := range syms {
			if _, dup := byID[s.ID]; dup {
				continue
			}
			byID[s.ID] = s
			added++
		}
		logger.Debug("Extracted entry file", "plugin", owner.Name, "file", path, "symbols", added)
	}

	out := make([]symbols.APISymbol, 0, len(byID))
	for _, s := range byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, failures
}

func extractFile(project *symbols.Project, path string, owner plugins.PluginInfo) ([]symbols.APISymbol, error) {
	f, ok := project.Lookup(path)
	if !ok {
		return nil, errors.New(errors.ExtractionFailure, "entry file not loaded", nil)
	}
	if f.Err != nil {
		return nil, errors.New(errors.ExtractionFailure, "entry file failed to parse", f.Err)
	}
	names, err := project.ExportsOf(f.ID)
	if err != nil {
		return nil, errors.New(errors.ExtractionFailure, "exports cannot be resolved", err)
	}

	source := symbols.SourceInfo{Plugin: owner, File: f.Path, Surface: SurfaceOf(f.Path, owner.RootPath)}
	b := builder{source: source}
	for _, n := range names {
		origin, err := project.ResolveExport(f.ID, n.Name)
		if err != nil {
			return nil, errors.New(errors.ExtractionFailure, fmt.Sprintf("export %q cannot be resolved", n.Name), err)
		}
		b.export(project, n, origin)
	}
	return b.out, nil
}

type builder struct {
	source symbols.SourceInfo
	out    []symbols.APISymbol
}

func (b *builder) add(name string, kind symbols.Kind, static bool, lc symbols.Lifecycle, line int, target symbols.Target) {
	b.out = append(b.out, symbols.APISymbol{
		ID:        symbols.APIID(b.source.Plugin.Name, b.source.Surface, lc, name),
		Name:      name,
		Kind:      kind,
		IsStatic:  static,
		Lifecycle: lc,
		Source:    b.source,
		Line:      line,
		Target:    target,
	})
}

func (b *builder) export(project *symbols.Project, n symbols.ExportedName, origin symbols.Origin) {
	target := symbols.Target{Mode: symbols.TargetExport, Name: origin.Name}
	if origin.External() {
		target.Module = origin.Module
	} else {
		target.File = project.File(origin.File).Path
	}

	decl := project.Declaration(origin)
	kind := symbols.KindUnknown
	if decl != nil {
		kind = decl.Kind
	}
	b.add(n.Name, kind, false, symbols.LifecycleNone, n.Line, target)
	if decl == nil || decl.Class == nil {
		return
	}

	for _, m := range decl.Class.Members {
		if !m.Static {
			continue
		}
		st := target
		st.Mode = symbols.TargetStatic
		st.Member = m.Name
		b.add(n.Name+"."+m.Name, symbols.KindMember, true, symbols.LifecycleNone, m.Line, st)
	}

	if !decl.Class.HasLifecycle() {
		return
	}
	for _, lc := range symbols.Lifecycles {
		m, ok := decl.Class.Member(string(lc), false)
		if !ok || !m.Method {
			continue
		}
		if len(m.ReturnKeys) == 0 {
			b.add(m.Name, symbols.KindMember, false, lc, m.Line, symbols.Target{Mode: symbols.TargetNone})
			continue
		}
		for _, key := range m.ReturnKeys {
			b.add(key, symbols.KindMember, false, lc, m.Line, symbols.Target{
				Mode:       symbols.TargetProperty,
				Member:     key,
				PluginRoot: b.source.Plugin.RootPath,
				Plugin:     b.source.Plugin.Name,
			})
		}
	}
}
