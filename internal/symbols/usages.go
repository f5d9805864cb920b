package symbols

import (
	"sort"
	"strings"

	"pluginrefs/internal/paths"
)

// binding is a local name in a file that refers to an origin. Namespace
// bindings refer to a module whose members include the origin.
type binding struct {
	file      FileID
	local     string
	namespace bool
	via       FileID
}

// Usages returns the usage sites of a target, sorted by file and line.
// Import specifiers and export clauses are not usages.
func (p *Project) Usages(t Target) ([]Location, error) {
	var locs []Location
	switch t.Mode {
	case TargetExport:
		o, ok := p.OriginOf(t)
		if !ok {
			return nil, nil
		}
		locs = p.bindingUsages(o)
	case TargetStatic:
		o, ok := p.OriginOf(t)
		if !ok {
			return nil, nil
		}
		locs = p.memberUsages(o, t.Member)
	case TargetProperty:
		locs = p.propertyUsages(t)
	}
	return sortLocations(locs), nil
}

func (p *Project) bindingUsages(o Origin) []Location {
	var locs []Location
	for _, b := range p.bindings(o) {
		f := p.files[b.file]
		if b.namespace {
			for _, occ := range f.Occurrences {
				if occ.Flags&OccProperty == 0 || p.Name(occ.Object) != b.local {
					continue
				}
				if p.namespaceMember(b, p.Name(occ.Name), o) {
					locs = append(locs, Location{File: f.Path, Line: occ.Line})
				}
			}
			continue
		}
		for _, occ := range f.Occurrences {
			if occ.Flags&(OccProperty|OccDecl) == 0 && p.Name(occ.Name) == b.local {
				locs = append(locs, Location{File: f.Path, Line: occ.Line})
			}
		}
	}
	return locs
}

// namespaceMember reports whether ns.member resolves to o.
func (p *Project) namespaceMember(b binding, member string, o Origin) bool {
	if b.via == NoFile {
		return o.External() && o.Name == member
	}
	got, err := p.ResolveExport(b.via, member)
	return err == nil && got == o
}

func (p *Project) memberUsages(o Origin, member string) []Location {
	var locs []Location
	for _, b := range p.bindings(o) {
		if b.namespace {
			continue
		}
		f := p.files[b.file]
		for _, occ := range f.Occurrences {
			if occ.Flags&OccProperty != 0 && p.Name(occ.Object) == b.local && p.Name(occ.Name) == member {
				locs = append(locs, Location{File: f.Path, Line: occ.Line})
			}
		}
	}
	return locs
}

// propertyUsages finds .member accesses whose receiver reaches the source
// plugin's contract, in files that import from the plugin.
func (p *Project) propertyUsages(t Target) []Location {
	var locs []Location
	for _, f := range p.files {
		if !p.importsUnder(f, t.PluginRoot) {
			continue
		}
		for _, occ := range f.Occurrences {
			if occ.Flags&OccProperty == 0 || p.Name(occ.Name) != t.Member {
				continue
			}
			if p.contractReceiver(f, p.Name(occ.Receiver), t) {
				locs = append(locs, Location{File: f.Path, Line: occ.Line})
			}
		}
	}
	return locs
}

// contractReceiver reports whether a receiver path refers to the plugin's
// contract: a path ending in the plugin id (deps.a, plugins.a), a local
// initialized from such a path, or a local annotated with a type imported
// from the plugin.
func (p *Project) contractReceiver(f *File, path string, t Target) bool {
	seen := make(map[string]bool)
	for path != "" && !seen[path] {
		seen[path] = true
		if t.Plugin != "" && (path == t.Plugin || strings.HasSuffix(path, "."+t.Plugin)) {
			return true
		}
		if typ, ok := f.Typed[path]; ok && p.importedFrom(f, typ, t.PluginRoot) {
			return true
		}
		path = f.Aliases[path]
	}
	return false
}

// importedFrom reports whether local is an import of a file under root.
func (p *Project) importedFrom(f *File, local, root string) bool {
	for _, imp := range f.Imports {
		if imp.Local == local && imp.Target != NoFile && paths.HasPathPrefix(p.files[imp.Target].Path, root) {
			return true
		}
	}
	return false
}

func (p *Project) importsUnder(f *File, root string) bool {
	if root == "" {
		return false
	}
	for _, imp := range f.Imports {
		if imp.Target != NoFile && paths.HasPathPrefix(p.files[imp.Target].Path, root) {
			return true
		}
	}
	return false
}

// bindings finds every local name bound to o: the declaration itself and
// each import that resolves to it through any chain of re-exports.
func (p *Project) bindings(o Origin) []binding {
	if o.External() {
		return p.externalBindings(o)
	}

	var out []binding
	if o.Name != "default" && o.Name != "*" {
		out = append(out, binding{file: o.File, local: o.Name, via: NoFile})
	}
	for _, c := range p.reexportClosure(o.File) {
		for _, fid := range p.importers[c] {
			f := p.files[fid]
			for _, imp := range f.Imports {
				if imp.Target != c || imp.Local == "" {
					continue
				}
				if imp.Imported == "*" {
					if o.Name == "*" && c == o.File {
						out = append(out, binding{file: fid, local: imp.Local, via: NoFile})
					} else {
						out = append(out, binding{file: fid, local: imp.Local, namespace: true, via: c})
					}
					continue
				}
				if got, err := p.ResolveExport(c, imp.Imported); err == nil && got == o {
					out = append(out, binding{file: fid, local: imp.Local, via: NoFile})
				}
			}
		}
	}
	return out
}

func (p *Project) externalBindings(o Origin) []binding {
	var out []binding
	for _, fid := range p.externalImporters[o.Module] {
		for _, imp := range p.files[fid].Imports {
			if imp.Specifier != o.Module || imp.Local == "" {
				continue
			}
			switch imp.Imported {
			case "*":
				out = append(out, binding{file: fid, local: imp.Local, namespace: true, via: NoFile})
			case o.Name:
				out = append(out, binding{file: fid, local: imp.Local, via: NoFile})
			}
		}
	}
	return out
}

// reexportClosure returns id and every file that re-exports from it,
// directly or transitively.
func (p *Project) reexportClosure(id FileID) []FileID {
	seen := map[FileID]bool{id: true}
	queue := []FileID{id}
	for i := 0; i < len(queue); i++ {
		for _, r := range p.reexporters[queue[i]] {
			if !seen[r] {
				seen[r] = true
				queue = append(queue, r)
			}
		}
	}
	return queue
}

func sortLocations(locs []Location) []Location {
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].File != locs[j].File {
			return locs[i].File < locs[j].File
		}
		return locs[i].Line < locs[j].Line
	})
	out := locs[:0]
	for _, l := range locs {
		if len(out) > 0 && out[len(out)-1] == l {
			continue
		}
		out = append(out, l)
	}
	return out
}
