package symbols

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"pluginrefs/internal/paths"
)

var (
	// ErrNotExported is returned when a module has no export of a name.
	ErrNotExported = errors.New("name is not exported")
	// ErrBrokenReexport is returned when an export chain passes through
	// a relative or aliased specifier that matches no project file.
	ErrBrokenReexport = errors.New("re-export source not found")
)

// Origin is the declaration an export chain ends at. External origins
// name a package specifier that is not part of the project.
type Origin struct {
	File   FileID
	Module string
	Name   string
}

// External reports whether the origin lies outside the project.
func (o Origin) External() bool {
	return o.File == NoFile
}

type exportKey struct {
	file FileID
	name string
}

// Project is an arena of parsed source files. It is read-only once
// built; export resolution results are memoized under a lock.
type Project struct {
	root   string
	files  []*File
	byPath map[string]FileID

	names   []string
	nameIDs map[string]NameID

	importers         map[FileID][]FileID
	reexporters       map[FileID][]FileID
	externalImporters map[string][]FileID

	mu      sync.Mutex
	origins map[exportKey]Origin

	tsconfig string
}

func buildProject(root string, parsed []*parsedFile, tsconfigPath string) (*Project, error) {
	p := &Project{
		root:              root,
		byPath:            make(map[string]FileID, len(parsed)),
		nameIDs:           make(map[string]NameID),
		importers:         make(map[FileID][]FileID),
		reexporters:       make(map[FileID][]FileID),
		externalImporters: make(map[string][]FileID),
		origins:           make(map[exportKey]Origin),
	}
	for i, pf := range parsed {
		p.byPath[pf.path] = FileID(i)
	}
	resolver, err := NewModuleResolver(root, tsconfigPath, func(rel string) bool {
		_, ok := p.byPath[rel]
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("loading tsconfig: %w", err)
	}
	p.tsconfig = resolver.TSConfig()

	p.files = make([]*File, len(parsed))
	for i, pf := range parsed {
		f := &File{
			ID:           FileID(i),
			Path:         pf.path,
			Language:     pf.language,
			Imports:      pf.imports,
			Exports:      pf.exports,
			Decls:        make(map[string]*Declaration, len(pf.decls)),
			SyntaxErrors: pf.syntaxErrors,
			Aliases:      pf.aliases,
			Typed:        pf.typed,
			Err:          pf.err,
		}
		for _, d := range pf.decls {
			if _, dup := f.Decls[d.Name]; !dup {
				f.Decls[d.Name] = d
			}
		}
		f.Occurrences = make([]Occurrence, len(pf.occurrences))
		for j, o := range pf.occurrences {
			f.Occurrences[j] = Occurrence{
				Name:     p.intern(o.name),
				Object:   p.internOptional(o.object),
				Receiver: p.internOptional(o.receiver),
				Line:     o.line,
				Flags:    o.flags,
			}
		}
		p.files[i] = f
	}

	for _, f := range p.files {
		p.link(f, resolver)
	}
	return p, nil
}

// link resolves a file's specifiers and records the reverse edges.
func (p *Project) link(f *File, resolver *ModuleResolver) {
	seenImport := map[FileID]bool{}
	seenExternal := map[string]bool{}
	localTargets := map[string]FileID{}

	for i := range f.Imports {
		imp := &f.Imports[i]
		target, relative := resolver.Resolve(f.Path, imp.Specifier)
		imp.Target = p.idOf(target)
		imp.Broken = imp.Target == NoFile && relative
		switch {
		case imp.Target != NoFile:
			if !seenImport[imp.Target] {
				seenImport[imp.Target] = true
				p.importers[imp.Target] = append(p.importers[imp.Target], f.ID)
			}
			localTargets[imp.Local] = imp.Target
		case !relative && !seenExternal[imp.Specifier]:
			seenExternal[imp.Specifier] = true
			p.externalImporters[imp.Specifier] = append(p.externalImporters[imp.Specifier], f.ID)
		}
	}

	seenReexport := map[FileID]bool{}
	addReexporter := func(target FileID) {
		if target != NoFile && !seenReexport[target] {
			seenReexport[target] = true
			p.reexporters[target] = append(p.reexporters[target], f.ID)
		}
	}
	for i := range f.Exports {
		exp := &f.Exports[i]
		if exp.IsReexport() {
			target, relative := resolver.Resolve(f.Path, exp.Specifier)
			exp.Target = p.idOf(target)
			exp.Broken = exp.Target == NoFile && relative
			addReexporter(exp.Target)
			continue
		}
		exp.Target = NoFile
		if t, ok := localTargets[exp.Local]; ok {
			addReexporter(t)
		}
	}
}

func (p *Project) idOf(rel string) FileID {
	if rel == "" {
		return NoFile
	}
	if id, ok := p.byPath[rel]; ok {
		return id
	}
	return NoFile
}

func (p *Project) intern(s string) NameID {
	if id, ok := p.nameIDs[s]; ok {
		return id
	}
	id := NameID(len(p.names))
	p.names = append(p.names, s)
	p.nameIDs[s] = id
	return id
}

// internOptional interns s, mapping "" to -1.
func (p *Project) internOptional(s string) NameID {
	if s == "" {
		return -1
	}
	return p.intern(s)
}

// TSConfig returns the tsconfig used for path aliases, or "" when none
// was found.
func (p *Project) TSConfig() string { return p.tsconfig }

// Root returns the directory the project was loaded from.
func (p *Project) Root() string { return p.root }

// Files returns every file in path order.
func (p *Project) Files() []*File { return p.files }

// Len returns the number of files.
func (p *Project) Len() int { return len(p.files) }

// File returns the file with the given id.
func (p *Project) File(id FileID) *File {
	if id < 0 || int(id) >= len(p.files) {
		return nil
	}
	return p.files[id]
}

// Lookup returns the file at a repo-relative path.
func (p *Project) Lookup(rel string) (*File, bool) {
	id, ok := p.byPath[paths.NormalizePath(rel)]
	if !ok {
		return nil, false
	}
	return p.files[id], true
}

// Name returns an interned identifier.
func (p *Project) Name(id NameID) string {
	if id < 0 || int(id) >= len(p.names) {
		return ""
	}
	return p.names[id]
}

// ResolveExport follows re-exports and imported bindings until the
// declaration behind an exported name is found.
func (p *Project) ResolveExport(id FileID, name string) (Origin, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolveExport(id, name, map[exportKey]bool{})
}

func (p *Project) resolveExport(id FileID, name string, visiting map[exportKey]bool) (Origin, error) {
	key := exportKey{id, name}
	if o, ok := p.origins[key]; ok {
		return o, nil
	}
	if visiting[key] {
		return Origin{}, fmt.Errorf("%w: cycle at %s#%s", ErrNotExported, p.files[id].Path, name)
	}
	visiting[key] = true

	f := p.files[id]
	for _, e := range f.Exports {
		if e.Name != name {
			continue
		}
		o, err := p.followExport(f, e, visiting)
		if err == nil {
			p.origins[key] = o
		}
		return o, err
	}

	if name != "default" {
		var broken error
		for _, e := range f.Exports {
			if e.Name != "*" {
				continue
			}
			if e.Broken {
				broken = fmt.Errorf("%w: %s in %s", ErrBrokenReexport, e.Specifier, f.Path)
				continue
			}
			if e.Target == NoFile {
				continue
			}
			if o, err := p.resolveExport(e.Target, name, visiting); err == nil {
				p.origins[key] = o
				return o, nil
			}
		}
		if broken != nil {
			return Origin{}, broken
		}
	}
	return Origin{}, fmt.Errorf("%w: %s#%s", ErrNotExported, f.Path, name)
}

func (p *Project) followExport(f *File, e Export, visiting map[exportKey]bool) (Origin, error) {
	if e.IsReexport() {
		return p.follow(f, e.Specifier, e.Target, e.Broken, e.Local, visiting)
	}
	if imp, ok := f.importFor(e.Local); ok {
		return p.follow(f, imp.Specifier, imp.Target, imp.Broken, imp.Imported, visiting)
	}
	return Origin{File: f.ID, Name: e.Local}, nil
}

func (p *Project) follow(f *File, spec string, target FileID, broken bool, name string, visiting map[exportKey]bool) (Origin, error) {
	switch {
	case broken:
		return Origin{}, fmt.Errorf("%w: %s in %s", ErrBrokenReexport, spec, f.Path)
	case target == NoFile:
		return Origin{File: NoFile, Module: spec, Name: name}, nil
	case name == "*":
		return Origin{File: target, Name: "*"}, nil
	default:
		return p.resolveExport(target, name, visiting)
	}
}

// ExportedName is a name a module makes visible.
type ExportedName struct {
	Name string
	Line int
}

// ExportsOf lists a module's exported names, expanding export * from.
// The default export is not carried through star re-exports.
func (p *Project) ExportsOf(id FileID) ([]ExportedName, error) {
	seen := map[string]bool{}
	var out []ExportedName
	if err := p.collectExports(id, true, seen, map[FileID]bool{}, &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *Project) collectExports(id FileID, top bool, seen map[string]bool, visited map[FileID]bool, out *[]ExportedName) error {
	if visited[id] {
		return nil
	}
	visited[id] = true
	f := p.files[id]
	for _, e := range f.Exports {
		if e.Name == "*" || seen[e.Name] || (!top && e.Name == "default") {
			continue
		}
		seen[e.Name] = true
		*out = append(*out, ExportedName{Name: e.Name, Line: e.Line})
	}
	for _, e := range f.Exports {
		if e.Name != "*" {
			continue
		}
		if e.Broken {
			return fmt.Errorf("%w: %s in %s", ErrBrokenReexport, e.Specifier, f.Path)
		}
		if e.Target == NoFile {
			continue
		}
		if err := p.collectExports(e.Target, false, seen, visited, out); err != nil {
			return err
		}
	}
	return nil
}

// Declaration returns the declaration an origin names, if it is known.
func (p *Project) Declaration(o Origin) *Declaration {
	if o.External() {
		return nil
	}
	f := p.File(o.File)
	if f == nil {
		return nil
	}
	return f.Decls[o.Name]
}

// OriginOf builds the origin a target refers to.
func (p *Project) OriginOf(t Target) (Origin, bool) {
	if t.File == "" {
		return Origin{File: NoFile, Module: t.Module, Name: t.Name}, t.Module != ""
	}
	f, ok := p.Lookup(t.File)
	if !ok {
		return Origin{}, false
	}
	return Origin{File: f.ID, Name: t.Name}, true
}
