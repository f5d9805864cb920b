package symbols

import "pluginrefs/internal/complexity"

// FileID addresses a file in a Project arena.
type FileID int32

// NoFile marks an import or re-export whose source is not a project file.
const NoFile FileID = -1

// NameID is an interned identifier.
type NameID int32

// OccFlag qualifies an occurrence.
type OccFlag uint8

const (
	// OccProperty marks member positions: obj.name, ns.Type and
	// destructuring keys.
	OccProperty OccFlag = 1 << iota
	// OccDecl marks the name of a declaration.
	OccDecl
)

// Occurrence is one identifier position in a file.
type Occurrence struct {
	Name NameID
	// Object is the receiver identifier of a property occurrence, or -1.
	Object NameID
	// Receiver is the dotted receiver path of a property occurrence, such
	// as "deps.a" for deps.a.open or the initializer of a destructuring
	// declaration, or -1.
	Receiver NameID
	Line     int
	Flags    OccFlag
}

// Import is one binding introduced by an import statement.
type Import struct {
	Specifier string
	Target    FileID
	// Broken is set when a relative or aliased specifier matched no file.
	Broken bool
	// Imported is the exported name, "default", or "*" for a namespace.
	Imported string
	Local    string
	Line     int
	TypeOnly bool
}

// Export is one exported name. Re-exports carry the source specifier.
type Export struct {
	// Name is the exported name, or "*" for export * from.
	Name string
	// Local is the local binding, or the source's export name for
	// re-exports ("*" for export * as ns).
	Local     string
	Specifier string
	Target    FileID
	Broken    bool
	Line      int
}

// IsReexport reports whether the export names another module.
func (e Export) IsReexport() bool {
	return e.Specifier != ""
}

// Member is a class member.
type Member struct {
	Name   string
	Static bool
	Method bool
	Line   int
	// ReturnKeys are the keys of object literals the method returns.
	ReturnKeys []string
}

// ClassInfo describes the public members of a class declaration.
type ClassInfo struct {
	Members []Member
}

// HasLifecycle reports whether the class declares any contract phase.
func (c *ClassInfo) HasLifecycle() bool {
	if c == nil {
		return false
	}
	for _, m := range c.Members {
		if _, ok := LifecycleOf(m.Name); ok && m.Method && !m.Static {
			return true
		}
	}
	return false
}

// Member returns the named member.
func (c *ClassInfo) Member(name string, static bool) (Member, bool) {
	if c == nil {
		return Member{}, false
	}
	for _, m := range c.Members {
		if m.Name == name && m.Static == static {
			return m, true
		}
	}
	return Member{}, false
}

// Declaration is a top-level declaration of a file.
type Declaration struct {
	Name  string
	Kind  Kind
	Line  int
	Class *ClassInfo
}

// File is a parsed source file.
type File struct {
	ID       FileID
	Path     string
	Language complexity.Language
	Imports  []Import
	Exports  []Export

	// Decls holds top-level declarations by local name. Anonymous
	// default exports are stored as "default".
	Decls map[string]*Declaration

	Occurrences  []Occurrence
	SyntaxErrors bool

	// Aliases maps locals initialized from a property path, as in
	// `const x = deps.a`, to that path.
	Aliases map[string]string
	// Typed maps annotated locals, and class fields as "this.name", to
	// the name of their annotated type.
	Typed map[string]string

	// Err is set when the file could not be read or parsed at all.
	Err error
}

// importFor returns the import that binds local.
func (f *File) importFor(local string) (Import, bool) {
	for _, imp := range f.Imports {
		if imp.Local == local && imp.Imported != "" {
			return imp, true
		}
	}
	return Import{}, false
}

// rawOccurrence is an occurrence before interning.
type rawOccurrence struct {
	name     string
	object   string
	receiver string
	line     int
	flags    OccFlag
}

// parsedFile is what a parse worker hands to the arena builder.
type parsedFile struct {
	path         string
	language     complexity.Language
	imports      []Import
	exports      []Export
	decls        []*Declaration
	occurrences  []rawOccurrence
	aliases      map[string]string
	typed        map[string]string
	syntaxErrors bool
	err          error
}
