package scip

// Metadata represents SCIP index metadata
type Metadata struct {
	// Version is the SCIP protocol version
	Version string

	// ToolInfo contains information about the indexing tool
	ToolInfo *ToolInfo

	// ProjectRoot is the root directory of the project
	ProjectRoot string
}

// ToolInfo contains information about the indexing tool
type ToolInfo struct {
	Name      string
	Version   string
	Arguments []string
}

// Document is one indexed source file.
type Document struct {
	// RelativePath is the path relative to the project root
	RelativePath string

	Occurrences []*Occurrence
}

// Occurrence is a single symbol occurrence in a document.
type Occurrence struct {
	// Line is 1-based.
	Line        int
	Symbol      string
	SymbolRoles int32
}

// IsDefinition reports whether the occurrence defines its symbol.
func (o *Occurrence) IsDefinition() bool {
	return o.SymbolRoles&SymbolRoleDefinition != 0
}

// IsImport reports whether the occurrence is an import binding.
func (o *Occurrence) IsImport() bool {
	return o.SymbolRoles&SymbolRoleImport != 0
}

// SymbolRole constants (from SCIP protocol)
const (
	SymbolRoleDefinition  int32 = 1
	SymbolRoleImport      int32 = 2
	SymbolRoleWriteAccess int32 = 4
	SymbolRoleReadAccess  int32 = 8
)
