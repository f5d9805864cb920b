// Package scip reads scip-typescript indexes and answers usage queries
// from them.
package scip

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pluginrefs/internal/errors"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// Index represents a loaded SCIP index
type Index struct {
	// Metadata contains index metadata
	Metadata *Metadata

	// Documents are all indexed documents
	Documents []*Document

	// LoadedAt is when the index was loaded
	LoadedAt time.Time

	// IndexedCommit is the git commit the index was built from
	IndexedCommit string

	byPath   map[string]*Document
	bySymbol map[string][]occurrenceRef
}

type occurrenceRef struct {
	doc *Document
	occ *Occurrence
}

// LoadIndex loads a SCIP index from the specified path
func LoadIndex(path string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.New(
			errors.ReferenceIndexMissing,
			fmt.Sprintf("SCIP index not found at %s", path),
			err,
		)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("Failed to read SCIP index from %s", path), err)
	}

	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		e := errors.New(errors.ReferenceIndexMissing, fmt.Sprintf("Failed to parse SCIP index from %s", path), err)
		e.SuggestedFixes = append([]errors.FixAction{{
			Type:        errors.RunCommand,
			Command:     "scip print --index=" + path,
			Description: "Verify SCIP index is valid",
		}}, e.SuggestedFixes...)
		return nil, e
	}
	return newIndex(&index), nil
}

func newIndex(index *scippb.Index) *Index {
	idx := &Index{
		Metadata:  convertMetadata(index.Metadata),
		Documents: make([]*Document, 0, len(index.Documents)),
		LoadedAt:  time.Now(),
		byPath:    make(map[string]*Document, len(index.Documents)),
		bySymbol:  make(map[string][]occurrenceRef),
	}
	for _, d := range index.Documents {
		doc := convertDocument(d)
		idx.Documents = append(idx.Documents, doc)
		idx.byPath[doc.RelativePath] = doc
		for _, occ := range doc.Occurrences {
			idx.bySymbol[occ.Symbol] = append(idx.bySymbol[occ.Symbol], occurrenceRef{doc: doc, occ: occ})
		}
	}
	if idx.Metadata != nil && idx.Metadata.ToolInfo != nil {
		idx.IndexedCommit = extractCommitFromToolInfo(idx.Metadata.ToolInfo)
	}
	return idx
}

// IsStale checks if the index is stale compared to the current HEAD commit
func (i *Index) IsStale(headCommit string) bool {
	// If we don't know the indexed commit, assume it's stale
	if i.IndexedCommit == "" {
		return true
	}
	return i.IndexedCommit != headCommit
}

// Document retrieves a document by its relative path
func (i *Index) Document(relativePath string) *Document {
	return i.byPath[relativePath]
}

func convertMetadata(meta *scippb.Metadata) *Metadata {
	if meta == nil {
		return nil
	}

	var toolInfo *ToolInfo
	if meta.ToolInfo != nil {
		toolInfo = &ToolInfo{
			Name:      meta.ToolInfo.Name,
			Version:   meta.ToolInfo.Version,
			Arguments: meta.ToolInfo.Arguments,
		}
	}

	return &Metadata{
		Version:     fmt.Sprintf("%d", meta.Version),
		ToolInfo:    toolInfo,
		ProjectRoot: meta.ProjectRoot,
	}
}

func convertDocument(doc *scippb.Document) *Document {
	occurrences := make([]*Occurrence, 0, len(doc.Occurrences))
	for _, occ := range doc.Occurrences {
		if len(occ.Range) < 3 || occ.Symbol == "" {
			continue
		}
		occurrences = append(occurrences, &Occurrence{
			Line:        int(occ.Range[0]) + 1,
			Symbol:      occ.Symbol,
			SymbolRoles: occ.SymbolRoles,
		})
	}
	return &Document{
		RelativePath: filepath.ToSlash(doc.RelativePath),
		Occurrences:  occurrences,
	}
}

// extractCommitFromToolInfo attempts to extract git commit from tool info
func extractCommitFromToolInfo(toolInfo *ToolInfo) string {
	// Common patterns:
	// --commit=<hash>
	// --git-commit=<hash>
	// -c <hash>
	for i, arg := range toolInfo.Arguments {
		if len(arg) > 9 && arg[:9] == "--commit=" {
			return arg[9:]
		}
		if len(arg) > 13 && arg[:13] == "--git-commit=" {
			return arg[13:]
		}
		if arg == "-c" && i+1 < len(toolInfo.Arguments) {
			return toolInfo.Arguments[i+1]
		}
	}

	if toolInfo.Version != "" && looksLikeCommitHash(toolInfo.Version) {
		return toolInfo.Version
	}
	return ""
}

// looksLikeCommitHash checks if a string looks like a git commit hash
func looksLikeCommitHash(s string) bool {
	if len(s) < 7 || len(s) > 40 {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// IndexPath returns the index path from config and repo root
func IndexPath(repoRoot string, configPath string) string {
	if filepath.IsAbs(configPath) {
		return configPath
	}
	return filepath.Join(repoRoot, configPath)
}
