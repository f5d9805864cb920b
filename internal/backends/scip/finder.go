package scip

import (
	"sort"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"

	"pluginrefs/internal/symbols"
)

// Fallback answers the queries an index cannot: property accesses and
// exports of packages outside the project.
type Fallback interface {
	Usages(t symbols.Target) ([]symbols.Location, error)
}

// Finder finds usages through the index.
type Finder struct {
	index    *Index
	fallback Fallback
}

// NewFinder wraps an index. fallback may be nil.
func NewFinder(index *Index, fallback Fallback) *Finder {
	return &Finder{index: index, fallback: fallback}
}

// Usages returns non-definition, non-import occurrences of the symbols
// defined for t in its declaring file.
func (f *Finder) Usages(t symbols.Target) ([]symbols.Location, error) {
	switch {
	case t.Mode == symbols.TargetNone:
		return nil, nil
	case t.Mode == symbols.TargetProperty || t.File == "":
		if f.fallback == nil {
			return nil, nil
		}
		return f.fallback.Usages(t)
	}

	doc := f.index.Document(t.File)
	if doc == nil {
		return nil, nil
	}
	targets := map[string]bool{}
	for _, occ := range doc.Occurrences {
		if occ.IsDefinition() && matches(occ.Symbol, t) {
			targets[occ.Symbol] = true
		}
	}

	var locs []symbols.Location
	for sym := range targets {
		for _, ref := range f.index.bySymbol[sym] {
			if ref.occ.IsDefinition() || ref.occ.IsImport() {
				continue
			}
			locs = append(locs, symbols.Location{File: ref.doc.RelativePath, Line: ref.occ.Line})
		}
	}
	sort.Slice(locs, func(i, j int) bool {
		if locs[i].File != locs[j].File {
			return locs[i].File < locs[j].File
		}
		return locs[i].Line < locs[j].Line
	})
	return locs, nil
}

// matches reports whether a global symbol names t. Exports are file-level
// descriptors; static members hang off the exported type.
func matches(symbol string, t symbols.Target) bool {
	if strings.HasPrefix(symbol, "local ") {
		return false
	}
	parsed, err := scippb.ParseSymbol(symbol)
	if err != nil || len(parsed.Descriptors) == 0 {
		return false
	}
	ds := parsed.Descriptors
	last := ds[len(ds)-1]

	var owners []*scippb.Descriptor
	switch t.Mode {
	case symbols.TargetExport:
		if last.Name != t.Name {
			return false
		}
		owners = ds[:len(ds)-1]
	case symbols.TargetStatic:
		if len(ds) < 2 || last.Name != t.Member || ds[len(ds)-2].Name != t.Name {
			return false
		}
		owners = ds[:len(ds)-2]
	default:
		return false
	}
	for _, d := range owners {
		if d.Suffix != scippb.Descriptor_Namespace {
			return false
		}
	}
	return true
}
