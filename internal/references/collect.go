// Package references finds cross-plugin usages of API symbols.
package references

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"pluginrefs/internal/plugins"
	"pluginrefs/internal/symbols"
)

// UsageFinder returns the usage sites of an API symbol.
type UsageFinder interface {
	Usages(t symbols.Target) ([]symbols.Location, error)
}

// SourceSide describes the exported symbol of a fact.
type SourceSide struct {
	ID         string            `json:"id"`
	Plugin     string            `json:"plugin"`
	Team       string            `json:"team"`
	File       string            `json:"file"`
	IsStatic   bool              `json:"isStatic"`
	Lifecycle  symbols.Lifecycle `json:"lifecycle,omitempty"`
	Name       string            `json:"name"`
	Restricted bool              `json:"restricted"`
}

// ReferenceSide describes the usage site of a fact.
type ReferenceSide struct {
	Plugin     string `json:"plugin"`
	Team       string `json:"team"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Restricted bool   `json:"restricted"`
}

// Fact is one usage of an API symbol from a different plugin.
type Fact struct {
	Source    SourceSide    `json:"source"`
	Reference ReferenceSide `json:"reference"`
}

// DocID is unique per (symbol, usage file, usage line).
func (f Fact) DocID() string {
	return f.Source.ID + "." + f.Reference.File + ":" + strconv.Itoa(f.Reference.Line)
}

// Result is the outcome of one collection run.
type Result struct {
	Facts     []Fact
	PerSymbol map[string]int
	Total     int
	// Errors are per-symbol lookup failures; those symbols have no facts.
	Errors []error
}

// Collect gathers the cross-plugin facts of every symbol. Usages owned by
// no plugin, or by the symbol's own plugin, are dropped, and a usage
// location is recorded at most once per symbol.
func Collect(syms []symbols.APISymbol, registry *plugins.Registry, finder UsageFinder, logger *slog.Logger) *Result {
	res := &Result{PerSymbol: make(map[string]int, len(syms))}
	seen := make(map[string]struct{})

	for _, sym := range syms {
		locs, err := finder.Usages(sym.Target)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", sym.ID, err))
			logger.Warn("Usage lookup failed", "symbol", sym.ID, "error", err.Error())
			continue
		}

		count := 0
		for _, loc := range locs {
			owner, ok := registry.ResolveOwner(loc.File)
			if !ok || owner.Name == sym.Source.Plugin.Name {
				continue
			}
			fact := Fact{
				Source: SourceSide{
					ID:         sym.ID,
					Plugin:     sym.Source.Plugin.Name,
					Team:       teamOf(sym.Source.Plugin),
					File:       sym.Source.File,
					IsStatic:   sym.IsStatic,
					Lifecycle:  sym.Lifecycle,
					Name:       sym.Name,
					Restricted: registry.IsRestricted(sym.Source.File),
				},
				Reference: ReferenceSide{
					Plugin:     owner.Name,
					Team:       teamOf(owner),
					File:       loc.File,
					Line:       loc.Line,
					Restricted: registry.IsRestricted(loc.File),
				},
			}
			id := fact.DocID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			res.Facts = append(res.Facts, fact)
			count++
		}
		res.PerSymbol[sym.ID] += count
		res.Total += count
		logger.Debug("Collected references", "symbol", sym.ID, "count", count)
	}

	sort.Slice(res.Facts, func(i, j int) bool { return res.Facts[i].DocID() < res.Facts[j].DocID() })
	return res
}

func teamOf(p plugins.PluginInfo) string {
	if p.TeamOwner == "" {
		return plugins.NoOwner
	}
	return p.TeamOwner
}
