package symbols

import (
	"strings"

	"pluginrefs/internal/plugins"
)

// Surface says which entry point of a plugin a symbol is exported from.
type Surface string

const (
	SurfacePublic Surface = "public"
	SurfaceServer Surface = "server"
)

// Lifecycle is a plugin contract phase. The zero value means none.
type Lifecycle string

const (
	LifecycleNone  Lifecycle = ""
	LifecycleSetup Lifecycle = "setup"
	LifecycleStart Lifecycle = "start"
	LifecycleStop  Lifecycle = "stop"
)

// Lifecycles lists the contract phases in declaration order.
var Lifecycles = []Lifecycle{LifecycleSetup, LifecycleStart, LifecycleStop}

// LifecycleOf returns the phase a method name denotes.
func LifecycleOf(method string) (Lifecycle, bool) {
	for _, lc := range Lifecycles {
		if string(lc) == method {
			return lc, true
		}
	}
	return LifecycleNone, false
}

// Kind classifies a declaration.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindVariable  Kind = "variable"
	KindInterface Kind = "interface"
	KindType      Kind = "type"
	KindEnum      Kind = "enum"
	KindNamespace Kind = "namespace"
	KindMember    Kind = "member"
	KindUnknown   Kind = "unknown"
)

// SourceInfo ties an exported symbol to the plugin and entry file it
// came from.
type SourceInfo struct {
	Plugin  plugins.PluginInfo
	File    string
	Surface Surface
}

// TargetMode selects how usages of a symbol are found.
type TargetMode uint8

const (
	// TargetNone symbols have no usage sites of their own.
	TargetNone TargetMode = iota
	// TargetExport matches occurrences of every binding of an export.
	TargetExport
	// TargetStatic matches Binding.member accesses on a class export.
	TargetStatic
	// TargetProperty matches .member accesses on the source plugin's
	// contract in files importing from the plugin.
	TargetProperty
)

// Target locates the declaration a symbol's usages point at.
type Target struct {
	Mode TargetMode
	// File is the declaring file. Empty for exports of unresolved packages.
	File string
	// Module is the bare specifier of an unresolved package export.
	Module string
	// Name is the local name in File, or the export name in Module.
	Name       string
	Member     string
	PluginRoot string
	// Plugin is the source plugin id, the key its contract is injected
	// under in dependents.
	Plugin string
}

// APISymbol is one exported entry of a plugin's API surface.
type APISymbol struct {
	ID        string
	Name      string
	Kind      Kind
	IsStatic  bool
	Lifecycle Lifecycle
	Source    SourceInfo
	Line      int
	Target    Target
}

// APIID composes plugin.surface[.lifecycle].name.
func APIID(plugin string, surface Surface, lifecycle Lifecycle, name string) string {
	parts := []string{plugin, string(surface)}
	if lifecycle != LifecycleNone {
		parts = append(parts, string(lifecycle))
	}
	parts = append(parts, name)
	return strings.Join(parts, ".")
}

// Location is a usage site.
type Location struct {
	File string
	Line int
}
