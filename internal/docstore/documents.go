package docstore

import (
	"pluginrefs/internal/codemetrics"
	"pluginrefs/internal/paths"
	"pluginrefs/internal/plugins"
	"pluginrefs/internal/references"
	"pluginrefs/internal/symbols"
)

// Index kinds.
const (
	KindReferences = "references"
	KindAPI        = "api"
	KindPlugins    = "plugins"
	KindCode       = "code"
)

var snapshotFields = Mapping{
	"commitHash":   Keyword,
	"commitDate":   Date,
	"indexDate":    Date,
	"checkoutDate": Keyword,
	"repo":         Keyword,
}

func withSnapshotFields(m Mapping) Mapping {
	out := make(Mapping, len(m)+len(snapshotFields))
	for k, v := range snapshotFields {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ReferenceMapping is the mapping of reference fact documents.
var ReferenceMapping = withSnapshotFields(Mapping{
	"source.id":            Keyword,
	"source.plugin":        Keyword,
	"source.team":          Keyword,
	"source.file.path":     Keyword,
	"source.isStatic":      Boolean,
	"source.lifecycle":     Keyword,
	"source.name":          Keyword,
	"source.restricted":    Boolean,
	"reference.plugin":     Keyword,
	"reference.team":       Keyword,
	"reference.file.path":  Keyword,
	"reference.line":       Long,
	"reference.restricted": Boolean,
})

// APIMapping is the mapping of API symbol documents.
var APIMapping = withSnapshotFields(Mapping{
	"id":             Keyword,
	"name":           Keyword,
	"plugin":         Keyword,
	"team":           Keyword,
	"kind":           Keyword,
	"surface":        Keyword,
	"lifecycle":      Keyword,
	"isStatic":       Boolean,
	"file.path":      Keyword,
	"line":           Long,
	"restricted":     Boolean,
	"referenceCount": Long,
})

// PluginMapping is the mapping of plugin documents.
var PluginMapping = withSnapshotFields(Mapping{
	"name":           Keyword,
	"path":           Keyword,
	"teamOwner":      Keyword,
	"hasReadme":      Boolean,
	"restricted":     Boolean,
	"source":         Keyword,
	"apiCount":       Long,
	"referenceCount": Long,
})

// CodeMapping is the mapping of file metrics documents.
var CodeMapping = withSnapshotFields(Mapping{
	"fullFilename":    Keyword,
	"dirs":            Keyword,
	"filename":        Keyword,
	"ext":             Keyword,
	"plugin":          Keyword,
	"teamOwner":       Keyword,
	"isTestFile":      Boolean,
	"loc":             Long,
	"source":          Long,
	"comment":         Long,
	"blank":           Long,
	"anyCount":        Long,
	"anyCountOverLoc": Double,
	"capabilities":    Keyword,
	"hasAngular":      Boolean,
	"hasUiPublic":     Boolean,
	"functions":       Long,
	"maxCyclomatic":   Long,
	"avgCyclomatic":   Double,
})

// ReferenceDocuments converts facts into documents keyed by fact ID.
func ReferenceDocuments(repo string, facts []references.Fact) []Document {
	docs := make([]Document, 0, len(facts))
	for _, f := range facts {
		docs = append(docs, Document{
			ID: f.DocID(),
			Body: map[string]interface{}{
				"repo": repo,
				"source": map[string]interface{}{
					"id":         f.Source.ID,
					"plugin":     f.Source.Plugin,
					"team":       f.Source.Team,
					"file":       map[string]interface{}{"path": paths.DisplayPath(repo, f.Source.File)},
					"isStatic":   f.Source.IsStatic,
					"lifecycle":  string(f.Source.Lifecycle),
					"name":       f.Source.Name,
					"restricted": f.Source.Restricted,
				},
				"reference": map[string]interface{}{
					"plugin":     f.Reference.Plugin,
					"team":       f.Reference.Team,
					"file":       map[string]interface{}{"path": paths.DisplayPath(repo, f.Reference.File)},
					"line":       f.Reference.Line,
					"restricted": f.Reference.Restricted,
				},
			},
		})
	}
	return docs
}

// APIDocuments converts API symbols into documents keyed by symbol ID.
// perSymbol carries the cross-plugin reference count of each symbol.
func APIDocuments(repo string, syms []symbols.APISymbol, perSymbol map[string]int, registry *plugins.Registry) []Document {
	docs := make([]Document, 0, len(syms))
	for _, s := range syms {
		team := s.Source.Plugin.TeamOwner
		if team == "" {
			team = plugins.NoOwner
		}
		docs = append(docs, Document{
			ID: s.ID,
			Body: map[string]interface{}{
				"repo":           repo,
				"id":             s.ID,
				"name":           s.Name,
				"plugin":         s.Source.Plugin.Name,
				"team":           team,
				"kind":           string(s.Kind),
				"surface":        string(s.Source.Surface),
				"lifecycle":      string(s.Lifecycle),
				"isStatic":       s.IsStatic,
				"file":           map[string]interface{}{"path": paths.DisplayPath(repo, s.Source.File)},
				"line":           s.Line,
				"restricted":     registry.IsRestricted(s.Source.File),
				"referenceCount": perSymbol[s.ID],
			},
		})
	}
	return docs
}

// PluginDocuments converts plugins into documents keyed by plugin name,
// with the number of API symbols each exposes and the number of
// cross-plugin references into it.
func PluginDocuments(repo string, infos []plugins.PluginInfo, syms []symbols.APISymbol, facts []references.Fact) []Document {
	apiCount := map[string]int{}
	for _, s := range syms {
		apiCount[s.Source.Plugin.Name]++
	}
	refCount := map[string]int{}
	for _, f := range facts {
		refCount[f.Source.Plugin]++
	}

	docs := make([]Document, 0, len(infos))
	for _, p := range infos {
		team := p.TeamOwner
		if team == "" {
			team = plugins.NoOwner
		}
		docs = append(docs, Document{
			// Names are not unique in degraded records; the root is.
			ID: p.Name + "@" + p.RootPath,
			Body: map[string]interface{}{
				"repo":           repo,
				"name":           p.Name,
				"path":           paths.DisplayPath(repo, p.RootPath),
				"teamOwner":      team,
				"hasReadme":      p.HasReadme,
				"restricted":     p.Restricted,
				"source":         p.Source,
				"apiCount":       apiCount[p.Name],
				"referenceCount": refCount[p.Name],
			},
		})
	}
	return docs
}

// CodeDocuments converts file metrics into documents keyed by path.
func CodeDocuments(repo string, files []codemetrics.FileMetrics) []Document {
	docs := make([]Document, 0, len(files))
	for _, m := range files {
		capabilities := m.Capabilities
		if capabilities == nil {
			capabilities = []string{}
		}
		docs = append(docs, Document{
			ID: m.Path,
			Body: map[string]interface{}{
				"repo":            repo,
				"fullFilename":    paths.DisplayPath(repo, m.Path),
				"dirs":            m.Dirs,
				"filename":        m.Filename,
				"ext":             m.Ext,
				"plugin":          m.Plugin,
				"teamOwner":       m.TeamOwner,
				"isTestFile":      m.IsTestFile,
				"loc":             m.Lines,
				"source":          m.SourceLines,
				"comment":         m.CommentLines,
				"blank":           m.BlankLines,
				"anyCount":        m.AnyCount,
				"anyCountOverLoc": m.AnyOverLoc,
				"capabilities":    capabilities,
				"hasAngular":      m.HasCapability("angular"),
				"hasUiPublic":     m.HasCapability("ui_public"),
				"functions":       m.Functions,
				"maxCyclomatic":   m.MaxCyclomatic,
				"avgCyclomatic":   m.AvgCyclomatic,
			},
		})
	}
	return docs
}
