package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluginrefs/internal/codemetrics"
	"pluginrefs/internal/plugins"
	"pluginrefs/internal/references"
	"pluginrefs/internal/symbols"
)

func TestReferenceDocuments(t *testing.T) {
	fact := references.Fact{
		Source:    references.SourceSide{ID: "a.public.doThing", Plugin: "a", Team: "team-a", File: "src/plugins/a/public/index.ts", Name: "doThing"},
		Reference: references.ReferenceSide{Plugin: "b", Team: "team-b", File: "x-pack/plugins/b/file1.ts", Line: 10, Restricted: true},
	}
	docs := ReferenceDocuments("kibana", []references.Fact{fact})
	require.Len(t, docs, 1)
	assert.Equal(t, "a.public.doThing.x-pack/plugins/b/file1.ts:10", docs[0].ID)

	ref := docs[0].Body["reference"].(map[string]interface{})
	assert.Equal(t, "kibana/x-pack/plugins/b/file1.ts", ref["file"].(map[string]interface{})["path"])
	assert.Equal(t, true, ref["restricted"])
	src := docs[0].Body["source"].(map[string]interface{})
	assert.Equal(t, false, src["restricted"])
}

func TestAPIAndPluginDocuments(t *testing.T) {
	a := plugins.PluginInfo{Name: "a", RootPath: "src/plugins/a", TeamOwner: "team-a", Source: "manifest"}
	b := plugins.PluginInfo{Name: "b", RootPath: "x-pack/plugins/b", Restricted: true, Source: "manifest"}
	registry := plugins.NewRegistry("", []plugins.PluginInfo{a, b}, []string{"x-pack"})

	syms := []symbols.APISymbol{
		{ID: "a.public.doThing", Name: "doThing", Kind: symbols.KindFunction, Source: symbols.SourceInfo{Plugin: a, File: "src/plugins/a/public/index.ts", Surface: symbols.SurfacePublic}},
		{ID: "a.public.Thing", Name: "Thing", Kind: symbols.KindClass, Source: symbols.SourceInfo{Plugin: a, File: "src/plugins/a/public/index.ts", Surface: symbols.SurfacePublic}},
	}
	facts := []references.Fact{
		{Source: references.SourceSide{ID: "a.public.doThing", Plugin: "a"}, Reference: references.ReferenceSide{Plugin: "b", File: "x-pack/plugins/b/x.ts", Line: 1}},
		{Source: references.SourceSide{ID: "a.public.doThing", Plugin: "a"}, Reference: references.ReferenceSide{Plugin: "b", File: "x-pack/plugins/b/x.ts", Line: 2}},
	}

	api := APIDocuments("kibana", syms, map[string]int{"a.public.doThing": 2}, registry)
	require.Len(t, api, 2)
	assert.Equal(t, 2, api[0].Body["referenceCount"])
	assert.Equal(t, 0, api[1].Body["referenceCount"])
	assert.Equal(t, "public", api[0].Body["surface"])

	pl := PluginDocuments("kibana", []plugins.PluginInfo{a, b}, syms, facts)
	require.Len(t, pl, 2)
	assert.Equal(t, "a@src/plugins/a", pl[0].ID)
	assert.Equal(t, 2, pl[0].Body["apiCount"])
	assert.Equal(t, 2, pl[0].Body["referenceCount"])
	assert.Equal(t, plugins.NoOwner, pl[1].Body["teamOwner"])
	assert.Equal(t, 0, pl[1].Body["apiCount"])
}

func TestCodeDocuments(t *testing.T) {
	docs := CodeDocuments("kibana", []codemetrics.FileMetrics{
		{Path: "src/plugins/a/public/legacy.js", Filename: "legacy.js", Capabilities: []string{"angular"}},
	})
	require.Len(t, docs, 1)
	assert.Equal(t, "src/plugins/a/public/legacy.js", docs[0].ID)
	assert.Equal(t, "kibana/src/plugins/a/public/legacy.js", docs[0].Body["fullFilename"])
	assert.Equal(t, true, docs[0].Body["hasAngular"])
	assert.Equal(t, false, docs[0].Body["hasUiPublic"])
}
