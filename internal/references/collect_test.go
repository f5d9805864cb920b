package references

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluginrefs/internal/plugins"
	"pluginrefs/internal/slogutil"
	"pluginrefs/internal/symbols"
)

type fakeFinder map[symbols.Target][]symbols.Location

func (f fakeFinder) Usages(t symbols.Target) ([]symbols.Location, error) {
	locs, ok := f[t]
	if !ok {
		return nil, errors.New("unknown target")
	}
	return locs, nil
}

var (
	pluginA = plugins.PluginInfo{Name: "A", RootPath: "src/plugins/a", TeamOwner: "team-a"}
	pluginB = plugins.PluginInfo{Name: "B", RootPath: "src/plugins/b", TeamOwner: "team-b"}
	pluginC = plugins.PluginInfo{Name: "C", RootPath: "x-pack/plugins/c"}
)

func registry() *plugins.Registry {
	return plugins.NewRegistry("", []plugins.PluginInfo{pluginA, pluginB, pluginC}, []string{"x-pack"})
}

func doThing() symbols.APISymbol {
	return symbols.APISymbol{
		ID:     symbols.APIID("A", symbols.SurfacePublic, symbols.LifecycleNone, "doThing"),
		Name:   "doThing",
		Kind:   symbols.KindFunction,
		Source: symbols.SourceInfo{Plugin: pluginA, File: "src/plugins/a/public/index.ts", Surface: symbols.SurfacePublic},
		Target: symbols.Target{Mode: symbols.TargetExport, File: "src/plugins/a/public/do_thing.ts", Name: "doThing"},
	}
}

func TestCollect_CrossPluginOnly(t *testing.T) {
	sym := doThing()
	finder := fakeFinder{sym.Target: {
		{File: "src/plugins/a/public/internal.ts", Line: 5},
		{File: "src/plugins/b/file1.ts", Line: 10},
		{File: "src/plugins/b/file2.ts", Line: 20},
		{File: "src/plugins/b/file1.ts", Line: 10},
		{File: "scripts/build.ts", Line: 1},
	}}

	res := Collect([]symbols.APISymbol{sym}, registry(), finder, slogutil.NewDiscardLogger())
	require.Len(t, res.Facts, 2)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.PerSymbol["A.public.doThing"])
	assert.Empty(t, res.Errors)

	assert.Equal(t, "A.public.doThing.src/plugins/b/file1.ts:10", res.Facts[0].DocID())
	assert.Equal(t, "A.public.doThing.src/plugins/b/file2.ts:20", res.Facts[1].DocID())
	for _, f := range res.Facts {
		assert.Equal(t, "A", f.Source.Plugin)
		assert.Equal(t, "team-a", f.Source.Team)
		assert.Equal(t, "B", f.Reference.Plugin)
		assert.Equal(t, "team-b", f.Reference.Team)
		assert.NotEqual(t, f.Source.Plugin, f.Reference.Plugin)
	}
}

func TestCollect_DedupAcrossSymbolsSharingAnID(t *testing.T) {
	sym := doThing()
	again := sym
	again.Target.Name = "alias"
	finder := fakeFinder{
		sym.Target:   {{File: "src/plugins/b/file1.ts", Line: 10}},
		again.Target: {{File: "src/plugins/b/file1.ts", Line: 10}},
	}

	res := Collect([]symbols.APISymbol{sym, again}, registry(), finder, slogutil.NewDiscardLogger())
	assert.Len(t, res.Facts, 1)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, res.Total, len(res.Facts))
}

func TestCollect_RestrictedTierPerSide(t *testing.T) {
	sym := doThing()
	finder := fakeFinder{sym.Target: {{File: "x-pack/plugins/c/public/app.ts", Line: 3}}}

	res := Collect([]symbols.APISymbol{sym}, registry(), finder, slogutil.NewDiscardLogger())
	require.Len(t, res.Facts, 1)
	f := res.Facts[0]
	assert.False(t, f.Source.Restricted)
	assert.True(t, f.Reference.Restricted)
	assert.Equal(t, plugins.NoOwner, f.Reference.Team)
}

func TestCollect_FinderErrorsAreContained(t *testing.T) {
	broken := doThing()
	broken.ID = "A.public.broken"
	broken.Target.Name = "broken"
	sym := doThing()
	finder := fakeFinder{sym.Target: {{File: "src/plugins/b/file1.ts", Line: 10}}}

	res := Collect([]symbols.APISymbol{broken, sym}, registry(), finder, slogutil.NewDiscardLogger())
	assert.Len(t, res.Errors, 1)
	assert.Len(t, res.Facts, 1)
	assert.Equal(t, 0, res.PerSymbol["A.public.broken"])
}

func TestCollect_Idempotent(t *testing.T) {
	sym := doThing()
	finder := fakeFinder{sym.Target: {
		{File: "src/plugins/b/file2.ts", Line: 20},
		{File: "src/plugins/b/file1.ts", Line: 10},
	}}

	first := Collect([]symbols.APISymbol{sym}, registry(), finder, slogutil.NewDiscardLogger())
	second := Collect([]symbols.APISymbol{sym}, registry(), finder, slogutil.NewDiscardLogger())
	assert.Equal(t, first.Facts, second.Facts)
}
