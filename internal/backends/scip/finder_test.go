package scip

import (
	"os"
	"path/filepath"
	"testing"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"pluginrefs/internal/errors"
	"pluginrefs/internal/symbols"
)

const (
	doThingSym = "scip-typescript npm kibana 1.0.0 src/plugins/a/public/`do_thing.ts`/doThing()."
	createSym  = "scip-typescript npm kibana 1.0.0 src/plugins/a/public/`service.ts`/Service#create()."
)

func writeIndex(t *testing.T) string {
	t.Helper()
	index := &scippb.Index{
		Metadata: &scippb.Metadata{
			ToolInfo:    &scippb.ToolInfo{Name: "scip-typescript", Version: "0.3.0", Arguments: []string{"index", "--commit=abc1234"}},
			ProjectRoot: "file:///repo",
		},
		Documents: []*scippb.Document{
			{
				RelativePath: "src/plugins/a/public/do_thing.ts",
				Occurrences: []*scippb.Occurrence{
					{Range: []int32{0, 16, 23}, Symbol: doThingSym, SymbolRoles: int32(scippb.SymbolRole_Definition)},
					{Range: []int32{4, 2, 9}, Symbol: doThingSym},
				},
			},
			{
				RelativePath: "src/plugins/a/public/service.ts",
				Occurrences: []*scippb.Occurrence{
					{Range: []int32{1, 9, 15}, Symbol: createSym, SymbolRoles: int32(scippb.SymbolRole_Definition)},
				},
			},
			{
				RelativePath: "src/plugins/b/file1.ts",
				Occurrences: []*scippb.Occurrence{
					{Range: []int32{0, 9, 16}, Symbol: doThingSym, SymbolRoles: int32(scippb.SymbolRole_Import)},
					{Range: []int32{9, 0, 7}, Symbol: doThingSym},
					{Range: []int32{11, 9, 15}, Symbol: createSym},
					{Range: []int32{12, 0, 3}, Symbol: "local 4"},
				},
			},
			{
				RelativePath: "src/plugins/b/file2.ts",
				Occurrences: []*scippb.Occurrence{
					{Range: []int32{19, 0, 7}, Symbol: doThingSym},
				},
			},
		},
	}
	data, err := proto.Marshal(index)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "index.scip")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

type fakeFallback struct {
	calls []symbols.Target
}

func (f *fakeFallback) Usages(t symbols.Target) ([]symbols.Location, error) {
	f.calls = append(f.calls, t)
	return []symbols.Location{{File: "fallback.ts", Line: 1}}, nil
}

func TestLoadIndex(t *testing.T) {
	idx, err := LoadIndex(writeIndex(t))
	require.NoError(t, err)
	assert.Len(t, idx.Documents, 4)
	assert.Equal(t, "abc1234", idx.IndexedCommit)
	assert.False(t, idx.IsStale("abc1234"))
	assert.True(t, idx.IsStale("def5678"))
	assert.NotNil(t, idx.Document("src/plugins/b/file2.ts"))
}

func TestLoadIndex_Missing(t *testing.T) {
	_, err := LoadIndex(filepath.Join(t.TempDir(), "nope.scip"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ReferenceIndexMissing))
}

func TestFinder_ExportUsages(t *testing.T) {
	idx, err := LoadIndex(writeIndex(t))
	require.NoError(t, err)
	f := NewFinder(idx, nil)

	locs, err := f.Usages(symbols.Target{Mode: symbols.TargetExport, File: "src/plugins/a/public/do_thing.ts", Name: "doThing"})
	require.NoError(t, err)
	assert.Equal(t, []symbols.Location{
		{File: "src/plugins/a/public/do_thing.ts", Line: 5},
		{File: "src/plugins/b/file1.ts", Line: 10},
		{File: "src/plugins/b/file2.ts", Line: 20},
	}, locs)
}

func TestFinder_StaticUsages(t *testing.T) {
	idx, err := LoadIndex(writeIndex(t))
	require.NoError(t, err)
	f := NewFinder(idx, nil)

	locs, err := f.Usages(symbols.Target{Mode: symbols.TargetStatic, File: "src/plugins/a/public/service.ts", Name: "Service", Member: "create"})
	require.NoError(t, err)
	assert.Equal(t, []symbols.Location{{File: "src/plugins/b/file1.ts", Line: 12}}, locs)
}

func TestFinder_DelegatesPropertyLookups(t *testing.T) {
	idx, err := LoadIndex(writeIndex(t))
	require.NoError(t, err)
	fb := &fakeFallback{}
	f := NewFinder(idx, fb)

	target := symbols.Target{Mode: symbols.TargetProperty, Member: "register", PluginRoot: "src/plugins/a"}
	locs, err := f.Usages(target)
	require.NoError(t, err)
	assert.Len(t, locs, 1)
	assert.Equal(t, []symbols.Target{target}, fb.calls)

	locs, err = f.Usages(symbols.Target{Mode: symbols.TargetNone})
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestExtractCommitFromToolInfo(t *testing.T) {
	tests := []struct {
		name string
		info ToolInfo
		want string
	}{
		{"commit flag", ToolInfo{Arguments: []string{"--commit=abc1234"}}, "abc1234"},
		{"git commit flag", ToolInfo{Arguments: []string{"--git-commit=deadbeef"}}, "deadbeef"},
		{"short flag", ToolInfo{Arguments: []string{"-c", "cafe123"}}, "cafe123"},
		{"version hash", ToolInfo{Version: "0123abcd"}, "0123abcd"},
		{"semver", ToolInfo{Version: "0.3.0"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.info
			assert.Equal(t, tt.want, extractCommitFromToolInfo(&info))
		})
	}
}
