package symbols

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileSet(files ...string) func(string) bool {
	set := map[string]bool{}
	for _, f := range files {
		set[f] = true
	}
	return func(rel string) bool { return set[rel] }
}

func TestModuleResolver_Relative(t *testing.T) {
	exists := fileSet(
		"src/plugins/a/public/index.ts",
		"src/plugins/a/public/do_thing.ts",
		"src/plugins/a/public/components/index.tsx",
		"src/plugins/a/public/types.d.ts",
		"src/plugins/a/common/esm.ts",
	)
	r, err := NewModuleResolver("", "", exists)
	require.NoError(t, err)

	tests := []struct {
		from, spec string
		want       string
		relative   bool
	}{
		{"src/plugins/a/public/index.ts", "./do_thing", "src/plugins/a/public/do_thing.ts", true},
		{"src/plugins/a/public/index.ts", "./components", "src/plugins/a/public/components/index.tsx", true},
		{"src/plugins/a/public/index.ts", "./types", "src/plugins/a/public/types.d.ts", true},
		{"src/plugins/a/public/index.ts", "../common/esm.js", "src/plugins/a/common/esm.ts", true},
		{"src/plugins/a/public/components/index.tsx", "..", "src/plugins/a/public/index.ts", true},
		{"src/plugins/a/public/index.ts", "./missing", "", true},
		{"src/plugins/a/public/index.ts", "react", "", false},
	}
	for _, tt := range tests {
		got, relative := r.Resolve(tt.from, tt.spec)
		assert.Equal(t, tt.want, got, "%s from %s", tt.spec, tt.from)
		assert.Equal(t, tt.relative, relative, "%s from %s", tt.spec, tt.from)
	}
}

func TestModuleResolver_TSConfigPaths(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	write("tsconfig.base.json", `{
  // shared options
  "compilerOptions": {
    "baseUrl": ".",
    "paths": {
      "@kbn/core/*": ["src/core/*"],
      "@kbn/utils": ["packages/kbn-utils/src/index.ts"],
    },
  },
}`)
	write("x-pack/tsconfig.json", `{ "extends": "../tsconfig.base" }`)

	exists := fileSet(
		"src/core/public/index.ts",
		"packages/kbn-utils/src/index.ts",
		"src/legacy/ui.ts",
	)
	r, err := NewModuleResolver(root, "x-pack/tsconfig.json", exists)
	require.NoError(t, err)

	got, relative := r.Resolve("x-pack/plugins/b/public/app.ts", "@kbn/core/public")
	assert.Equal(t, "src/core/public/index.ts", got)
	assert.True(t, relative)

	got, _ = r.Resolve("x-pack/plugins/b/public/app.ts", "@kbn/utils")
	assert.Equal(t, "packages/kbn-utils/src/index.ts", got)

	got, relative = r.Resolve("x-pack/plugins/b/public/app.ts", "@kbn/core/missing")
	assert.Empty(t, got)
	assert.True(t, relative, "an alias that matches no file is a broken import")

	got, _ = r.Resolve("x-pack/plugins/b/public/app.ts", "src/legacy/ui")
	assert.Equal(t, "src/legacy/ui.ts", got, "baseUrl relative imports resolve")

	got, relative = r.Resolve("x-pack/plugins/b/public/app.ts", "lodash")
	assert.Empty(t, got)
	assert.False(t, relative)
}

func TestNewModuleResolver_MissingTSConfig(t *testing.T) {
	exists := fileSet("src/a.ts", "src/lib/index.ts")
	r, err := NewModuleResolver(t.TempDir(), "tsconfig.base.json", exists)
	require.NoError(t, err)
	assert.Empty(t, r.TSConfig())

	got, relative := r.Resolve("src/a.ts", "./lib")
	assert.True(t, relative)
	assert.Equal(t, "src/lib/index.ts", got)
}

func TestNewModuleResolver_FallsBackToTSConfigJSON(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"),
		[]byte(`{"compilerOptions": {"baseUrl": ".", "paths": {"@kbn/lib": ["src/lib"]}}}`), 0644))

	r, err := NewModuleResolver(root, "tsconfig.base.json", fileSet("src/lib/index.ts"))
	require.NoError(t, err)
	assert.Equal(t, "tsconfig.json", r.TSConfig())

	got, _ := r.Resolve("src/a.ts", "@kbn/lib")
	assert.Equal(t, "src/lib/index.ts", got)
}

func TestNewModuleResolver_BrokenTSConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte(`{"compilerOptions": `), 0644))

	_, err := NewModuleResolver(root, "tsconfig.json", fileSet())
	assert.Error(t, err)
}

func TestAPIID(t *testing.T) {
	assert.Equal(t, "a.public.doThing", APIID("a", SurfacePublic, LifecycleNone, "doThing"))
	assert.Equal(t, "a.server.setup.register", APIID("a", SurfaceServer, LifecycleSetup, "register"))
	assert.Equal(t, APIID("a", SurfacePublic, LifecycleStart, "x"), APIID("a", SurfacePublic, LifecycleStart, "x"))
}

func TestLifecycleOf(t *testing.T) {
	lc, ok := LifecycleOf("start")
	assert.True(t, ok)
	assert.Equal(t, LifecycleStart, lc)

	_, ok = LifecycleOf("mount")
	assert.False(t, ok)
}
