package ownership

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# Kibana ownership
* @elastic/kibana-operations

/src/plugins/data/ @elastic/kibana-app-services
/x-pack/plugins/ml/ @elastic/ml-ui   # trailing comment
*.md @elastic/docs
/src/plugins/data/public/search/ @elastic/kibana-data-discovery
!/src/plugins/data/README.md
/scripts/ ops@example.com
/orphan/
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	// "/orphan/" has no owner and is skipped.
	if len(c.Rules) != 7 {
		t.Fatalf("expected 7 rules, got %d", len(c.Rules))
	}
	if c.Rules[2].Pattern != "/x-pack/plugins/ml/" || c.Rules[2].Owners[0] != "@elastic/ml-ui" {
		t.Errorf("rule 2 = %+v", c.Rules[2])
	}
	if !c.Rules[5].IsNegation {
		t.Error("expected negation rule")
	}
}

func TestOwnersFor(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want string
	}{
		{"src/plugins/data/public/index.ts", "@elastic/kibana-app-services"},
		{"src/plugins/data/public/search/fetch.ts", "@elastic/kibana-data-discovery"},
		{"x-pack/plugins/ml/server/plugin.ts", "@elastic/ml-ui"},
		{"packages/kbn-utils/index.ts", "@elastic/kibana-operations"},
		{"docs/setup.md", "@elastic/docs"},
		{"scripts/build.js", "ops@example.com"},
		{"src/plugins/data/README.md", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			owners := c.OwnersFor(tt.path)
			got := ""
			if len(owners) > 0 {
				got = owners[0]
			}
			if got != tt.want {
				t.Errorf("OwnersFor(%q) = %v, want %q", tt.path, owners, tt.want)
			}
		})
	}
}

func TestTeamFor(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.TeamFor("x-pack/plugins/ml/public/index.ts"); got != "ml-ui" {
		t.Errorf("TeamFor = %q, want ml-ui", got)
	}

	var none *Codeowners
	if got := none.TeamFor("anything.ts"); got != "" {
		t.Errorf("nil Codeowners TeamFor = %q", got)
	}
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	if c, err := Load(root); err != nil || c != nil {
		t.Fatalf("Load without CODEOWNERS = %v, %v", c, err)
	}

	if err := os.MkdirAll(filepath.Join(root, ".github"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".github", "CODEOWNERS"), []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c == nil || !strings.HasSuffix(c.Path, filepath.Join(".github", "CODEOWNERS")) {
		t.Fatalf("Load returned %+v", c)
	}
}

func TestTeamName(t *testing.T) {
	for in, want := range map[string]string{
		"@elastic/kibana-core": "kibana-core",
		"@someone":             "someone",
		"ops@example.com":      "ops@example.com",
	} {
		if got := TeamName(in); got != want {
			t.Errorf("TeamName(%q) = %q, want %q", in, got, want)
		}
	}
}
