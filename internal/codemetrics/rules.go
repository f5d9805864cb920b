package codemetrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Rule tags a file with a capability when its source contains any of the
// patterns.
type Rule struct {
	Tag      string   `yaml:"tag" toml:"tag"`
	Patterns []string `yaml:"patterns" toml:"patterns"`
}

// RuleSet is an ordered list of capability rules.
type RuleSet struct {
	Rules []Rule `yaml:"rules" toml:"rules"`
}

// DefaultRules detects legacy Angular code and imports from the legacy
// ui/public tree.
func DefaultRules() RuleSet {
	return RuleSet{Rules: []Rule{
		{
			Tag: "angular",
			Patterns: []string{
				"uiModules",
				".directive(",
				".service(",
				".controller(",
				"$scope",
				"Private(",
				"dangerouslyGetActiveInjector",
			},
		},
		{Tag: "ui_public", Patterns: []string{"from 'ui/"}},
	}}
}

// LoadRules reads a rule file. The format follows the extension: .yaml,
// .yml or .toml.
func LoadRules(path string) (RuleSet, error) {
	var rs RuleSet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return rs, err
		}
		if err := yaml.Unmarshal(data, &rs); err != nil {
			return rs, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &rs); err != nil {
			return rs, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return rs, fmt.Errorf("unsupported rule file %s", path)
	}
	for i, r := range rs.Rules {
		if r.Tag == "" {
			return rs, fmt.Errorf("%s: rule %d has no tag", path, i+1)
		}
		if len(r.Patterns) == 0 {
			return rs, fmt.Errorf("%s: rule %q has no patterns", path, r.Tag)
		}
	}
	return rs, nil
}

// Match returns the sorted, distinct tags whose rules match code.
func (rs RuleSet) Match(code string) []string {
	seen := map[string]bool{}
	var tags []string
	for _, r := range rs.Rules {
		if seen[r.Tag] {
			continue
		}
		for _, p := range r.Patterns {
			if strings.Contains(code, p) {
				seen[r.Tag] = true
				tags = append(tags, r.Tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}
