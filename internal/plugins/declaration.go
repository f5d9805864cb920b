package plugins

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"pluginrefs/internal/ownership"
	"pluginrefs/internal/paths"
)

// Declaration is one explicit plugin record in plugins.toml:
//
//	[[plugin]]
//	name = "data"
//	path = "src/plugins/data"
//	owner = "@elastic/kibana-app-services"
type Declaration struct {
	Name  string `toml:"name"`
	Path  string `toml:"path"`
	Owner string `toml:"owner,omitempty"`
}

// DeclarationFile is the root of plugins.toml.
type DeclarationFile struct {
	Version int           `toml:"version"`
	Plugins []Declaration `toml:"plugin"`
}

// ParseDeclarations reads a plugins.toml file.
func ParseDeclarations(path string) (*DeclarationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	var f DeclarationFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if f.Version < 1 {
		f.Version = 1
	}
	for i, d := range f.Plugins {
		if d.Path == "" || d.Name == "" {
			return nil, fmt.Errorf("plugin declaration %d needs both name and path", i+1)
		}
	}
	return &f, nil
}

// loadDeclarations returns nil when the file does not exist.
func loadDeclarations(repoRoot, file string) ([]Declaration, error) {
	if file == "" {
		return nil, nil
	}
	p := filepath.Join(repoRoot, file)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return nil, nil
	}
	f, err := ParseDeclarations(p)
	if err != nil {
		return nil, err
	}
	return f.Plugins, nil
}

// applyDeclarations overrides discovered plugins with declared values and
// appends declared plugins discovery missed.
func applyDeclarations(found map[string]*PluginInfo, decls []Declaration) {
	for _, d := range decls {
		root := paths.NormalizePath(d.Path)
		p, ok := found[root]
		if !ok {
			p = &PluginInfo{RootPath: root, TeamOwner: NoOwner}
			found[root] = p
		}
		p.Name = d.Name
		p.Source = "declared"
		if d.Owner != "" {
			p.TeamOwner = ownership.TeamName(d.Owner)
		}
	}
}
