// Package plugins discovers the plugins of a checked-out codebase and
// attributes files to them.
package plugins

const (
	// NoOwner is the team of a file no plugin owns, or of a plugin whose
	// owner could not be determined.
	NoOwner = "noOwner"
	// NoPlugin is the plugin name of a file no plugin owns.
	NoPlugin = "noPlugin"
)

// Manifest file names in priority order.
const (
	ManifestJSONC = "kibana.jsonc"
	ManifestJSON  = "kibana.json"
)

// PluginInfo describes one plugin of a single snapshot. RootPath is
// repo-relative with forward slashes.
type PluginInfo struct {
	Name         string `json:"name"`
	RootPath     string `json:"rootPath"`
	TeamOwner    string `json:"teamOwner"`
	HasReadme    bool   `json:"hasReadme"`
	ManifestPath string `json:"manifestPath,omitempty"`
	// Restricted marks plugins under a commercially restricted subtree.
	Restricted bool `json:"restricted"`
	// Source is "manifest", "declared" or "degraded".
	Source string `json:"source"`
}

// Failure records a plugin whose metadata could not be read.
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return f.Path + ": " + f.Err.Error()
}
