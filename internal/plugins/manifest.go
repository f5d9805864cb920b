package plugins

import (
	"encoding/json"
	"fmt"
	"os"

	"pluginrefs/internal/jsonc"
	"pluginrefs/internal/ownership"
)

// manifest covers both the legacy kibana.json layout and kibana.jsonc.
type manifest struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Owner  json.RawMessage `json:"owner"`
	Plugin *struct {
		ID string `json:"id"`
	} `json:"plugin"`
}

type legacyOwner struct {
	Name       string `json:"name"`
	GithubTeam string `json:"githubTeam"`
}

// readManifest returns the plugin name and team named by a manifest file.
// team is "" when the manifest names no owner.
func readManifest(path string) (name, team string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	var m manifest
	if err := jsonc.Unmarshal(data, &m); err != nil {
		return "", "", fmt.Errorf("invalid manifest: %w", err)
	}

	switch {
	case m.Plugin != nil && m.Plugin.ID != "":
		name = m.Plugin.ID
	case m.ID != "":
		name = m.ID
	default:
		return "", "", fmt.Errorf("manifest has no id")
	}
	return name, ownerTeam(m.Owner), nil
}

// ownerTeam accepts "@org/team", ["@org/team", ...] or {"name", "githubTeam"}.
func ownerTeam(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return ownership.TeamName(s)
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		if len(list) > 0 {
			return ownership.TeamName(list[0])
		}
		return ""
	}
	var legacy legacyOwner
	if json.Unmarshal(raw, &legacy) == nil {
		if legacy.Name != "" {
			return legacy.Name
		}
		return legacy.GithubTeam
	}
	return ""
}
