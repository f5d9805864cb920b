package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pluginrefs/internal/paths"
	"pluginrefs/internal/plugins"
	"pluginrefs/internal/sweep"
)

var (
	ownerRoot   string
	ownerFormat string
)

var ownerCmd = &cobra.Command{
	Use:   "owner <path>...",
	Short: "Resolve the owning plugin and team of files",
	Long: `Resolve each path to the plugin whose root is its longest prefix.

Examples:
  pluginrefs owner src/plugins/data/public/index.ts
  pluginrefs owner x-pack/plugins/lens/public/app.tsx --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOwner,
}

func init() {
	ownerCmd.Flags().StringVar(&ownerRoot, "root", "", "Repository root (default: repo.localDir)")
	ownerCmd.Flags().StringVar(&ownerFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(ownerCmd)
}

// OwnerResponse is the output of the owner command for one path.
type OwnerResponse struct {
	Path       string `json:"path"`
	Plugin     string `json:"plugin"`
	Team       string `json:"team"`
	Restricted bool   `json:"restricted"`
}

func runOwner(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(ownerFormat)
	if err != nil {
		return err
	}
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	root := treeRoot(e.cfg, ownerRoot)
	registry, _, err := sweep.Registry(e.cfg, root, e.logger)
	if err != nil {
		return err
	}

	var out []OwnerResponse
	for _, arg := range args {
		p := arg
		if filepath.IsAbs(p) {
			if rel, err := paths.CanonicalizePath(p, root); err == nil {
				p = rel
			}
		}
		p = paths.NormalizePath(p)
		resp := OwnerResponse{Path: p, Plugin: plugins.NoOwner, Team: plugins.NoOwner, Restricted: registry.IsRestricted(p)}
		if info, ok := registry.ResolveOwner(p); ok {
			resp.Plugin = info.Name
			resp.Team = registry.ResolveTeam(p)
		}
		out = append(out, resp)
	}

	if format == FormatJSON {
		return writeJSON(os.Stdout, out)
	}
	for _, r := range out {
		fmt.Printf("%s\t%s\t%s\n", r.Path, r.Plugin, r.Team)
	}
	return nil
}
