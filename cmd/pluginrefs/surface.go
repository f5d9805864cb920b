package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pluginrefs/internal/config"
	"pluginrefs/internal/paths"
	"pluginrefs/internal/sweep"
	"pluginrefs/internal/symbols"
)

var (
	surfaceRoot   string
	surfaceKind   string
	surfaceFile   string
	surfaceFormat string
)

var surfaceCmd = &cobra.Command{
	Use:   "surface",
	Short: "Print the API symbols of the working tree",
	Long: `Extract the exported API of every plugin entry file in the working tree
and print one line per symbol. Nothing is checked out or indexed.

Examples:
  pluginrefs surface
  pluginrefs surface --kind contracts
  pluginrefs surface --file src/plugins/data/public/index.ts --format json`,
	Args: cobra.NoArgs,
	RunE: runSurface,
}

func init() {
	surfaceCmd.Flags().StringVar(&surfaceRoot, "root", "", "Repository root (default: repo.localDir)")
	surfaceCmd.Flags().StringVar(&surfaceKind, "kind", string(sweep.KindAPI), "Entry files to use (api, contracts)")
	surfaceCmd.Flags().StringVar(&surfaceFile, "file", "", "Only extract entry files whose path contains this value")
	surfaceCmd.Flags().StringVar(&surfaceFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(surfaceCmd)
}

// SymbolResponse is one API symbol in surface output.
type SymbolResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Plugin    string `json:"plugin"`
	Surface   string `json:"surface"`
	Lifecycle string `json:"lifecycle,omitempty"`
	IsStatic  bool   `json:"isStatic"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

func runSurface(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(surfaceFormat)
	if err != nil {
		return err
	}
	kind, err := sweep.ParseKind(surfaceKind)
	if err != nil {
		return err
	}
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	var entries []string
	if surfaceFile != "" {
		entries = []string{surfaceFile}
	}
	syms, failures, err := sweep.Surface(cmd.Context(), e.cfg, treeRoot(e.cfg, surfaceRoot), kind, entries, e.logger)
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "skipped: %s\n", f.Error())
	}

	out := make([]SymbolResponse, 0, len(syms))
	for _, s := range syms {
		out = append(out, symbolResponse(s))
	}
	if format == FormatJSON {
		return writeJSON(os.Stdout, out)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tFILE")
	for _, s := range out {
		fmt.Fprintf(w, "%s\t%s\t%s:%d\n", s.ID, s.Kind, s.File, s.Line)
	}
	return w.Flush()
}

func symbolResponse(s symbols.APISymbol) SymbolResponse {
	return SymbolResponse{
		ID:        s.ID,
		Name:      s.Name,
		Kind:      string(s.Kind),
		Plugin:    s.Source.Plugin.Name,
		Surface:   string(s.Source.Surface),
		Lifecycle: string(s.Lifecycle),
		IsStatic:  s.IsStatic,
		File:      s.Source.File,
		Line:      s.Line,
	}
}

// treeRoot returns flag when set and the configured checkout otherwise.
func treeRoot(cfg *config.Config, flag string) string {
	if flag != "" {
		return paths.ExpandHome(flag)
	}
	return cfg.Repo.LocalDir
}
